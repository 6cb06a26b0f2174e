package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/repository"
)

// userService implements UserService
type userService struct {
	tx       repository.TxManager
	users    repository.UserRepository
	reviews  repository.ReviewRepository
	checkins repository.CheckinRepository
	notifier *Notifier
	clock    clock.Clock
}

// NewUserService creates a new UserService
func NewUserService(repos *repository.Repositories, notifier *Notifier, clk clock.Clock) UserService {
	return &userService{
		tx:       repos.Tx,
		users:    repos.Users,
		reviews:  repos.Reviews,
		checkins: repos.Checkins,
		notifier: notifier,
		clock:    clk,
	}
}

func (s *userService) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error) {
	now := s.clock.Now()
	user := req.ToUser()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context, params *dto.ListParams) (*domain.Page[*domain.User], error) {
	after, limit, err := params.Page()
	if err != nil {
		return nil, err
	}
	rows, err := s.users.List(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	page := domain.PageOf(rows, limit, domain.SortByCreated)
	return &page, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req *dto.UpdateUserRequest) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(user)
	user.UpdatedAt = s.clock.Now()
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes the user. Their reviews and checkins are tombstoned and the
// aggregates they fed are recomputed.
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	now := s.clock.Now()
	var reviews []*domain.Review
	var checkins []*domain.Checkin

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if reviews, err = collect(ctx, func(after *domain.Cursor, limit int) ([]*domain.Review, error) {
			return s.reviews.ListByUser(ctx, id, after, limit)
		}); err != nil {
			return err
		}
		if checkins, err = collect(ctx, func(after *domain.Cursor, limit int) ([]*domain.Checkin, error) {
			return s.checkins.ListByUser(ctx, id, after, limit)
		}); err != nil {
			return err
		}
		if err := s.users.Delete(ctx, id); err != nil {
			return err
		}
		if _, err := s.reviews.OrphanByUser(ctx, id, now); err != nil {
			return err
		}
		_, err = s.checkins.OrphanByUser(ctx, id, now)
		return err
	})
	if err != nil {
		return err
	}

	var jobs []domain.StatsJob
	for _, r := range reviews {
		jobs = append(jobs, domain.ReviewStatsJob(r))
	}
	for _, c := range checkins {
		jobs = append(jobs, domain.CheckinStatsJobs(c)...)
	}
	s.notifier.Stats(ctx, dedupeJobs(jobs)...)
	return nil
}

const collectBatch = 500

// collect drains a listing whose pages hold up to limit+1 rows
func collect[T interface{ CursorFor(domain.SortMode) domain.Cursor }](ctx context.Context, list func(after *domain.Cursor, limit int) ([]T, error)) ([]T, error) {
	var out []T
	var after *domain.Cursor
	for {
		rows, err := list(after, collectBatch)
		if err != nil {
			return nil, err
		}
		if len(rows) <= collectBatch {
			return append(out, rows...), nil
		}
		rows = rows[:collectBatch]
		out = append(out, rows...)
		c := rows[collectBatch-1].CursorFor(domain.SortByCreated)
		after = &c
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func dedupeJobs(jobs []domain.StatsJob) []domain.StatsJob {
	seen := make(map[domain.StatsJob]bool, len(jobs))
	out := jobs[:0]
	for _, j := range jobs {
		if !seen[j] {
			seen[j] = true
			out = append(out, j)
		}
	}
	return out
}
