package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/repository"
)

// checkinService implements CheckinService
type checkinService struct {
	tx       repository.TxManager
	checkins repository.CheckinRepository
	events   repository.EventRepository
	users    repository.UserRepository
	notifier *Notifier
	clock    clock.Clock
}

// NewCheckinService creates a new CheckinService
func NewCheckinService(repos *repository.Repositories, notifier *Notifier, clk clock.Clock) CheckinService {
	return &checkinService{
		tx:       repos.Tx,
		checkins: repos.Checkins,
		events:   repos.Events,
		users:    repos.Users,
		notifier: notifier,
		clock:    clk,
	}
}

// CreateCheckin admits a user to an event. The checkin and the attendee counter move together.
func (s *checkinService) CreateCheckin(ctx context.Context, req *dto.CreateCheckinRequest) (*domain.Checkin, error) {
	now := s.clock.Now()
	checkin := req.ToCheckin()
	checkin.ID = uuid.NewString()
	checkin.CreatedAt = now
	if checkin.CheckInTime.IsZero() {
		checkin.CheckInTime = now
	}
	if checkin.Method == "" {
		checkin.Method = domain.CheckinManual
	}
	if err := checkin.Validate(); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, checkin.EventID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return nil, domain.NewValidationError("eventId", "event %s does not exist", checkin.EventID)
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if checkin.TicketTier != "" && event.Tier(checkin.TicketTier) == nil {
		return nil, domain.NewValidationError("ticketTier", "event has no tier named %q", checkin.TicketTier)
	}
	if _, err := s.users.GetByID(ctx, checkin.UserID); err != nil {
		if domain.IsNotFoundError(err) {
			return nil, domain.NewValidationError("userId", "user %s does not exist", checkin.UserID)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if event.VenueID != nil {
		id := *event.VenueID
		checkin.VenueID = &id
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.checkins.Create(ctx, checkin); err != nil {
			return err
		}
		return s.events.AdmitAttendee(ctx, checkin.EventID, now)
	})
	if err != nil {
		return nil, err
	}

	notifyCheckin(ctx, s.notifier, checkin, nil)
	return checkin, nil
}

func (s *checkinService) GetCheckin(ctx context.Context, id string) (*domain.Checkin, error) {
	return s.checkins.GetByID(ctx, id)
}

// DeleteCheckin removes a checkin and recomputes the counters it fed
func (s *checkinService) DeleteCheckin(ctx context.Context, id string) error {
	checkin, err := s.checkins.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkins.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.Stats(ctx, domain.CheckinStatsJobs(checkin)...)
	return nil
}

func (s *checkinService) ListByEvent(ctx context.Context, eventID string, params *dto.ListParams) (*domain.Page[*domain.Checkin], error) {
	after, limit, err := params.Page()
	if err != nil {
		return nil, err
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	rows, err := s.checkins.ListByEvent(ctx, eventID, after, limit)
	if err != nil {
		return nil, err
	}
	page := domain.PageOf(rows, limit, domain.SortByCreated)
	return &page, nil
}

func (s *checkinService) ListByUser(ctx context.Context, userID string, params *dto.ListParams) (*domain.Page[*domain.Checkin], error) {
	after, limit, err := params.Page()
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := s.checkins.ListByUser(ctx, userID, after, limit)
	if err != nil {
		return nil, err
	}
	page := domain.PageOf(rows, limit, domain.SortByCreated)
	return &page, nil
}

// notifyCheckin runs the after-commit effects of a recorded checkin
func notifyCheckin(ctx context.Context, n *Notifier, checkin *domain.Checkin, extra map[string]interface{}) {
	n.Stats(ctx, domain.CheckinStatsJobs(checkin)...)
	data := map[string]interface{}{
		"checkinId": checkin.ID,
		"userId":    checkin.UserID,
		"method":    checkin.Method,
		"tier":      checkin.TicketTier,
	}
	for k, v := range extra {
		data[k] = v
	}
	n.Publish(ctx, domain.NewDomainEvent(domain.CheckinRecorded, checkin.EventID, checkin.CheckInTime, data))
}
