package repository

import (
	"context"
	"sort"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// MemoryUserRepository implements UserRepository in memory
type MemoryUserRepository struct {
	s *MemoryStore
}

func (r *MemoryUserRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.s.users {
		if id != exceptID && domain.NormalizeEmail(u.Email) == domain.NormalizeEmail(email) {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.s.run(ctx, func() error {
		if _, ok := r.s.users[user.ID]; ok {
			return &domain.DuplicateKeyError{Entity: "user", Key: user.ID}
		}
		if r.emailTaken(user.Email, "") {
			return &domain.DuplicateKeyError{Entity: "user", Key: user.Email}
		}
		put(r.s, r.s.users, user.ID, user.Clone())
		return nil
	})
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.run(ctx, func() error {
		u, ok := r.s.users[id]
		if !ok {
			return domain.NewNotFoundError("user", id)
		}
		out = u.Clone()
		return nil
	})
	return out, err
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.s.run(ctx, func() error {
		stored, ok := r.s.users[user.ID]
		if !ok {
			return domain.NewNotFoundError("user", user.ID)
		}
		if r.emailTaken(user.Email, user.ID) {
			return &domain.DuplicateKeyError{Entity: "user", Key: user.Email}
		}
		next := user.Clone()
		next.CreatedAt = stored.CreatedAt
		put(r.s, r.s.users, next.ID, next)
		return nil
	})
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id string) error {
	return r.s.run(ctx, func() error {
		if !remove(r.s, r.s.users, id) {
			return domain.NewNotFoundError("user", id)
		}
		return nil
	})
}

func (r *MemoryUserRepository) List(ctx context.Context, after *domain.Cursor, limit int) ([]*domain.User, error) {
	var out []*domain.User
	err := r.s.run(ctx, func() error {
		for _, u := range r.s.users {
			if afterTimeID(after, u.CursorFor(domain.SortByCreated)) {
				out = append(out, u.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return timeIDLess(out[i].CursorFor(domain.SortByCreated), out[j].CursorFor(domain.SortByCreated))
	})
	return truncate(out, limit+1), nil
}
