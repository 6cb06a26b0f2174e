package repository

import (
	"context"
	"sort"
	"time"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// MemoryCheckinRepository implements CheckinRepository in memory
type MemoryCheckinRepository struct {
	s *MemoryStore
}

func (r *MemoryCheckinRepository) Create(ctx context.Context, checkin *domain.Checkin) error {
	return r.s.run(ctx, func() error {
		if _, ok := r.s.checkins[checkin.ID]; ok {
			return &domain.DuplicateKeyError{Entity: "checkin", Key: checkin.ID}
		}
		// the unique (event_id, user_id) index also covers tombstoned rows
		for _, c := range r.s.checkins {
			if c.EventID == checkin.EventID && c.UserID == checkin.UserID {
				return &domain.DuplicateKeyError{Entity: "checkin", Key: checkin.EventID + "/" + checkin.UserID}
			}
		}
		put(r.s, r.s.checkins, checkin.ID, checkin.Clone())
		return nil
	})
}

func (r *MemoryCheckinRepository) GetByID(ctx context.Context, id string) (*domain.Checkin, error) {
	var out *domain.Checkin
	err := r.s.run(ctx, func() error {
		c, ok := r.s.checkins[id]
		if !ok || c.OrphanedAt != nil {
			return domain.NewNotFoundError("checkin", id)
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *MemoryCheckinRepository) Delete(ctx context.Context, id string) error {
	return r.s.run(ctx, func() error {
		if !remove(r.s, r.s.checkins, id) {
			return domain.NewNotFoundError("checkin", id)
		}
		return nil
	})
}

func (r *MemoryCheckinRepository) ListByEvent(ctx context.Context, eventID string, after *domain.Cursor, limit int) ([]*domain.Checkin, error) {
	return r.list(ctx, after, limit, func(c *domain.Checkin) bool { return c.EventID == eventID })
}

func (r *MemoryCheckinRepository) ListByUser(ctx context.Context, userID string, after *domain.Cursor, limit int) ([]*domain.Checkin, error) {
	return r.list(ctx, after, limit, func(c *domain.Checkin) bool { return c.UserID == userID })
}

func (r *MemoryCheckinRepository) list(ctx context.Context, after *domain.Cursor, limit int, match func(*domain.Checkin) bool) ([]*domain.Checkin, error) {
	var out []*domain.Checkin
	err := r.s.run(ctx, func() error {
		for _, c := range r.s.checkins {
			if c.OrphanedAt == nil && match(c) && afterTimeID(after, c.CursorFor(domain.SortByCreated)) {
				out = append(out, c.Clone())
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

func (r *MemoryCheckinRepository) OrphanByEvent(ctx context.Context, eventID string, at time.Time) (int64, error) {
	return r.orphan(ctx, at, func(c *domain.Checkin) bool { return c.EventID == eventID })
}

func (r *MemoryCheckinRepository) OrphanByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.orphan(ctx, at, func(c *domain.Checkin) bool { return c.UserID == userID })
}

func (r *MemoryCheckinRepository) orphan(ctx context.Context, at time.Time, match func(*domain.Checkin) bool) (int64, error) {
	var n int64
	err := r.s.run(ctx, func() error {
		for id, c := range r.s.checkins {
			if c.OrphanedAt != nil || !match(c) {
				continue
			}
			next := c.Clone()
			next.OrphanedAt = &at
			put(r.s, r.s.checkins, id, next)
			n++
		}
		return nil
	})
	return n, err
}
