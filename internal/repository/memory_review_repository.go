package repository

import (
	"context"
	"sort"
	"time"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// MemoryReviewRepository implements ReviewRepository in memory
type MemoryReviewRepository struct {
	s *MemoryStore
}

func (r *MemoryReviewRepository) live(id string) (*domain.Review, error) {
	rv, ok := r.s.reviews[id]
	if !ok || rv.OrphanedAt != nil {
		return nil, domain.NewNotFoundError("review", id)
	}
	return rv, nil
}

func (r *MemoryReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return r.s.run(ctx, func() error {
		if _, ok := r.s.reviews[review.ID]; ok {
			return &domain.DuplicateKeyError{Entity: "review", Key: review.ID}
		}
		put(r.s, r.s.reviews, review.ID, review.Clone())
		return nil
	})
}

func (r *MemoryReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	var out *domain.Review
	err := r.s.run(ctx, func() error {
		rv, err := r.live(id)
		if err != nil {
			return err
		}
		out = rv.Clone()
		return nil
	})
	return out, err
}

// Update writes rating and comment
func (r *MemoryReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	return r.s.run(ctx, func() error {
		stored, err := r.live(review.ID)
		if err != nil {
			return err
		}
		next := stored.Clone()
		next.Rating = review.Rating
		next.Comment = review.Comment
		next.UpdatedAt = review.UpdatedAt
		put(r.s, r.s.reviews, next.ID, next)
		return nil
	})
}

func (r *MemoryReviewRepository) Delete(ctx context.Context, id string) error {
	return r.s.run(ctx, func() error {
		if !remove(r.s, r.s.reviews, id) {
			return domain.NewNotFoundError("review", id)
		}
		return nil
	})
}

func (r *MemoryReviewRepository) ListByTarget(ctx context.Context, target domain.ReviewTarget, targetID string, after *domain.Cursor, limit int) ([]*domain.Review, error) {
	return r.listBy(ctx, after, limit, func(rv *domain.Review) bool {
		t, id := rv.Target()
		return t == target && id == targetID
	})
}

func (r *MemoryReviewRepository) ListByUser(ctx context.Context, userID string, after *domain.Cursor, limit int) ([]*domain.Review, error) {
	return r.listBy(ctx, after, limit, func(rv *domain.Review) bool { return rv.UserID == userID })
}

func (r *MemoryReviewRepository) listBy(ctx context.Context, after *domain.Cursor, limit int, match func(*domain.Review) bool) ([]*domain.Review, error) {
	var out []*domain.Review
	err := r.s.run(ctx, func() error {
		for _, rv := range r.s.reviews {
			if rv.OrphanedAt != nil || !match(rv) {
				continue
			}
			if afterTimeID(after, rv.CursorFor(domain.SortByCreated)) {
				out = append(out, rv.Clone())
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

func (r *MemoryReviewRepository) OrphanByEvent(ctx context.Context, eventID string, at time.Time) (int64, error) {
	return r.orphan(ctx, at, func(rv *domain.Review) bool { return rv.EventID != nil && *rv.EventID == eventID })
}

func (r *MemoryReviewRepository) OrphanByVenue(ctx context.Context, venueID string, at time.Time) (int64, error) {
	return r.orphan(ctx, at, func(rv *domain.Review) bool { return rv.VenueID != nil && *rv.VenueID == venueID })
}

func (r *MemoryReviewRepository) OrphanByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.orphan(ctx, at, func(rv *domain.Review) bool { return rv.UserID == userID })
}

func (r *MemoryReviewRepository) orphan(ctx context.Context, at time.Time, match func(*domain.Review) bool) (int64, error) {
	var n int64
	err := r.s.run(ctx, func() error {
		for id, rv := range r.s.reviews {
			if rv.OrphanedAt != nil || !match(rv) {
				continue
			}
			next := rv.Clone()
			next.OrphanedAt = &at
			put(r.s, r.s.reviews, id, next)
			n++
		}
		return nil
	})
	return n, err
}
