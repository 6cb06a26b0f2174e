package repository

import (
	"context"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// MemoryVenueRepository implements VenueRepository in memory
type MemoryVenueRepository struct {
	s *MemoryStore
}

func (r *MemoryVenueRepository) Create(ctx context.Context, venue *domain.Venue) error {
	return r.s.run(ctx, func() error {
		if _, ok := r.s.venues[venue.ID]; ok {
			return &domain.DuplicateKeyError{Entity: "venue", Key: venue.ID}
		}
		put(r.s, r.s.venues, venue.ID, venue.Clone())
		return nil
	})
}

func (r *MemoryVenueRepository) GetByID(ctx context.Context, id string) (*domain.Venue, error) {
	var out *domain.Venue
	err := r.s.run(ctx, func() error {
		v, ok := r.s.venues[id]
		if !ok {
			return domain.NewNotFoundError("venue", id)
		}
		out = v.Clone()
		return nil
	})
	return out, err
}

// Update writes the owner fields and keeps the derived rating and stats
func (r *MemoryVenueRepository) Update(ctx context.Context, venue *domain.Venue) error {
	return r.s.run(ctx, func() error {
		stored, ok := r.s.venues[venue.ID]
		if !ok {
			return domain.NewNotFoundError("venue", venue.ID)
		}
		next := venue.Clone()
		kept := stored.Clone()
		next.Rating = kept.Rating
		next.ReviewCount = kept.ReviewCount
		next.Stats = kept.Stats
		next.CreatedAt = kept.CreatedAt
		put(r.s, r.s.venues, next.ID, next)
		return nil
	})
}

func (r *MemoryVenueRepository) Delete(ctx context.Context, id string) error {
	return r.s.run(ctx, func() error {
		if !remove(r.s, r.s.venues, id) {
			return domain.NewNotFoundError("venue", id)
		}
		return nil
	})
}
