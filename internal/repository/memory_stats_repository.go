package repository

import (
	"context"
	"sort"
	"time"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// MemoryStatsRepository implements StatsRepository in memory
type MemoryStatsRepository struct {
	s *MemoryStore
}

func (r *MemoryStatsRepository) RefreshVenueSnapshot(ctx context.Context, venueID string, at time.Time) ([]string, error) {
	ids := []string{}
	err := r.s.run(ctx, func() error {
		v, ok := r.s.venues[venueID]
		if !ok {
			return nil
		}
		for id, e := range r.s.events {
			if e.DeletedAt != nil || e.VenueID == nil || *e.VenueID != venueID {
				continue
			}
			next := e.Clone()
			next.Venue = v.Snapshot(at)
			put(r.s, r.s.events, id, next)
			ids = append(ids, id)
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}

func (r *MemoryStatsRepository) liveRatings(match func(*domain.Review) bool) []int {
	var ratings []int
	for _, rv := range r.s.reviews {
		if rv.OrphanedAt == nil && match(rv) {
			ratings = append(ratings, rv.Rating)
		}
	}
	return ratings
}

func (r *MemoryStatsRepository) RecomputeEventReviewStats(ctx context.Context, eventID string, at time.Time) error {
	return r.s.run(ctx, func() error {
		e, ok := r.s.events[eventID]
		if !ok || e.DeletedAt != nil {
			return domain.NewNotFoundError("event", eventID)
		}
		ratings := r.liveRatings(func(rv *domain.Review) bool { return rv.EventID != nil && *rv.EventID == eventID })
		next := e.Clone()
		next.Stats.ReviewCount = len(ratings)
		next.Stats.AverageRating = domain.AverageRating(ratings)
		next.Stats.LastUpdated = &at
		put(r.s, r.s.events, eventID, next)
		return nil
	})
}

func (r *MemoryStatsRepository) RecomputeVenueReviewStats(ctx context.Context, venueID string, at time.Time) error {
	return r.s.run(ctx, func() error {
		v, ok := r.s.venues[venueID]
		if !ok {
			return domain.NewNotFoundError("venue", venueID)
		}
		ratings := r.liveRatings(func(rv *domain.Review) bool { return rv.VenueID != nil && *rv.VenueID == venueID })
		next := v.Clone()
		next.ReviewCount = len(ratings)
		next.Rating = domain.AverageRating(ratings)
		next.Stats.LastUpdated = &at
		put(r.s, r.s.venues, venueID, next)
		return nil
	})
}

func (r *MemoryStatsRepository) RecomputeEventAttendance(ctx context.Context, eventID string, at time.Time) error {
	return r.s.run(ctx, func() error {
		e, ok := r.s.events[eventID]
		if !ok || e.DeletedAt != nil {
			return domain.NewNotFoundError("event", eventID)
		}
		attendees := 0
		for _, c := range r.s.checkins {
			if c.OrphanedAt == nil && c.EventID == eventID {
				attendees++
			}
		}
		next := e.Clone()
		next.Stats.TotalTicketsSold = next.TicketsSold()
		next.Stats.Revenue = next.Revenue()
		next.CurrentAttendees = attendees
		next.Stats.AttendanceRate = domain.AttendanceRate(attendees, next.MaxAttendees)
		next.Stats.LastUpdated = &at
		if err := checkEventRow(next); err != nil {
			return err
		}
		put(r.s, r.s.events, eventID, next)
		return nil
	})
}

func (r *MemoryStatsRepository) RecomputeVenueHostingStats(ctx context.Context, venueID string, at time.Time) error {
	return r.s.run(ctx, func() error {
		v, ok := r.s.venues[venueID]
		if !ok {
			return domain.NewNotFoundError("venue", venueID)
		}
		hosted, upcoming, checkins := 0, 0, 0
		for _, e := range r.s.events {
			if e.DeletedAt != nil || e.VenueID == nil || *e.VenueID != venueID {
				continue
			}
			if e.Status != domain.EventStatusCancelled {
				hosted++
			}
			if e.Status == domain.EventStatusPublished && e.StartDate.After(at) {
				upcoming++
			}
		}
		for _, c := range r.s.checkins {
			if c.OrphanedAt == nil && c.VenueID != nil && *c.VenueID == venueID {
				checkins++
			}
		}
		next := v.Clone()
		next.Stats.EventsHosted = hosted
		next.Stats.UpcomingEvents = upcoming
		next.Stats.TotalCheckins = checkins
		next.Stats.LastUpdated = &at
		put(r.s, r.s.venues, venueID, next)
		return nil
	})
}

func (r *MemoryStatsRepository) ListEventIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := r.s.run(ctx, func() error {
		for id, e := range r.s.events {
			if e.DeletedAt == nil {
				ids = append(ids, id)
			}
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}

func (r *MemoryStatsRepository) ListVenueIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := r.s.run(ctx, func() error {
		for id := range r.s.venues {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}
