package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// MemoryEventRepository implements EventRepository and TicketTierRepository in memory
type MemoryEventRepository struct {
	s *MemoryStore
}

func (r *MemoryEventRepository) live(id string) (*domain.Event, error) {
	e, ok := r.s.events[id]
	if !ok || e.DeletedAt != nil {
		return nil, domain.NewNotFoundError("event", id)
	}
	return e, nil
}

// checkEventRow applies the table constraints the Postgres schema enforces
func checkEventRow(e *domain.Event) error {
	if e.MaxAttendees > 0 && e.CurrentAttendees > e.MaxAttendees {
		return domain.NewValidationError("", "event violates a storage constraint")
	}
	for _, t := range e.TicketTiers {
		if t.Sold+t.Available != t.Allocation || t.Sold < 0 || t.Available < 0 {
			return domain.NewValidationError("", "ticket tier violates a storage constraint")
		}
	}
	return nil
}

func assignTierIDs(eventID string, tiers []domain.TicketTier) ([]domain.TicketTier, error) {
	out := make([]domain.TicketTier, len(tiers))
	seen := make(map[string]bool, len(tiers))
	for i, t := range tiers {
		if seen[t.Name] {
			return nil, &domain.DuplicateKeyError{Entity: "ticket tier", Key: eventID + "/" + t.Name}
		}
		seen[t.Name] = true
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		out[i] = t
	}
	return out, nil
}

func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	return r.s.run(ctx, func() error {
		if _, ok := r.s.events[event.ID]; ok {
			return &domain.DuplicateKeyError{Entity: "event", Key: event.ID}
		}
		tiers, err := assignTierIDs(event.ID, event.TicketTiers)
		if err != nil {
			return err
		}
		event.TicketTiers = tiers
		if err := checkEventRow(event); err != nil {
			return err
		}
		put(r.s, r.s.events, event.ID, event.Clone())
		return nil
	})
}

func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var out *domain.Event
	err := r.s.run(ctx, func() error {
		e, err := r.live(id)
		if err != nil {
			return err
		}
		out = e.Clone()
		return nil
	})
	return out, err
}

// Update writes the organizer-owned fields and keeps tiers and counters
func (r *MemoryEventRepository) Update(ctx context.Context, event *domain.Event) error {
	return r.s.run(ctx, func() error {
		stored, err := r.live(event.ID)
		if err != nil {
			return err
		}
		next := event.Clone()
		next.CurrentAttendees = stored.CurrentAttendees
		next.TicketTiers = append([]domain.TicketTier(nil), stored.TicketTiers...)
		next.Stats = stored.Clone().Stats
		next.CreatedAt = stored.CreatedAt
		next.DeletedAt = nil
		if err := checkEventRow(next); err != nil {
			return err
		}
		put(r.s, r.s.events, next.ID, next)
		return nil
	})
}

func (r *MemoryEventRepository) ReplaceTiers(ctx context.Context, eventID string, tiers []domain.TicketTier) error {
	return r.s.run(ctx, func() error {
		stored, err := r.live(eventID)
		if err != nil {
			return err
		}
		if stored.TicketsSold() > 0 {
			return domain.NewValidationError("ticketTiers", "cannot replace tiers after tickets were sold")
		}
		replaced, err := assignTierIDs(eventID, tiers)
		if err != nil {
			return err
		}
		next := stored.Clone()
		next.TicketTiers = replaced
		if err := checkEventRow(next); err != nil {
			return err
		}
		copy(tiers, replaced)
		put(r.s, r.s.events, eventID, next)
		return nil
	})
}

func (r *MemoryEventRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.s.run(ctx, func() error {
		stored, err := r.live(id)
		if err != nil {
			return err
		}
		next := stored.Clone()
		next.DeletedAt = &at
		next.UpdatedAt = at
		next.Status = domain.EventStatusCancelled
		put(r.s, r.s.events, id, next)
		return nil
	})
}

func (r *MemoryEventRepository) ApplyTicketSale(ctx context.Context, eventID string, price float64, at time.Time) error {
	return r.admit(ctx, eventID, 1, price, at)
}

func (r *MemoryEventRepository) AdmitAttendee(ctx context.Context, eventID string, at time.Time) error {
	return r.admit(ctx, eventID, 0, 0, at)
}

func (r *MemoryEventRepository) admit(ctx context.Context, eventID string, sold int, price float64, at time.Time) error {
	return r.s.run(ctx, func() error {
		stored, err := r.live(eventID)
		if err != nil {
			return err
		}
		if stored.MaxAttendees > 0 && stored.CurrentAttendees >= stored.MaxAttendees {
			return &domain.SoldOutError{EventID: eventID}
		}
		next := stored.Clone()
		next.Stats.TotalTicketsSold += sold
		next.Stats.Revenue = domain.RoundTo(next.Stats.Revenue+price, 2)
		next.CurrentAttendees++
		next.Stats.AttendanceRate = domain.AttendanceRate(next.CurrentAttendees, next.MaxAttendees)
		next.Stats.LastUpdated = &at
		put(r.s, r.s.events, eventID, next)
		return nil
	})
}

// GetForUpdate reads a tier. The store lock held by WithTx serializes callers.
func (r *MemoryEventRepository) GetForUpdate(ctx context.Context, eventID, name string) (*domain.TicketTier, error) {
	var out *domain.TicketTier
	err := r.s.run(ctx, func() error {
		e, err := r.live(eventID)
		if err != nil {
			return err
		}
		t := e.Tier(name)
		if t == nil {
			return domain.NewNotFoundError("ticket tier", eventID+"/"+name)
		}
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *MemoryEventRepository) Reserve(ctx context.Context, tierID string) (*domain.TicketTier, error) {
	var out *domain.TicketTier
	err := r.s.run(ctx, func() error {
		for id, e := range r.s.events {
			for i, t := range e.TicketTiers {
				if t.ID != tierID {
					continue
				}
				if t.Available <= 0 {
					return &domain.SoldOutError{Tier: tierID}
				}
				next := e.Clone()
				tier := &next.TicketTiers[i]
				tier.Available--
				tier.Sold++
				put(r.s, r.s.events, id, next)
				cp := *tier
				out = &cp
				return nil
			}
		}
		return &domain.SoldOutError{Tier: tierID}
	})
	return out, err
}
