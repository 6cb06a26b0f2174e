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

// eventService implements EventService
type eventService struct {
	tx        repository.TxManager
	events    repository.EventRepository
	venues    repository.VenueRepository
	reviews   repository.ReviewRepository
	checkins  repository.CheckinRepository
	discovery repository.DiscoveryRepository
	notifier  *Notifier
	clock     clock.Clock
}

// NewEventService creates a new EventService
func NewEventService(repos *repository.Repositories, notifier *Notifier, clk clock.Clock) EventService {
	return &eventService{
		tx:        repos.Tx,
		events:    repos.Events,
		venues:    repos.Venues,
		reviews:   repos.Reviews,
		checkins:  repos.Checkins,
		discovery: repos.Discovery,
		notifier:  notifier,
		clock:     clk,
	}
}

// CreateEvent creates a new event
func (s *eventService) CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error) {
	now := s.clock.Now()
	event := req.ToEvent()
	event.ID = uuid.NewString()
	event.CreatedAt = now
	event.UpdatedAt = now

	if err := s.attachVenue(ctx, event, event.VenueID); err != nil {
		return nil, err
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.notifier.Stats(ctx, venueJobs(event.VenueID)...)
	return event, nil
}

// GetEvent retrieves an event by ID
func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return s.events.GetByID(ctx, id)
}

// ListEvents lists events ordered by start date
func (s *eventService) ListEvents(ctx context.Context, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error) {
	q, err := params.ToQuery()
	if err != nil {
		return nil, err
	}
	q.Near = nil
	q.Text = ""
	return searchEvents(ctx, s.discovery, q)
}

// UpdateEvent updates an event
func (s *eventService) UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := event.Clone()

	if err := req.Apply(event); err != nil {
		return nil, err
	}
	if req.VenueID != nil {
		if err := s.attachVenue(ctx, event, req.VenueID); err != nil {
			return nil, err
		}
	}
	event.UpdatedAt = s.clock.Now()
	if err := event.Validate(); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.events.Update(ctx, event); err != nil {
			return err
		}
		if req.TicketTiers != nil {
			return s.events.ReplaceTiers(ctx, event.ID, event.TicketTiers)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var jobs []domain.StatsJob
	if before.MaxAttendees != event.MaxAttendees {
		jobs = append(jobs, domain.StatsJob{Kind: domain.JobEventAttendance, TargetID: id})
	}
	if !sameVenue(before.VenueID, event.VenueID) || before.Status != event.Status || !before.StartDate.Equal(event.StartDate) {
		jobs = append(jobs, venueJobs(before.VenueID, event.VenueID)...)
	}
	s.notifier.Stats(ctx, jobs...)

	return s.events.GetByID(ctx, id)
}

// DeleteEvent soft deletes an event and tombstones what depends on it
func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	now := s.clock.Now()

	var orphanedReviews, orphanedCheckins int64
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.events.SoftDelete(ctx, id, now); err != nil {
			return err
		}
		var err error
		if orphanedReviews, err = s.reviews.OrphanByEvent(ctx, id, now); err != nil {
			return err
		}
		orphanedCheckins, err = s.checkins.OrphanByEvent(ctx, id, now)
		return err
	})
	if err != nil {
		return err
	}

	s.notifier.Stats(ctx, venueJobs(event.VenueID)...)
	s.notifier.Publish(ctx, domain.NewDomainEvent(domain.EventDeleted, id, now, map[string]interface{}{
		"orphanedReviews":  orphanedReviews,
		"orphanedCheckins": orphanedCheckins,
	}))
	return nil
}

// PublishEvent publishes a draft event
func (s *eventService) PublishEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status == domain.EventStatusPublished {
		return event, nil
	}
	if !event.Status.CanTransitionTo(domain.EventStatusPublished) {
		return nil, domain.NewValidationError("status", "cannot publish a %s event", event.Status)
	}

	event.Status = domain.EventStatusPublished
	event.UpdatedAt = s.clock.Now()
	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}

	s.notifier.Stats(ctx, venueJobs(event.VenueID)...)
	return event, nil
}

// attachVenue links the event to venueID and copies its snapshot. An empty id detaches.
func (s *eventService) attachVenue(ctx context.Context, event *domain.Event, venueID *string) error {
	if venueID == nil || *venueID == "" {
		event.VenueID = nil
		event.Venue = nil
		return nil
	}
	venue, err := s.venues.GetByID(ctx, *venueID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return domain.NewValidationError("venueId", "venue %s does not exist", *venueID)
		}
		return fmt.Errorf("failed to load venue: %w", err)
	}
	id := venue.ID
	event.VenueID = &id
	event.ApplySnapshot(venue, s.clock.Now())
	return nil
}

func sameVenue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// searchEvents normalizes q and trims the limit+1 fetch into a page
func searchEvents(ctx context.Context, discovery repository.DiscoveryRepository, q *domain.EventQuery) (*domain.Page[domain.EventHit], error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	rows, err := discovery.SearchEvents(ctx, q)
	if err != nil {
		return nil, err
	}
	page := domain.PageOf(rows, q.Limit, q.SortMode())
	return &page, nil
}

func searchVenues(ctx context.Context, discovery repository.DiscoveryRepository, q *domain.VenueQuery) (*domain.Page[domain.VenueHit], error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	rows, err := discovery.SearchVenues(ctx, q)
	if err != nil {
		return nil, err
	}
	page := domain.PageOf(rows, q.Limit, q.SortMode())
	return &page, nil
}
