package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/repository"
)

// venueService implements VenueService
type venueService struct {
	tx        repository.TxManager
	venues    repository.VenueRepository
	reviews   repository.ReviewRepository
	discovery repository.DiscoveryRepository
	notifier  *Notifier
	clock     clock.Clock
}

// NewVenueService creates a new VenueService
func NewVenueService(repos *repository.Repositories, notifier *Notifier, clk clock.Clock) VenueService {
	return &venueService{
		tx:        repos.Tx,
		venues:    repos.Venues,
		reviews:   repos.Reviews,
		discovery: repos.Discovery,
		notifier:  notifier,
		clock:     clk,
	}
}

// CreateVenue creates a new venue
func (s *venueService) CreateVenue(ctx context.Context, req *dto.CreateVenueRequest) (*domain.Venue, error) {
	now := s.clock.Now()
	venue := req.ToVenue()
	venue.ID = uuid.NewString()
	venue.CreatedAt = now
	venue.UpdatedAt = now

	if err := venue.Validate(); err != nil {
		return nil, err
	}
	if err := s.venues.Create(ctx, venue); err != nil {
		return nil, err
	}
	return venue, nil
}

// GetVenue retrieves a venue by ID
func (s *venueService) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	return s.venues.GetByID(ctx, id)
}

// ListVenues lists venues by creation time
func (s *venueService) ListVenues(ctx context.Context, params *dto.VenueSearchParams) (*domain.Page[domain.VenueHit], error) {
	q, err := params.ToQuery()
	if err != nil {
		return nil, err
	}
	q.Near = nil
	q.Text = ""
	return searchVenues(ctx, s.discovery, q)
}

// UpdateVenue updates a venue. Changes to cached fields refresh every referencing event.
func (s *venueService) UpdateVenue(ctx context.Context, id string, req *dto.UpdateVenueRequest) (*domain.Venue, error) {
	venue, err := s.venues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := venue.Clone()

	if err := req.Apply(venue); err != nil {
		return nil, err
	}
	venue.UpdatedAt = s.clock.Now()
	if err := venue.Validate(); err != nil {
		return nil, err
	}
	if err := s.venues.Update(ctx, venue); err != nil {
		return nil, err
	}

	if domain.SnapshotChanged(before, venue) {
		s.notifier.Stats(ctx, domain.StatsJob{Kind: domain.JobVenueSnapshot, TargetID: id})
		s.notifier.Publish(ctx, domain.NewDomainEvent(domain.VenueUpdated, id, venue.UpdatedAt, map[string]interface{}{
			"name":      venue.Name,
			"city":      venue.Address.City,
			"capacity":  venue.Capacity,
			"venueType": venue.VenueType,
		}))
	}
	return s.venues.GetByID(ctx, id)
}

// DeleteVenue removes a venue and tombstones its reviews. Events keep their venue id and snapshot.
func (s *venueService) DeleteVenue(ctx context.Context, id string) error {
	now := s.clock.Now()
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.venues.Delete(ctx, id); err != nil {
			return err
		}
		_, err := s.reviews.OrphanByVenue(ctx, id, now)
		return err
	})
}
