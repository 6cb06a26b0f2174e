package service

import (
	"context"
	"strings"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/repository"
)

// discoveryService implements DiscoveryService
type discoveryService struct {
	discovery repository.DiscoveryRepository
	users     repository.UserRepository
	clock     clock.Clock
}

// NewDiscoveryService creates a new DiscoveryService
func NewDiscoveryService(repos *repository.Repositories, clk clock.Clock) DiscoveryService {
	return &discoveryService{
		discovery: repos.Discovery,
		users:     repos.Users,
		clock:     clk,
	}
}

func (s *discoveryService) NearbyEvents(ctx context.Context, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error) {
	q, err := params.ToQuery()
	if err != nil {
		return nil, err
	}
	if q.Near == nil {
		return nil, domain.NewInvalidQueryError("nearby search requires lng, lat and radius")
	}
	return searchEvents(ctx, s.discovery, q)
}

func (s *discoveryService) SearchEvents(ctx context.Context, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error) {
	q, err := params.ToQuery()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, domain.NewInvalidQueryError("keyword search requires q")
	}
	return searchEvents(ctx, s.discovery, q)
}

func (s *discoveryService) FilterEvents(ctx context.Context, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error) {
	q, err := params.ToQuery()
	if err != nil {
		return nil, err
	}
	return searchEvents(ctx, s.discovery, q)
}

func (s *discoveryService) NearbyVenues(ctx context.Context, params *dto.VenueSearchParams) (*domain.Page[domain.VenueHit], error) {
	q, err := params.ToQuery()
	if err != nil {
		return nil, err
	}
	if q.Near == nil {
		return nil, domain.NewInvalidQueryError("nearby search requires lng, lat and radius")
	}
	return searchVenues(ctx, s.discovery, q)
}

func (s *discoveryService) SearchVenues(ctx context.Context, params *dto.VenueSearchParams) (*domain.Page[domain.VenueHit], error) {
	q, err := params.ToQuery()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, domain.NewInvalidQueryError("keyword search requires q")
	}
	return searchVenues(ctx, s.discovery, q)
}

func (s *discoveryService) FilterVenues(ctx context.Context, params *dto.VenueSearchParams) (*domain.Page[domain.VenueHit], error) {
	q, err := params.ToQuery()
	if err != nil {
		return nil, err
	}
	return searchVenues(ctx, s.discovery, q)
}

// Recommendations returns upcoming published events near the user. Explicit parameters
// win over the profile; the profile fills the center, radius and categories otherwise.
func (s *discoveryService) Recommendations(ctx context.Context, userID string, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	q, err := params.ToQuery()
	if err != nil {
		return nil, err
	}

	if q.Near == nil {
		if user.Profile.PreferredLocation == nil {
			return nil, domain.NewInvalidQueryError("user has no preferred location; supply lng and lat")
		}
		q.Near = &domain.Near{Center: *user.Profile.PreferredLocation}
	}
	if q.Near.RadiusMeters == 0 {
		q.Near.RadiusMeters = user.SearchRadius()
	}
	if len(q.Categories) == 0 {
		q.Categories = user.Profile.Interests
	}
	if q.Status == "" {
		q.Status = domain.EventStatusPublished
	}
	if q.StartAfter == nil {
		now := s.clock.Now()
		q.StartAfter = &now
	}
	return searchEvents(ctx, s.discovery, q)
}
