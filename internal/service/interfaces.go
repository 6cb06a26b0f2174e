package service

import (
	"context"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
)

// EventService defines the interface for event business logic
type EventService interface {
	// CreateEvent validates and stores a new event with its tiers
	CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error)
	// GetEvent retrieves a live event by ID
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	// ListEvents pages events by start date, optionally filtered
	ListEvents(ctx context.Context, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error)
	// UpdateEvent merges a partial update
	UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) (*domain.Event, error)
	// DeleteEvent soft deletes an event and tombstones its reviews and checkins
	DeleteEvent(ctx context.Context, id string) error
	// PublishEvent moves a draft event to published
	PublishEvent(ctx context.Context, id string) (*domain.Event, error)
}

// VenueService defines the interface for venue business logic
type VenueService interface {
	CreateVenue(ctx context.Context, req *dto.CreateVenueRequest) (*domain.Venue, error)
	GetVenue(ctx context.Context, id string) (*domain.Venue, error)
	ListVenues(ctx context.Context, params *dto.VenueSearchParams) (*domain.Page[domain.VenueHit], error)
	// UpdateVenue merges a partial update and refreshes event snapshots when cached fields change
	UpdateVenue(ctx context.Context, id string, req *dto.UpdateVenueRequest) (*domain.Venue, error)
	// DeleteVenue removes a venue and tombstones its reviews
	DeleteVenue(ctx context.Context, id string) error
}

// UserService defines the interface for user business logic
type UserService interface {
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context, params *dto.ListParams) (*domain.Page[*domain.User], error)
	UpdateUser(ctx context.Context, id string, req *dto.UpdateUserRequest) (*domain.User, error)
	// DeleteUser removes a user and tombstones their reviews and checkins
	DeleteUser(ctx context.Context, id string) error
}

// ReviewService defines the interface for review business logic
type ReviewService interface {
	CreateReview(ctx context.Context, req *dto.CreateReviewRequest) (*domain.Review, error)
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	UpdateReview(ctx context.Context, id string, req *dto.UpdateReviewRequest) (*domain.Review, error)
	DeleteReview(ctx context.Context, id string) error
	// ListReviews pages the live reviews of one event or venue
	ListReviews(ctx context.Context, target domain.ReviewTarget, targetID string, params *dto.ListParams) (*domain.Page[*domain.Review], error)
}

// CheckinService defines the interface for checkin business logic
type CheckinService interface {
	// CreateCheckin records an admission without selling a ticket
	CreateCheckin(ctx context.Context, req *dto.CreateCheckinRequest) (*domain.Checkin, error)
	GetCheckin(ctx context.Context, id string) (*domain.Checkin, error)
	DeleteCheckin(ctx context.Context, id string) error
	ListByEvent(ctx context.Context, eventID string, params *dto.ListParams) (*domain.Page[*domain.Checkin], error)
	ListByUser(ctx context.Context, userID string, params *dto.ListParams) (*domain.Page[*domain.Checkin], error)
}

// DiscoveryService answers geospatial, keyword and polymorphic queries
type DiscoveryService interface {
	// NearbyEvents requires a center and radius
	NearbyEvents(ctx context.Context, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error)
	// SearchEvents requires non-empty text
	SearchEvents(ctx context.Context, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error)
	// FilterEvents accepts any composition of constraints
	FilterEvents(ctx context.Context, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error)
	NearbyVenues(ctx context.Context, params *dto.VenueSearchParams) (*domain.Page[domain.VenueHit], error)
	SearchVenues(ctx context.Context, params *dto.VenueSearchParams) (*domain.Page[domain.VenueHit], error)
	FilterVenues(ctx context.Context, params *dto.VenueSearchParams) (*domain.Page[domain.VenueHit], error)
	// Recommendations finds events near a user, defaulting center, radius and categories from the profile
	Recommendations(ctx context.Context, userID string, params *dto.EventSearchParams) (*domain.Page[domain.EventHit], error)
}

// StatsMaintainer recomputes derived fields from their source rows
type StatsMaintainer interface {
	// Apply runs one job and returns its error
	Apply(ctx context.Context, job domain.StatsJob) error
	// Handle runs jobs, logging and swallowing failures
	Handle(ctx context.Context, jobs ...domain.StatsJob)
	// RecomputeAll refreshes every event and venue
	RecomputeAll(ctx context.Context) error
}

// StatsDispatcher hands jobs to the maintainer. It never fails the caller.
type StatsDispatcher interface {
	Dispatch(ctx context.Context, jobs ...domain.StatsJob)
}

// BookingCoordinator sells one ticket and records the checkin atomically
type BookingCoordinator interface {
	Book(ctx context.Context, req *domain.BookingRequest) (*domain.BookingResult, error)
}

// CacheInvalidator drops cached copies of events whose derived fields changed
type CacheInvalidator interface {
	Invalidate(ctx context.Context, ids ...string)
}
