package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// TxManager runs fn in a transaction carried by the context. Nested calls join the outer transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create inserts an event with its ticket tiers
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves a live event or returns NotFoundError
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// Update writes the organizer-owned fields of an event
	Update(ctx context.Context, event *domain.Event) error
	// ReplaceTiers swaps the tier set of an event that has sold nothing
	ReplaceTiers(ctx context.Context, eventID string, tiers []domain.TicketTier) error
	// SoftDelete marks the event deleted and cancelled
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// ApplyTicketSale bumps sold, revenue and attendee counters, failing with SoldOutError when full
	ApplyTicketSale(ctx context.Context, eventID string, price float64, at time.Time) error
	// AdmitAttendee bumps the attendee counter only, failing with SoldOutError when full
	AdmitAttendee(ctx context.Context, eventID string, at time.Time) error
}

// TicketTierRepository defines the interface for tier inventory access
type TicketTierRepository interface {
	// GetForUpdate reads and locks a tier for the current transaction
	GetForUpdate(ctx context.Context, eventID, name string) (*domain.TicketTier, error)
	// Reserve moves one ticket from available to sold, failing with SoldOutError when none remain
	Reserve(ctx context.Context, tierID string) (*domain.TicketTier, error)
}

// VenueRepository defines the interface for venue data access
type VenueRepository interface {
	Create(ctx context.Context, venue *domain.Venue) error
	GetByID(ctx context.Context, id string) (*domain.Venue, error)
	Update(ctx context.Context, venue *domain.Venue) error
	Delete(ctx context.Context, id string) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a user, returning DuplicateKeyError for a taken email
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	// List pages users by creation time
	List(ctx context.Context, after *domain.Cursor, limit int) ([]*domain.User, error)
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id string) error
	// ListByTarget pages live reviews of an event or venue by creation time
	ListByTarget(ctx context.Context, target domain.ReviewTarget, targetID string, after *domain.Cursor, limit int) ([]*domain.Review, error)
	// ListByUser pages the live reviews written by a user
	ListByUser(ctx context.Context, userID string, after *domain.Cursor, limit int) ([]*domain.Review, error)
	OrphanByEvent(ctx context.Context, eventID string, at time.Time) (int64, error)
	OrphanByVenue(ctx context.Context, venueID string, at time.Time) (int64, error)
	OrphanByUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// CheckinRepository defines the interface for checkin data access
type CheckinRepository interface {
	// Create inserts a checkin, returning DuplicateKeyError when the user already checked in
	Create(ctx context.Context, checkin *domain.Checkin) error
	GetByID(ctx context.Context, id string) (*domain.Checkin, error)
	Delete(ctx context.Context, id string) error
	ListByEvent(ctx context.Context, eventID string, after *domain.Cursor, limit int) ([]*domain.Checkin, error)
	ListByUser(ctx context.Context, userID string, after *domain.Cursor, limit int) ([]*domain.Checkin, error)
	OrphanByEvent(ctx context.Context, eventID string, at time.Time) (int64, error)
	OrphanByUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// DiscoveryRepository answers normalized discovery queries. Implementations return
// up to Limit+1 hits so callers can detect a following page.
type DiscoveryRepository interface {
	SearchEvents(ctx context.Context, q *domain.EventQuery) ([]domain.EventHit, error)
	SearchVenues(ctx context.Context, q *domain.VenueQuery) ([]domain.VenueHit, error)
}

// StatsRepository recomputes derived fields from their source rows
type StatsRepository interface {
	// RefreshVenueSnapshot rewrites the venue snapshot on referencing events and returns their ids
	RefreshVenueSnapshot(ctx context.Context, venueID string, at time.Time) ([]string, error)
	RecomputeEventReviewStats(ctx context.Context, eventID string, at time.Time) error
	RecomputeVenueReviewStats(ctx context.Context, venueID string, at time.Time) error
	RecomputeEventAttendance(ctx context.Context, eventID string, at time.Time) error
	RecomputeVenueHostingStats(ctx context.Context, venueID string, at time.Time) error
	ListEventIDs(ctx context.Context) ([]string, error)
	ListVenueIDs(ctx context.Context) ([]string, error)
}

// Repositories bundles one storage backend
type Repositories struct {
	Tx        TxManager
	Events    EventRepository
	Tiers     TicketTierRepository
	Venues    VenueRepository
	Users     UserRepository
	Reviews   ReviewRepository
	Checkins  CheckinRepository
	Discovery DiscoveryRepository
	Stats     StatsRepository
}
