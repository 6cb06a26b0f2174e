package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/repository"
	"github.com/prohmpiriya/eventhub/pkg/retry"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var vancouver = domain.NewPoint(-123.1207, 49.2827)

// mockPublisher records domain events
type mockPublisher struct {
	mock.Mock
	mu sync.Mutex
}

func newMockPublisher() *mockPublisher {
	p := &mockPublisher{}
	p.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}

func (m *mockPublisher) Publish(ctx context.Context, event *domain.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

// published returns the recorded events of type t
func (m *mockPublisher) published(t domain.DomainEventType) []*domain.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DomainEvent
	for _, c := range m.Calls {
		if e, ok := c.Arguments.Get(1).(*domain.DomainEvent); ok && e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// recordingDispatcher captures jobs and optionally forwards them
type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []domain.StatsJob
	next StatsDispatcher
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, jobs ...domain.StatsJob) {
	d.mu.Lock()
	d.jobs = append(d.jobs, jobs...)
	d.mu.Unlock()
	if d.next != nil {
		d.next.Dispatch(ctx, jobs...)
	}
}

func (d *recordingDispatcher) has(job domain.StatsJob) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, j := range d.jobs {
		if j == job {
			return true
		}
	}
	return false
}

// testEnv wires every service over one in-memory store with inline statistics
type testEnv struct {
	store      *repository.MemoryStore
	repos      *repository.Repositories
	clock      *clock.Manual
	pub        *mockPublisher
	dispatcher *recordingDispatcher
	maintainer StatsMaintainer

	events    EventService
	venues    VenueService
	users     UserService
	reviews   ReviewService
	checkins  CheckinService
	discovery DiscoveryService
	booking   BookingCoordinator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	repos := repository.NewMemoryRepositories(store)
	return newTestEnvWith(t, store, repos)
}

func newTestEnvWith(t *testing.T, store *repository.MemoryStore, repos *repository.Repositories) *testEnv {
	t.Helper()
	clk := clock.NewManual(baseTime)
	maintainer := NewStatsMaintainer(repos.Stats, nil, clk, 2)
	dispatcher := &recordingDispatcher{next: NewInlineDispatcher(maintainer)}
	pub := newMockPublisher()
	notifier := NewNotifier(dispatcher, pub)

	return &testEnv{
		store:      store,
		repos:      repos,
		clock:      clk,
		pub:        pub,
		dispatcher: dispatcher,
		maintainer: maintainer,
		events:     NewEventService(repos, notifier, clk),
		venues:     NewVenueService(repos, notifier, clk),
		users:      NewUserService(repos, notifier, clk),
		reviews:    NewReviewService(repos, notifier, clk),
		checkins:   NewCheckinService(repos, notifier, clk),
		discovery:  NewDiscoveryService(repos, clk),
		booking: NewBookingCoordinator(repos, notifier, clk, BookingConfig{
			Retry:   &retry.Config{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, JitterFactor: 0.2},
			Timeout: 2 * time.Second,
		}),
	}
}

func (e *testEnv) venue(t *testing.T, name string, loc domain.GeoPoint, capacity int) *domain.Venue {
	t.Helper()
	v, err := e.venues.CreateVenue(context.Background(), &dto.CreateVenueRequest{
		Name:      name,
		VenueType: domain.VenueTypePark,
		Location:  loc,
		Address:   domain.Address{City: "Vancouver"},
		Capacity:  capacity,
		Details:   domain.VenueDetails{Park: &domain.ParkDetails{AreaSqMeters: 5000, HasRestrooms: true}},
	})
	require.NoError(t, err)
	return v
}

func eventRequest(title string, loc domain.GeoPoint, venueID *string, allocation int) *dto.CreateEventRequest {
	start := baseTime.Add(24 * time.Hour)
	return &dto.CreateEventRequest{
		Title:        title,
		Description:  "An evening of " + title,
		Category:     "music",
		EventType:    domain.EventTypeInPerson,
		Location:     loc,
		StartDate:    start,
		EndDate:      start.Add(3 * time.Hour),
		MaxAttendees: 100,
		Price:        25,
		Currency:     "CAD",
		Status:       domain.EventStatusPublished,
		Tags:         []string{"live"},
		Details:      domain.EventDetails{InPerson: &domain.InPersonDetails{AgeRestriction: 19}},
		VenueID:      venueID,
		TicketTiers:  []dto.TicketTierInput{{Name: "GA", Price: 25, Allocation: allocation}},
	}
}

func (e *testEnv) event(t *testing.T, title string, loc domain.GeoPoint, venueID *string, allocation int) *domain.Event {
	t.Helper()
	ev, err := e.events.CreateEvent(context.Background(), eventRequest(title, loc, venueID, allocation))
	require.NoError(t, err)
	return ev
}

func (e *testEnv) user(t *testing.T, n int) *domain.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), &dto.CreateUserRequest{
		Email:   fmt.Sprintf("user%d@example.com", n),
		Profile: domain.UserProfile{FirstName: "Ada", Interests: []string{"music"}},
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) book(userID, eventID string) (*domain.BookingResult, error) {
	return e.booking.Book(context.Background(), &domain.BookingRequest{EventID: eventID, UserID: userID, Tier: "GA"})
}

func strPtr(s string) *string { return &s }

// offset moves p north and east by the given meters
func offset(p domain.GeoPoint, north, east float64) domain.GeoPoint {
	const metersPerDegree = 111_195.0
	lat := p.Lat() + north/metersPerDegree
	lng := p.Lng() + east/(metersPerDegree*0.6521)
	return domain.NewPoint(lng, lat)
}
