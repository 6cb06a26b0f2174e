package repository

import (
	"context"
	"sync"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

type memTxKey struct{}

// MemoryStore keeps every entity in maps guarded by one lock. A transaction holds the
// lock for its whole duration and records undo steps so a failed fn leaves no trace.
// Stored values are never mutated in place: writers clone, modify and put.
type MemoryStore struct {
	mu       sync.Mutex
	journal  []func()
	events   map[string]*domain.Event
	venues   map[string]*domain.Venue
	users    map[string]*domain.User
	reviews  map[string]*domain.Review
	checkins map[string]*domain.Checkin
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:   make(map[string]*domain.Event),
		venues:   make(map[string]*domain.Venue),
		users:    make(map[string]*domain.User),
		reviews:  make(map[string]*domain.Review),
		checkins: make(map[string]*domain.Checkin),
	}
}

// NewMemoryRepositories wires every repository over one store
func NewMemoryRepositories(s *MemoryStore) *Repositories {
	events := &MemoryEventRepository{s: s}
	return &Repositories{
		Tx:        s,
		Events:    events,
		Tiers:     events,
		Venues:    &MemoryVenueRepository{s: s},
		Users:     &MemoryUserRepository{s: s},
		Reviews:   &MemoryReviewRepository{s: s},
		Checkins:  &MemoryCheckinRepository{s: s},
		Discovery: &MemoryDiscoveryRepository{s: s},
		Stats:     &MemoryStatsRepository{s: s},
	}
}

// WithTx runs fn holding the store lock and rolls back its writes when fn fails or panics
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.ownsTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.journal = []func(){}
	committed := false
	defer func() {
		if !committed {
			for i := len(s.journal) - 1; i >= 0; i-- {
				s.journal[i]()
			}
		}
		s.journal = nil
	}()

	if err = fn(context.WithValue(ctx, memTxKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// ownsTx reports whether ctx carries a transaction opened on this store
func (s *MemoryStore) ownsTx(ctx context.Context) bool {
	owner, _ := ctx.Value(memTxKey{}).(*MemoryStore)
	return owner == s
}

func inMemTx(ctx context.Context) bool {
	_, ok := ctx.Value(memTxKey{}).(*MemoryStore)
	return ok
}

// run executes fn under the lock unless ctx already holds it through WithTx
func (s *MemoryStore) run(ctx context.Context, fn func() error) error {
	if s.ownsTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *MemoryStore) record(undo func()) {
	if s.journal != nil {
		s.journal = append(s.journal, undo)
	}
}

// put stores v under id and journals the previous value
func put[T any](s *MemoryStore, m map[string]T, id string, v T) {
	prev, had := m[id]
	s.record(func() {
		if had {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
	m[id] = v
}

// remove deletes id and journals the previous value
func remove[T any](s *MemoryStore, m map[string]T, id string) bool {
	prev, had := m[id]
	if !had {
		return false
	}
	s.record(func() { m[id] = prev })
	delete(m, id)
	return true
}

// afterTimeID reports whether c sorts after the cursor in (time, id) order
func afterTimeID(after *domain.Cursor, c domain.Cursor) bool {
	if after == nil {
		return true
	}
	if !c.Time.Equal(after.Time) {
		return c.Time.After(after.Time)
	}
	return c.ID > after.ID
}

func timeIDLess(a, b domain.Cursor) bool {
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	return a.ID < b.ID
}

// truncate caps rows at n and never returns nil
func truncate[T any](rows []T, n int) []T {
	if rows == nil {
		return []T{}
	}
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
