package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// fakeCache is an in-process CacheStore that can be switched into failure mode
type fakeCache struct {
	mu     sync.Mutex
	data   map[string]string
	broken bool
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) *goredis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return goredis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := c.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return goredis.NewStatusResult("", errors.New("connection refused"))
	}
	c.sets++
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	}
	return goredis.NewStatusResult("OK", nil)
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return goredis.NewIntResult(0, errors.New("connection refused"))
	}
	var n int64
	for _, k := range keys {
		if _, ok := c.data[k]; ok {
			delete(c.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

// countingEvents counts GetByID calls that reach the backing repository
type countingEvents struct {
	EventRepository
	gets  atomic.Int32
	delay time.Duration
}

func (c *countingEvents) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	c.gets.Add(1)
	time.Sleep(c.delay)
	return c.EventRepository.GetByID(ctx, id)
}

func newCachedFixture(t *testing.T) (*CachedEventRepository, *countingEvents, *fakeCache, *domain.Event) {
	t.Helper()
	repos := NewMemoryRepositories(NewMemoryStore())
	e := newEvent("Cached", vancouver, baseTime)
	require.NoError(t, repos.Events.Create(context.Background(), e))

	backing := &countingEvents{EventRepository: repos.Events}
	cache := newFakeCache()
	return NewCachedEventRepository(backing, cache, time.Minute), backing, cache, e
}

func TestCachedEventRepository_ReadThrough(t *testing.T) {
	cached, backing, cache, e := newCachedFixture(t)
	ctx := context.Background()

	first, err := cached.GetByID(ctx, e.ID)
	require.NoError(t, err)
	second, err := cached.GetByID(ctx, e.ID)
	require.NoError(t, err)

	assert.Equal(t, int32(1), backing.gets.Load())
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, first.Title, second.Title)
	assert.Len(t, second.TicketTiers, 1)
	assert.NotNil(t, second.Details.InPerson)
}

func TestCachedEventRepository_InvalidatesOnWrite(t *testing.T) {
	cached, backing, cache, e := newCachedFixture(t)
	ctx := context.Background()

	_, err := cached.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.NoError(t, cached.ApplyTicketSale(ctx, e.ID, 25, baseTime))
	assert.NotContains(t, cache.data, eventDetailKeyPrefix+e.ID)

	got, err := cached.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentAttendees)
	assert.Equal(t, int32(2), backing.gets.Load())
}

func TestCachedEventRepository_FailsOpen(t *testing.T) {
	cached, backing, cache, e := newCachedFixture(t)
	cache.broken = true
	ctx := context.Background()

	got, err := cached.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	require.NoError(t, cached.Update(ctx, got))
	assert.Equal(t, int32(1), backing.gets.Load())
}

func TestCachedEventRepository_CollapsesConcurrentMisses(t *testing.T) {
	cached, backing, _, e := newCachedFixture(t)
	backing.delay = 50 * time.Millisecond
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cached.GetByID(ctx, e.ID)
			assert.NoError(t, err)
			assert.Equal(t, e.ID, got.ID)
		}()
	}
	wg.Wait()

	assert.Less(t, backing.gets.Load(), int32(10))
}

func TestCachedEventRepository_BypassesInsideTransaction(t *testing.T) {
	store := NewMemoryStore()
	repos := NewMemoryRepositories(store)
	e := newEvent("Tx", vancouver, baseTime)
	require.NoError(t, repos.Events.Create(context.Background(), e))
	cache := newFakeCache()
	cached := NewCachedEventRepository(repos.Events, cache, time.Minute)

	err := store.WithTx(context.Background(), func(ctx context.Context) error {
		_, err := cached.GetByID(ctx, e.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 0, cache.sets)
}

func TestCachedEventRepository_NotFoundNotCached(t *testing.T) {
	cached, _, cache, _ := newCachedFixture(t)
	_, err := cached.GetByID(context.Background(), "missing")
	assert.True(t, domain.IsNotFoundError(err))
	assert.Equal(t, 0, cache.sets)
}
