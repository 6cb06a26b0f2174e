package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/logger"
)

const (
	eventDetailKeyPrefix = "event:detail:"

	defaultEventCacheTTL = 5 * time.Minute
)

// CacheStore is the subset of Redis the event cache uses
type CacheStore interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// CachedEventRepository wraps EventRepository with a Redis read-through cache of event
// details. Concurrent misses for one id share a single load. Cache errors fall through
// to the wrapped repository.
type CachedEventRepository struct {
	repo  EventRepository
	cache CacheStore
	ttl   time.Duration
	group singleflight.Group
	log   *logger.Logger
}

// NewCachedEventRepository creates a new CachedEventRepository
func NewCachedEventRepository(repo EventRepository, cache CacheStore, ttl time.Duration) *CachedEventRepository {
	if ttl <= 0 {
		ttl = defaultEventCacheTTL
	}
	return &CachedEventRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   logger.Get().With(zap.String("component", "event_cache")),
	}
}

func (r *CachedEventRepository) Create(ctx context.Context, event *domain.Event) error {
	return r.repo.Create(ctx, event)
}

// GetByID serves from cache outside transactions
func (r *CachedEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if inTransaction(ctx) {
		return r.repo.GetByID(ctx, id)
	}

	key := eventDetailKeyPrefix + id
	cached, err := r.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var event domain.Event
		if err := json.Unmarshal(cached, &event); err == nil {
			return &event, nil
		}
		r.log.Warn("dropping undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, goredis.Nil):
		r.log.Warn("event cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := r.group.Do(id, func() (interface{}, error) {
		event, err := r.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		r.store(ctx, key, event)
		return event, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Event).Clone(), nil
}

func (r *CachedEventRepository) Update(ctx context.Context, event *domain.Event) error {
	if err := r.repo.Update(ctx, event); err != nil {
		return err
	}
	r.Invalidate(ctx, event.ID)
	return nil
}

func (r *CachedEventRepository) ReplaceTiers(ctx context.Context, eventID string, tiers []domain.TicketTier) error {
	if err := r.repo.ReplaceTiers(ctx, eventID, tiers); err != nil {
		return err
	}
	r.Invalidate(ctx, eventID)
	return nil
}

func (r *CachedEventRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if err := r.repo.SoftDelete(ctx, id, at); err != nil {
		return err
	}
	r.Invalidate(ctx, id)
	return nil
}

func (r *CachedEventRepository) ApplyTicketSale(ctx context.Context, eventID string, price float64, at time.Time) error {
	if err := r.repo.ApplyTicketSale(ctx, eventID, price, at); err != nil {
		return err
	}
	r.Invalidate(ctx, eventID)
	return nil
}

func (r *CachedEventRepository) AdmitAttendee(ctx context.Context, eventID string, at time.Time) error {
	if err := r.repo.AdmitAttendee(ctx, eventID, at); err != nil {
		return err
	}
	r.Invalidate(ctx, eventID)
	return nil
}

// Invalidate drops cached details for the given events
func (r *CachedEventRepository) Invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = eventDetailKeyPrefix + id
	}
	if err := r.cache.Del(context.WithoutCancel(ctx), keys...).Err(); err != nil {
		r.log.Warn("event cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (r *CachedEventRepository) store(ctx context.Context, key string, event *domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Warn("event cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// inTransaction reports whether ctx carries a transaction of either backend
func inTransaction(ctx context.Context) bool {
	return txFromContext(ctx) != nil || inMemTx(ctx)
}
