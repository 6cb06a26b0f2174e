package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/handler"
	"github.com/prohmpiriya/eventhub/internal/publisher"
	"github.com/prohmpiriya/eventhub/internal/repository"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/internal/worker"
	"github.com/prohmpiriya/eventhub/pkg/config"
	"github.com/prohmpiriya/eventhub/pkg/database"
	"github.com/prohmpiriya/eventhub/pkg/kafka"
	"github.com/prohmpiriya/eventhub/pkg/logger"
	"github.com/prohmpiriya/eventhub/pkg/middleware"
	"github.com/prohmpiriya/eventhub/pkg/redis"
	"github.com/prohmpiriya/eventhub/pkg/retry"
)

// Container holds all dependencies for the eventhub API
type Container struct {
	// Infrastructure
	DB       *database.PostgresDB
	Redis    *redis.Client
	Producer *kafka.Producer
	Clock    clock.Clock

	// Repositories
	Repos      *repository.Repositories
	EventCache *repository.CachedEventRepository

	// Statistics and outbound events
	Publisher  publisher.Publisher
	Maintainer service.StatsMaintainer
	Dispatcher service.StatsDispatcher
	StatsPool  *worker.StatsPool
	Notifier   *service.Notifier

	// Services
	EventService       service.EventService
	VenueService       service.VenueService
	UserService        service.UserService
	ReviewService      service.ReviewService
	CheckinService     service.CheckinService
	DiscoveryService   service.DiscoveryService
	BookingCoordinator service.BookingCoordinator

	// Handlers
	Handlers *handler.Handlers

	config *config.Config
	log    *logger.Logger
}

// ContainerConfig contains configuration for building the container.
// DB is required for the postgres storage driver; Redis and Producer are optional.
type ContainerConfig struct {
	Config   *config.Config
	DB       *database.PostgresDB
	Redis    *redis.Client
	Producer *kafka.Producer
	Clock    clock.Clock
}

// NewContainer creates a new dependency injection container. The async stats pool,
// when selected, is started on ctx and stopped by Close.
func NewContainer(ctx context.Context, cfg *ContainerConfig) (*Container, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("container requires a config")
	}
	c := &Container{
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		Producer: cfg.Producer,
		Clock:    cfg.Clock,
		config:   cfg.Config,
		log:      logger.Get().With(zap.String("component", "container")),
	}
	if c.Clock == nil {
		c.Clock = clock.NewSystem()
	}

	if err := c.initRepositories(); err != nil {
		return nil, err
	}
	c.initPublisher()
	if err := c.initStats(ctx); err != nil {
		return nil, err
	}
	c.initServices()
	c.initHandlers()
	return c, nil
}

func (c *Container) initRepositories() error {
	switch c.config.Storage.Driver {
	case "memory":
		c.Repos = repository.NewMemoryRepositories(repository.NewMemoryStore())
	case "postgres", "":
		if c.DB == nil {
			return errors.New("postgres storage requires a database connection")
		}
		c.Repos = repository.NewPostgresRepositories(c.DB.Pool())
	default:
		return fmt.Errorf("unknown storage driver %q", c.config.Storage.Driver)
	}

	// Wrap with cache if Redis is available
	if c.Redis != nil {
		c.EventCache = repository.NewCachedEventRepository(c.Repos.Events, c.Redis, c.config.Cache.EventTTL)
		c.Repos.Events = c.EventCache
	}
	return nil
}

func (c *Container) initPublisher() {
	if c.Producer == nil {
		c.Publisher = publisher.NewNoOpPublisher()
		return
	}
	c.Publisher = publisher.NewKafkaPublisher(c.Producer, &publisher.Config{
		Topic:  c.config.Kafka.DomainEventTopic,
		Source: c.config.App.Name,
	})
}

func (c *Container) initStats(ctx context.Context) error {
	var invalidator service.CacheInvalidator
	if c.EventCache != nil {
		invalidator = c.EventCache
	}
	c.Maintainer = service.NewStatsMaintainer(c.Repos.Stats, invalidator, c.Clock, c.config.Stats.Workers)

	switch c.config.Stats.Dispatch {
	case "inline":
		c.Dispatcher = service.NewInlineDispatcher(c.Maintainer)
	case "async", "":
		c.StatsPool = worker.NewStatsPool(worker.StatsPoolConfig{
			Workers:   c.config.Stats.Workers,
			QueueSize: c.config.Stats.QueueSize,
		}, c.Maintainer)
		c.StatsPool.Start(ctx)
		c.Dispatcher = c.StatsPool
	case "kafka":
		if c.Producer == nil {
			return errors.New("kafka stats dispatch requires a kafka producer")
		}
		c.Dispatcher = publisher.NewKafkaStatsDispatcher(c.Producer, c.config.Stats.Topic)
	default:
		return fmt.Errorf("unknown stats dispatch mode %q", c.config.Stats.Dispatch)
	}
	c.Notifier = service.NewNotifier(c.Dispatcher, c.Publisher)
	c.log.Info("stats dispatch configured", zap.String("mode", c.config.Stats.Dispatch))
	return nil
}

func (c *Container) initServices() {
	c.EventService = service.NewEventService(c.Repos, c.Notifier, c.Clock)
	c.VenueService = service.NewVenueService(c.Repos, c.Notifier, c.Clock)
	c.UserService = service.NewUserService(c.Repos, c.Notifier, c.Clock)
	c.ReviewService = service.NewReviewService(c.Repos, c.Notifier, c.Clock)
	c.CheckinService = service.NewCheckinService(c.Repos, c.Notifier, c.Clock)
	c.DiscoveryService = service.NewDiscoveryService(c.Repos, c.Clock)
	c.BookingCoordinator = service.NewBookingCoordinator(c.Repos, c.Notifier, c.Clock, service.BookingConfig{
		Retry: &retry.Config{
			MaxRetries:      c.config.Booking.MaxRetries,
			InitialInterval: c.config.Booking.InitialInterval,
			MaxInterval:     c.config.Booking.MaxInterval,
			Multiplier:      2.0,
			JitterFactor:    0.2,
		},
		Timeout: c.config.Booking.Timeout,
	})
}

func (c *Container) initHandlers() {
	components := map[string]handler.HealthChecker{}
	if c.DB != nil {
		components["postgres"] = c.DB
	}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}

	c.Handlers = &handler.Handlers{
		Health:    handler.NewHealthHandler(components),
		Events:    handler.NewEventHandler(c.EventService, c.ReviewService, c.CheckinService),
		Venues:    handler.NewVenueHandler(c.VenueService, c.ReviewService),
		Users:     handler.NewUserHandler(c.UserService, c.CheckinService),
		Reviews:   handler.NewReviewHandler(c.ReviewService),
		Checkins:  handler.NewCheckinHandler(c.CheckinService),
		Discovery: handler.NewDiscoveryHandler(c.DiscoveryService),
		Booking:   handler.NewBookingHandler(c.BookingCoordinator),
	}
}

// RouterConfig derives the middleware settings from the loaded configuration
func (c *Container) RouterConfig() handler.RouterConfig {
	idem := middleware.IdempotencyConfig{TTL: c.config.Cache.IdempotencyTTL}
	if c.Redis != nil {
		idem.Store = c.Redis
	}
	return handler.RouterConfig{
		ServiceName: c.config.OTel.ServiceName,
		Tracing:     c.config.OTel.Enabled,
		JWT:         &middleware.JWTConfig{Secret: c.config.JWT.Secret, Issuer: c.config.JWT.Issuer},
		Idempotency: idem,
		Logger:      logger.Get(),
	}
}

// Close drains the stats pool and flushes the publisher. Infrastructure clients are
// owned by the caller, except a Kafka producer handed to the publisher.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.StatsPool != nil {
		if err := c.StatsPool.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop stats pool: %w", err))
		}
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
