package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/eventhub/pkg/logger"
	"github.com/prohmpiriya/eventhub/pkg/middleware"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Health    *HealthHandler
	Events    *EventHandler
	Venues    *VenueHandler
	Users     *UserHandler
	Reviews   *ReviewHandler
	Checkins  *CheckinHandler
	Discovery *DiscoveryHandler
	Booking   *BookingHandler
}

// RouterConfig controls the middleware stack
type RouterConfig struct {
	ServiceName string
	Tracing     bool
	JWT         *middleware.JWTConfig
	Idempotency middleware.IdempotencyConfig
	Logger      *logger.Logger
}

// NewRouter builds the gin engine with every route under /api/v1
func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Logger != nil {
		router.Use(middleware.Logger(cfg.Logger))
	}
	if cfg.Tracing {
		router.Use(telemetry.TracingMiddleware(cfg.ServiceName))
	}

	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)

	// Reads are public; writes carry a bearer token when a secret is configured
	auth := middleware.JWTMiddleware(cfg.JWT)
	curator := middleware.RequireRole(cfg.JWT, RoleAdmin, RoleOrganizer)

	v1 := router.Group("/api/v1")

	events := v1.Group("/events")
	{
		events.GET("", h.Events.List)
		events.GET("/:id", h.Events.GetByID)
		events.GET("/:id/reviews", h.Events.ListReviews)
		events.GET("/:id/checkins", h.Events.ListCheckins)
		events.POST("/:id/bookings", auth, middleware.Idempotency(cfg.Idempotency), h.Booking.Book)

		protected := events.Group("", auth, curator)
		{
			protected.POST("", h.Events.Create)
			protected.PATCH("/:id", h.Events.Update)
			protected.DELETE("/:id", h.Events.Delete)
			protected.POST("/:id/publish", h.Events.Publish)
		}
	}

	venues := v1.Group("/venues")
	{
		venues.GET("", h.Venues.List)
		venues.GET("/:id", h.Venues.GetByID)
		venues.GET("/:id/reviews", h.Venues.ListReviews)

		protected := venues.Group("", auth, curator)
		{
			protected.POST("", h.Venues.Create)
			protected.PATCH("/:id", h.Venues.Update)
			protected.DELETE("/:id", h.Venues.Delete)
		}
	}

	users := v1.Group("/users")
	{
		users.GET("", h.Users.List)
		users.GET("/:id", h.Users.GetByID)
		users.GET("/:id/checkins", h.Users.ListCheckins)
		users.GET("/:id/recommendations", h.Discovery.Recommendations)
		users.POST("", auth, h.Users.Create)
		users.PATCH("/:id", auth, h.Users.Update)
		users.DELETE("/:id", auth, h.Users.Delete)
	}

	reviews := v1.Group("/reviews")
	{
		reviews.GET("/:id", h.Reviews.GetByID)
		reviews.POST("", auth, h.Reviews.Create)
		reviews.PATCH("/:id", auth, h.Reviews.Update)
		reviews.DELETE("/:id", auth, h.Reviews.Delete)
	}

	checkins := v1.Group("/checkins")
	{
		checkins.GET("/:id", h.Checkins.GetByID)
		checkins.POST("", auth, h.Checkins.Create)
		checkins.DELETE("/:id", auth, h.Checkins.Delete)
	}

	discover := v1.Group("/discover")
	{
		discover.GET("/events/nearby", h.Discovery.NearbyEvents())
		discover.GET("/events/search", h.Discovery.SearchEvents())
		discover.GET("/events/filter", h.Discovery.FilterEvents())
		discover.GET("/venues/nearby", h.Discovery.NearbyVenues())
		discover.GET("/venues/search", h.Discovery.SearchVenues())
		discover.GET("/venues/filter", h.Discovery.FilterVenues())
	}

	return router
}
