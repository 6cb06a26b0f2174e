package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/pkg/response"
)

// DiscoveryHandler serves geo, keyword and filter search
type DiscoveryHandler struct {
	discovery service.DiscoveryService
}

// NewDiscoveryHandler creates a new DiscoveryHandler
func NewDiscoveryHandler(discovery service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{discovery: discovery}
}

type eventSearch func(context.Context, *dto.EventSearchParams) (*domain.Page[domain.EventHit], error)

type venueSearch func(context.Context, *dto.VenueSearchParams) (*domain.Page[domain.VenueHit], error)

func (h *DiscoveryHandler) events(search eventSearch) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params dto.EventSearchParams
		if !bindQuery(c, &params) {
			return
		}
		page, err := search(c.Request.Context(), &params)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Page(c, page.Items, len(page.Items), page.NextCursor)
	}
}

func (h *DiscoveryHandler) venues(search venueSearch) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params dto.VenueSearchParams
		if !bindQuery(c, &params) {
			return
		}
		page, err := search(c.Request.Context(), &params)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Page(c, page.Items, len(page.Items), page.NextCursor)
	}
}

// NearbyEvents handles GET /discover/events/nearby?lng=&lat=&radius=
func (h *DiscoveryHandler) NearbyEvents() gin.HandlerFunc { return h.events(h.discovery.NearbyEvents) }

// SearchEvents handles GET /discover/events/search?q=
func (h *DiscoveryHandler) SearchEvents() gin.HandlerFunc { return h.events(h.discovery.SearchEvents) }

// FilterEvents handles GET /discover/events/filter?eventType=&detail=field:op:value
func (h *DiscoveryHandler) FilterEvents() gin.HandlerFunc { return h.events(h.discovery.FilterEvents) }

func (h *DiscoveryHandler) NearbyVenues() gin.HandlerFunc { return h.venues(h.discovery.NearbyVenues) }

func (h *DiscoveryHandler) SearchVenues() gin.HandlerFunc { return h.venues(h.discovery.SearchVenues) }

func (h *DiscoveryHandler) FilterVenues() gin.HandlerFunc { return h.venues(h.discovery.FilterVenues) }

// Recommendations handles GET /users/:id/recommendations
func (h *DiscoveryHandler) Recommendations(c *gin.Context) {
	var params dto.EventSearchParams
	if !bindQuery(c, &params) {
		return
	}
	page, err := h.discovery.Recommendations(c.Request.Context(), c.Param("id"), &params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Page(c, page.Items, len(page.Items), page.NextCursor)
}
