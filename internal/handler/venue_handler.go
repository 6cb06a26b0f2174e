package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/pkg/response"
)

// VenueHandler handles venue-related HTTP requests
type VenueHandler struct {
	venueService  service.VenueService
	reviewService service.ReviewService
}

// NewVenueHandler creates a new VenueHandler
func NewVenueHandler(venueService service.VenueService, reviewService service.ReviewService) *VenueHandler {
	return &VenueHandler{venueService: venueService, reviewService: reviewService}
}

// List handles GET /venues
func (h *VenueHandler) List(c *gin.Context) {
	var params dto.VenueSearchParams
	if !bindQuery(c, &params) {
		return
	}
	page, err := h.venueService.ListVenues(c.Request.Context(), &params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Page(c, page.Items, len(page.Items), page.NextCursor)
}

// GetByID handles GET /venues/:id
func (h *VenueHandler) GetByID(c *gin.Context) {
	venue, err := h.venueService.GetVenue(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, venue)
}

// Create handles POST /venues
func (h *VenueHandler) Create(c *gin.Context) {
	var req dto.CreateVenueRequest
	if !bindJSON(c, &req) {
		return
	}
	venue, err := h.venueService.CreateVenue(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, venue)
}

// Update handles PATCH /venues/:id
func (h *VenueHandler) Update(c *gin.Context) {
	var req dto.UpdateVenueRequest
	if !bindJSON(c, &req) {
		return
	}
	venue, err := h.venueService.UpdateVenue(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, venue)
}

// Delete handles DELETE /venues/:id
func (h *VenueHandler) Delete(c *gin.Context) {
	if err := h.venueService.DeleteVenue(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// ListReviews handles GET /venues/:id/reviews
func (h *VenueHandler) ListReviews(c *gin.Context) {
	var params dto.ListParams
	if !bindQuery(c, &params) {
		return
	}
	page, err := h.reviewService.ListReviews(c.Request.Context(), domain.ReviewTargetVenue, c.Param("id"), &params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Page(c, page.Items, len(page.Items), page.NextCursor)
}
