package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/pkg/middleware"
	"github.com/prohmpiriya/eventhub/pkg/response"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	eventService   service.EventService
	reviewService  service.ReviewService
	checkinService service.CheckinService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService, reviewService service.ReviewService, checkinService service.CheckinService) *EventHandler {
	return &EventHandler{
		eventService:   eventService,
		reviewService:  reviewService,
		checkinService: checkinService,
	}
}

// List handles GET /events - lists events by start date with filters
func (h *EventHandler) List(c *gin.Context) {
	var params dto.EventSearchParams
	if !bindQuery(c, &params) {
		return
	}
	page, err := h.eventService.ListEvents(c.Request.Context(), &params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Page(c, page.Items, len(page.Items), page.NextCursor)
}

// GetByID handles GET /events/:id
func (h *EventHandler) GetByID(c *gin.Context) {
	event, err := h.eventService.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, event)
}

// Create handles POST /events - creates a new event (organizer or admin)
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.OrganizerID == "" {
		if userID, ok := middleware.GetUserID(c); ok {
			req.OrganizerID = userID
		}
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, event)
}

// Update handles PATCH /events/:id
func (h *EventHandler) Update(c *gin.Context) {
	var req dto.UpdateEventRequest
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.eventService.UpdateEvent(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, event)
}

// Delete handles DELETE /events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.eventService.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// Publish handles POST /events/:id/publish
func (h *EventHandler) Publish(c *gin.Context) {
	event, err := h.eventService.PublishEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, event)
}

// ListReviews handles GET /events/:id/reviews
func (h *EventHandler) ListReviews(c *gin.Context) {
	var params dto.ListParams
	if !bindQuery(c, &params) {
		return
	}
	page, err := h.reviewService.ListReviews(c.Request.Context(), domain.ReviewTargetEvent, c.Param("id"), &params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Page(c, page.Items, len(page.Items), page.NextCursor)
}

// ListCheckins handles GET /events/:id/checkins
func (h *EventHandler) ListCheckins(c *gin.Context) {
	var params dto.ListParams
	if !bindQuery(c, &params) {
		return
	}
	page, err := h.checkinService.ListByEvent(c.Request.Context(), c.Param("id"), &params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Page(c, page.Items, len(page.Items), page.NextCursor)
}
