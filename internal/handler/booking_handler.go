package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/pkg/middleware"
	"github.com/prohmpiriya/eventhub/pkg/response"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

// BookingHandler handles ticket purchase requests
type BookingHandler struct {
	coordinator service.BookingCoordinator
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(coordinator service.BookingCoordinator) *BookingHandler {
	return &BookingHandler{coordinator: coordinator}
}

// Book handles POST /events/:id/bookings.
// The ticket sale and the checkin commit together or not at all.
func (h *BookingHandler) Book(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.book")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	var req dto.BookingRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID, _ = middleware.GetUserID(c)
	}
	if req.Metadata.IPAddress == "" {
		req.Metadata.IPAddress = c.ClientIP()
	}

	eventID := c.Param("id")
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("user_id", req.UserID),
		attribute.String("tier", req.Tier),
	)

	result, err := h.coordinator.Book(ctx, req.ToDomain(eventID))
	if err != nil {
		handleError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("attempts", result.Attempts))
	response.Created(c, result)
}
