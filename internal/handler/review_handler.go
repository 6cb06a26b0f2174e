package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/pkg/middleware"
	"github.com/prohmpiriya/eventhub/pkg/response"
)

// ReviewHandler handles review-related HTTP requests
type ReviewHandler struct {
	reviewService service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// Create handles POST /reviews. The authenticated user is the author when the body names none.
func (h *ReviewHandler) Create(c *gin.Context) {
	var req dto.CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID, _ = middleware.GetUserID(c)
	}
	review, err := h.reviewService.CreateReview(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, review)
}

func (h *ReviewHandler) GetByID(c *gin.Context) {
	review, err := h.reviewService.GetReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, review)
}

func (h *ReviewHandler) Update(c *gin.Context) {
	var req dto.UpdateReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviewService.UpdateReview(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, review)
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	if err := h.reviewService.DeleteReview(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}
