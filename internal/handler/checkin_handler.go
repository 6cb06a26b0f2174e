package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/pkg/middleware"
	"github.com/prohmpiriya/eventhub/pkg/response"
)

// CheckinHandler handles checkin-related HTTP requests
type CheckinHandler struct {
	checkinService service.CheckinService
}

// NewCheckinHandler creates a new CheckinHandler
func NewCheckinHandler(checkinService service.CheckinService) *CheckinHandler {
	return &CheckinHandler{checkinService: checkinService}
}

// Create handles POST /checkins
func (h *CheckinHandler) Create(c *gin.Context) {
	var req dto.CreateCheckinRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID, _ = middleware.GetUserID(c)
	}
	if req.Metadata.IPAddress == "" {
		req.Metadata.IPAddress = c.ClientIP()
	}
	checkin, err := h.checkinService.CreateCheckin(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, checkin)
}

func (h *CheckinHandler) GetByID(c *gin.Context) {
	checkin, err := h.checkinService.GetCheckin(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, checkin)
}

func (h *CheckinHandler) Delete(c *gin.Context) {
	if err := h.checkinService.DeleteCheckin(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}
