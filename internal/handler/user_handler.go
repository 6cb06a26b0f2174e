package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/pkg/response"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService    service.UserService
	checkinService service.CheckinService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, checkinService service.CheckinService) *UserHandler {
	return &UserHandler{userService: userService, checkinService: checkinService}
}

// List handles GET /users
func (h *UserHandler) List(c *gin.Context) {
	var params dto.ListParams
	if !bindQuery(c, &params) {
		return
	}
	page, err := h.userService.ListUsers(c.Request.Context(), &params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Page(c, page.Items, len(page.Items), page.NextCursor)
}

func (h *UserHandler) GetByID(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateUser(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// ListCheckins handles GET /users/:id/checkins
func (h *UserHandler) ListCheckins(c *gin.Context) {
	var params dto.ListParams
	if !bindQuery(c, &params) {
		return
	}
	page, err := h.checkinService.ListByUser(c.Request.Context(), c.Param("id"), &params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Page(c, page.Items, len(page.Items), page.NextCursor)
}
