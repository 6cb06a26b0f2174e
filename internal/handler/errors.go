package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/logger"
	"github.com/prohmpiriya/eventhub/pkg/middleware"
	"github.com/prohmpiriya/eventhub/pkg/response"
)

// handleError maps a service error onto the response envelope
func handleError(c *gin.Context, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		response.FieldError(c, http.StatusBadRequest, response.CodeValidation, validation.Field, validation.Message)
	case domain.IsInvalidQueryError(err):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidQuery, err.Error())
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case domain.IsDuplicateKeyError(err):
		response.Error(c, http.StatusConflict, response.CodeDuplicateKey, err.Error())
	case domain.IsSoldOutError(err):
		response.Error(c, http.StatusConflict, response.CodeSoldOut, err.Error())
	case domain.IsConflictError(err):
		c.Header("Retry-After", "1")
		response.Error(c, http.StatusServiceUnavailable, response.CodeConflict, "the request conflicted with concurrent writes, retry later")
	default:
		_ = c.Error(err)
		logger.Get().Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.InternalError(c)
	}
}

// bindJSON decodes the body and writes a 400 on malformed input
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequest(c, "Invalid request body")
		return false
	}
	return true
}

// bindQuery decodes query parameters and writes a 400 on malformed input
func bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidQuery, "Invalid query parameters")
		return false
	}
	return true
}
