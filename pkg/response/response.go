package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes shared by all handlers
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeValidation    = "VALIDATION_ERROR"
	CodeInvalidQuery  = "INVALID_QUERY"
	CodeNotFound      = "NOT_FOUND"
	CodeDuplicateKey  = "DUPLICATE_KEY"
	CodeSoldOut       = "SOLD_OUT"
	CodeConflict      = "CONFLICT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeInternalError = "INTERNAL_ERROR"
)

// Response is the JSON envelope for every endpoint
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorData describes a failed request
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Meta carries cursor pagination state
type Meta struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// OK writes 200 with data
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Created writes 201 with data
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// NoContent writes 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Page writes 200 with a page of items
func Page(c *gin.Context, items interface{}, count int, nextCursor string) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    items,
		Meta:    &Meta{Count: count, NextCursor: nextCursor, HasMore: nextCursor != ""},
	})
}

// Body builds an error envelope without writing it
func Body(code, message string) Response {
	return Response{Success: false, Error: &ErrorData{Code: code, Message: message}}
}

// Error writes an error envelope
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Body(code, message))
}

// FieldError writes an error envelope naming the offending field
func FieldError(c *gin.Context, status int, code, field, message string) {
	c.JSON(status, Response{Success: false, Error: &ErrorData{Code: code, Message: message, Field: field}})
}

// Abort writes an error envelope and stops the handler chain
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Body(code, message))
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternalError, "internal server error")
}
