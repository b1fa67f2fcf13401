// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints:
// a uniform success/failure envelope, consistent JSON serialization, and
// helpers for common HTTP patterns. Every response carries an explicit
// `success` flag so clients can branch without inspecting status codes.
//
// Conventions:
//   - `fail()` centralizes error formatting; 5xx responses are logged with
//     request context and their messages are redacted in release mode.
//   - `is_form_error` marks failures a frontend should render inline on a
//     form (e.g. unknown user on the mood popup).
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "success": false,
//	  "error": "User not found",
//	  "is_form_error": true,
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hearu/hearu-backend/internal/http/middleware"
)

// ErrorResponse is the standard failure envelope returned by all endpoints.
type ErrorResponse struct {
	// Success is always false on failures.
	Success bool `json:"success" example:"false"`
	// Error is a human-readable description, safe for display to users.
	Error string `json:"error" example:"Session not found"`
	// IsFormError marks failures the client should surface on a form field.
	IsFormError bool `json:"is_form_error,omitempty" example:"true"`
	// RequestID correlates server logs and client errors.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// fail aborts the request with a structured error and logs server-side errors.
//
// Server errors (>=500) are logged using the request-scoped logger from
// middleware, and their message is replaced with a generic one in release
// mode so internals never leak to clients.
func fail(c *gin.Context, status int, msg string, formError bool) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("message", msg).
			Msg("api error")
		if gin.Mode() == gin.ReleaseMode {
			msg = msgInternal
		}
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Success:     false,
		Error:       msg,
		IsFormError: formError,
		RequestID:   c.Writer.Header().Get("X-Request-ID"),
	})
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without directly depending on unexported helpers.
func Fail(c *gin.Context, status int, msg string) { fail(c, status, msg, false) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
