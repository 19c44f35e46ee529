package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
	"github.com/bhoomash/publicwayservice-sub000/pkg/middleware/requestid"
)

// indexRetryAfter is the hint sent with 503 responses while the similarity
// index is unavailable.
const indexRetryAfter = 30

// Envelope is the body of every API response. RequestID echoes the
// X-Request-ID header so clients can quote it when reporting a failure.
type Envelope struct {
	Data       interface{}        `json:"data,omitempty"`
	Error      *appErrors.Error   `json:"error,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	RequestID  string             `json:"request_id,omitempty"`
}

// JSON writes data with optional pagination.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination) {
	write(c, status, Envelope{Data: data, Pagination: pagination})
}

// OK writes data with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, Envelope{Data: data})
}

// Created writes data with HTTP 201.
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, Envelope{Data: data})
}

// Error converts err to the API error shape. The original error is attached
// to the gin context for the request logger; only the public message of an
// internal failure reaches the client.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	_ = c.Error(err)
	if appErr.Status == http.StatusServiceUnavailable {
		c.Header("Retry-After", strconv.Itoa(indexRetryAfter))
	}
	write(c, appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func write(c *gin.Context, status int, envelope Envelope) {
	// Complaint payloads carry submitter data and must not be cached by proxies.
	c.Header("Cache-Control", "no-store")
	envelope.RequestID = requestid.Value(c)
	c.JSON(status, envelope)
}
