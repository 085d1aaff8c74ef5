package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	rateLimitProblemType  = "https://marketplace.example.com/problems/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// ProblemDetails is an RFC 9457 error payload used for throttled requests.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Message    string `json:"message"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// RetryAfterSeconds rounds d up to whole seconds, never below zero.
func RetryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}

// AbortTooManyRequests writes a 429 problem response with a Retry-After header.
func AbortTooManyRequests(c *gin.Context, detail string, retryAfter time.Duration) {
	seconds := RetryAfterSeconds(retryAfter)
	c.Header("Retry-After", strconv.Itoa(seconds))

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     detail,
		Message:    detail,
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}
