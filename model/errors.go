package model

import (
	"time"
)

// NotFoundError is returned when Github answers 404 for a user, organization or repository
type NotFoundError struct {
	Message    string
	StatusCode int
	Body       string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// RateLimitError is returned once the rate limit retries are exhausted
// Remaining and Reset come from the X-RateLimit-* response headers and can be nil when absent or unparseable
type RateLimitError struct {
	StatusCode int
	Body       string
	Remaining  *int
	Reset      *time.Time
}

func (e *RateLimitError) Error() string {
	return "GitHub API rate limit exceeded"
}

// GithubAPIError covers any other non-2xx answer from Github or an unexpected failure
// StatusCode is 0 when no HTTP response was involved
type GithubAPIError struct {
	Message    string
	StatusCode int
	Body       string
}

func (e *GithubAPIError) Error() string {
	return e.Message
}

// APIErrorResponse is the error payload returned to our own callers
type APIErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Status    int       `json:"status"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"traceId"`
}
