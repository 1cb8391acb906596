package controller

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/repotrack/activity-api/config"
	"github.com/repotrack/activity-api/model"
	"github.com/repotrack/activity-api/service"
)

const (
	serviceName    = "GitHub Repository Activity Tracker"
	serviceVersion = "1.0.0"
)

// github logins are alphanumeric with single hyphens, never leading or trailing
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9]|-[a-zA-Z0-9])*$`)
	repoNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

type APIController interface {
	GetRepositoryActivity(c *gin.Context)
	GetRepositoryDetails(c *gin.Context)
	Health(c *gin.Context)
	Info(c *gin.Context)
}

type apiController struct {
	activityService service.ActivityService
	config          config.Config
}

func NewAPIController(cfg config.Config, activityService service.ActivityService) APIController {
	return apiController{
		activityService: activityService,
		config:          cfg,
	}
}

// GetRepositoryActivity handle GET /v1/repositories/activity/:username
func (s apiController) GetRepositoryActivity(c *gin.Context) {
	username := c.Param("username")

	if reason := validateUsername(username); reason != "" {
		s.abortWithValidationError(c, reason)
		return
	}

	var query model.ActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.abortWithValidationError(c, "page and perPage must be valid integers")
		return
	}

	if query.Page < 1 || query.PerPage < 1 {
		s.abortWithValidationError(c, "page and perPage must be greater than 0")
		return
	}

	response, err := s.activityService.GetRepositoryActivity(c.Request.Context(), username, query.Page, query.PerPage)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetRepositoryDetails handle GET /v1/repositories/details/:owner/:repo
func (s apiController) GetRepositoryDetails(c *gin.Context) {
	owner := c.Param("owner")
	repoName := c.Param("repo")

	if reason := validateUsername(owner); reason != "" {
		s.abortWithValidationError(c, reason)
		return
	}

	if reason := validateRepoName(repoName); reason != "" {
		s.abortWithValidationError(c, reason)
		return
	}

	repository, err := s.activityService.GetRepositoryDetails(c.Request.Context(), owner, repoName)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, repository)
}

// Health handle GET /v1/repositories/health
func (s apiController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "UP",
		"timestamp": time.Now().UTC(),
		"service":   serviceName,
		"version":   serviceVersion,
	})
}

// Info handle GET /v1/repositories/info
func (s apiController) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     serviceName,
		"description": "Fetch GitHub repository activity including recent commits for users and organizations",
		"version":     serviceVersion,
		"endpoints": gin.H{
			"GET /v1/repositories/activity/{username}":    "Get repository activity for a user/organization",
			"GET /v1/repositories/details/{owner}/{repo}": "Get detailed repository information",
			"GET /v1/repositories/health":                 "Health check endpoint",
			"GET /v1/repositories/info":                   "API information",
		},
		"parameters": gin.H{
			"page":    "Page number for pagination (default: 1)",
			"perPage": "Number of repositories per page (default: 30, max: 100)",
		},
		"timestamp": time.Now().UTC(),
	})
}

func validateUsername(username string) string {
	if username == "" {
		return "Username cannot be blank"
	}

	if len(username) > 39 {
		return "Username must be between 1 and 39 characters"
	}

	if !usernamePattern.MatchString(username) {
		return "Username contains invalid characters"
	}

	return ""
}

func validateRepoName(repoName string) string {
	if repoName == "" {
		return "Repository name cannot be blank"
	}

	if len(repoName) > 100 {
		return "Repository name must be between 1 and 100 characters"
	}

	if !repoNamePattern.MatchString(repoName) {
		return "Repository name contains invalid characters"
	}

	return ""
}

func (s apiController) abortWithValidationError(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, model.APIErrorResponse{
		Error:     "Validation Error",
		Message:   "Invalid request parameters",
		Details:   details,
		Status:    http.StatusBadRequest,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now().UTC(),
		TraceID:   uuid.NewString(),
	})
}

// abortWithError map the typed client/service errors to HTTP answers
// NotFound -> 404, RateLimit -> 429, other Github failures keep their upstream status when it is a valid HTTP error code
func (s apiController) abortWithError(c *gin.Context, err error) {
	traceID := uuid.NewString()

	var notFoundErr *model.NotFoundError
	if errors.As(err, &notFoundErr) {
		log.WithField("traceId", traceID).WithError(err).Warning("github resource not found")

		c.JSON(http.StatusNotFound, model.APIErrorResponse{
			Error:     "GitHub API Error",
			Message:   notFoundErr.Message,
			Details:   notFoundErr.Body,
			Status:    http.StatusNotFound,
			Path:      c.Request.URL.Path,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		})
		return
	}

	var rateLimitErr *model.RateLimitError
	if errors.As(err, &rateLimitErr) {
		log.WithField("traceId", traceID).Warning("github rate limit exceeded")

		c.JSON(http.StatusTooManyRequests, model.APIErrorResponse{
			Error:     "Rate Limit Exceeded",
			Message:   "GitHub API rate limit exceeded. Please try again later.",
			Details:   rateLimitDetails(rateLimitErr),
			Status:    http.StatusTooManyRequests,
			Path:      c.Request.URL.Path,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		})
		return
	}

	var apiErr *model.GithubAPIError
	if errors.As(err, &apiErr) {
		status := http.StatusInternalServerError
		if apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < 600 {
			status = apiErr.StatusCode
		}

		log.WithField("traceId", traceID).WithError(err).Error("github API error")

		c.JSON(status, model.APIErrorResponse{
			Error:     "GitHub API Error",
			Message:   apiErr.Message,
			Details:   apiErr.Body,
			Status:    status,
			Path:      c.Request.URL.Path,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		})
		return
	}

	log.WithField("traceId", traceID).WithError(err).Error("unexpected error while processing request")

	c.JSON(http.StatusInternalServerError, model.APIErrorResponse{
		Error:     "Internal Server Error",
		Message:   "An unexpected error occurred while processing your request",
		Details:   "Please try again later or contact support if the problem persists",
		Status:    http.StatusInternalServerError,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
	})
}

func rateLimitDetails(err *model.RateLimitError) string {
	remaining := "unknown"
	if err.Remaining != nil {
		remaining = strconv.Itoa(*err.Remaining)
	}

	reset := "unknown"
	if err.Reset != nil {
		reset = err.Reset.Format(time.RFC3339)
	}

	return fmt.Sprintf("Rate limit exceeded. Remaining: %s, Reset time: %s", remaining, reset)
}
