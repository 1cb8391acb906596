package client

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v69/github"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/repotrack/activity-api/config"
	"github.com/repotrack/activity-api/model"
)

// GithubClient wraps the Github REST calls needed by the activity service
// all implementations must return model types and the typed errors from the model package
type GithubClient interface {
	GetUser(ctx context.Context, username string) (*model.GithubUser, error)
	GetUserRepositories(ctx context.Context, username string, page int, perPage int) ([]model.GithubRepository, error)
	GetOrganizationRepositories(ctx context.Context, org string, page int, perPage int) ([]model.GithubRepository, error)
	GetRepositoryCommits(ctx context.Context, owner string, repo string, maxCount int) ([]model.GithubCommit, error)
}

type githubClient struct {
	github  *github.Client
	limiter *rate.Limiter
	config  config.Config
}

// NewGithubClient wraps an already configured go-github client
// the client is injected so tests can pass a mocked HTTP transport
// limiter is optional and paces outbound requests when set
func NewGithubClient(cfg config.Config, githubApi *github.Client, limiter *rate.Limiter) GithubClient {
	return githubClient{
		github:  githubApi,
		limiter: limiter,
		config:  cfg,
	}
}

// GetUser fetch the account behind a login to know if it is a user or an organization
func (c githubClient) GetUser(ctx context.Context, username string) (*model.GithubUser, error) {
	log.WithField("username", username).Debug("fetch user from github")

	var user *github.User

	err := c.withRetry(ctx, func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var callErr error

		user, resp, callErr = c.github.Users.Get(ctx, username)
		return resp, callErr
	})

	if err != nil {
		return nil, c.asDomainError(err, "User not found: "+username)
	}

	return toUser(user), nil
}

// GetUserRepositories list a page of repositories for a user account, most recently updated first
func (c githubClient) GetUserRepositories(ctx context.Context, username string, page int, perPage int) ([]model.GithubRepository, error) {
	log.WithFields(log.Fields{
		"username": username,
		"page":     page,
	}).Debug("fetch user repositories from github")

	var repos []*github.Repository

	err := c.withRetry(ctx, func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var callErr error

		repos, resp, callErr = c.github.Repositories.ListByUser(ctx, username, &github.RepositoryListByUserOptions{
			Type:        "all",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: c.listOptions(page, perPage),
		})
		return resp, callErr
	})

	if err != nil {
		return nil, c.asDomainError(err, "User/Organization not found: "+username)
	}

	return toRepositories(repos), nil
}

// GetOrganizationRepositories is the organization variant of GetUserRepositories
func (c githubClient) GetOrganizationRepositories(ctx context.Context, org string, page int, perPage int) ([]model.GithubRepository, error) {
	log.WithFields(log.Fields{
		"organization": org,
		"page":         page,
	}).Debug("fetch organization repositories from github")

	var repos []*github.Repository

	err := c.withRetry(ctx, func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var callErr error

		repos, resp, callErr = c.github.Repositories.ListByOrg(ctx, org, &github.RepositoryListByOrgOptions{
			Type:        "all",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: c.listOptions(page, perPage),
		})
		return resp, callErr
	})

	if err != nil {
		return nil, c.asDomainError(err, "User/Organization not found: "+org)
	}

	return toRepositories(repos), nil
}

// GetRepositoryCommits fetch the most recent commits of a repository, bounded to maxCount
// a 404 (repository absent or without commits) or a plain 403 answers an empty list instead of an error
// so that one inaccessible repository cannot abort a larger aggregation
func (c githubClient) GetRepositoryCommits(ctx context.Context, owner string, repo string, maxCount int) ([]model.GithubCommit, error) {
	perPage := maxCount
	if max := c.config.Github.MaxCommitsPerRepo; perPage <= 0 || perPage > max {
		perPage = max
	}

	var commits []*github.RepositoryCommit

	err := c.withRetry(ctx, func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var callErr error

		commits, resp, callErr = c.github.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
			ListOptions: github.ListOptions{
				PerPage: perPage,
				Page:    1,
			},
		})
		return resp, callErr
	})

	if err != nil {
		// exhausted rate limit retries or an interrupted wait stay fatal even here
		if isDomainError(err) {
			return nil, err
		}

		switch statusCode(err) {
		case http.StatusNotFound:
			log.WithFields(log.Fields{
				"owner":      owner,
				"repository": repo,
			}).Warning("repository not found or has no commits available")
			return []model.GithubCommit{}, nil

		case http.StatusForbidden:
			log.WithFields(log.Fields{
				"owner":      owner,
				"repository": repo,
			}).Warning("access forbidden to repository")
			return []model.GithubCommit{}, nil

		default:
			return nil, c.asDomainError(err, "")
		}
	}

	return toCommits(commits), nil
}

// withRetry execute call and retry when Github answers with a rate limit error
// sleeping RetryDelayMs between attempts, without backoff
// once the retries are exhausted the last answer feeds a model.RateLimitError
func (c githubClient) withRetry(ctx context.Context, call func(ctx context.Context) (*github.Response, error)) error {
	// go-github caches a rate limited answer and would short-circuit the next
	// attempts with a synthetic response, bypass that check so every attempt
	// really reaches upstream
	callCtx := context.WithValue(ctx, github.BypassRateLimitCheck, true)

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return &model.GithubAPIError{Message: "request interrupted while waiting for the outbound limiter: " + err.Error()}
			}
		}

		resp, err := call(callCtx)

		if err == nil {
			logRateLimitInfo(resp)
			return nil
		}

		if !isRateLimited(err) {
			return err
		}

		if attempt >= c.config.Github.MaxRetries {
			return newRateLimitError(resp, err)
		}

		log.WithFields(log.Fields{
			"attempt":      attempt + 1,
			"maxRetries":   c.config.Github.MaxRetries,
			"retryDelayMs": c.config.Github.RetryDelayMs,
		}).Warning("github rate limit exceeded, will retry after delay")

		select {
		case <-ctx.Done():
			return &model.GithubAPIError{Message: "request interrupted during rate limit retry: " + ctx.Err().Error()}
		case <-time.After(time.Duration(c.config.Github.RetryDelayMs) * time.Millisecond):
		}
	}
}

// listOptions clamp perPage to the configured maximum before passing it upstream
func (c githubClient) listOptions(page int, perPage int) github.ListOptions {
	if max := c.config.Github.MaxRepositoriesPerPage; perPage <= 0 || perPage > max {
		perPage = max
	}

	return github.ListOptions{
		Page:    page,
		PerPage: perPage,
	}
}

// asDomainError convert a go-github error into one of the model error types
// errors already typed by withRetry are returned unchanged
func (c githubClient) asDomainError(err error, notFoundMessage string) error {
	if isDomainError(err) {
		return err
	}

	status := statusCode(err)

	if status == http.StatusNotFound && notFoundMessage != "" {
		return &model.NotFoundError{
			Message:    notFoundMessage,
			StatusCode: status,
			Body:       errorBody(err),
		}
	}

	log.WithError(err).Error("error catched when fetching data from github")

	return &model.GithubAPIError{
		Message:    "GitHub API request failed: " + err.Error(),
		StatusCode: status,
		Body:       errorBody(err),
	}
}

func isDomainError(err error) bool {
	var rateLimitErr *model.RateLimitError
	var apiErr *model.GithubAPIError
	var notFoundErr *model.NotFoundError

	return errors.As(err, &rateLimitErr) || errors.As(err, &apiErr) || errors.As(err, &notFoundErr)
}

// isRateLimited report whether the error is a rate limit shaped 403
// go-github detects the documented case itself, the substring match covers
// answers where the X-RateLimit headers were stripped
func isRateLimited(err error) bool {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode == http.StatusForbidden &&
			strings.Contains(strings.ToLower(errResp.Message), "rate limit exceeded")
	}

	return false
}

func newRateLimitError(resp *github.Response, err error) *model.RateLimitError {
	rateLimitErr := &model.RateLimitError{
		StatusCode: http.StatusForbidden,
		Body:       errorBody(err),
	}

	// prefer the values go-github already parsed from the X-RateLimit-* headers
	var ghRateLimitErr *github.RateLimitError
	if errors.As(err, &ghRateLimitErr) {
		if ghRateLimitErr.Response != nil {
			rateLimitErr.StatusCode = ghRateLimitErr.Response.StatusCode
		}

		remaining := ghRateLimitErr.Rate.Remaining
		rateLimitErr.Remaining = &remaining

		if !ghRateLimitErr.Rate.Reset.Time.IsZero() {
			reset := ghRateLimitErr.Rate.Reset.Time.UTC()
			rateLimitErr.Reset = &reset
		}

		return rateLimitErr
	}

	if resp == nil {
		return rateLimitErr
	}

	rateLimitErr.StatusCode = resp.StatusCode

	if remaining, convErr := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining")); convErr == nil {
		rateLimitErr.Remaining = &remaining
	}

	rateLimitErr.Reset = parseRateLimitReset(resp.Header.Get("X-RateLimit-Reset"))

	return rateLimitErr
}

// parseRateLimitReset accept both RFC3339 timestamps and epoch seconds, nil when unparseable
func parseRateLimitReset(raw string) *time.Time {
	if raw == "" {
		return nil
	}

	if reset, err := time.Parse(time.RFC3339, raw); err == nil {
		return &reset
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		reset := time.Unix(seconds, 0).UTC()
		return &reset
	}

	return nil
}

func statusCode(err error) int {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) && rateLimitErr.Response != nil {
		return rateLimitErr.Response.StatusCode
	}

	return 0
}

func errorBody(err error) string {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp.Message
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr.Message
	}

	return err.Error()
}

func logRateLimitInfo(resp *github.Response) {
	if resp == nil {
		return
	}

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		log.WithFields(log.Fields{
			"remaining": remaining,
			"reset":     resp.Header.Get("X-RateLimit-Reset"),
		}).Debug("github rate limit status")
	}
}
