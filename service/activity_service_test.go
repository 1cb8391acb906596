package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/repotrack/activity-api/config"
	"github.com/repotrack/activity-api/model"
)

// fakeGithubClient is a hand rolled test double for the client.GithubClient interface
// commit accesses are guarded because the activity fan-out calls them from several goroutines
type fakeGithubClient struct {
	mu sync.Mutex

	user       *model.GithubUser
	userErr    error
	repos      []model.GithubRepository
	reposErr   error
	commits    map[string][]model.GithubCommit
	commitErrs map[string]error

	userCalls     int
	userRepoCalls int
	orgRepoCalls  int
	commitCalls   int
	lastPage      int
	lastPerPage   int
}

func (f *fakeGithubClient) GetUser(_ context.Context, _ string) (*model.GithubUser, error) {
	f.userCalls++

	if f.userErr != nil {
		return nil, f.userErr
	}

	return f.user, nil
}

func (f *fakeGithubClient) GetUserRepositories(_ context.Context, _ string, page int, perPage int) ([]model.GithubRepository, error) {
	f.userRepoCalls++
	f.lastPage = page
	f.lastPerPage = perPage

	if f.reposErr != nil {
		return nil, f.reposErr
	}

	return f.repos, nil
}

func (f *fakeGithubClient) GetOrganizationRepositories(_ context.Context, _ string, page int, perPage int) ([]model.GithubRepository, error) {
	f.orgRepoCalls++
	f.lastPage = page
	f.lastPerPage = perPage

	if f.reposErr != nil {
		return nil, f.reposErr
	}

	return f.repos, nil
}

func (f *fakeGithubClient) GetRepositoryCommits(_ context.Context, owner string, repo string, _ int) ([]model.GithubCommit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commitCalls++
	key := owner + "/" + repo

	if err, found := f.commitErrs[key]; found {
		return nil, err
	}

	return f.commits[key], nil
}

func makeRepositories(owner string, names ...string) []model.GithubRepository {
	repos := make([]model.GithubRepository, 0, len(names))

	for i, name := range names {
		repos = append(repos, model.GithubRepository{
			ID:            int64(i + 1),
			Name:          name,
			FullName:      owner + "/" + name,
			Owner:         owner,
			RecentCommits: []model.GithubCommit{},
		})
	}

	return repos
}

func makeCommits(count int) []model.GithubCommit {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	commits := make([]model.GithubCommit, 0, count)

	for i := 0; i < count; i++ {
		date := now.Add(-time.Duration(i) * time.Hour)
		commits = append(commits, model.GithubCommit{
			SHA:        fmt.Sprintf("sha-%d", i),
			Message:    fmt.Sprintf("commit %d", i),
			AuthorName: "Jane Doe",
			AuthorDate: &date,
		})
	}

	return commits
}

func newTestService(fake *fakeGithubClient) ActivityService {
	return NewActivityService(*config.GetDefault(), fake)
}

// TestGetRepositoryActivity will test function GetRepositoryActivity
func TestGetRepositoryActivity(t *testing.T) {

	t.Run("user with three repositories and two commits each", func(t *testing.T) {
		fake := &fakeGithubClient{
			user:  &model.GithubUser{Login: "testuser", Type: "User", PublicRepos: 5},
			repos: makeRepositories("testuser", "repo1", "repo2", "repo3"),
			commits: map[string][]model.GithubCommit{
				"testuser/repo1": makeCommits(2),
				"testuser/repo2": makeCommits(2),
				"testuser/repo3": makeCommits(2),
			},
		}

		svc := newTestService(fake)
		response, err := svc.GetRepositoryActivity(context.Background(), "testuser", 1, 30)

		assert.NoError(t, err)
		assert.Equal(t, "testuser", response.Username)
		assert.Equal(t, "User", response.UserType)
		assert.Equal(t, 5, response.TotalRepositories)
		assert.Equal(t, 3, response.RepositoriesProcessed)
		assert.Len(t, response.Repositories, 3)
		assert.Contains(t, response.Message, "Successfully fetched 3 repositories")
		assert.Equal(t, 1, response.CurrentPage)
		assert.Equal(t, 1, response.TotalPages)
		assert.False(t, response.HasMore)

		// listing order is preserved through the fan-out
		assert.Equal(t, "repo1", response.Repositories[0].Name)
		assert.Equal(t, "repo2", response.Repositories[1].Name)
		assert.Equal(t, "repo3", response.Repositories[2].Name)

		for _, repo := range response.Repositories {
			assert.Len(t, repo.RecentCommits, 2)
		}

		assert.Equal(t, 1, fake.userRepoCalls)
		assert.Equal(t, 0, fake.orgRepoCalls)
		assert.Equal(t, 3, fake.commitCalls)
	})

	t.Run("organization is routed to the organization listing", func(t *testing.T) {
		fake := &fakeGithubClient{
			user:  &model.GithubUser{Login: "testorg", Type: "Organization", PublicRepos: 10},
			repos: makeRepositories("testorg", "core"),
			commits: map[string][]model.GithubCommit{
				"testorg/core": makeCommits(1),
			},
		}

		svc := newTestService(fake)
		response, err := svc.GetRepositoryActivity(context.Background(), "testorg", 1, 30)

		assert.NoError(t, err)
		assert.Equal(t, "Organization", response.UserType)
		assert.Equal(t, 1, fake.orgRepoCalls)
		assert.Equal(t, 0, fake.userRepoCalls)
		assert.Equal(t, 1, response.TotalPages)
	})

	t.Run("empty repository page skips the commit fan-out", func(t *testing.T) {
		fake := &fakeGithubClient{
			user:  &model.GithubUser{Login: "emptyuser", Type: "User", PublicRepos: 0},
			repos: []model.GithubRepository{},
		}

		svc := newTestService(fake)
		response, err := svc.GetRepositoryActivity(context.Background(), "emptyuser", 1, 30)

		assert.NoError(t, err)
		assert.Equal(t, "No repositories found for user: emptyuser", response.Message)
		assert.Equal(t, 0, response.RepositoriesProcessed)
		assert.Equal(t, 0, response.TotalRepositories)
		assert.Equal(t, 0, response.TotalPages)
		assert.False(t, response.HasMore)
		assert.NotNil(t, response.Repositories)
		assert.Empty(t, response.Repositories)
		assert.Equal(t, 0, fake.commitCalls)
	})

	t.Run("unknown user is a hard stop before any listing", func(t *testing.T) {
		notFoundErr := &model.NotFoundError{Message: "User not found: ghost", StatusCode: http.StatusNotFound}
		fake := &fakeGithubClient{userErr: notFoundErr}

		svc := newTestService(fake)
		response, err := svc.GetRepositoryActivity(context.Background(), "ghost", 1, 30)

		assert.Nil(t, response)
		assert.Equal(t, notFoundErr, err)
		assert.Equal(t, 0, fake.userRepoCalls)
		assert.Equal(t, 0, fake.orgRepoCalls)
		assert.Equal(t, 0, fake.commitCalls)
	})

	t.Run("repository listing failure propagates unchanged", func(t *testing.T) {
		rateLimitErr := &model.RateLimitError{StatusCode: http.StatusForbidden}
		fake := &fakeGithubClient{
			user:     &model.GithubUser{Login: "testuser", Type: "User", PublicRepos: 5},
			reposErr: rateLimitErr,
		}

		svc := newTestService(fake)
		response, err := svc.GetRepositoryActivity(context.Background(), "testuser", 1, 30)

		assert.Nil(t, response)
		assert.Equal(t, rateLimitErr, err)
		assert.Equal(t, 0, fake.commitCalls)
	})

	t.Run("one failing commit fetch is isolated to its repository", func(t *testing.T) {
		fake := &fakeGithubClient{
			user:  &model.GithubUser{Login: "testuser", Type: "User", PublicRepos: 3},
			repos: makeRepositories("testuser", "repo1", "repo2", "repo3"),
			commits: map[string][]model.GithubCommit{
				"testuser/repo1": makeCommits(2),
				"testuser/repo3": makeCommits(1),
			},
			commitErrs: map[string]error{
				"testuser/repo2": &model.GithubAPIError{Message: "GitHub API request failed", StatusCode: http.StatusBadGateway},
			},
		}

		svc := newTestService(fake)
		response, err := svc.GetRepositoryActivity(context.Background(), "testuser", 1, 30)

		assert.NoError(t, err)
		assert.Equal(t, 3, response.RepositoriesProcessed)
		assert.Len(t, response.Repositories[0].RecentCommits, 2)
		assert.NotNil(t, response.Repositories[1].RecentCommits)
		assert.Empty(t, response.Repositories[1].RecentCommits)
		assert.Len(t, response.Repositories[2].RecentCommits, 1)
	})

	t.Run("full page means more results and total pages is derived from the account", func(t *testing.T) {
		fake := &fakeGithubClient{
			user:    &model.GithubUser{Login: "testuser", Type: "User", PublicRepos: 100},
			repos:   makeRepositories("testuser", pageOfNames(30)...),
			commits: map[string][]model.GithubCommit{},
		}

		svc := newTestService(fake)
		response, err := svc.GetRepositoryActivity(context.Background(), "testuser", 2, 30)

		assert.NoError(t, err)
		assert.True(t, response.HasMore)
		assert.Equal(t, 2, response.CurrentPage)
		assert.Equal(t, 4, response.TotalPages)
		assert.Equal(t, 30, response.RepositoriesProcessed)
		assert.Equal(t, 2, fake.lastPage)
		assert.Equal(t, 30, fake.lastPerPage)

		// commits were not provided by the fake, every repository still carries an empty list
		for _, repo := range response.Repositories {
			assert.NotNil(t, repo.RecentCommits)
		}
	})

	t.Run("page and perPage are normalized before use", func(t *testing.T) {
		fake := &fakeGithubClient{
			user:    &model.GithubUser{Login: "testuser", Type: "User", PublicRepos: 1},
			repos:   makeRepositories("testuser", "repo1"),
			commits: map[string][]model.GithubCommit{},
		}

		svc := newTestService(fake)
		response, err := svc.GetRepositoryActivity(context.Background(), "testuser", 0, 0)

		assert.NoError(t, err)
		assert.Equal(t, 1, response.CurrentPage)
		assert.Equal(t, 1, fake.lastPage)
		assert.Equal(t, 30, fake.lastPerPage)

		// a perPage above the configured maximum is clamped down
		_, err = svc.GetRepositoryActivity(context.Background(), "testuser", 1, 500)
		assert.NoError(t, err)
		assert.Equal(t, 30, fake.lastPerPage)
	})
}

// TestGetRepositoryDetails will test function GetRepositoryDetails
func TestGetRepositoryDetails(t *testing.T) {

	t.Run("repository record is built without an existence check", func(t *testing.T) {
		fake := &fakeGithubClient{
			commits: map[string][]model.GithubCommit{
				"testuser/repo1": makeCommits(2),
			},
		}

		svc := newTestService(fake)
		repository, err := svc.GetRepositoryDetails(context.Background(), "testuser", "repo1")

		assert.NoError(t, err)
		assert.Equal(t, "repo1", repository.Name)
		assert.Equal(t, "testuser/repo1", repository.FullName)
		assert.Equal(t, "testuser", repository.Owner)
		assert.Len(t, repository.RecentCommits, 2)
		assert.Equal(t, 0, fake.userCalls)
	})

	t.Run("commit failure is fatal and wrapped", func(t *testing.T) {
		fake := &fakeGithubClient{
			commitErrs: map[string]error{
				"testuser/broken": &model.RateLimitError{StatusCode: http.StatusForbidden},
			},
		}

		svc := newTestService(fake)
		repository, err := svc.GetRepositoryDetails(context.Background(), "testuser", "broken")

		assert.Nil(t, repository)

		var apiErr *model.GithubAPIError
		assert.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Message, "Failed to fetch repository details:")
	})
}

// TestTotalPages will test function totalPages
func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 30))
	assert.Equal(t, 1, totalPages(1, 30))
	assert.Equal(t, 1, totalPages(30, 30))
	assert.Equal(t, 2, totalPages(31, 30))
	assert.Equal(t, 4, totalPages(100, 30))
	assert.Equal(t, 0, totalPages(10, 0))
}

func pageOfNames(count int) []string {
	names := make([]string, 0, count)

	for i := 0; i < count; i++ {
		names = append(names, fmt.Sprintf("repo-%02d", i))
	}

	return names
}
