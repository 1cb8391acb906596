package service

import (
	"context"
	"fmt"
	"time"

	"github.com/remeh/sizedwaitgroup"
	log "github.com/sirupsen/logrus"

	"github.com/repotrack/activity-api/client"
	"github.com/repotrack/activity-api/config"
	"github.com/repotrack/activity-api/model"
)

type ActivityService interface {
	GetRepositoryActivity(ctx context.Context, username string, page int, perPage int) (*model.RepositoryActivityResponse, error)
	GetRepositoryDetails(ctx context.Context, owner string, repo string) (*model.GithubRepository, error)
}

type activityService struct {
	githubClient client.GithubClient
	config       config.Config
}

// NewActivityService is constructed once at startup and shared between requests
// the commit fan-out bound (Tasks.MaxParallelTasksAllowed) is therefore a process wide policy
func NewActivityService(cfg config.Config, githubClient client.GithubClient) ActivityService {
	return activityService{
		githubClient: githubClient,
		config:       cfg,
	}
}

// GetRepositoryActivity assemble the activity view for a user or an organization:
// one account lookup, one repository page, then parallel commit fetches per repository
func (s activityService) GetRepositoryActivity(ctx context.Context, username string, page int, perPage int) (*model.RepositoryActivityResponse, error) {
	currentPage := page
	if currentPage <= 0 {
		currentPage = 1
	}

	pageSize := s.config.Github.MaxRepositoriesPerPage
	if perPage > 0 && perPage < pageSize {
		pageSize = perPage
	}

	log.WithFields(log.Fields{
		"username": username,
		"page":     currentPage,
		"perPage":  pageSize,
	}).Info("fetch repository activity")

	// a missing account is a hard stop, client errors pass through unchanged
	user, err := s.githubClient.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}

	var repositories []model.GithubRepository

	if user.IsOrganization() {
		repositories, err = s.githubClient.GetOrganizationRepositories(ctx, username, currentPage, pageSize)
	} else {
		repositories, err = s.githubClient.GetUserRepositories(ctx, username, currentPage, pageSize)
	}

	if err != nil {
		return nil, err
	}

	if len(repositories) == 0 {
		log.WithField("username", username).Info("no repositories found")

		return &model.RepositoryActivityResponse{
			Username:     username,
			UserType:     user.Type,
			Repositories: []model.GithubRepository{},
			FetchedAt:    time.Now().UTC(),
			Message:      "No repositories found for user: " + username,
			CurrentPage:  currentPage,
		}, nil
	}

	repositories = s.fetchCommitsInParallel(ctx, repositories)

	return &model.RepositoryActivityResponse{
		Username:              username,
		UserType:              user.Type,
		TotalRepositories:     user.PublicRepos,
		RepositoriesProcessed: len(repositories),
		Repositories:          repositories,
		FetchedAt:             time.Now().UTC(),
		Message:               fmt.Sprintf("Successfully fetched %d repositories with recent commits", len(repositories)),
		HasMore:               len(repositories) == pageSize,
		CurrentPage:           currentPage,
		TotalPages:            totalPages(user.PublicRepos, pageSize),
	}, nil
}

// GetRepositoryDetails build a bare repository record and attach its recent commits
// unlike the activity fan-out, a commit fetch failure here is fatal to the call
func (s activityService) GetRepositoryDetails(ctx context.Context, owner string, repoName string) (*model.GithubRepository, error) {
	log.WithFields(log.Fields{
		"owner":      owner,
		"repository": repoName,
	}).Info("fetch repository details")

	repository := &model.GithubRepository{
		Name:          repoName,
		FullName:      owner + "/" + repoName,
		Owner:         owner,
		RecentCommits: []model.GithubCommit{},
	}

	commits, err := s.githubClient.GetRepositoryCommits(ctx, owner, repoName, s.config.Github.MaxCommitsPerRepo)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"owner":      owner,
			"repository": repoName,
		}).Error("unable to fetch repository details")

		return nil, &model.GithubAPIError{
			Message: "Failed to fetch repository details: " + err.Error(),
		}
	}

	if commits != nil {
		repository.RecentCommits = commits
	}

	return repository, nil
}

type commitFetchResult struct {
	index   int
	commits []model.GithubCommit
}

// fetchCommitsInParallel fan out one commit fetch per repository over a bounded pool
// and join before returning, the input order is preserved through the result index
func (s activityService) fetchCommitsInParallel(ctx context.Context, repositories []model.GithubRepository) []model.GithubRepository {
	log.WithField("numberOfRepositories", len(repositories)).Debug("fetch recent commits for all repositories in parallel")

	swg := sizedwaitgroup.New(s.config.Tasks.MaxParallelTasksAllowed)
	results := make(chan commitFetchResult, len(repositories))

	for i := range repositories {
		swg.Add()
		go s.fetchCommitsForSingleRepository(ctx, i, repositories[i], &swg, results)
	}

	// wait for all tasks to be finished, no partial results are returned
	swg.Wait()
	close(results)

	for result := range results {
		repositories[result.index].RecentCommits = result.commits
	}

	return repositories
}

// fetchCommitsForSingleRepository get the recent commits for a specific repository
// any failure is downgraded to an empty commit list so one broken repository
// cannot abort the whole aggregation
func (s activityService) fetchCommitsForSingleRepository(ctx context.Context, index int, repository model.GithubRepository, swg *sizedwaitgroup.SizedWaitGroup, ch chan<- commitFetchResult) {
	defer swg.Done()

	log.WithFields(log.Fields{
		"owner":      repository.Owner,
		"repository": repository.Name,
	}).Debug("fetch recent commits for repository")

	commits, err := s.githubClient.GetRepositoryCommits(ctx, repository.Owner, repository.Name, s.config.Github.MaxCommitsPerRepo)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"owner":      repository.Owner,
			"repository": repository.Name,
		}).Warning("unable to fetch commits for repository")

		ch <- commitFetchResult{index: index, commits: []model.GithubCommit{}}
		return
	}

	if commits == nil {
		commits = []model.GithubCommit{}
	}

	ch <- commitFetchResult{index: index, commits: commits}
}

func totalPages(totalRepositories int, pageSize int) int {
	if totalRepositories <= 0 || pageSize <= 0 {
		return 0
	}

	return (totalRepositories + pageSize - 1) / pageSize
}
