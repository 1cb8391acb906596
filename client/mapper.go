package client

import (
	"github.com/google/go-github/v69/github"

	"github.com/repotrack/activity-api/model"
)

// toUser flatten the go-github user into our own representation
func toUser(user *github.User) *model.GithubUser {
	if user == nil {
		return &model.GithubUser{}
	}

	return &model.GithubUser{
		ID:          user.GetID(),
		Login:       user.GetLogin(),
		Name:        user.Name,
		Type:        user.GetType(),
		AvatarURL:   user.GetAvatarURL(),
		HTMLURL:     user.GetHTMLURL(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
	}
}

func toRepositories(repos []*github.Repository) []model.GithubRepository {
	out := make([]model.GithubRepository, 0, len(repos))

	for _, repo := range repos {
		if repo == nil {
			continue
		}

		out = append(out, toRepository(repo))
	}

	return out
}

func toRepository(repo *github.Repository) model.GithubRepository {
	mapped := model.GithubRepository{
		ID:              repo.GetID(),
		Name:            repo.GetName(),
		FullName:        repo.GetFullName(),
		Owner:           repo.GetOwner().GetLogin(),
		Description:     repo.Description,
		HTMLURL:         repo.GetHTMLURL(),
		DefaultBranch:   repo.GetDefaultBranch(),
		Language:        repo.Language,
		StargazersCount: repo.GetStargazersCount(),
		WatchersCount:   repo.GetWatchersCount(),
		ForksCount:      repo.GetForksCount(),
		OpenIssuesCount: repo.GetOpenIssuesCount(),
		Fork:            repo.GetFork(),
		Private:         repo.GetPrivate(),
		RecentCommits:   []model.GithubCommit{},
	}

	if repo.CreatedAt != nil {
		createdAt := repo.CreatedAt.Time
		mapped.CreatedAt = &createdAt
	}

	if repo.UpdatedAt != nil {
		updatedAt := repo.UpdatedAt.Time
		mapped.UpdatedAt = &updatedAt
	}

	if repo.PushedAt != nil {
		pushedAt := repo.PushedAt.Time
		mapped.PushedAt = &pushedAt
	}

	return mapped
}

// toCommits flatten the nested commit payload, keeping the upstream most-recent-first order
func toCommits(commits []*github.RepositoryCommit) []model.GithubCommit {
	out := make([]model.GithubCommit, 0, len(commits))

	for _, commit := range commits {
		if commit == nil {
			continue
		}

		mapped := model.GithubCommit{
			SHA:     commit.GetSHA(),
			Message: commit.GetCommit().GetMessage(),
			HTMLURL: commit.GetHTMLURL(),
		}

		if author := commit.GetCommit().GetAuthor(); author != nil {
			mapped.AuthorName = author.GetName()
			mapped.AuthorEmail = author.GetEmail()

			if author.Date != nil {
				authorDate := author.Date.Time
				mapped.AuthorDate = &authorDate
			}
		}

		out = append(out, mapped)
	}

	return out
}
