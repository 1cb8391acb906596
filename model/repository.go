package model

import "time"

type GithubRepository struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"fullName"`
	Owner           string     `json:"owner"`
	Description     *string    `json:"description,omitempty"` // description can be nil for some repositories
	HTMLURL         string     `json:"htmlUrl,omitempty"`
	DefaultBranch   string     `json:"defaultBranch,omitempty"`
	Language        *string    `json:"language,omitempty"`
	StargazersCount int        `json:"stargazersCount"`
	WatchersCount   int        `json:"watchersCount"`
	ForksCount      int        `json:"forksCount"`
	OpenIssuesCount int        `json:"openIssuesCount"`
	Fork            bool       `json:"fork"`
	Private         bool       `json:"private"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
	PushedAt        *time.Time `json:"pushedAt,omitempty"`

	// RecentCommits is not part of the raw Github payload
	// the activity service fills it after the listing call and it is never nil in a response
	RecentCommits []GithubCommit `json:"recentCommits"`
}
