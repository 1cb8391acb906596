package model

import "time"

// RepositoryActivityResponse is the aggregate returned by the activity endpoint
type RepositoryActivityResponse struct {
	Username              string             `json:"username"`
	UserType              string             `json:"userType"` // User | Organization
	TotalRepositories     int                `json:"totalRepositories"`
	RepositoriesProcessed int                `json:"repositoriesProcessed"`
	Repositories          []GithubRepository `json:"repositories"`
	FetchedAt             time.Time          `json:"fetchedAt"`
	Message               string             `json:"message"`
	HasMore               bool               `json:"hasMore"` // true when the returned page was full, last page can be a false positive
	CurrentPage           int                `json:"currentPage"`
	TotalPages            int                `json:"totalPages"`
}
