package model

import "time"

type GithubCommit struct {
	SHA         string     `json:"sha"`
	Message     string     `json:"message"`
	AuthorName  string     `json:"authorName,omitempty"`
	AuthorEmail string     `json:"authorEmail,omitempty"`
	AuthorDate  *time.Time `json:"authorDate,omitempty"`
	HTMLURL     string     `json:"htmlUrl,omitempty"`
}
