package model

import "strings"

type GithubUser struct {
	ID          int64   `json:"id"`
	Login       string  `json:"login"`
	Name        *string `json:"name,omitempty"`
	Type        string  `json:"type"` // User | Organization
	AvatarURL   string  `json:"avatarUrl,omitempty"`
	HTMLURL     string  `json:"htmlUrl,omitempty"`
	PublicRepos int     `json:"publicRepos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

// IsOrganization reports whether the account type is an organization
// the comparison is case insensitive because Github is not consistent across endpoints
func (u GithubUser) IsOrganization() bool {
	return strings.EqualFold(u.Type, "Organization")
}
