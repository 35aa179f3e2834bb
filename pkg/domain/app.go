package domain

import "time"

// App is a web application registered from a source repository.
// Slug is derived from the repository name and is S3-safe.
type App struct {
	ID        int
	Name      string
	Slug      string
	RepoURL   string
	CreatedBy string
	CreatedAt time.Time
}

// AppIPAllowlist names a set of CIDR ranges allowed to reach the
// deployed app. Enforcement belongs to the auth proxy; the control
// panel only records the list.
type AppIPAllowlist struct {
	ID     int
	AppID  int
	Name   string
	Ranges []string
}
