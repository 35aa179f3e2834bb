package domain

import "time"

// User is a platform user. The primary key is the stable subject id
// issued by the OIDC provider, not the login name.
type User struct {
	Sub           string
	Username      string
	Name          string
	Email         string
	EmailVerified bool
	IsSuperuser   bool
	CreatedAt     time.Time
}

// Team groups users for shared resources.
type Team struct {
	ID   int
	Name string
	Slug string
}

type TeamMembership struct {
	TeamID  int
	UserSub string
}
