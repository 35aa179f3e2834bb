package domain

import "time"

// Dashboard is an embedded analytics dashboard shared through the
// control panel. ExternalID is the id on the dashboarding service and
// is unique.
type Dashboard struct {
	ID         int
	Name       string
	ExternalID string
	CreatedBy  string
	CreatedAt  time.Time

	// subs of users who can manage sharing
	Admins []string

	// viewer emails and whitelisted email domains
	Viewers []string
	Domains []string
}
