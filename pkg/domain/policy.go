package domain

import "time"

// ManagedPolicy is a customer-managed IAM policy shared by many user
// roles. Grants against it are PolicyBucketGrant rows.
type ManagedPolicy struct {
	ID        int
	Name      string
	ARN       string
	CreatedBy string
	CreatedAt time.Time
}

// UserPolicyMembership attaches a user's role to a managed policy.
type UserPolicyMembership struct {
	PolicyID int
	UserSub  string
}
