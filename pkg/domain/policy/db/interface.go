package db

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Interface is the managed-policy repository: customer-managed IAM
// policies shared by many user roles, and the membership rows that
// attach users to them.
type Interface interface {
	// Get fetches a policy by id.
	//
	// Returns domain/errors.ErrMissing when no such policy exists.
	Get(ctx context.Context, id int) (domain.ManagedPolicy, error)

	// GetByName fetches a policy by its unique name.
	GetByName(ctx context.Context, name string) (domain.ManagedPolicy, error)

	// Find lists every policy, ordered by name.
	Find(ctx context.Context) ([]domain.ManagedPolicy, error)

	// Register inserts a policy and returns it with the assigned id.
	//
	// Returns domain/errors.ErrConflict when the name is taken.
	Register(ctx context.Context, policy domain.ManagedPolicy) (domain.ManagedPolicy, error)

	// Delete removes a policy, its grants and its memberships.
	Delete(ctx context.Context, id int) error

	// Members lists the users attached to a policy.
	Members(ctx context.Context, policyID int) ([]domain.User, error)

	// AddMember attaches a user to a policy; repeats are conflicts.
	AddMember(ctx context.Context, policyID int, userSub string) error

	// RemoveMember detaches a user from a policy.
	RemoveMember(ctx context.Context, policyID int, userSub string) error
}
