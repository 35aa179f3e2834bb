package db

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Interface is the platform-user repository.
type Interface interface {
	// Get fetches a user by OIDC subject.
	//
	// Returns domain/errors.ErrMissing when no such user exists.
	Get(ctx context.Context, sub string) (domain.User, error)

	// Find lists every user, ordered by username.
	Find(ctx context.Context) ([]domain.User, error)

	// Register inserts a user.
	//
	// Returns domain/errors.ErrConflict when the subject is taken.
	Register(ctx context.Context, user domain.User) error

	// Update rewrites the mutable profile fields of a user.
	Update(ctx context.Context, user domain.User) error

	// Delete removes a user and their memberships.
	Delete(ctx context.Context, sub string) error
}
