package db

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Interface is the registered-app repository.
type Interface interface {
	// Get fetches an app by id.
	//
	// Returns domain/errors.ErrMissing when no such app exists.
	Get(ctx context.Context, id int) (domain.App, error)

	// GetBySlug fetches an app by its S3-safe slug.
	GetBySlug(ctx context.Context, slug string) (domain.App, error)

	// Find lists every app, ordered by name.
	Find(ctx context.Context) ([]domain.App, error)

	// Register inserts an app and returns it with the assigned id.
	//
	// Returns domain/errors.ErrConflict when the slug is taken.
	Register(ctx context.Context, app domain.App) (domain.App, error)

	// Delete removes an app, its grants and its IP allowlists.
	Delete(ctx context.Context, id int) error

	// Allowlists returns the IP allowlists attached to an app.
	Allowlists(ctx context.Context, appID int) ([]domain.AppIPAllowlist, error)

	// SetAllowlists replaces the IP allowlists attached to an app.
	SetAllowlists(ctx context.Context, appID int, allowlists []domain.AppIPAllowlist) error
}
