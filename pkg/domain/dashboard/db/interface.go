package db

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Interface is the shared-dashboard repository. Lookup by external id
// is the hot path; the embed page resolves a dashboard from the link
// it was shared with.
type Interface interface {
	// Get fetches a dashboard by id, with admins, viewers and domains.
	//
	// Returns domain/errors.ErrMissing when no such dashboard exists.
	Get(ctx context.Context, id int) (domain.Dashboard, error)

	// GetByExternalID fetches a dashboard by its id on the
	// dashboarding service.
	GetByExternalID(ctx context.Context, externalID string) (domain.Dashboard, error)

	// FindVisibleTo lists dashboards the given email may view, either
	// directly or through a whitelisted domain.
	FindVisibleTo(ctx context.Context, email string) ([]domain.Dashboard, error)

	// Register inserts a dashboard with its initial admin.
	//
	// Returns domain/errors.ErrConflict when the external id is taken.
	Register(ctx context.Context, dashboard domain.Dashboard) (domain.Dashboard, error)

	// Delete removes a dashboard and its sharing rows.
	Delete(ctx context.Context, id int) error

	// AddViewer shares the dashboard with one email.
	AddViewer(ctx context.Context, id int, email string) error

	// RemoveViewer revokes one email's access.
	RemoveViewer(ctx context.Context, id int, email string) error
}
