package db

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Interface is the repository for curated tool releases and the
// per-user deployments of them.
type Interface interface {
	// GetRelease fetches a release by id.
	//
	// Returns domain/errors.ErrMissing when no such release exists.
	GetRelease(ctx context.Context, id int) (domain.ToolRelease, error)

	// GetReleaseByChart fetches the release of a chart at a version.
	GetReleaseByChart(ctx context.Context, chart string, version string) (domain.ToolRelease, error)

	// FindReleases lists every curated release, ordered by name.
	FindReleases(ctx context.Context) ([]domain.ToolRelease, error)

	// RegisterRelease inserts a release and returns it with the
	// assigned id. A duplicate (chart, version) pair is a conflict.
	RegisterRelease(ctx context.Context, release domain.ToolRelease) (domain.ToolRelease, error)

	// DeleteRelease removes a release and its deployments.
	DeleteRelease(ctx context.Context, id int) error

	// RegisterDeployment inserts a deployment and returns it with the
	// assigned id.
	RegisterDeployment(ctx context.Context, deployment domain.ToolDeployment) (domain.ToolDeployment, error)

	// LatestDeployment returns a user's most recent deployment of a
	// chart, newest by creation time.
	LatestDeployment(ctx context.Context, userSub string, chart string) (domain.ToolDeployment, error)

	// FindDeploymentsByUser lists a user's deployments, newest first.
	FindDeploymentsByUser(ctx context.Context, userSub string) ([]domain.ToolDeployment, error)

	// DeleteDeployment removes a deployment row after uninstall.
	DeleteDeployment(ctx context.Context, id int) error
}
