package tools

import (
	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Release is the API representation of an installable tool release,
// with the live status of the caller's deployment of it.
type Release struct {
	ID          int    `json:"id"`
	Chart       string `json:"chart_name"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func ComposeRelease(r domain.ToolRelease, status domain.ToolStatus) Release {
	return Release{
		ID:          r.ID,
		Chart:       r.Chart,
		Name:        r.Name,
		Version:     r.Version,
		Description: r.Description,
		Status:      string(status),
	}
}

// DeploymentRequest queues a deployment of the named tool for the
// caller.
type DeploymentRequest struct {
	Name string `json:"name"`
}

// Deployment is the API representation of one queued/live deployment.
type Deployment struct {
	ID        int    `json:"id"`
	ReleaseID int    `json:"tool_id"`
	UserSub   string `json:"user_id"`
}

func ComposeDeployment(d domain.ToolDeployment) Deployment {
	return Deployment{ID: d.ID, ReleaseID: d.ReleaseID, UserSub: d.UserSub}
}
