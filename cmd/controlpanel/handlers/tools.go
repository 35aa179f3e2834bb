package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	apitools "github.com/analytical-platform/controlpanel/pkg/api/types/tools"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	ktool "github.com/analytical-platform/controlpanel/pkg/domain/tool/db"
	"github.com/analytical-platform/controlpanel/pkg/naming"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
	"github.com/analytical-platform/controlpanel/pkg/utils/slices"
)

// ToolStatusReader reports the live status of one deployed tool. The
// cluster adapter's tracker satisfies it.
type ToolStatusReader interface {
	Status(ctx context.Context, namespace string, release string) (domain.ToolStatus, error)
}

// FindToolsHandler lists the releases the caller may deploy, each with
// the live status of the caller's own deployment.
func FindToolsHandler(tools ktool.Interface, status ToolStatusReader) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		releases, err := tools.FindReleases(ctx)
		if err != nil {
			return translate(err)
		}

		namespace := naming.NamespaceName(caller.Username)
		details := make([]apitools.Release, 0, len(releases))
		for _, r := range releases {
			if !r.VisibleTo(caller.Username) {
				continue
			}
			st, err := status.Status(ctx, namespace, naming.ReleaseName(caller.Username, r.Chart))
			if err != nil {
				return translate(err)
			}
			details = append(details, apitools.ComposeRelease(r, st))
		}
		return c.JSON(http.StatusOK, page(c, details))
	}
}

func FindDeploymentsHandler(tools ktool.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		deployments, err := tools.FindDeploymentsByUser(c.Request().Context(), caller.Sub)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, slices.Map(deployments, apitools.ComposeDeployment))
	}
}

// visibleRelease resolves a tool named by chart or display name to the
// release the caller may deploy.
func visibleRelease(releases []domain.ToolRelease, name string, username string) (domain.ToolRelease, bool) {
	for _, r := range releases {
		if r.Chart != name && r.Name != name {
			continue
		}
		if r.VisibleTo(username) {
			return r, true
		}
	}
	return domain.ToolRelease{}, false
}

// DeployToolHandler records a deployment and queues the Helm install.
// A repeat deploy of the same chart supersedes the previous one: the
// worker always acts on the newest deployment row.
func DeployToolHandler(tools ktool.Interface, tasks Submitter) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		req := apitools.DeploymentRequest{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}

		ctx := c.Request().Context()
		releases, err := tools.FindReleases(ctx)
		if err != nil {
			return translate(err)
		}
		release, ok := visibleRelease(releases, req.Name, caller.Username)
		if !ok {
			return binderr.BadRequest("unknown tool: "+req.Name, nil)
		}

		// when the user already runs this tool from a different chart,
		// the worker must uninstall that chart's release first
		oldChart := ""
		if previous, err := tools.FindDeploymentsByUser(ctx, caller.Sub); err == nil {
			for _, d := range previous {
				old, err := tools.GetRelease(ctx, d.ReleaseID)
				if err != nil {
					continue
				}
				if old.Name == release.Name && old.Chart != release.Chart {
					oldChart = old.Chart
					break
				}
			}
		}

		deployment, err := tools.RegisterDeployment(ctx, domain.ToolDeployment{
			ReleaseID: release.ID,
			UserSub:   caller.Sub,
			OldChart:  oldChart,
		})
		if err != nil {
			return translate(err)
		}

		if _, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskToolDeploy,
			EntityClass:       "Tool",
			EntityID:          release.Chart,
			EntityDescription: release.Name,
			UserSub:           caller.Sub,
			Kwargs: map[string]interface{}{
				"deployment_id": deployment.ID,
				"user_sub":      caller.Sub,
				"chart":         release.Chart,
			},
		}); err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusCreated, apitools.ComposeDeployment(deployment))
	}
}

// toolAction queues restart or uninstall against the caller's latest
// deployment of a chart.
func toolAction(tools ktool.Interface, tasks Submitter, taskName string, paramChart string, status int) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		chart := c.Param(paramChart)
		if chart == "" {
			return binderr.BadRequest("chart is required", nil)
		}

		ctx := c.Request().Context()
		deployment, err := tools.LatestDeployment(ctx, caller.Sub, chart)
		if err != nil {
			return translate(err)
		}
		release, err := tools.GetRelease(ctx, deployment.ReleaseID)
		if err != nil {
			return translate(err)
		}

		task, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              taskName,
			EntityClass:       "Tool",
			EntityID:          release.Chart,
			EntityDescription: release.Name,
			UserSub:           caller.Sub,
			Kwargs: map[string]interface{}{
				"deployment_id": deployment.ID,
				"user_sub":      caller.Sub,
				"chart":         release.Chart,
			},
		})
		if err != nil {
			return translate(err)
		}
		return c.JSON(status, map[string]string{"task_id": task.ID})
	}
}

func RestartToolHandler(tools ktool.Interface, tasks Submitter, paramChart string) echo.HandlerFunc {
	return toolAction(tools, tasks, domain.TaskToolRestart, paramChart, http.StatusAccepted)
}

func UninstallToolHandler(tools ktool.Interface, tasks Submitter, paramChart string) echo.HandlerFunc {
	return toolAction(tools, tasks, domain.TaskToolUninstall, paramChart, http.StatusAccepted)
}

// RegisterReleaseHandler adds a curated release to the catalogue.
type releaseRequest struct {
	Chart       string            `json:"chart_name"`
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Values      map[string]string `json:"values"`
	Restricted  bool              `json:"is_restricted"`
	TargetUsers []string          `json:"target_users"`
}

func RegisterReleaseHandler(tools ktool.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}

		req := releaseRequest{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}
		if req.Chart == "" || req.Version == "" {
			return binderr.BadRequest("chart_name and version are required", nil)
		}

		release, err := tools.RegisterRelease(c.Request().Context(), domain.ToolRelease{
			Chart:       req.Chart,
			Name:        req.Name,
			Version:     req.Version,
			Description: req.Description,
			Values:      req.Values,
			Restricted:  req.Restricted,
			TargetUsers: req.TargetUsers,
		})
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusCreated, apitools.ComposeRelease(release, domain.StatusAbsent))
	}
}

func DeleteReleaseHandler(tools ktool.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		if err := tools.DeleteRelease(c.Request().Context(), id); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
