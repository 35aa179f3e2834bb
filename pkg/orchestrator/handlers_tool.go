package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/analytical-platform/controlpanel/pkg/cluster"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/naming"
)

// resetHomeChart rebuilds a user's home directory when deployed.
const resetHomeChart = "reset-user-home"

type toolTarget struct {
	deployment domain.ToolDeployment
	release    domain.ToolRelease
	username   string
	namespace  string
	name       string
}

func (h *Handlers) resolveTool(ctx context.Context, kwargs map[string]interface{}) (toolTarget, error) {
	deploymentID, err := kwInt(kwargs, "deployment_id")
	if err != nil {
		return toolTarget{}, err
	}
	userSub, err := kwString(kwargs, "user_sub")
	if err != nil {
		return toolTarget{}, err
	}
	chart, err := kwString(kwargs, "chart")
	if err != nil {
		return toolTarget{}, err
	}

	deployment, err := h.ToolDB.LatestDeployment(ctx, userSub, chart)
	if err != nil {
		return toolTarget{}, err
	}
	if deployment.ID != deploymentID {
		// a newer deploy superseded this task; converge on the newest
		h.Logger.Printf("deployment %d superseded by %d; acting on the newest", deploymentID, deployment.ID)
	}

	release, err := h.ToolDB.GetRelease(ctx, deployment.ReleaseID)
	if err != nil {
		return toolTarget{}, err
	}
	user, err := h.UserDB.Get(ctx, deployment.UserSub)
	if err != nil {
		return toolTarget{}, err
	}

	return toolTarget{
		deployment: deployment,
		release:    release,
		username:   user.Username,
		namespace:  naming.NamespaceName(user.Username),
		name:       naming.ReleaseName(user.Username, release.Chart),
	}, nil
}

// ToolDeploy installs (or upgrades) a tool release into the user's
// namespace and blocks until Helm settles.
func (h *Handlers) ToolDeploy(ctx context.Context, msg Message, run *Run) Outcome {
	target, err := h.resolveTool(ctx, msg.Kwargs)
	if err != nil {
		return FromError(err)
	}

	// switching charts requires the old release to go first: two
	// charts cannot share the tool's service name
	if old := target.deployment.OldChart; old != "" && old != target.release.Chart {
		oldName := naming.ReleaseName(target.username, old)
		if _, err := h.Helm.Uninstall(ctx, target.namespace, h.UninstallTimeout, oldName); err != nil {
			if !errors.Is(err, cluster.ErrReleaseNotFound) {
				return FromError(err)
			}
		}
		h.Tracker.Forget(target.namespace, oldName)
	}

	if run.Cancelled(ctx) {
		return Fail(context.Canceled)
	}

	chart, err := h.Index.Lookup(ctx, target.release.Chart, target.release.Version)
	if err != nil {
		return Fail(err)
	}
	if len(chart.URLs) == 0 {
		return Fail(fmt.Errorf("chart %s-%s has no download URL", chart.Name, chart.Version))
	}

	values := map[string]string{}
	for k, v := range target.release.Values {
		values[k] = v
	}
	values["username"] = target.username
	values["aws.iamRole"] = naming.UserRoleName(h.Env, target.username)

	proc, err := h.Helm.UpgradeInstall(ctx, target.name, chart.URLs[0], target.namespace, values, true)
	if err != nil {
		return Fail(err)
	}
	h.Tracker.Track(target.namespace, target.name, proc)

	if _, code, err := proc.Wait(); err != nil || code != 0 {
		return Fail(fmt.Errorf(
			"helm upgrade of %s failed (exit %d): %s",
			target.name, code, strings.TrimSpace(proc.Stderr()),
		))
	}
	return Ok()
}

// ToolRestart bounces the pods of a deployed tool.
func (h *Handlers) ToolRestart(ctx context.Context, msg Message, run *Run) Outcome {
	target, err := h.resolveTool(ctx, msg.Kwargs)
	if err != nil {
		return FromError(err)
	}
	return FromError(h.Tracker.Restart(ctx, target.namespace, target.name))
}

// ToolUninstall removes a tool release and its deployment row. A
// release that is already gone still clears the row.
func (h *Handlers) ToolUninstall(ctx context.Context, msg Message, run *Run) Outcome {
	target, err := h.resolveTool(ctx, msg.Kwargs)
	if err != nil {
		return FromError(err)
	}

	if _, err := h.Helm.Uninstall(ctx, target.namespace, h.UninstallTimeout, target.name); err != nil {
		if !errors.Is(err, cluster.ErrReleaseNotFound) {
			return FromError(err)
		}
		h.Logger.Printf("release %s already absent from %s", target.name, target.namespace)
	}
	h.Tracker.Forget(target.namespace, target.name)

	return FromError(h.ToolDB.DeleteDeployment(ctx, target.deployment.ID))
}

// UserResetHome deploys the home-reset chart into the user's
// namespace and waits for it to finish.
func (h *Handlers) UserResetHome(ctx context.Context, msg Message, run *Run) Outcome {
	username, err := kwString(msg.Kwargs, "username")
	if err != nil {
		return Fail(err)
	}

	chart, err := h.Index.Lookup(ctx, resetHomeChart, "")
	if err != nil {
		return Fail(err)
	}
	if len(chart.URLs) == 0 {
		return Fail(fmt.Errorf("chart %s-%s has no download URL", chart.Name, chart.Version))
	}

	namespace := naming.NamespaceName(username)
	name := naming.ReleaseName(username, resetHomeChart)
	proc, err := h.Helm.UpgradeInstall(ctx, name, chart.URLs[0], namespace, map[string]string{
		"username": username,
	}, true)
	if err != nil {
		return Fail(err)
	}

	if _, code, err := proc.Wait(); err != nil || code != 0 {
		return Fail(fmt.Errorf(
			"home reset for %s failed (exit %d): %s",
			username, code, strings.TrimSpace(proc.Stderr()),
		))
	}
	return Ok()
}
