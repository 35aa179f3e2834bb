package orchestrator

import (
	"context"
	"fmt"

	"github.com/analytical-platform/controlpanel/pkg/cloud"
	"github.com/analytical-platform/controlpanel/pkg/naming"
)

// AppCreateRole provisions the cloud role of a registered app and
// attaches the base policies every app carries.
func (h *Handlers) AppCreateRole(ctx context.Context, msg Message, run *Run) Outcome {
	appID, err := kwInt(msg.Kwargs, "app_id")
	if err != nil {
		return Fail(err)
	}

	app, err := h.AppDB.Get(ctx, appID)
	if err != nil {
		return FromError(err)
	}

	roleName := naming.AppRoleName(h.Env, app.Slug)
	if err := h.Roles.CreateRole(ctx, roleName, cloud.AppRole); err != nil {
		return FromError(err)
	}

	for _, policyName := range h.AppBasePolicies {
		if run.Cancelled(ctx) {
			return Fail(context.Canceled)
		}
		if err := h.Roles.AttachPolicy(ctx, roleName, h.Roles.PolicyARN(policyName)); err != nil {
			return FromError(err)
		}
	}
	return Ok()
}

// AppCreateAuth provisions the identity-plane client, connection and
// customer group of a registered app.
func (h *Handlers) AppCreateAuth(ctx context.Context, msg Message, run *Run) Outcome {
	appID, err := kwInt(msg.Kwargs, "app_id")
	if err != nil {
		return Fail(err)
	}

	app, err := h.AppDB.Get(ctx, appID)
	if err != nil {
		return FromError(err)
	}

	callbacks := []string{}
	if h.AppCallbackTemplate != "" {
		callbacks = append(callbacks, fmt.Sprintf(h.AppCallbackTemplate, app.Slug))
	}
	groupName := fmt.Sprintf("%s-%s", h.Env, app.Slug)
	return FromError(h.Identity.SetupApp(ctx, app.Slug, groupName, callbacks))
}
