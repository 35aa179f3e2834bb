package orchestrator

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/naming"
)

// PolicyUpdateForAllUsers attaches or detaches a managed policy
// across every user role on the platform. The walk is restartable:
// attach and detach are both idempotent per role.
func (h *Handlers) PolicyUpdateForAllUsers(ctx context.Context, msg Message, run *Run) Outcome {
	policyName, err := kwString(msg.Kwargs, "policy_name")
	if err != nil {
		return Fail(err)
	}
	attach, err := kwBool(msg.Kwargs, "attach")
	if err != nil {
		return Fail(err)
	}

	users, err := h.UserDB.Find(ctx)
	if err != nil {
		return FromError(err)
	}

	policyARN := h.Roles.PolicyARN(policyName)
	for _, user := range users {
		if run.Cancelled(ctx) {
			return Fail(context.Canceled)
		}
		roleName := naming.UserRoleName(h.Env, user.Username)
		if attach {
			err = h.Roles.AttachPolicy(ctx, roleName, policyARN)
		} else {
			err = h.Roles.DetachPolicy(ctx, roleName, policyARN)
		}
		if err != nil {
			return FromError(err)
		}
	}
	return Ok()
}
