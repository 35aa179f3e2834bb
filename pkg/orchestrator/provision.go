package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/analytical-platform/controlpanel/pkg/cloud"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/naming"
)

// UserInitialiser provisions the platform resources a user needs
// before anything else works: the IAM role every grant attaches to,
// the base managed policies, and a queued home-reset that lays out
// the user's namespace and home directory.
//
// All steps are idempotent, so re-running for an already-provisioned
// user converges instead of failing.
type UserInitialiser struct {
	Env          string
	Roles        *cloud.Roles
	BasePolicies []string
	Tasks        *Submitter
	Logger       *log.Logger
}

func (i *UserInitialiser) InitialiseUser(ctx context.Context, user domain.User) error {
	roleName := naming.UserRoleName(i.Env, user.Username)
	if err := i.Roles.CreateRole(ctx, roleName, cloud.UserRole); err != nil {
		return fmt.Errorf("create role %s: %w", roleName, err)
	}
	for _, p := range i.BasePolicies {
		if err := i.Roles.AttachPolicy(ctx, roleName, i.Roles.PolicyARN(p)); err != nil {
			return fmt.Errorf("attach %s to %s: %w", p, roleName, err)
		}
	}

	_, err := i.Tasks.Submit(ctx, Submission{
		Name:              domain.TaskUserResetHome,
		EntityClass:       "user",
		EntityID:          user.Sub,
		EntityDescription: user.Username,
		UserSub:           user.Sub,
		Kwargs:            map[string]interface{}{"username": user.Username},
	})
	if err != nil {
		return fmt.Errorf("queue home reset for %s: %w", user.Username, err)
	}

	i.Logger.Printf("provisioned user %s (role %s)", user.Username, roleName)
	return nil
}
