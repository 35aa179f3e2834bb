package handlers

import (
	"context"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	apigrants "github.com/analytical-platform/controlpanel/pkg/api/types/grants"
	apipolicies "github.com/analytical-platform/controlpanel/pkg/api/types/policies"
	apiusers "github.com/analytical-platform/controlpanel/pkg/api/types/users"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	kgrant "github.com/analytical-platform/controlpanel/pkg/domain/grant/db"
	kpolicy "github.com/analytical-platform/controlpanel/pkg/domain/policy/db"
	kuser "github.com/analytical-platform/controlpanel/pkg/domain/user/db"
	"github.com/analytical-platform/controlpanel/pkg/naming"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
	"github.com/analytical-platform/controlpanel/pkg/policy"
	"github.com/analytical-platform/controlpanel/pkg/utils/slices"
)

// PolicyPlane is the slice of the cloud IAM surface the policy
// endpoints drive synchronously. Attach and detach of a single member
// are cheap single calls; only the all-users sweep goes through the
// task queue.
type PolicyPlane interface {
	CreateManagedPolicy(ctx context.Context, name string, document []byte) (string, error)
	DeleteManagedPolicy(ctx context.Context, name string) error
	AttachPolicy(ctx context.Context, roleName string, policyARN string) error
	DetachPolicy(ctx context.Context, roleName string, policyARN string) error
	PolicyARN(name string) string
}

// PolicyEditor runs one serialised edit on a carrier's document.
type PolicyEditor interface {
	Edit(ctx context.Context, carrier domain.PolicyCarrier, mutate func(*policy.Document) error) error
}

var rePolicyName = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

func FindPoliciesHandler(policies kpolicy.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		found, err := policies.Find(c.Request().Context())
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, page(c, slices.Map(found, apipolicies.ComposeDetail)))
	}
}

func GetPolicyHandler(policies kpolicy.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		p, err := policies.Get(c.Request().Context(), id)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, apipolicies.ComposeDetail(p))
	}
}

// CreatePolicyHandler creates the cloud-side managed policy with an
// empty document, then records it. Creation is idempotent cloud-side,
// so a row conflict after the cloud call leaves nothing dangling.
func CreatePolicyHandler(policies kpolicy.Interface, plane PolicyPlane) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireSuperuser(c)
		if err != nil {
			return err
		}

		req := apipolicies.CreationRequest{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}
		if !rePolicyName.MatchString(req.Name) {
			return binderr.BadRequest(
				"policy names are lowercase letters, digits and hyphens", nil,
			)
		}

		ctx := c.Request().Context()
		// IAM rejects an empty statement list, so new policies start
		// with the console placeholder
		seed, err := policy.Placeholder().Serialise()
		if err != nil {
			return translate(err)
		}
		arn, err := plane.CreateManagedPolicy(ctx, req.Name, seed)
		if err != nil {
			return translate(err)
		}

		p, err := policies.Register(ctx, domain.ManagedPolicy{
			Name:      req.Name,
			ARN:       arn,
			CreatedBy: caller.Sub,
		})
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusCreated, apipolicies.ComposeDetail(p))
	}
}

// DeletePolicyHandler detaches every member's role, deletes the
// cloud-side policy and removes the row, in that order so a failure
// partway through can be retried.
func DeletePolicyHandler(
	policies kpolicy.Interface,
	plane PolicyPlane,
	env string,
	paramID string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		p, err := policies.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		members, err := policies.Members(ctx, id)
		if err != nil {
			return translate(err)
		}
		for _, member := range members {
			roleName := naming.UserRoleName(env, member.Username)
			if err := plane.DetachPolicy(ctx, roleName, p.ARN); err != nil {
				return translate(err)
			}
		}

		if err := plane.DeleteManagedPolicy(ctx, p.Name); err != nil {
			return translate(err)
		}
		if err := policies.Delete(ctx, id); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func FindPolicyMembersHandler(policies kpolicy.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		members, err := policies.Members(c.Request().Context(), id)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, page(c, slices.Map(members, apiusers.ComposeDetail)))
	}
}

// AddPolicyMemberHandler records the membership and attaches the
// user's role in the same request. Both sides are idempotent enough
// to retry: re-attaching is a cloud-side no-op, and a duplicate row
// is reported as a conflict.
func AddPolicyMemberHandler(
	policies kpolicy.Interface,
	users kuser.Interface,
	plane PolicyPlane,
	env string,
	paramID string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		req := apipolicies.MemberRequest{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}

		ctx := c.Request().Context()
		p, err := policies.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		member, err := users.Get(ctx, req.UserSub)
		if err != nil {
			return translate(err)
		}

		if err := policies.AddMember(ctx, id, member.Sub); err != nil {
			return translate(err)
		}
		roleName := naming.UserRoleName(env, member.Username)
		if err := plane.AttachPolicy(ctx, roleName, p.ARN); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusCreated)
	}
}

func RemovePolicyMemberHandler(
	policies kpolicy.Interface,
	users kuser.Interface,
	plane PolicyPlane,
	env string,
	paramID string,
	paramSub string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		sub := c.Param(paramSub)
		if sub == "" {
			return binderr.BadRequest("user_id is required", nil)
		}

		ctx := c.Request().Context()
		p, err := policies.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		member, err := users.Get(ctx, sub)
		if err != nil {
			return translate(err)
		}

		roleName := naming.UserRoleName(env, member.Username)
		if err := plane.DetachPolicy(ctx, roleName, p.ARN); err != nil {
			return translate(err)
		}
		if err := policies.RemoveMember(ctx, id, member.Sub); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// SweepPolicyHandler queues the attach-or-detach walk over every user
// role on the platform.
func SweepPolicyHandler(policies kpolicy.Interface, tasks Submitter, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireSuperuser(c)
		if err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		req := struct {
			Attach bool `json:"attach"`
		}{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}

		ctx := c.Request().Context()
		p, err := policies.Get(ctx, id)
		if err != nil {
			return translate(err)
		}

		task, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskPolicyUpdateForAllUsers,
			EntityClass:       "ManagedPolicy",
			EntityID:          p.Name,
			EntityDescription: p.Name,
			UserSub:           caller.Sub,
			Kwargs: map[string]interface{}{
				"policy_name": p.Name,
				"attach":      req.Attach,
			},
		})
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusAccepted, map[string]string{"task_id": task.ID})
	}
}

// CreatePolicyGrantHandler records a policy-to-bucket grant and
// applies it to the managed policy's document in the same request.
func CreatePolicyGrantHandler(
	grants kgrant.Interface,
	policies kpolicy.Interface,
	editor PolicyEditor,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}

		req := apigrants.CreationRequest{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}
		level, err := parseAccessLevel(req.AccessLevel)
		if err != nil {
			return err
		}
		if err := domain.ValidateGrantPaths(req.Paths); err != nil {
			return translate(err)
		}

		ctx := c.Request().Context()
		p, err := policies.GetByName(ctx, req.PolicyName)
		if err != nil {
			return translate(err)
		}

		grant, err := grants.RegisterPolicyGrant(ctx, domain.PolicyBucketGrant{
			PolicyName:  p.Name,
			Bucket:      req.Bucket,
			AccessLevel: level,
			Paths:       req.Paths,
		})
		if err != nil {
			return translate(err)
		}

		if err := editor.Edit(ctx, grant.Carrier(""), func(doc *policy.Document) error {
			doc.ResetAccess(domain.BucketARN(grant))
			policy.ApplyGrant(doc, grant)
			return nil
		}); err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusCreated, apigrants.ComposePolicyGrant(grant))
	}
}

// DeletePolicyGrantHandler removes a policy's access to one bucket,
// addressed by policy id and bucket name because the row is found by
// the pair rather than by its own id.
func DeletePolicyGrantHandler(
	grants kgrant.Interface,
	policies kpolicy.Interface,
	editor PolicyEditor,
	paramID string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		bucketName := c.QueryParam("s3bucket")
		if bucketName == "" {
			return binderr.BadRequest("s3bucket is required", nil)
		}

		ctx := c.Request().Context()
		p, err := policies.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		found, err := grants.FindPolicyGrantsByBucket(ctx, bucketName)
		if err != nil {
			return translate(err)
		}
		for _, grant := range found {
			if grant.PolicyName != p.Name {
				continue
			}
			if err := editor.Edit(ctx, grant.Carrier(""), func(doc *policy.Document) error {
				doc.ResetAccess(domain.BucketARN(grant))
				return nil
			}); err != nil {
				return translate(err)
			}
			if err := grants.DeletePolicyGrant(ctx, grant.ID); err != nil {
				return translate(err)
			}
			return c.NoContent(http.StatusNoContent)
		}
		return binderr.NotFound()
	}
}
