package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	apigrants "github.com/analytical-platform/controlpanel/pkg/api/types/grants"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	kgrant "github.com/analytical-platform/controlpanel/pkg/domain/grant/db"
	kuser "github.com/analytical-platform/controlpanel/pkg/domain/user/db"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
	"github.com/analytical-platform/controlpanel/pkg/utils/slices"
)

func parseAccessLevel(s string) (domain.AccessLevel, error) {
	switch domain.AccessLevel(s) {
	case domain.ReadOnly:
		return domain.ReadOnly, nil
	case domain.ReadWrite:
		return domain.ReadWrite, nil
	default:
		return "", binderr.BadRequest("access_level must be readonly or readwrite", nil)
	}
}

func FindUserGrantsHandler(grants kgrant.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		sub := c.QueryParam("user_id")
		if sub == "" {
			sub = caller.Sub
		}
		if !caller.IsSuperuser && sub != caller.Sub {
			return binderr.Forbidden("not your resource")
		}

		found, err := grants.FindUserGrantsByUser(c.Request().Context(), sub)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, page(c, slices.Map(found, apigrants.ComposeUserGrant)))
	}
}

// CreateUserGrantHandler records a user's access to a bucket and
// queues the policy edit that enacts it.
func CreateUserGrantHandler(
	grants kgrant.Interface,
	users kuser.Interface,
	tasks Submitter,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
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
		grantee, err := users.Get(ctx, req.UserSub)
		if err != nil {
			return translate(err)
		}

		grant, err := grants.RegisterUserGrant(ctx, domain.UserBucketGrant{
			UserSub:     grantee.Sub,
			Username:    grantee.Username,
			Bucket:      req.Bucket,
			AccessLevel: level,
			Paths:       req.Paths,
			IsAdmin:     req.IsAdmin,
		})
		if err != nil {
			return translate(err)
		}

		if _, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskS3GrantToUser,
			EntityClass:       "UserS3Bucket",
			EntityID:          grant.Bucket,
			EntityDescription: grant.Bucket,
			UserSub:           caller.Sub,
			Kwargs:            map[string]interface{}{"grant_id": grant.ID},
		}); err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusCreated, apigrants.ComposeUserGrant(grant))
	}
}

// UpdateUserGrantHandler changes level or paths. The same policy-edit
// task enacts it: apply is reset-then-grant, so updates converge.
func UpdateUserGrantHandler(grants kgrant.Interface, tasks Submitter, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		req := apigrants.UpdateRequest{}
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
		grant, err := grants.UpdateUserGrant(ctx, id, level, req.Paths)
		if err != nil {
			return translate(err)
		}

		if _, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskS3GrantToUser,
			EntityClass:       "UserS3Bucket",
			EntityID:          grant.Bucket,
			EntityDescription: grant.Bucket,
			UserSub:           caller.Sub,
			Kwargs:            map[string]interface{}{"grant_id": grant.ID},
		}); err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, apigrants.ComposeUserGrant(grant))
	}
}

// DeleteUserGrantHandler removes the row first, then queues the
// revoke. The task carries the grant's coordinates because the row is
// gone by the time it runs.
func DeleteUserGrantHandler(grants kgrant.Interface, tasks Submitter, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		grant, err := grants.GetUserGrant(ctx, id)
		if err != nil {
			return translate(err)
		}
		if err := grants.DeleteUserGrant(ctx, id); err != nil {
			return translate(err)
		}

		if _, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskS3RevokeFromUser,
			EntityClass:       "UserS3Bucket",
			EntityID:          grant.Bucket,
			EntityDescription: grant.Bucket,
			UserSub:           caller.Sub,
			Kwargs: map[string]interface{}{
				"bucket_name": grant.Bucket,
				"username":    grant.Username,
			},
		}); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func FindAppGrantsHandler(grants kgrant.Interface, paramAppID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		appID, err := pathParamInt(c, paramAppID)
		if err != nil {
			return err
		}

		found, err := grants.FindAppGrantsByApp(c.Request().Context(), appID)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, page(c, slices.Map(found, apigrants.ComposeAppGrant)))
	}
}

func CreateAppGrantHandler(grants kgrant.Interface, tasks Submitter) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
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
		grant, err := grants.RegisterAppGrant(ctx, domain.AppBucketGrant{
			AppID:       req.AppID,
			Bucket:      req.Bucket,
			AccessLevel: level,
			Paths:       req.Paths,
		})
		if err != nil {
			return translate(err)
		}

		if _, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskS3GrantToApp,
			EntityClass:       "AppS3Bucket",
			EntityID:          grant.Bucket,
			EntityDescription: grant.Bucket,
			UserSub:           caller.Sub,
			Kwargs:            map[string]interface{}{"grant_id": grant.ID},
		}); err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusCreated, apigrants.ComposeAppGrant(grant))
	}
}

func UpdateAppGrantHandler(grants kgrant.Interface, tasks Submitter, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		req := apigrants.UpdateRequest{}
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
		grant, err := grants.UpdateAppGrant(ctx, id, level, req.Paths)
		if err != nil {
			return translate(err)
		}

		if _, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskS3GrantToApp,
			EntityClass:       "AppS3Bucket",
			EntityID:          grant.Bucket,
			EntityDescription: grant.Bucket,
			UserSub:           caller.Sub,
			Kwargs:            map[string]interface{}{"grant_id": grant.ID},
		}); err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, apigrants.ComposeAppGrant(grant))
	}
}

func DeleteAppGrantHandler(grants kgrant.Interface, tasks Submitter, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		grant, err := grants.GetAppGrant(ctx, id)
		if err != nil {
			return translate(err)
		}
		if err := grants.DeleteAppGrant(ctx, id); err != nil {
			return translate(err)
		}

		if _, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskS3RevokeFromApp,
			EntityClass:       "AppS3Bucket",
			EntityID:          grant.Bucket,
			EntityDescription: grant.Bucket,
			UserSub:           caller.Sub,
			Kwargs: map[string]interface{}{
				"bucket_name": grant.Bucket,
				"app_slug":    grant.AppSlug,
			},
		}); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
