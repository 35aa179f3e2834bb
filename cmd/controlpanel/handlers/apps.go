package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	apiapps "github.com/analytical-platform/controlpanel/pkg/api/types/apps"
	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	kapp "github.com/analytical-platform/controlpanel/pkg/domain/app/db"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/naming"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
	"github.com/analytical-platform/controlpanel/pkg/utils/slices"
)

func FindAppsHandler(apps kapp.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		found, err := apps.Find(c.Request().Context())
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, page(c, slices.Map(found, apiapps.ComposeDetail)))
	}
}

func GetAppHandler(apps kapp.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		app, err := apps.Get(c.Request().Context(), id)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, apiapps.ComposeDetail(app))
	}
}

// CreateAppHandler registers an app from its source repository. The
// slug is derived from the repository name; the cloud role and the
// identity-plane client are provisioned by queued tasks.
func CreateAppHandler(apps kapp.Interface, tasks Submitter) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		req := apiapps.CreationRequest{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}
		repoName, err := naming.RepoNameFromURL(req.RepoURL)
		if err != nil {
			return translate(err)
		}
		slug, err := naming.BucketSlug(repoName)
		if err != nil {
			return translate(err)
		}

		ctx := c.Request().Context()
		name := req.Name
		if name == "" {
			name = repoName
		}
		app, err := apps.Register(ctx, domain.App{
			Name:      name,
			Slug:      slug,
			RepoURL:   req.RepoURL,
			CreatedBy: caller.Sub,
		})
		if err != nil {
			return translate(err)
		}

		for _, task := range []string{domain.TaskAppCreateRole, domain.TaskAppCreateAuth} {
			if _, err := tasks.Submit(ctx, orchestrator.Submission{
				Name:              task,
				EntityClass:       "App",
				EntityID:          app.Slug,
				EntityDescription: app.Name,
				UserSub:           caller.Sub,
				Kwargs:            map[string]interface{}{"app_id": app.ID},
			}); err != nil {
				return translate(err)
			}
		}
		return c.JSON(http.StatusCreated, apiapps.ComposeDetail(app))
	}
}

// RoleCleanup tears down an entity's cloud role, detaching its
// policies first.
type RoleCleanup interface {
	DeleteRole(ctx context.Context, name string) error
}

// DeleteAppHandler removes an app and its provisioned resources: the
// identity-plane client and group, the cloud role, then the row.
func DeleteAppHandler(apps kapp.Interface, ident IdentityCleanup, roles RoleCleanup, env string, paramID string) echo.HandlerFunc {
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
		app, err := apps.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		if !caller.IsSuperuser && app.CreatedBy != caller.Sub {
			return binderr.Forbidden("not your resource")
		}

		if err := ident.ClearUpApp(ctx, app.Slug, appGroupName(env, app)); err != nil {
			return translate(err)
		}
		if err := roles.DeleteRole(ctx, naming.AppRoleName(env, app.Slug)); err != nil {
			return translate(err)
		}
		if err := apps.Delete(ctx, id); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func GetAppAllowlistsHandler(apps kapp.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		lists, err := apps.Allowlists(c.Request().Context(), id)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, slices.Map(lists, apiapps.ComposeAllowlist))
	}
}

func SetAppAllowlistsHandler(apps kapp.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		req := []apiapps.Allowlist{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}
		lists := make([]domain.AppIPAllowlist, 0, len(req))
		for _, l := range req {
			lists = append(lists, domain.AppIPAllowlist{
				AppID: id, Name: l.Name, Ranges: l.Ranges,
			})
		}

		ctx := c.Request().Context()
		if err := apps.SetAllowlists(ctx, id, lists); err != nil {
			return translate(err)
		}
		stored, err := apps.Allowlists(ctx, id)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, slices.Map(stored, apiapps.ComposeAllowlist))
	}
}
