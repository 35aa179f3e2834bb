package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	apiusers "github.com/analytical-platform/controlpanel/pkg/api/types/users"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	kuser "github.com/analytical-platform/controlpanel/pkg/domain/user/db"
	"github.com/analytical-platform/controlpanel/pkg/naming"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
	"github.com/analytical-platform/controlpanel/pkg/utils/slices"
)

func FindUsersHandler(users kuser.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}

		found, err := users.Find(c.Request().Context())
		if err != nil {
			return translate(err)
		}

		return c.JSON(http.StatusOK, page(c, slices.Map(found, apiusers.ComposeDetail)))
	}
}

func GetUserHandler(users kuser.Interface, paramSub string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		sub := c.Param(paramSub)
		if !caller.IsSuperuser && caller.Sub != sub {
			return binderr.Forbidden("not your resource")
		}

		user, err := users.Get(c.Request().Context(), sub)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, apiusers.ComposeDetail(user))
	}
}

// DeleteUserHandler deregisters a user: their cloud role goes first,
// then the row.
func DeleteUserHandler(users kuser.Interface, roles RoleCleanup, env string, paramSub string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireSuperuser(c); err != nil {
			return err
		}

		ctx := c.Request().Context()
		user, err := users.Get(ctx, c.Param(paramSub))
		if err != nil {
			return translate(err)
		}
		if err := roles.DeleteRole(ctx, naming.UserRoleName(env, user.Username)); err != nil {
			return translate(err)
		}
		if err := users.Delete(ctx, user.Sub); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// ResetUserHomeHandler queues a re-initialisation of the user's home
// directory in their namespace.
func ResetUserHomeHandler(users kuser.Interface, tasks Submitter, paramSub string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		sub := c.Param(paramSub)
		if !caller.IsSuperuser && caller.Sub != sub {
			return binderr.Forbidden("not your resource")
		}

		ctx := c.Request().Context()
		user, err := users.Get(ctx, sub)
		if err != nil {
			return translate(err)
		}

		task, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskUserResetHome,
			EntityClass:       "User",
			EntityID:          user.Sub,
			EntityDescription: user.Username,
			UserSub:           caller.Sub,
			Kwargs:            map[string]interface{}{"username": user.Username},
		})
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusAccepted, map[string]string{"task_id": task.ID})
	}
}
