package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	apitasks "github.com/analytical-platform/controlpanel/pkg/api/types/tasks"
	ktask "github.com/analytical-platform/controlpanel/pkg/domain/task/db"
	"github.com/analytical-platform/controlpanel/pkg/utils/slices"
)

// FindTasksHandler lists queued work. Ordinary users see their own
// tasks; superusers may pass user_id to inspect anyone's.
func FindTasksHandler(tasks ktask.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		query := ktask.Query{
			UserSub:        caller.Sub,
			IncompleteOnly: c.QueryParam("incomplete") == "true",
		}
		if caller.IsSuperuser {
			query.UserSub = c.QueryParam("user_id")
		}

		found, err := tasks.Find(c.Request().Context(), query)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, page(c, slices.Map(found, apitasks.ComposeDetail)))
	}
}

func GetTaskHandler(tasks ktask.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		task, err := tasks.Get(c.Request().Context(), c.Param(paramID))
		if err != nil {
			return translate(err)
		}
		if !caller.IsSuperuser && task.UserSub != caller.Sub {
			return binderr.Forbidden("not your resource")
		}
		return c.JSON(http.StatusOK, apitasks.ComposeDetail(task))
	}
}

// CancelTaskHandler flags a task so its handler stops at the next
// checkpoint. Completed tasks stay completed.
func CancelTaskHandler(tasks ktask.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		task, err := tasks.Get(ctx, c.Param(paramID))
		if err != nil {
			return translate(err)
		}
		if !caller.IsSuperuser && task.UserSub != caller.Sub {
			return binderr.Forbidden("not your resource")
		}
		if err := tasks.Cancel(ctx, task.ID); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
