package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apidash "github.com/analytical-platform/controlpanel/pkg/api/types/dashboards"
	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	kdash "github.com/analytical-platform/controlpanel/pkg/domain/dashboard/db"
	"github.com/analytical-platform/controlpanel/pkg/utils/slices"
)

func dashboardAdmin(d domain.Dashboard, user domain.User) bool {
	if user.IsSuperuser {
		return true
	}
	for _, sub := range d.Admins {
		if sub == user.Sub {
			return true
		}
	}
	return false
}

// FindDashboardsHandler lists the dashboards shared with the caller's
// email, directly or via a whitelisted domain.
func FindDashboardsHandler(dashboards kdash.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		found, err := dashboards.FindVisibleTo(c.Request().Context(), caller.Email)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, page(c, slices.Map(found, apidash.ComposeDetail)))
	}
}

func GetDashboardHandler(dashboards kdash.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		d, err := dashboards.Get(c.Request().Context(), id)
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, apidash.ComposeDetail(d))
	}
}

type dashboardRequest struct {
	Name       string `json:"name"`
	ExternalID string `json:"quicksight_id"`
}

func RegisterDashboardHandler(dashboards kdash.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		req := dashboardRequest{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}
		if req.Name == "" || req.ExternalID == "" {
			return binderr.BadRequest("name and quicksight_id are required", nil)
		}

		d, err := dashboards.Register(c.Request().Context(), domain.Dashboard{
			Name:       req.Name,
			ExternalID: req.ExternalID,
			CreatedBy:  caller.Sub,
			Admins:     []string{caller.Sub},
		})
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusCreated, apidash.ComposeDetail(d))
	}
}

func DeleteDashboardHandler(dashboards kdash.Interface, paramID string) echo.HandlerFunc {
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
		d, err := dashboards.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		if !dashboardAdmin(d, caller) {
			return binderr.Forbidden("not your resource")
		}
		if err := dashboards.Delete(ctx, id); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type viewerRequest struct {
	Email string `json:"email"`
}

// AddDashboardViewerHandler shares a dashboard with one email. Whole
// domains are whitelisted with a leading at-sign.
func AddDashboardViewerHandler(dashboards kdash.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		req := viewerRequest{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" {
			return binderr.BadRequest("email is required", nil)
		}

		ctx := c.Request().Context()
		d, err := dashboards.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		if !dashboardAdmin(d, caller) {
			return binderr.Forbidden("not your resource")
		}
		if err := dashboards.AddViewer(ctx, id, email); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusCreated)
	}
}

func RemoveDashboardViewerHandler(dashboards kdash.Interface, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		email := strings.ToLower(c.QueryParam("email"))
		if email == "" {
			return binderr.BadRequest("email is required", nil)
		}

		ctx := c.Request().Context()
		d, err := dashboards.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		if !dashboardAdmin(d, caller) {
			return binderr.Forbidden("not your resource")
		}
		if err := dashboards.RemoveViewer(ctx, id, email); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
