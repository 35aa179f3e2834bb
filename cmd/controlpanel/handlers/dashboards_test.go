package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/analytical-platform/controlpanel/cmd/controlpanel/handlers"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	dashmocks "github.com/analytical-platform/controlpanel/pkg/domain/dashboard/db/mocks"

	testhttp "github.com/analytical-platform/controlpanel/internal/testutils/http"
)

func TestRegisterDashboardHandler(t *testing.T) {
	t.Run("makes the creator the sole admin", func(t *testing.T) {
		dashboards := dashmocks.NewDashboardDBMock()
		var registered domain.Dashboard
		dashboards.Impl.Register = func(ctx context.Context, d domain.Dashboard) (domain.Dashboard, error) {
			registered = d
			d.ID = 4
			return d, nil
		}

		e := echo.New()
		c, resp := testhttp.Post(
			e, "/dashboards/",
			strings.NewReader(`{"name": "Quarterly KPIs", "quicksight_id": "qs-1234"}`),
			testhttp.ContentType("application/json"),
		)
		asUser(c, alice)

		handler := handlers.RegisterDashboardHandler(dashboards)
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusCreated {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusCreated)
		}

		if registered.Name != "Quarterly KPIs" || registered.ExternalID != "qs-1234" {
			t.Errorf("unexpected row: %+v", registered)
		}
		if registered.CreatedBy != alice.Sub {
			t.Errorf("created by: got %q, want %q", registered.CreatedBy, alice.Sub)
		}
		if len(registered.Admins) != 1 || registered.Admins[0] != alice.Sub {
			t.Errorf("admins: %+v", registered.Admins)
		}
	})

	t.Run("requires both name and external id", func(t *testing.T) {
		dashboards := dashmocks.NewDashboardDBMock()

		e := echo.New()
		c, _ := testhttp.Post(
			e, "/dashboards/",
			strings.NewReader(`{"name": "Quarterly KPIs"}`),
			testhttp.ContentType("application/json"),
		)
		asUser(c, alice)

		handler := handlers.RegisterDashboardHandler(dashboards)
		if got := httpStatusOf(handler(c)); got != http.StatusBadRequest {
			t.Fatalf("status code: got %d, want %d", got, http.StatusBadRequest)
		}
	})
}

func TestAddDashboardViewerHandler(t *testing.T) {
	kpis := domain.Dashboard{
		ID: 4, Name: "Quarterly KPIs", ExternalID: "qs-1234",
		CreatedBy: alice.Sub, Admins: []string{alice.Sub},
	}

	t.Run("normalises the email before sharing", func(t *testing.T) {
		dashboards := dashmocks.NewDashboardDBMock()
		dashboards.Impl.Get = func(ctx context.Context, id int) (domain.Dashboard, error) {
			return kpis, nil
		}
		dashboards.Impl.AddViewer = func(ctx context.Context, id int, email string) error {
			return nil
		}

		e := echo.New()
		c, resp := testhttp.Post(
			e, "/dashboards/4/viewers/",
			strings.NewReader(`{"email": "  Bob@Example.COM "}`),
			testhttp.ContentType("application/json"),
		)
		c.SetParamNames("dashboardId")
		c.SetParamValues("4")
		asUser(c, alice)

		handler := handlers.AddDashboardViewerHandler(dashboards, "dashboardId")
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusCreated {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusCreated)
		}

		if len(dashboards.Calls.AddViewer) != 1 || dashboards.Calls.AddViewer[0] != "bob@example.com" {
			t.Errorf("viewers added: %+v", dashboards.Calls.AddViewer)
		}
	})

	t.Run("only admins may share", func(t *testing.T) {
		dashboards := dashmocks.NewDashboardDBMock()
		dashboards.Impl.Get = func(ctx context.Context, id int) (domain.Dashboard, error) {
			return kpis, nil
		}

		e := echo.New()
		c, _ := testhttp.Post(
			e, "/dashboards/4/viewers/",
			strings.NewReader(`{"email": "bob@example.com"}`),
			testhttp.ContentType("application/json"),
		)
		c.SetParamNames("dashboardId")
		c.SetParamValues("4")
		asUser(c, domain.User{Sub: "auth0|mallory", Username: "mallory"})

		handler := handlers.AddDashboardViewerHandler(dashboards, "dashboardId")
		if got := httpStatusOf(handler(c)); got != http.StatusForbidden {
			t.Fatalf("status code: got %d, want %d", got, http.StatusForbidden)
		}
		if len(dashboards.Calls.AddViewer) != 0 {
			t.Errorf("viewer added without permission: %+v", dashboards.Calls.AddViewer)
		}
	})

	t.Run("superusers may share any dashboard", func(t *testing.T) {
		dashboards := dashmocks.NewDashboardDBMock()
		dashboards.Impl.Get = func(ctx context.Context, id int) (domain.Dashboard, error) {
			return kpis, nil
		}
		dashboards.Impl.AddViewer = func(ctx context.Context, id int, email string) error {
			return nil
		}

		e := echo.New()
		c, resp := testhttp.Post(
			e, "/dashboards/4/viewers/",
			strings.NewReader(`{"email": "bob@example.com"}`),
			testhttp.ContentType("application/json"),
		)
		c.SetParamNames("dashboardId")
		c.SetParamValues("4")
		asUser(c, root)

		handler := handlers.AddDashboardViewerHandler(dashboards, "dashboardId")
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusCreated {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusCreated)
		}
	})
}

func TestDeleteDashboardHandler(t *testing.T) {
	kpis := domain.Dashboard{
		ID: 4, Name: "Quarterly KPIs", CreatedBy: alice.Sub, Admins: []string{alice.Sub},
	}

	t.Run("admins may delete", func(t *testing.T) {
		dashboards := dashmocks.NewDashboardDBMock()
		dashboards.Impl.Get = func(ctx context.Context, id int) (domain.Dashboard, error) {
			return kpis, nil
		}
		deleted := []int{}
		dashboards.Impl.Delete = func(ctx context.Context, id int) error {
			deleted = append(deleted, id)
			return nil
		}

		e := echo.New()
		c, resp := testhttp.Delete(e, "/dashboards/4")
		c.SetParamNames("dashboardId")
		c.SetParamValues("4")
		asUser(c, alice)

		handler := handlers.DeleteDashboardHandler(dashboards, "dashboardId")
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusNoContent {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusNoContent)
		}
		if len(deleted) != 1 || deleted[0] != 4 {
			t.Errorf("rows deleted: %+v", deleted)
		}
	})

	t.Run("non-admins may not", func(t *testing.T) {
		dashboards := dashmocks.NewDashboardDBMock()
		dashboards.Impl.Get = func(ctx context.Context, id int) (domain.Dashboard, error) {
			return kpis, nil
		}

		e := echo.New()
		c, _ := testhttp.Delete(e, "/dashboards/4")
		c.SetParamNames("dashboardId")
		c.SetParamValues("4")
		asUser(c, domain.User{Sub: "auth0|mallory", Username: "mallory"})

		handler := handlers.DeleteDashboardHandler(dashboards, "dashboardId")
		if got := httpStatusOf(handler(c)); got != http.StatusForbidden {
			t.Fatalf("status code: got %d, want %d", got, http.StatusForbidden)
		}
	})
}
