package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/analytical-platform/controlpanel/cmd/controlpanel/handlers"
	"github.com/analytical-platform/controlpanel/pkg/domain"

	testhttp "github.com/analytical-platform/controlpanel/internal/testutils/http"
)

// fakeRoleCleanup implements handlers.RoleCleanup, recording the
// roles torn down.
type fakeRoleCleanup struct {
	deleted []string
}

func (f *fakeRoleCleanup) DeleteRole(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

// fakeAppCleanup implements handlers.IdentityCleanup.
type fakeAppCleanup struct {
	clearedApps   []string
	clearedGroups []string
}

func (f *fakeAppCleanup) ClearUpApp(ctx context.Context, appName string, groupName string) error {
	f.clearedApps = append(f.clearedApps, appName)
	f.clearedGroups = append(f.clearedGroups, groupName)
	return nil
}

func TestDeleteAppHandler(t *testing.T) {
	theApp := domain.App{ID: 3, Name: "My App", Slug: "myapp", CreatedBy: alice.Sub}

	t.Run("tears down the identity client, the cloud role and the row", func(t *testing.T) {
		apps := appDBWith(theApp)
		apps.Impl.Delete = func(ctx context.Context, id int) error { return nil }
		ident := &fakeAppCleanup{}
		roles := &fakeRoleCleanup{}

		e := echo.New()
		c, resp := testhttp.Delete(e, "/apps/3")
		c.SetParamNames("appId")
		c.SetParamValues("3")
		asUser(c, alice)

		handler := handlers.DeleteAppHandler(apps, ident, roles, "test", "appId")
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusNoContent {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusNoContent)
		}
		if len(ident.clearedApps) != 1 || ident.clearedApps[0] != "myapp" {
			t.Errorf("identity clients cleared: %v", ident.clearedApps)
		}
		if len(roles.deleted) != 1 || roles.deleted[0] != "test_app_myapp" {
			t.Errorf("roles deleted: %v", roles.deleted)
		}
		if len(apps.Calls.Delete) != 1 || apps.Calls.Delete[0] != 3 {
			t.Errorf("rows deleted: %v", apps.Calls.Delete)
		}
	})

	t.Run("somebody else's app is off limits", func(t *testing.T) {
		apps := appDBWith(domain.App{ID: 3, Slug: "myapp", CreatedBy: "auth0|bob"})
		ident := &fakeAppCleanup{}
		roles := &fakeRoleCleanup{}

		e := echo.New()
		c, _ := testhttp.Delete(e, "/apps/3")
		c.SetParamNames("appId")
		c.SetParamValues("3")
		asUser(c, alice)

		handler := handlers.DeleteAppHandler(apps, ident, roles, "test", "appId")
		if got := httpStatusOf(handler(c)); got != http.StatusForbidden {
			t.Errorf("status code: got %d, want %d", got, http.StatusForbidden)
		}
		if len(roles.deleted) != 0 {
			t.Errorf("roles deleted: %v", roles.deleted)
		}
	})
}
