package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/analytical-platform/controlpanel/cmd/controlpanel/handlers"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	usermocks "github.com/analytical-platform/controlpanel/pkg/domain/user/db/mocks"

	testhttp "github.com/analytical-platform/controlpanel/internal/testutils/http"
)

func TestDeleteUserHandler(t *testing.T) {
	t.Run("deletes the cloud role before the row", func(t *testing.T) {
		users := usermocks.NewUserDBMock()
		users.Impl.Get = func(ctx context.Context, sub string) (domain.User, error) {
			return alice, nil
		}
		users.Impl.Delete = func(ctx context.Context, sub string) error { return nil }
		roles := &fakeRoleCleanup{}

		e := echo.New()
		c, resp := testhttp.Delete(e, "/users/"+alice.Sub)
		c.SetParamNames("userSub")
		c.SetParamValues(alice.Sub)
		asUser(c, root)

		handler := handlers.DeleteUserHandler(users, roles, "test", "userSub")
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusNoContent {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusNoContent)
		}
		if len(roles.deleted) != 1 || roles.deleted[0] != "test_user_alice" {
			t.Errorf("roles deleted: %v", roles.deleted)
		}
		if len(users.Calls.Delete) != 1 || users.Calls.Delete[0] != alice.Sub {
			t.Errorf("rows deleted: %v", users.Calls.Delete)
		}
	})

	t.Run("superusers only", func(t *testing.T) {
		users := usermocks.NewUserDBMock()
		roles := &fakeRoleCleanup{}

		e := echo.New()
		c, _ := testhttp.Delete(e, "/users/"+alice.Sub)
		c.SetParamNames("userSub")
		c.SetParamValues(alice.Sub)
		asUser(c, alice)

		handler := handlers.DeleteUserHandler(users, roles, "test", "userSub")
		if got := httpStatusOf(handler(c)); got != http.StatusForbidden {
			t.Errorf("status code: got %d, want %d", got, http.StatusForbidden)
		}
		if len(roles.deleted) != 0 {
			t.Errorf("roles deleted: %v", roles.deleted)
		}
	})
}
