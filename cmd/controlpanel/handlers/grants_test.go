package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/analytical-platform/controlpanel/cmd/controlpanel/handlers"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	grantmocks "github.com/analytical-platform/controlpanel/pkg/domain/grant/db/mocks"

	testhttp "github.com/analytical-platform/controlpanel/internal/testutils/http"
)

func TestUpdateUserGrantHandler(t *testing.T) {
	t.Run("rewrites the row and queues the policy edit", func(t *testing.T) {
		grants := grantmocks.NewGrantDBMock()
		grants.Impl.UpdateUserGrant = func(ctx context.Context, id int, level domain.AccessLevel, paths []string) (domain.UserBucketGrant, error) {
			return domain.UserBucketGrant{
				ID: id, UserSub: alice.Sub, Username: alice.Username,
				Bucket: "test-shared", AccessLevel: level, Paths: paths,
			}, nil
		}
		submitter := &fakeSubmitter{}

		e := echo.New()
		c, resp := testhttp.Put(
			e, "/users3buckets/7",
			strings.NewReader(`{"access_level": "readwrite", "paths": ["reports"]}`),
			testhttp.ContentType("application/json"),
		)
		c.SetParamNames("grantId")
		c.SetParamValues("7")
		asUser(c, alice)

		handler := handlers.UpdateUserGrantHandler(grants, submitter, "grantId")
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusOK {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusOK)
		}

		if len(grants.Calls.UpdateUserGrant) != 1 || grants.Calls.UpdateUserGrant[0] != 7 {
			t.Errorf("unexpected update calls: %+v", grants.Calls.UpdateUserGrant)
		}
		if len(submitter.submissions) != 1 {
			t.Fatalf("tasks submitted: got %d, want 1", len(submitter.submissions))
		}
		task := submitter.submissions[0]
		if task.Name != domain.TaskS3GrantToUser {
			t.Errorf("task name: got %s, want %s", task.Name, domain.TaskS3GrantToUser)
		}
		if task.Kwargs["grant_id"] != 7 {
			t.Errorf("task kwargs: %+v", task.Kwargs)
		}
	})

	t.Run("rejects an unknown access level before touching the row", func(t *testing.T) {
		grants := grantmocks.NewGrantDBMock()
		submitter := &fakeSubmitter{}

		e := echo.New()
		c, _ := testhttp.Put(
			e, "/users3buckets/7",
			strings.NewReader(`{"access_level": "root"}`),
			testhttp.ContentType("application/json"),
		)
		c.SetParamNames("grantId")
		c.SetParamValues("7")
		asUser(c, alice)

		handler := handlers.UpdateUserGrantHandler(grants, submitter, "grantId")
		if got := httpStatusOf(handler(c)); got != http.StatusBadRequest {
			t.Fatalf("status code: got %d, want %d", got, http.StatusBadRequest)
		}
		if len(grants.Calls.UpdateUserGrant) != 0 {
			t.Error("the row should be untouched")
		}
	})
}

func TestDeleteUserGrantHandler(t *testing.T) {
	t.Run("deletes the row and queues a revoke carrying the coordinates", func(t *testing.T) {
		grants := grantmocks.NewGrantDBMock()
		grants.Impl.GetUserGrant = func(ctx context.Context, id int) (domain.UserBucketGrant, error) {
			return domain.UserBucketGrant{
				ID: id, UserSub: alice.Sub, Username: alice.Username, Bucket: "test-doomed",
			}, nil
		}
		grants.Impl.DeleteUserGrant = func(ctx context.Context, id int) error { return nil }
		submitter := &fakeSubmitter{}

		e := echo.New()
		c, resp := testhttp.Delete(e, "/users3buckets/7")
		c.SetParamNames("grantId")
		c.SetParamValues("7")
		asUser(c, alice)

		handler := handlers.DeleteUserGrantHandler(grants, submitter, "grantId")
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusNoContent {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusNoContent)
		}

		if len(grants.Calls.DeleteUserGrant) != 1 || grants.Calls.DeleteUserGrant[0] != 7 {
			t.Errorf("unexpected delete calls: %+v", grants.Calls.DeleteUserGrant)
		}
		if len(submitter.submissions) != 1 {
			t.Fatalf("tasks submitted: got %d, want 1", len(submitter.submissions))
		}
		task := submitter.submissions[0]
		if task.Name != domain.TaskS3RevokeFromUser {
			t.Errorf("task name: got %s, want %s", task.Name, domain.TaskS3RevokeFromUser)
		}
		// the row is gone when the worker runs, so the kwargs must be
		// self-contained
		if task.Kwargs["bucket_name"] != "test-doomed" || task.Kwargs["username"] != "alice" {
			t.Errorf("task kwargs: %+v", task.Kwargs)
		}
	})
}

func TestFindUserGrantsHandler(t *testing.T) {
	grants := grantmocks.NewGrantDBMock()
	grants.Impl.FindUserGrantsByUser = func(ctx context.Context, sub string) ([]domain.UserBucketGrant, error) {
		return []domain.UserBucketGrant{{ID: 1, UserSub: sub, Bucket: "test-a"}}, nil
	}

	t.Run("ordinary users may not read other users' grants", func(t *testing.T) {
		e := echo.New()
		c, _ := testhttp.Get(e, "/users3buckets?user_id=auth0%7Cbob")
		asUser(c, alice)

		handler := handlers.FindUserGrantsHandler(grants)
		if got := httpStatusOf(handler(c)); got != http.StatusForbidden {
			t.Errorf("status code: got %d, want %d", got, http.StatusForbidden)
		}
	})

	t.Run("superusers may", func(t *testing.T) {
		e := echo.New()
		c, resp := testhttp.Get(e, "/users3buckets?user_id=auth0%7Cbob")
		asUser(c, root)

		handler := handlers.FindUserGrantsHandler(grants)
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusOK {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusOK)
		}
	})
}
