package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/analytical-platform/controlpanel/cmd/controlpanel/handlers"
	apitasks "github.com/analytical-platform/controlpanel/pkg/api/types/tasks"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	ktask "github.com/analytical-platform/controlpanel/pkg/domain/task/db"
	taskmocks "github.com/analytical-platform/controlpanel/pkg/domain/task/db/mocks"
	"github.com/analytical-platform/controlpanel/pkg/utils/pointer"

	testhttp "github.com/analytical-platform/controlpanel/internal/testutils/http"
)

func TestFindTasksHandler(t *testing.T) {
	t.Run("surfaces the lifecycle state of each task", func(t *testing.T) {
		now := time.Now()
		tasks := taskmocks.NewTaskDBMock()
		tasks.Impl.Find = func(ctx context.Context, query ktask.Query) ([]domain.Task, error) {
			return []domain.Task{
				{ID: "task-1", UserSub: alice.Sub, CreatedAt: now.Add(-time.Minute)},
				{
					ID: "task-2", UserSub: alice.Sub,
					CreatedAt: now.Add(-time.Hour),
					RetriedAt: pointer.Ref(now.Add(-time.Minute)),
				},
				{
					// past the age cut-off: workers will never run it
					ID: "task-3", UserSub: alice.Sub,
					CreatedAt: now.Add(-domain.TaskAgeCutoff - time.Hour),
					RetriedAt: pointer.Ref(now.Add(-domain.TaskAgeCutoff)),
				},
				{
					ID: "task-4", UserSub: alice.Sub, Completed: true,
					CreatedAt: now.Add(-domain.TaskAgeCutoff - time.Hour),
				},
				{
					ID: "task-5", UserSub: alice.Sub, Cancelled: true,
					CreatedAt: now.Add(-time.Minute),
				},
			}, nil
		}

		e := echo.New()
		c, resp := testhttp.Get(e, "/tasks/")
		asUser(c, alice)

		handler := handlers.FindTasksHandler(tasks)
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Code != http.StatusOK {
			t.Fatalf("status code: got %d, want %d", resp.Code, http.StatusOK)
		}

		details := []apitasks.Detail{}
		if err := json.Unmarshal(resp.Body.Bytes(), &details); err != nil {
			t.Fatal(err)
		}
		want := map[string]string{
			"task-1": apitasks.StatusPending,
			"task-2": apitasks.StatusRetrying,
			"task-3": apitasks.StatusFailed,
			"task-4": apitasks.StatusCompleted,
			"task-5": apitasks.StatusCancelled,
		}
		if len(details) != len(want) {
			t.Fatalf("tasks listed: got %d, want %d", len(details), len(want))
		}
		for _, d := range details {
			if d.Status != want[d.ID] {
				t.Errorf("%s: status: got %q, want %q", d.ID, d.Status, want[d.ID])
			}
		}
	})

	t.Run("ordinary users only see their own tasks", func(t *testing.T) {
		tasks := taskmocks.NewTaskDBMock()
		tasks.Impl.Find = func(ctx context.Context, query ktask.Query) ([]domain.Task, error) {
			return nil, nil
		}

		e := echo.New()
		c, _ := testhttp.Get(e, "/tasks/")
		asUser(c, alice)

		handler := handlers.FindTasksHandler(tasks)
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tasks.Calls.Find) != 1 || tasks.Calls.Find[0].UserSub != alice.Sub {
			t.Errorf("queries: %+v", tasks.Calls.Find)
		}
	})
}

func TestGetTaskHandler(t *testing.T) {
	t.Run("an aged-out task reads as failed", func(t *testing.T) {
		tasks := taskmocks.NewTaskDBMock()
		tasks.Impl.Get = func(ctx context.Context, id string) (domain.Task, error) {
			return domain.Task{
				ID: id, UserSub: alice.Sub,
				CreatedAt: time.Now().Add(-domain.TaskAgeCutoff - time.Hour),
			}, nil
		}

		e := echo.New()
		c, resp := testhttp.Get(e, "/tasks/task-1")
		c.SetParamNames("id")
		c.SetParamValues("task-1")
		asUser(c, alice)

		handler := handlers.GetTaskHandler(tasks, "id")
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		detail := apitasks.Detail{}
		if err := json.Unmarshal(resp.Body.Bytes(), &detail); err != nil {
			t.Fatal(err)
		}
		if detail.Status != apitasks.StatusFailed {
			t.Errorf("status: got %q, want %q", detail.Status, apitasks.StatusFailed)
		}
	})

	t.Run("another user's task is off limits", func(t *testing.T) {
		tasks := taskmocks.NewTaskDBMock()
		tasks.Impl.Get = func(ctx context.Context, id string) (domain.Task, error) {
			return domain.Task{ID: id, UserSub: "auth0|bob"}, nil
		}

		e := echo.New()
		c, _ := testhttp.Get(e, "/tasks/task-1")
		c.SetParamNames("id")
		c.SetParamValues("task-1")
		asUser(c, alice)

		handler := handlers.GetTaskHandler(tasks, "id")
		if got := httpStatusOf(handler(c)); got != http.StatusForbidden {
			t.Errorf("status code: got %d, want %d", got, http.StatusForbidden)
		}
	})
}
