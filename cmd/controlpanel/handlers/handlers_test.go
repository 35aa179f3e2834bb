package handlers_test

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/analytical-platform/controlpanel/cmd/controlpanel/handlers"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
)

// fakeSubmitter records submissions instead of queueing them.
type fakeSubmitter struct {
	submissions []orchestrator.Submission
	err         error
}

func (s *fakeSubmitter) Submit(ctx context.Context, submission orchestrator.Submission) (domain.Task, error) {
	if s.err != nil {
		return domain.Task{}, s.err
	}
	s.submissions = append(s.submissions, submission)
	return domain.Task{
		ID:      fmt.Sprintf("task-%d", len(s.submissions)),
		Name:    submission.Name,
		UserSub: submission.UserSub,
	}, nil
}

var (
	alice = domain.User{
		Sub:      "auth0|alice",
		Username: "alice",
		Email:    "alice@example.com",
	}
	root = domain.User{
		Sub:         "auth0|root",
		Username:    "root",
		IsSuperuser: true,
	}
)

func asUser(c echo.Context, user domain.User) echo.Context {
	handlers.SetUser(c, user)
	return c
}

func httpStatusOf(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 0
}
