package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
)

// Submitter queues background work. Satisfied by
// orchestrator.Submitter; handler tests swap in a recorder.
type Submitter interface {
	Submit(ctx context.Context, submission orchestrator.Submission) (domain.Task, error)
}

const userContextKey = "controlpanel.user"

// SetUser stores the authenticated user on the request context. The
// auth middleware calls this; tests call it directly.
func SetUser(c echo.Context, user domain.User) {
	c.Set(userContextKey, user)
}

// CurrentUser reads the authenticated user, if any.
func CurrentUser(c echo.Context) (domain.User, bool) {
	user, ok := c.Get(userContextKey).(domain.User)
	return user, ok
}

// requireUser aborts with 401 when the request is unauthenticated.
func requireUser(c echo.Context) (domain.User, error) {
	user, ok := CurrentUser(c)
	if !ok {
		return domain.User{}, binderr.Unauthorized("authentication required", nil)
	}
	return user, nil
}

// requireSuperuser aborts with 403 for ordinary users.
func requireSuperuser(c echo.Context) (domain.User, error) {
	user, err := requireUser(c)
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsSuperuser {
		return domain.User{}, binderr.Forbidden("superuser required")
	}
	return user, nil
}

// pathParamInt parses a numeric path parameter.
func pathParamInt(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, binderr.BadRequest(name+" must be an integer", err)
	}
	return v, nil
}

// page applies ?page=N&page_size=M to a slice. page_size 0 means all.
func page[T any](c echo.Context, items []T) []T {
	size, err := strconv.Atoi(c.QueryParam("page_size"))
	if err != nil || size <= 0 {
		return items
	}
	number, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || number < 1 {
		number = 1
	}

	from := (number - 1) * size
	if from >= len(items) {
		return []T{}
	}
	to := from + size
	if to > len(items) {
		to = len(items)
	}
	return items[from:to]
}

// translate maps domain errors to the HTTP error envelope.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if v, ok := domerr.AsValidation(err); ok {
		return binderr.BadRequest(v.Error(), err)
	}
	switch {
	case errors.Is(err, domerr.ErrMissing):
		return binderr.NotFound()
	case errors.Is(err, domerr.ErrConflict):
		return binderr.Conflict(err.Error(), binderr.WithError(err))
	case errors.Is(err, domerr.ErrPermission):
		return binderr.Forbidden(err.Error())
	}
	if domerr.Retryable(err) {
		return binderr.ServiceUnavailable("retry shortly", err)
	}
	return binderr.InternalServerError(err)
}
