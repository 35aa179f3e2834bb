package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/analytical-platform/controlpanel/cmd/controlpanel/handlers"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	usermocks "github.com/analytical-platform/controlpanel/pkg/domain/user/db/mocks"
	"github.com/analytical-platform/controlpanel/pkg/identity"

	testhttp "github.com/analytical-platform/controlpanel/internal/testutils/http"
)

// fakeVerifier maps raw tokens to claims.
type fakeVerifier struct {
	claims map[string]identity.Claims
}

func (v *fakeVerifier) Verify(ctx context.Context, raw string) (identity.Claims, error) {
	claims, ok := v.claims[raw]
	if !ok {
		return identity.Claims{}, errors.New("unknown token")
	}
	return claims, nil
}

type fakeInitializer struct {
	initialised []domain.User
	err         error
}

func (i *fakeInitializer) InitialiseUser(ctx context.Context, user domain.User) error {
	if i.err != nil {
		return i.err
	}
	i.initialised = append(i.initialised, user)
	return nil
}

func sniffUser(t *testing.T) (echo.HandlerFunc, *domain.User, *bool) {
	t.Helper()
	user := &domain.User{}
	authed := new(bool)
	return func(c echo.Context) error {
		if u, ok := handlers.CurrentUser(c); ok {
			*user = u
			*authed = true
		}
		return c.NoContent(http.StatusOK)
	}, user, authed
}

func TestAuthenticate(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]identity.Claims{
		"good-token": {
			Sub:           "auth0|carol",
			Nickname:      "carol",
			Name:          "Carol",
			Email:         "carol@example.com",
			EmailVerified: true,
		},
	}}

	t.Run("a known user is loaded from the store", func(t *testing.T) {
		users := usermocks.NewUserDBMock()
		users.Impl.Get = func(ctx context.Context, sub string) (domain.User, error) {
			return domain.User{Sub: sub, Username: "carol", IsSuperuser: true}, nil
		}
		init := &fakeInitializer{}
		next, seen, authed := sniffUser(t)

		e := echo.New()
		c, _ := testhttp.Get(e, "/", testhttp.WithHeader("Authorization", "Bearer good-token"))
		if err := handlers.Authenticate(verifier, users, init)(next)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !*authed || seen.Sub != "auth0|carol" || !seen.IsSuperuser {
			t.Errorf("unexpected user on context: %+v", seen)
		}
		if len(users.Calls.Register) != 0 || len(init.initialised) != 0 {
			t.Error("a known user must not be re-provisioned")
		}
	})

	t.Run("first login registers and provisions the user", func(t *testing.T) {
		users := usermocks.NewUserDBMock()
		users.Impl.Get = func(ctx context.Context, sub string) (domain.User, error) {
			return domain.User{}, fmt.Errorf("user %s: %w", sub, domerr.ErrMissing)
		}
		users.Impl.Register = func(ctx context.Context, user domain.User) error { return nil }
		init := &fakeInitializer{}
		next, seen, _ := sniffUser(t)

		e := echo.New()
		c, _ := testhttp.Get(e, "/", testhttp.WithHeader("Authorization", "Bearer good-token"))
		if err := handlers.Authenticate(verifier, users, init)(next)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(users.Calls.Register) != 1 {
			t.Fatalf("users registered: got %d, want 1", len(users.Calls.Register))
		}
		row := users.Calls.Register[0]
		if row.Sub != "auth0|carol" || row.Username != "carol" || !row.EmailVerified {
			t.Errorf("unexpected user row: %+v", row)
		}
		if len(init.initialised) != 1 || init.initialised[0].Sub != "auth0|carol" {
			t.Errorf("user should be provisioned once: %+v", init.initialised)
		}
		if seen.Sub != "auth0|carol" {
			t.Errorf("unexpected user on context: %+v", seen)
		}
	})

	t.Run("the JWT scheme is accepted too", func(t *testing.T) {
		users := usermocks.NewUserDBMock()
		users.Impl.Get = func(ctx context.Context, sub string) (domain.User, error) {
			return domain.User{Sub: sub}, nil
		}
		next, _, authed := sniffUser(t)

		e := echo.New()
		c, _ := testhttp.Get(e, "/", testhttp.WithHeader("Authorization", "JWT good-token"))
		if err := handlers.Authenticate(verifier, users, nil)(next)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !*authed {
			t.Error("the request should be authenticated")
		}
	})

	t.Run("a bad token is a 401, not an anonymous pass-through", func(t *testing.T) {
		users := usermocks.NewUserDBMock()
		next, _, _ := sniffUser(t)

		e := echo.New()
		c, _ := testhttp.Get(e, "/", testhttp.WithHeader("Authorization", "Bearer forged"))
		err := handlers.Authenticate(verifier, users, nil)(next)(c)
		if got := httpStatusOf(err); got != http.StatusUnauthorized {
			t.Errorf("status code: got %d, want %d", got, http.StatusUnauthorized)
		}
	})

	t.Run("no token passes through unauthenticated", func(t *testing.T) {
		users := usermocks.NewUserDBMock()
		next, _, authed := sniffUser(t)

		e := echo.New()
		c, resp := testhttp.Get(e, "/")
		if err := handlers.Authenticate(verifier, users, nil)(next)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *authed {
			t.Error("the request should stay anonymous")
		}
		if resp.Code != http.StatusOK {
			t.Errorf("status code: got %d, want %d", resp.Code, http.StatusOK)
		}
	})
}
