package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	kuser "github.com/analytical-platform/controlpanel/pkg/domain/user/db"
	"github.com/analytical-platform/controlpanel/pkg/identity"
)

// Initializer provisions a user's platform resources on first login:
// IAM role, default policies and the namespace-initialising releases.
// Wired in main; nil disables first-login provisioning.
type Initializer interface {
	InitialiseUser(ctx context.Context, user domain.User) error
}

// Authenticate verifies the bearer token, loads the user row and
// stores it on the request context. A request without a token passes
// through unauthenticated; per-route guards decide what that means.
// A user row is created on first login.
func Authenticate(verifier identity.TokenVerifier, users kuser.Interface, init Initializer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			claims, err := verifier.Verify(ctx, raw)
			if err != nil {
				return binderr.Unauthorized("invalid token", err)
			}

			user, err := users.Get(ctx, claims.Sub)
			if errors.Is(err, domerr.ErrMissing) {
				user = domain.User{
					Sub:           claims.Sub,
					Username:      claims.Nickname,
					Name:          claims.Name,
					Email:         claims.Email,
					EmailVerified: claims.EmailVerified,
				}
				if err := users.Register(ctx, user); err != nil && !errors.Is(err, domerr.ErrConflict) {
					return translate(err)
				}
				if init != nil {
					if err := init.InitialiseUser(ctx, user); err != nil {
						return translate(err)
					}
				}
			} else if err != nil {
				return translate(err)
			}

			SetUser(c, user)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	for _, scheme := range []string{"Bearer ", "JWT "} {
		if strings.HasPrefix(header, scheme) {
			return strings.TrimSpace(strings.TrimPrefix(header, scheme))
		}
	}
	return ""
}
