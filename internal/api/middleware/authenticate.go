package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
	"github.com/hikari-health/auth-core/internal/core/security"
)

// IdentityLoader reloads the current user and tenant behind a token subject.
type IdentityLoader interface {
	Profile(ctx context.Context, userID string) (*domain.User, *domain.Tenant, error)
}

// Authenticate verifies the bearer token, reloads the user it names and
// cross-checks the two before attaching a security.AuthenticatedContext to
// the request context.
func Authenticate(issuer ports.TokenIssuer, loader IdentityLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			claims, err := issuer.Verify(raw)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			user, tenant, err := loader.Profile(ctx, claims.UserID)
			switch {
			case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrTenantNotFound):
				return fmt.Errorf("%w: token subject no longer exists", domain.ErrUnauthenticated)
			case err != nil:
				return err
			}

			ac, err := security.ValidateContext(claims.TenantID, user)
			if err != nil {
				return err
			}
			if !tenant.IsActive {
				return domain.ErrTenantInactive
			}
			ac.TenantSubdomain = tenant.Subdomain

			c.SetRequest(c.Request().WithContext(security.WithAuth(ctx, ac)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", domain.ErrUnauthenticated)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: invalid authorization header", domain.ErrUnauthenticated)
	}
	return strings.TrimSpace(parts[1]), nil
}

// Auth returns the authenticated identity of the request, if any.
func Auth(c echo.Context) (security.AuthenticatedContext, bool) {
	return security.FromContext(c.Request().Context())
}
