package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/security"
)

// RequireRoles enforces role-based access control. It must run after
// Authenticate.
func RequireRoles(allowedRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := Auth(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if err := security.CheckRole(ac, allowedRoles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
