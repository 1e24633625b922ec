package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/security"
)

// authContext returns the identity attached by the Authenticate middleware.
// A missing identity means the route was mounted without it, which is
// reported as unauthenticated rather than trusted.
func authContext(c echo.Context) (security.AuthenticatedContext, error) {
	ac, ok := security.FromContext(c.Request().Context())
	if !ok || ac.UserID == "" || ac.TenantID == "" {
		return security.AuthenticatedContext{}, domain.ErrUnauthenticated
	}
	return ac, nil
}

func clientMeta(c echo.Context) domain.ClientMeta {
	return domain.ClientMeta{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}
