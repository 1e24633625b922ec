package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/security"
)

// HeaderTenantID is the fallback carrier of the target tenant.
const HeaderTenantID = "X-Tenant-Id"

// TenantIsolation rejects requests that target a tenant other than the
// caller's. The target is taken from the first of: path param tenantId,
// query tenantId, JSON body tenantId, X-Tenant-Id header. Requests without
// a target pass. Must run after Authenticate.
func TenantIsolation(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := Auth(c)
			if !ok {
				return domain.ErrUnauthenticated
			}

			target := targetTenant(c)
			if err := security.CheckTenantAccess(ac, target); err != nil {
				log.Warn().
					Str("user_id", ac.UserID).
					Str("tenant_id", ac.TenantID).
					Str("target_tenant_id", target).
					Str("path", c.Request().URL.Path).
					Msg("cross-tenant access attempt")
				return err
			}
			return next(c)
		}
	}
}

func targetTenant(c echo.Context) string {
	if v := c.Param("tenantId"); v != "" {
		return v
	}
	if v := c.QueryParam("tenantId"); v != "" {
		return v
	}
	if v := bodyTenant(c); v != "" {
		return v
	}
	return strings.TrimSpace(c.Request().Header.Get(HeaderTenantID))
}

// bodyTenant peeks at a JSON body and restores it for the handler.
func bodyTenant(c echo.Context) string {
	req := c.Request()
	if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}
	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var probe struct {
		TenantID string `json:"tenantId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.TenantID
}
