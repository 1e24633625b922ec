package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/security"
)

func TestRequireRoles_Allows(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	withAuth(c, security.AuthenticatedContext{UserID: "u", TenantID: tenantA, Role: domain.RoleAdmin})

	h := RequireRoles(domain.RoleAdmin, domain.RoleDoctor)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRoles_Forbidden(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "")
	withAuth(c, security.AuthenticatedContext{UserID: "u", TenantID: tenantA, Role: domain.RolePatient})

	h := RequireRoles(domain.RoleAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	err := h(c)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireRoles_Unauthenticated(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "")
	err := RequireRoles(domain.RoleAdmin)(func(c echo.Context) error { return nil })(c)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
