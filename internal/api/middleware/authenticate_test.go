package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

func TestAuthenticate_ValidToken(t *testing.T) {
	iss := newIssuer(t)
	user, tenant := nurse()
	signed, _, err := iss.Issue(user, tenant)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	c, rec := newContext(http.MethodGet, "/auth/profile", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+signed)

	called := false
	h := Authenticate(iss, &stubLoader{user: user, tenant: tenant})(func(c echo.Context) error {
		called = true
		ac, ok := Auth(c)
		if !ok {
			t.Fatalf("auth context not attached")
		}
		if ac.UserID != "user-1" || ac.TenantID != tenantA || ac.Role != domain.RoleNurse || ac.TenantSubdomain != "demo" {
			t.Fatalf("unexpected auth context: %+v", ac)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthenticate_UsesCurrentRole(t *testing.T) {
	iss := newIssuer(t)
	user, tenant := nurse()
	signed, _, _ := iss.Issue(user, tenant)

	promoted := *user
	promoted.Role = domain.RoleDoctor

	c, _ := newContext(http.MethodGet, "/", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+signed)

	h := Authenticate(iss, &stubLoader{user: &promoted, tenant: tenant})(func(c echo.Context) error {
		ac, _ := Auth(c)
		if ac.Role != domain.RoleDoctor {
			t.Fatalf("expected stored role doctor, got %s", ac.Role)
		}
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	iss := newIssuer(t)
	user, tenant := nurse()
	signed, _, _ := iss.Issue(user, tenant)

	moved := *user
	moved.TenantID = tenantB
	inactive := *user
	inactive.IsActive = false
	closed := *tenant
	closed.IsActive = false

	cases := []struct {
		name   string
		header string
		loader *stubLoader
		want   error
	}{
		{"missing header", "", &stubLoader{user: user, tenant: tenant}, domain.ErrUnauthenticated},
		{"wrong scheme", "Token " + signed, &stubLoader{user: user, tenant: tenant}, domain.ErrUnauthenticated},
		{"garbage token", "Bearer not.a.jwt", &stubLoader{user: user, tenant: tenant}, domain.ErrInvalidToken},
		{"unknown subject", "Bearer " + signed, &stubLoader{}, domain.ErrUnauthenticated},
		{"tenant mismatch", "Bearer " + signed, &stubLoader{user: &moved, tenant: tenant}, domain.ErrTenantBoundary},
		{"inactive user", "Bearer " + signed, &stubLoader{user: &inactive, tenant: tenant}, domain.ErrUserInactive},
		{"inactive tenant", "Bearer " + signed, &stubLoader{user: user, tenant: &closed}, domain.ErrTenantInactive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newContext(http.MethodGet, "/", "")
			if tc.header != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, tc.header)
			}
			h := Authenticate(iss, tc.loader)(func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})
			err := h(c)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthenticate_LoaderFailurePassesThrough(t *testing.T) {
	iss := newIssuer(t)
	user, tenant := nurse()
	signed, _, _ := iss.Issue(user, tenant)
	boom := errors.New("mongo down")

	c, _ := newContext(http.MethodGet, "/", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+signed)

	err := Authenticate(iss, &stubLoader{err: boom})(func(c echo.Context) error { return nil })(c)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
