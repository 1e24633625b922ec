package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/security"
	"github.com/hikari-health/auth-core/internal/infrastructure/token"
)

const (
	tenantA = "3f1c2b9a-7d4e-4c1a-9b2f-8e6d5c4b3a21"
	tenantB = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

type stubLoader struct {
	user   *domain.User
	tenant *domain.Tenant
	err    error
}

func (s *stubLoader) Profile(_ context.Context, userID string) (*domain.User, *domain.Tenant, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	if s.user == nil || s.user.ID != userID {
		return nil, nil, domain.ErrUserNotFound
	}
	return s.user, s.tenant, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (s *recordingSink) Record(e domain.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func newIssuer(t *testing.T) *token.Issuer {
	t.Helper()
	iss, err := token.NewIssuer(token.Config{HMACSecret: "test-secret"})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func nurse() (*domain.User, *domain.Tenant) {
	tenant := &domain.Tenant{ID: tenantA, Name: "Demo Hospital", Subdomain: "demo", IsActive: true}
	user := &domain.User{ID: "user-1", TenantID: tenantA, Email: "nurse@demo.com", Role: domain.RoleNurse, IsActive: true}
	return user, tenant
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withAuth(c echo.Context, ac security.AuthenticatedContext) {
	c.SetRequest(c.Request().WithContext(security.WithAuth(c.Request().Context(), ac)))
}
