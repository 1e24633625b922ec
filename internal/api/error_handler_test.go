package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"invalid refresh", fmt.Errorf("refresh: %w", domain.ErrInvalidRefreshToken), http.StatusUnauthorized, "invalid refresh token"},
		{"bad token", domain.ErrInvalidToken, http.StatusUnauthorized, "authentication required"},
		{"tenant boundary", fmt.Errorf("%w: user from tenant a attempted to access tenant b", domain.ErrTenantBoundary), http.StatusForbidden, "tenant access denied"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
		{"tenant inactive", domain.ErrTenantInactive, http.StatusForbidden, "tenant is inactive"},
		{"user exists", domain.ErrUserExists, http.StatusConflict, "user already exists"},
		{"tenant exists", domain.ErrTenantExists, http.StatusConflict, "tenant already exists"},
		{"tenant not found", domain.ErrTenantNotFound, http.StatusNotFound, "tenant not found"},
		{"captcha failed", domain.ErrCaptchaFailed, http.StatusBadRequest, "captcha validation failed"},
		{"captcha down", domain.ErrCaptchaUnavailable, http.StatusServiceUnavailable, "captcha verification unavailable"},
		{"validation", &domain.ValidationError{Fields: []string{"email is required"}}, http.StatusBadRequest, "email is required"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"rotation incomplete", domain.ErrRotationIncomplete, http.StatusInternalServerError, "internal server error"},
		{"unexpected", errors.New("mongo: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil), rec)

			handler(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Error != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, body.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_RateLimit(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil), rec)

	now := time.Now()
	NewHTTPErrorHandler(zerolog.Nop())(&domain.RateLimitError{Limit: 5, ResetAt: now.Add(90 * time.Second), Now: now}, c)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "90" {
		t.Fatalf("expected Retry-After 90, got %q", rec.Header().Get("Retry-After"))
	}
	if !json.Valid(rec.Body.Bytes()) || !strings.Contains(rec.Body.String(), "Rate limit exceeded. Try again in 90 seconds.") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
