package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/security"
	"github.com/hikari-health/auth-core/internal/infrastructure/memory"
)

func TestRateLimit_ExhaustsWindow(t *testing.T) {
	counter := memory.NewCounter()
	p := Policy{Name: "login", Max: 2, Window: time.Minute}
	h := RateLimit(counter, p, zerolog.Nop())(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for i := 1; i <= 2; i++ {
		c, rec := newContext(http.MethodPost, "/auth/login", "")
		if err := h(c); err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
		if got := rec.Header().Get(HeaderRateLimitRemaining); got != strconv.Itoa(2-i) {
			t.Fatalf("request %d: expected remaining %d, got %s", i, 2-i, got)
		}
		if rec.Header().Get(HeaderRateLimitLimit) != "2" {
			t.Fatalf("missing limit header")
		}
	}

	c, rec := newContext(http.MethodPost, "/auth/login", "")
	err := h(c)
	var rl *domain.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.Limit != 2 || rl.RetryAfter() < 1 || rl.RetryAfter() > 60 {
		t.Fatalf("unexpected rate limit error: %+v", rl)
	}
	if rec.Header().Get(HeaderRateLimitRemaining) != "0" {
		t.Fatalf("expected remaining 0")
	}
	if !IsRateLimited(err) {
		t.Fatalf("IsRateLimited should be true")
	}
}

func TestRateLimit_KeysSeparateCallers(t *testing.T) {
	counter := memory.NewCounter()
	p := Policy{Name: "default", Max: 1, Window: time.Minute}
	h := RateLimit(counter, p, zerolog.Nop())(func(c echo.Context) error { return nil })

	first, _ := newContext(http.MethodGet, "/", "")
	first.Request().Header.Set("User-Agent", "browser-a")
	if err := h(first); err != nil {
		t.Fatalf("first caller: %v", err)
	}

	other, _ := newContext(http.MethodGet, "/", "")
	other.Request().Header.Set("User-Agent", "browser-b")
	if err := h(other); err != nil {
		t.Fatalf("different user agent should have its own window: %v", err)
	}

	authed, _ := newContext(http.MethodGet, "/", "")
	authed.Request().Header.Set("User-Agent", "browser-a")
	withAuth(authed, security.AuthenticatedContext{UserID: "u-1", TenantID: tenantA})
	if err := h(authed); err != nil {
		t.Fatalf("authenticated caller should be keyed by user: %v", err)
	}
}

func TestRateLimit_PoliciesDoNotShareWindows(t *testing.T) {
	counter := memory.NewCounter()
	login := RateLimit(counter, Policy{Name: "login", Max: 1, Window: time.Minute}, zerolog.Nop())(func(c echo.Context) error { return nil })
	refresh := RateLimit(counter, Policy{Name: "refresh", Max: 1, Window: time.Minute}, zerolog.Nop())(func(c echo.Context) error { return nil })

	c1, _ := newContext(http.MethodPost, "/auth/login", "")
	c2, _ := newContext(http.MethodPost, "/auth/refresh", "")
	if err := login(c1); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := refresh(c2); err != nil {
		t.Fatalf("refresh: %v", err)
	}
}

type brokenCounter struct{}

func (brokenCounter) Increment(context.Context, string, time.Duration) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("redis unavailable")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	called := false
	h := RateLimit(brokenCounter{}, DefaultPolicy, zerolog.Nop())(func(c echo.Context) error {
		called = true
		return nil
	})
	c, _ := newContext(http.MethodGet, "/", "")
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("request should be allowed when the counter fails")
	}
}
