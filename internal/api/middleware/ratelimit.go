package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hikari-health/auth-core/internal/api/metrics"
	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// Policy is a fixed-window budget: Max requests per Window.
type Policy struct {
	Name   string
	Max    int
	Window time.Duration
}

// Built-in policies.
var (
	LoginPolicy    = Policy{Name: "login", Max: 5, Window: 15 * time.Minute}
	RegisterPolicy = Policy{Name: "register", Max: 3, Window: time.Hour}
	TenantPolicy   = Policy{Name: "tenant", Max: 2, Window: time.Hour}
	RefreshPolicy  = Policy{Name: "refresh", Max: 30, Window: 15 * time.Minute}
	DefaultPolicy  = Policy{Name: "default", Max: 100, Window: 15 * time.Minute}
)

// RateLimit counts requests per caller against p. Authenticated callers are
// keyed by user and tenant, anonymous ones by IP and a hash of the
// User-Agent. When the counter store fails the request is let through.
func RateLimit(counter ports.RateCounter, p Policy, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(c, p.Name)

			count, resetAt, err := counter.Increment(c.Request().Context(), key, p.Window)
			if err != nil {
				log.Warn().Err(err).Str("policy", p.Name).Msg("rate limit counter unavailable, allowing request")
				return next(c)
			}

			now := time.Now()
			remaining := p.Max - count
			if remaining < 0 {
				remaining = 0
			}
			rlErr := &domain.RateLimitError{Limit: p.Max, ResetAt: resetAt, Now: now}

			h := c.Response().Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(p.Max))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))
			h.Set(HeaderRateLimitReset, strconv.Itoa(rlErr.RetryAfter()))

			if count > p.Max {
				metrics.RateLimitRejectionsTotal.WithLabelValues(p.Name).Inc()
				c.Set(rateLimitedKey, true)
				return rlErr
			}
			return next(c)
		}
	}
}

const rateLimitedKey = "rate_limited"

func rateKey(c echo.Context, policy string) string {
	if ac, ok := Auth(c); ok {
		return policy + ":user:" + ac.UserID + ":" + ac.TenantID
	}
	sum := sha256.Sum256([]byte(c.Request().UserAgent()))
	return policy + ":anon:" + c.RealIP() + ":" + hex.EncodeToString(sum[:])[:16]
}

// IsRateLimited reports whether err is a rate limit rejection.
func IsRateLimited(err error) bool {
	var rl *domain.RateLimitError
	return errors.As(err, &rl)
}
