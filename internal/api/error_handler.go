package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hikari-health/auth-core/internal/api/metrics"
	"github.com/hikari-health/auth-core/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs security refusals at warn and unexpected errors at error,
//     without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		c.Response().Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter()))
		return http.StatusTooManyRequests, rl.Error()
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		metrics.SecurityViolationsTotal.WithLabelValues("validation").Inc()
		if ve.Security {
			securityWarn(log, c, err, "security validation failed")
		}
		return http.StatusBadRequest, ve.Error()
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "invalid refresh token"
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrUnauthenticated):
		metrics.SecurityViolationsTotal.WithLabelValues("unauthenticated").Inc()
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrTenantBoundary):
		metrics.SecurityViolationsTotal.WithLabelValues("tenant_boundary").Inc()
		securityWarn(log, c, err, "tenant boundary violation")
		return http.StatusForbidden, "tenant access denied"
	case errors.Is(err, domain.ErrForbidden):
		metrics.SecurityViolationsTotal.WithLabelValues("forbidden").Inc()
		securityWarn(log, c, err, "insufficient role")
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrUserInactive):
		return http.StatusForbidden, "user is inactive"
	case errors.Is(err, domain.ErrTenantInactive):
		return http.StatusForbidden, "tenant is inactive"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, domain.ErrTenantExists):
		return http.StatusConflict, "tenant already exists"
	case errors.Is(err, domain.ErrTenantNotFound):
		return http.StatusNotFound, "tenant not found"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrCaptchaRequired):
		return http.StatusBadRequest, "captcha token is required"
	case errors.Is(err, domain.ErrCaptchaFailed):
		return http.StatusBadRequest, "captcha validation failed"
	case errors.Is(err, domain.ErrCaptchaUnavailable), errors.Is(err, domain.ErrCaptchaMisconfigured):
		log.Error().Err(err).Str("path", c.Path()).Msg("captcha verification unavailable")
		return http.StatusServiceUnavailable, "captcha verification unavailable"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

func securityWarn(log zerolog.Logger, c echo.Context, err error, msg string) {
	log.Warn().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Str("ip", c.RealIP()).
		Msg(msg)
}
