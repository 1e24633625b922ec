package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Unauthorized class.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidToken        = errors.New("invalid access token")
	ErrUnauthenticated     = errors.New("authentication required")
)

// Forbidden class.
var (
	ErrForbidden      = errors.New("access forbidden")
	ErrTenantBoundary = errors.New("tenant boundary violation")
	ErrTenantInactive = errors.New("tenant is inactive")
	ErrUserInactive   = errors.New("user is inactive")
)

// Conflict / not found.
var (
	ErrUserExists           = errors.New("user already exists")
	ErrTenantExists         = errors.New("tenant already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// Fatal: must abort the operation or startup.
var (
	ErrRotationIncomplete    = errors.New("refresh token rotation incomplete")
	ErrInsecureSigningConfig = errors.New("asymmetric signing keys are required in production")
)

// Captcha verification.
var (
	ErrCaptchaRequired      = errors.New("captcha token is required")
	ErrCaptchaFailed        = errors.New("captcha validation failed")
	ErrCaptchaUnavailable   = errors.New("captcha verification unavailable")
	ErrCaptchaMisconfigured = errors.New("captcha verification is not configured")
)

// RateLimitError is returned when a caller exhausts its window.
type RateLimitError struct {
	Limit   int
	ResetAt time.Time
	Now     time.Time
}

// RetryAfter is the number of whole seconds until the window resets.
func (e *RateLimitError) RetryAfter() int {
	d := e.ResetAt.Sub(e.Now)
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", e.RetryAfter())
}

// ValidationError collects field level violations. Security is true when at
// least one violation came from an injection or XSS check.
type ValidationError struct {
	Fields   []string
	Security bool
}

func (e *ValidationError) Error() string {
	if e.Security {
		return "security validation failed: " + strings.Join(e.Fields, "; ")
	}
	return strings.Join(e.Fields, "; ")
}
