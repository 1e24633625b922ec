package ports

import (
	"context"
	"time"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

// RateCounter is a fixed-window counter. Increment adds one hit to key and
// returns the hit count in the current window and when that window ends.
// A window starts lazily on the first hit after the previous one expired.
type RateCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// CaptchaVerifier checks a client captcha token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// AuditSink receives audit events. Record must not block the caller.
type AuditSink interface {
	Record(event domain.AuditEvent)
}
