package ports

import (
	"context"
	"time"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

// RefreshTokenStore persists refresh tokens and their rotation chain.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	// FindByToken returns domain.ErrRefreshTokenNotFound for unknown tokens.
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	// Rotate revokes oldToken only if it is still active at now, links it to
	// next and persists next. It returns domain.ErrInvalidRefreshToken when
	// oldToken was already revoked or expired, and domain.ErrRotationIncomplete
	// when the revoke landed but next could not be stored.
	Rotate(ctx context.Context, oldToken string, next *domain.RefreshToken, now time.Time) error
	// Revoke reports whether a non-revoked token was found and revoked.
	Revoke(ctx context.Context, token string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error)
	// DeleteExpired removes every token with ExpiresAt before now, revoked or not.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
