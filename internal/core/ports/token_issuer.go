package ports

import (
	"time"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

// AccessClaims are the identity claims carried by an access token.
type AccessClaims struct {
	UserID          string
	Email           string
	Role            string
	TenantID        string
	TenantSubdomain string
	ExpiresAt       time.Time
}

// TokenIssuer mints and verifies access tokens.
type TokenIssuer interface {
	Issue(user *domain.User, tenant *domain.Tenant) (token string, expiresAt time.Time, err error)
	Verify(token string) (*AccessClaims, error)
	TTL() time.Duration
}
