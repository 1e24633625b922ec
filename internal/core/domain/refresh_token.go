package domain

import "time"

// RefreshToken is an opaque, single-use rotating credential bound to one
// user and tenant.
type RefreshToken struct {
	ID              string    `json:"id"`
	Token           string    `json:"-"`
	UserID          string    `json:"userId"`
	TenantID        string    `json:"tenantId"`
	ExpiresAt       time.Time `json:"expiresAt"`
	IsRevoked       bool      `json:"isRevoked"`
	ReplacedByToken string    `json:"-"`
	IPAddress       string    `json:"ipAddress,omitempty"`
	UserAgent       string    `json:"userAgent,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// IsExpired reports whether the token is past its expiry at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token can still be exchanged at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked && !t.IsExpired(now)
}

// ClientMeta carries the caller details recorded on refresh tokens.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// Session is the result of a successful login or refresh.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         UserSummary `json:"user"`
}
