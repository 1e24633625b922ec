// Package token mints and verifies access tokens.
//
// RS256 is used whenever a private key is configured; verification accepts
// RS256 only. Without key material an HS256 secret is used, which NewIssuer
// refuses when running in production.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
)

const (
	defaultTTL      = 15 * time.Minute
	defaultIssuer   = "hikari-app"
	defaultAudience = "hikari-users"
	devSecret       = "hikari-dev-secret"
)

// Config describes the signing material and claims policy.
type Config struct {
	PrivateKey string // base64 PEM
	PublicKey  string // base64 PEM, derived from PrivateKey when empty
	HMACSecret string
	Issuer     string
	Audience   string
	TTL        time.Duration
	Production bool
}

// Claims is the JWT body of an access token.
type Claims struct {
	Email           string `json:"email"`
	Role            string `json:"role"`
	TenantID        string `json:"tenantId"`
	TenantSubdomain string `json:"tenantSubdomain"`
	jwt.RegisteredClaims
}

// Issuer implements ports.TokenIssuer.
type Issuer struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	audience  string
	ttl       time.Duration
	now       func() time.Time
}

var _ ports.TokenIssuer = (*Issuer)(nil)

// NewIssuer builds an Issuer from cfg. It returns
// domain.ErrInsecureSigningConfig when cfg.Production is set and no RSA
// private key is available.
func NewIssuer(cfg Config) (*Issuer, error) {
	iss := &Issuer{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
	if iss.issuer == "" {
		iss.issuer = defaultIssuer
	}
	if iss.audience == "" {
		iss.audience = defaultAudience
	}
	if iss.ttl <= 0 {
		iss.ttl = defaultTTL
	}

	if cfg.PrivateKey != "" {
		priv, err := DecodePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		pub := &priv.PublicKey
		if cfg.PublicKey != "" {
			if pub, err = DecodePublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
			if !pub.Equal(&priv.PublicKey) {
				return nil, errors.New("public key does not match private key")
			}
		}
		iss.method = jwt.SigningMethodRS256
		iss.signKey = priv
		iss.verifyKey = pub
		return iss, nil
	}

	if cfg.Production {
		return nil, domain.ErrInsecureSigningConfig
	}

	secret := cfg.HMACSecret
	if secret == "" {
		secret = devSecret
	}
	iss.method = jwt.SigningMethodHS256
	iss.signKey = []byte(secret)
	iss.verifyKey = []byte(secret)
	return iss, nil
}

// Algorithm is the pinned JWT alg, "RS256" or "HS256".
func (i *Issuer) Algorithm() string { return i.method.Alg() }

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs an access token for user in tenant.
func (i *Issuer) Issue(user *domain.User, tenant *domain.Tenant) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)

	subdomain := ""
	if tenant != nil {
		subdomain = tenant.Subdomain
	}
	claims := Claims{
		Email:           user.Email,
		Role:            user.Role,
		TenantID:        user.TenantID,
		TenantSubdomain: subdomain,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses raw, rejecting any token whose header asks for an algorithm
// other than the configured one.
func (i *Issuer) Verify(raw string) (*ports.AccessClaims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != i.method.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.verifyKey, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", domain.ErrInvalidToken)
	}

	out := &ports.AccessClaims{
		UserID:          claims.Subject,
		Email:           claims.Email,
		Role:            claims.Role,
		TenantID:        claims.TenantID,
		TenantSubdomain: claims.TenantSubdomain,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
