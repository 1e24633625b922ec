package ports

import (
	"context"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

// LoginInput is the credential triple plus the caller details recorded on
// the issued refresh token.
type LoginInput struct {
	TenantSubdomain string
	Email           string
	Password        string
	Client          domain.ClientMeta
}

// RegisterInput creates a user inside an existing tenant.
type RegisterInput struct {
	TenantSubdomain string
	Email           string
	Password        string
	FirstName       string
	LastName        string
	Phone           string
	Address         string
	Role            string
}

// CreateTenantInput provisions a tenant and its first admin.
type CreateTenantInput struct {
	Name           string
	Subdomain      string
	Description    string
	AdminEmail     string
	AdminPassword  string
	AdminFirstName string
	AdminLastName  string
}

// SessionService orchestrates authentication and session lifecycle.
type SessionService interface {
	Login(ctx context.Context, in LoginInput) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string, client domain.ClientMeta) (*domain.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) error
	ValidateUser(ctx context.Context, tenantSubdomain, email, password string) (*domain.User, error)
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	CreateTenant(ctx context.Context, in CreateTenantInput) (*domain.Tenant, error)
	Profile(ctx context.Context, userID string) (*domain.User, *domain.Tenant, error)
	ActiveSessions(ctx context.Context, userID string) ([]domain.RefreshToken, error)
	SweepExpired(ctx context.Context) (int64, error)
}
