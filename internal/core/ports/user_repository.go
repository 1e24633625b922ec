package ports

import (
	"context"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

// UserRepository is the credential store adapter for users.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no user with email
	// exists in tenantID.
	FindByEmail(ctx context.Context, tenantID, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// ExistsAdminWithEmail checks admin accounts across all tenants.
	ExistsAdminWithEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

// TenantRepository resolves tenants.
type TenantRepository interface {
	FindBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error)
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)
	Create(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error)
	// Delete removes a tenant. A missing tenant is not an error.
	Delete(ctx context.Context, id string) error
}
