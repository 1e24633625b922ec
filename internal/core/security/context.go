package security

import (
	"context"
	"fmt"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

// AuthenticatedContext is the verified identity attached to a request after
// the access token and the stored user agree.
type AuthenticatedContext struct {
	UserID          string
	Email           string
	Role            string
	TenantID        string
	TenantSubdomain string
}

type authContextKey struct{}

// WithAuth returns a child context carrying ac.
func WithAuth(ctx context.Context, ac AuthenticatedContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// FromContext returns the AuthenticatedContext attached by WithAuth.
func FromContext(ctx context.Context) (AuthenticatedContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(AuthenticatedContext)
	return ac, ok
}

// ValidateContext cross-checks token claims against the stored user. Missing
// identity fields yield domain.ErrUnauthenticated; a tenant disagreement
// yields domain.ErrTenantBoundary; a deactivated user yields
// domain.ErrUserInactive.
func ValidateContext(tokenTenantID string, user *domain.User) (AuthenticatedContext, error) {
	if user == nil || user.ID == "" || user.TenantID == "" || user.Role == "" || tokenTenantID == "" {
		return AuthenticatedContext{}, domain.ErrUnauthenticated
	}
	if user.TenantID != tokenTenantID {
		return AuthenticatedContext{}, fmt.Errorf("%w: tenant isolation violation detected", domain.ErrTenantBoundary)
	}
	if !user.IsActive {
		return AuthenticatedContext{}, domain.ErrUserInactive
	}
	return AuthenticatedContext{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		TenantID: user.TenantID,
	}, nil
}

// CheckTenantAccess fails with domain.ErrTenantBoundary when target is set
// and differs from the caller's tenant.
func CheckTenantAccess(ac AuthenticatedContext, target string) error {
	if target == "" || target == ac.TenantID {
		return nil
	}
	return fmt.Errorf("%w: user from tenant %s attempted to access tenant %s", domain.ErrTenantBoundary, ac.TenantID, target)
}

// CheckRole fails with domain.ErrForbidden unless ac.Role is in allowed.
func CheckRole(ac AuthenticatedContext, allowed ...string) error {
	for _, r := range allowed {
		if r == ac.Role {
			return nil
		}
	}
	return fmt.Errorf("%w: required roles: %v, user role: %s", domain.ErrForbidden, allowed, ac.Role)
}
