package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
)

// Directory is an in-memory user and tenant repository.
type Directory struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	tenants map[string]*domain.Tenant
}

var (
	_ ports.UserRepository   = (*Directory)(nil)
	_ ports.TenantRepository = tenantView{}
)

func NewDirectory() *Directory {
	return &Directory{
		users:   make(map[string]*domain.User),
		tenants: make(map[string]*domain.Tenant),
	}
}

// Tenants exposes d as a tenant repository; d itself is the user repository.
func (d *Directory) Tenants() ports.TenantRepository { return tenantView{d} }

func (d *Directory) FindByEmail(_ context.Context, tenantID, email string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.TenantID == tenantID && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (d *Directory) FindByID(_ context.Context, id string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *Directory) ExistsAdminWithEmail(_ context.Context, email string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Role == domain.RoleAdmin && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (d *Directory) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.TenantID == user.TenantID && strings.EqualFold(u.Email, user.Email) {
			return nil, domain.ErrUserExists
		}
	}
	cp := *user
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	d.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (d *Directory) findTenantBySubdomain(subdomain string) (*domain.Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.tenants {
		if strings.EqualFold(t.Subdomain, subdomain) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTenantNotFound
}

func (d *Directory) findTenantByID(id string) (*domain.Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (d *Directory) createTenant(tenant *domain.Tenant) (*domain.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tenants {
		if strings.EqualFold(t.Subdomain, tenant.Subdomain) || strings.EqualFold(t.Name, tenant.Name) {
			return nil, domain.ErrTenantExists
		}
	}
	cp := *tenant
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	d.tenants[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (d *Directory) deleteTenant(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tenants, id)
}

type tenantView struct{ d *Directory }

func (v tenantView) FindBySubdomain(_ context.Context, subdomain string) (*domain.Tenant, error) {
	return v.d.findTenantBySubdomain(subdomain)
}

func (v tenantView) FindByID(_ context.Context, id string) (*domain.Tenant, error) {
	return v.d.findTenantByID(id)
}

func (v tenantView) Create(_ context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	return v.d.createTenant(tenant)
}

func (v tenantView) Delete(_ context.Context, id string) error {
	v.d.deleteTenant(id)
	return nil
}
