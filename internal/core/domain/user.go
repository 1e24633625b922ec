package domain

import "time"

// Role names, as stored and as carried in access-token claims.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
	RolePatient      = "patient"
)

// Roles lists every known role in privilege order.
var Roles = []string{RoleAdmin, RoleDoctor, RoleNurse, RoleReceptionist, RolePatient}

// IsValidRole reports whether role is one of Roles.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User models an identity that belongs to exactly one tenant.
// TenantID is fixed at creation; users are deactivated, never deleted.
type User struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TenantRef is the slice of a tenant embedded in user summaries.
type TenantRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
}

// UserSummary is what login and refresh hand back next to the tokens.
type UserSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	TenantID  string    `json:"tenantId"`
	Tenant    TenantRef `json:"tenant"`
}

// Summarize builds the public summary of u inside tenant t.
func Summarize(u *User, t *Tenant) UserSummary {
	s := UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		TenantID:  u.TenantID,
	}
	if t != nil {
		s.Tenant = TenantRef{ID: t.ID, Name: t.Name, Subdomain: t.Subdomain}
	}
	return s
}
