package security

import "github.com/hikari-health/auth-core/internal/core/domain"

// Permissions per role. "*" grants everything.
var rolePermissions = map[string][]string{
	domain.RoleAdmin: {"*"},
	domain.RoleDoctor: {
		"patients:read", "patients:update",
		"appointments:read", "appointments:create", "appointments:update",
		"medical-records:read", "medical-records:create", "medical-records:update",
	},
	domain.RoleNurse: {
		"patients:read", "patients:update",
		"appointments:read",
		"medical-records:read",
	},
	domain.RoleReceptionist: {
		"patients:read", "patients:create", "patients:update",
		"appointments:read", "appointments:create", "appointments:update", "appointments:delete",
	},
	domain.RolePatient: {
		"profile:read", "profile:update",
		"appointments:read",
	},
}

// PermissionsFor returns the permission list of role, nil for unknown roles.
func PermissionsFor(role string) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether role grants permission.
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == "*" || p == permission {
			return true
		}
	}
	return false
}
