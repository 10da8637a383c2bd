package tenantauth

// Role is the closed set of roles a user can hold. Anything outside the
// set is rejected at token validation time with ErrInvalidRole.
type Role string

const (
	// RoleSystemAdmin is a platform operator. Only system admins may
	// impersonate other users.
	RoleSystemAdmin Role = "system_admin"
	// RoleTenantAdmin administers a single tenant.
	RoleTenantAdmin Role = "tenant_admin"
	// RoleTenantUser is a regular member of a tenant.
	RoleTenantUser Role = "tenant_user"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleSystemAdmin, RoleTenantAdmin, RoleTenantUser:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	roleHierarchy := map[Role]int{
		RoleTenantUser:  0,
		RoleTenantAdmin: 1,
		RoleSystemAdmin: 2,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []Role {
	return []Role{
		RoleTenantUser,
		RoleTenantAdmin,
		RoleSystemAdmin,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
