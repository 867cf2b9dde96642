package auth

// IsValid checks if the role is one of the predefined valid roles
func RoleIsValid(r UserRole) bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleIsAtLeast checks if role meets the minimum required level
func RoleIsAtLeast(role, minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RolePatient: 0,
		RoleDoctor:  1,
		RoleAdmin:   2,
	}

	currentLevel, exists := roleHierarchy[role]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, RoleIsValid(role)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RolePatient,
		RoleDoctor,
		RoleAdmin,
	}
}

// RequireRole ensures the authenticated principal carries at least the
// given role. Admins satisfy every role check.
func RequireRole(account *Account, role UserRole) error {
	if account == nil {
		return ErrNoCredentials
	}

	if !RoleIsAtLeast(account.Role(), role) {
		return sentinelWith(ErrInsufficientRole, map[string]any{
			"account_id":    account.ID.String(),
			"role":          account.Role(),
			"required_role": role,
		})
	}

	return nil
}

// RequireDoctor is the guard used by doctor-only endpoints.
func RequireDoctor(account *Account) error {
	return RequireRole(account, RoleDoctor)
}
