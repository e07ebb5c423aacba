package middleware

var allowedRoles = map[string]struct{}{
	RoleAdmin:      {},
	RoleMentor:     {},
	RoleAutomation: {},
}

func IsValidRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}
