package auth

// Permission is a named capability.
type Permission string

const (
	PermDriverRead       Permission = "driver:read"
	PermDriverSelect     Permission = "driver:select"
	PermLifecycleControl Permission = "lifecycle:control"
	PermJournalRead      Permission = "journal:read"
	PermCatalogRead      Permission = "catalog:read"
)

var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermDriverRead,
		PermJournalRead,
		PermCatalogRead,
	},
	RoleOperator: {
		PermDriverRead,
		PermDriverSelect,
		PermLifecycleControl,
		PermJournalRead,
		PermCatalogRead,
	},
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of the permissions of role.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
