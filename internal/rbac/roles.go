package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
// The console's dashboards map onto these directly: members run sessions and
// dispatch batches, admins manage their group (top-ups, member management),
// super_admin is the provisioning operator.
const (
	RoleMember     = "member"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
