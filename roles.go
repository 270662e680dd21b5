package auth

// RoleChecker is implemented by anything that can answer role questions for
// an authenticated principal: parsed claims, sessions, decoded credentials.
type RoleChecker interface {
	// HasRole checks for an exact role match
	HasRole(role MemberRole) bool

	// IsAtLeast checks if the principal's role meets the minimum level.
	// A super admin principal satisfies every level.
	IsAtLeast(minRole MemberRole) bool
}

// IsValidMemberRole checks if the role is one an invite may carry. The super
// admin sentinel is deliberately excluded: it can never be granted through
// the invitation path.
func IsValidMemberRole(r MemberRole) bool {
	switch r {
	case RoleViewer, RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleLevel returns the position of a member role in the hierarchy, or -1
// for anything that is not a member role.
func RoleLevel(r MemberRole) int {
	switch r {
	case RoleViewer:
		return 0
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	default:
		return -1
	}
}

// RoleAtLeast checks if role meets the minimum required member level.
// Unknown roles never satisfy anything.
func RoleAtLeast(role, minRole MemberRole) bool {
	current := RoleLevel(role)
	min := RoleLevel(minRole)
	if current < 0 || min < 0 {
		return false
	}
	return current >= min
}

// MemberRoles returns the invitable roles in hierarchical order.
func MemberRoles() []MemberRole {
	return []MemberRole{
		RoleViewer,
		RoleUser,
		RoleAdmin,
	}
}

// ParseMemberRole safely parses a string into a MemberRole.
func ParseMemberRole(roleStr string) (MemberRole, bool) {
	role := MemberRole(roleStr)
	return role, IsValidMemberRole(role)
}
