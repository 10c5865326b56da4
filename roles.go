package auth

// Role is the integer role encoding shared by storage, tokens, and policy
// comparisons. The numeric values are part of the wire contract.
type Role int

const (
	// RoleGlobalAdmin administers every organization. Exactly one exists.
	RoleGlobalAdmin Role = 0
	// RoleOrgAdmin administers a single organization.
	RoleOrgAdmin Role = 1
	// RoleTeacher owns courses and grades assessments.
	RoleTeacher Role = 2
	// RoleStudent is enrolled in courses.
	RoleStudent Role = 3
)

var roleNames = map[Role]string{
	RoleGlobalAdmin: "global_admin",
	RoleOrgAdmin:    "org_admin",
	RoleTeacher:     "teacher",
	RoleStudent:     "student",
}

var rolesByName = map[string]Role{
	"global_admin": RoleGlobalAdmin,
	"org_admin":    RoleOrgAdmin,
	"teacher":      RoleTeacher,
	"student":      RoleStudent,
}

// String returns the human-readable role name, a pure inverse lookup of the
// integer encoding.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

// IsAdmin reports whether the role carries administrative capability.
func (r Role) IsAdmin() bool {
	return r == RoleGlobalAdmin || r == RoleOrgAdmin
}

// AtLeast reports whether this role's capability set covers min's. A global
// admin covers everyone and an org admin covers teachers and students;
// teacher and student are incomparable, each restricted to their own slice.
func (r Role) AtLeast(min Role) bool {
	if !r.IsValid() || !min.IsValid() {
		return false
	}
	if r == min {
		return true
	}
	switch r {
	case RoleGlobalAdmin:
		return true
	case RoleOrgAdmin:
		return min == RoleTeacher || min == RoleStudent
	default:
		return false
	}
}

// AllRoles returns the predefined roles in hierarchical order.
func AllRoles() []Role {
	return []Role{RoleGlobalAdmin, RoleOrgAdmin, RoleTeacher, RoleStudent}
}

// ParseRole safely parses a role name into a Role value.
func ParseRole(name string) (Role, bool) {
	role, ok := rolesByName[name]
	return role, ok
}
