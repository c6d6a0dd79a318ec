package models

import "strings"

// Role is the closed set of role tags a signed-in identity can carry.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleSupport   Role = "support"
	RoleManager   Role = "manager"
	RoleStaff     Role = "staff"
	RoleUser      Role = "user"
)

// Tier buckets roles for coarse authorization checks. Higher dominates lower.
type Tier int

const (
	TierNone Tier = iota
	TierUser
	TierModerator
	TierAdmin
)

// Tier maps a role to its authorization tier. Unknown roles map to TierNone
// so any check against them fails closed.
func (r Role) Tier() Tier {
	switch r {
	case RoleAdmin:
		return TierAdmin
	case RoleModerator, RoleSupport, RoleManager, RoleStaff:
		return TierModerator
	case RoleUser:
		return TierUser
	default:
		return TierNone
	}
}

// Dominates reports whether the role's tier is at least the required role's tier.
func (r Role) Dominates(required Role) bool {
	rt := r.Tier()
	if rt == TierNone {
		return false
	}
	return rt >= required.Tier()
}

// Valid reports whether the role is one of the known role tags.
func (r Role) Valid() bool { return r.Tier() != TierNone }

// ParseRole converts a string to Role, case-insensitive.
// Returns ok=false if the string is not a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleModerator:
		return RoleModerator, true
	case RoleSupport:
		return RoleSupport, true
	case RoleManager:
		return RoleManager, true
	case RoleStaff:
		return RoleStaff, true
	case RoleUser:
		return RoleUser, true
	default:
		return "", false
	}
}

// Roles lists every known role, useful for exhaustive table checks.
func Roles() []Role {
	return []Role{RoleAdmin, RoleModerator, RoleSupport, RoleManager, RoleStaff, RoleUser}
}
