package permission

import (
	"strings"

	"github.com/opsdesk/opsdesk/models"
)

// Capability names a fine-grained permission checked independently of the
// coarse role tier.
type Capability string

const (
	ViewAllTickets Capability = "view_all_tickets"
	EditAnyTicket  Capability = "edit_any_ticket"
	AssignTickets  Capability = "assign_tickets"
	ManageUsers    Capability = "manage_users"
	AccessReports  Capability = "access_reports"
)

// allowlist maps each capability to the roles permitted to use it. Admin is
// absent on purpose: HasCapability grants admin everything unconditionally.
var allowlist = map[Capability][]models.Role{
	ViewAllTickets: {models.RoleModerator, models.RoleSupport, models.RoleManager, models.RoleStaff},
	EditAnyTicket:  {models.RoleModerator, models.RoleSupport, models.RoleManager, models.RoleStaff},
	AssignTickets:  {models.RoleModerator, models.RoleSupport, models.RoleManager, models.RoleStaff},
	ManageUsers:    {models.RoleModerator, models.RoleSupport, models.RoleManager, models.RoleStaff},
	AccessReports:  {},
}

// Capabilities lists every known capability, useful for exhaustive table checks.
func Capabilities() []Capability {
	return []Capability{ViewAllTickets, EditAnyTicket, AssignTickets, ManageUsers, AccessReports}
}

// ParseCapability converts a string to Capability, case-insensitive.
// Returns ok=false if the string is not a known capability.
func ParseCapability(s string) (Capability, bool) {
	switch Capability(strings.ToLower(strings.TrimSpace(s))) {
	case ViewAllTickets:
		return ViewAllTickets, true
	case EditAnyTicket:
		return EditAnyTicket, true
	case AssignTickets:
		return AssignTickets, true
	case ManageUsers:
		return ManageUsers, true
	case AccessReports:
		return AccessReports, true
	default:
		return "", false
	}
}

// HasCapability reports whether a role is allowed to use a capability.
// Admin satisfies every capability; unknown roles and unknown capabilities
// satisfy none.
func HasCapability(role models.Role, c Capability) bool {
	if role == models.RoleAdmin {
		return true
	}
	allowed, ok := allowlist[c]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// HasRole reports whether the role's tier dominates the required role's tier.
func HasRole(role models.Role, required models.Role) bool {
	return role.Dominates(required)
}
