package permission

import "github.com/opsdesk/opsdesk/models"

// Call-site predicates over (current identity, subject) pairs. All of them
// are pure and fail closed: a nil viewer or nil subject yields false.

// CanEditTicket reports whether the viewer may edit the given ticket:
// moderator tier and above may edit any ticket, requesters may edit their own.
func CanEditTicket(viewer *models.Identity, ticket *models.Ticket) bool {
	if viewer == nil || ticket == nil {
		return false
	}
	if viewer.Role.Tier() >= models.TierModerator {
		return true
	}
	return viewer.Role == models.RoleUser && ticket.UserID == viewer.ID
}

// CanManageUser reports whether the viewer may manage the target identity.
// Self-management is always denied through this path. Admins manage any other
// identity; moderator-tier roles manage plain users only.
func CanManageUser(viewer *models.Identity, target *models.Identity) bool {
	if viewer == nil || target == nil {
		return false
	}
	if target.ID == viewer.ID {
		return false
	}
	switch viewer.Role.Tier() {
	case models.TierAdmin:
		return true
	case models.TierModerator:
		return target.Role == models.RoleUser
	default:
		return false
	}
}

// CanAssignTickets reports whether the viewer may assign tickets to staff.
func CanAssignTickets(viewer *models.Identity) bool {
	if viewer == nil {
		return false
	}
	return viewer.Role.Tier() >= models.TierModerator
}

// CanViewAnalytics reports whether the viewer may open analytics dashboards.
func CanViewAnalytics(viewer *models.Identity) bool {
	return viewer != nil && viewer.Role == models.RoleAdmin
}

// CanExportData reports whether the viewer may export raw data.
func CanExportData(viewer *models.Identity) bool {
	return viewer != nil && viewer.Role == models.RoleAdmin
}

// CanManageSettings reports whether the viewer may change system settings.
func CanManageSettings(viewer *models.Identity) bool {
	return viewer != nil && viewer.Role == models.RoleAdmin
}
