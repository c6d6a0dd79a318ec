package permission

import (
	"testing"

	"github.com/opsdesk/opsdesk/models"
)

func ident(id string, role models.Role) *models.Identity {
	return &models.Identity{ID: id, Email: id + "@example.com", Role: role}
}

func TestCanEditTicketOwnership(t *testing.T) {
	viewer := ident("7", models.RoleUser)
	own := &models.Ticket{ID: "t1", UserID: "7"}
	other := &models.Ticket{ID: "t2", UserID: "9"}

	if !CanEditTicket(viewer, own) {
		t.Fatal("requester should edit their own ticket")
	}
	if CanEditTicket(viewer, other) {
		t.Fatal("requester should not edit another user's ticket")
	}
}

func TestCanEditTicketByTier(t *testing.T) {
	other := &models.Ticket{ID: "t2", UserID: "9"}
	for _, r := range []models.Role{models.RoleAdmin, models.RoleModerator, models.RoleSupport, models.RoleManager, models.RoleStaff} {
		if !CanEditTicket(ident("1", r), other) {
			t.Fatalf("%s should edit any ticket", r)
		}
	}
}

func TestCanEditTicketFailsClosed(t *testing.T) {
	if CanEditTicket(nil, &models.Ticket{ID: "t"}) {
		t.Fatal("nil viewer should be denied")
	}
	if CanEditTicket(ident("1", models.RoleAdmin), nil) {
		t.Fatal("nil ticket should be denied")
	}
}

func TestCanManageUserNeverSelf(t *testing.T) {
	for _, r := range models.Roles() {
		self := ident("42", r)
		if CanManageUser(self, self) {
			t.Fatalf("%s should not manage themselves", r)
		}
	}
}

func TestCanManageUserAdmin(t *testing.T) {
	admin := ident("1", models.RoleAdmin)
	for _, r := range models.Roles() {
		if !CanManageUser(admin, ident("2", r)) {
			t.Fatalf("admin should manage %s", r)
		}
	}
}

func TestCanManageUserModeratorTier(t *testing.T) {
	for _, viewerRole := range []models.Role{models.RoleModerator, models.RoleSupport, models.RoleManager, models.RoleStaff} {
		viewer := ident("1", viewerRole)
		if !CanManageUser(viewer, ident("2", models.RoleUser)) {
			t.Fatalf("%s should manage plain users", viewerRole)
		}
		for _, targetRole := range []models.Role{models.RoleAdmin, models.RoleModerator, models.RoleSupport, models.RoleManager, models.RoleStaff} {
			if CanManageUser(viewer, ident("2", targetRole)) {
				t.Fatalf("%s should not manage %s", viewerRole, targetRole)
			}
		}
	}
}

func TestCanManageUserPlainUser(t *testing.T) {
	viewer := ident("1", models.RoleUser)
	for _, r := range models.Roles() {
		if CanManageUser(viewer, ident("2", r)) {
			t.Fatalf("plain user should not manage %s", r)
		}
	}
}

func TestAdminOnlyPredicates(t *testing.T) {
	for _, r := range models.Roles() {
		v := ident("1", r)
		want := r == models.RoleAdmin
		if CanViewAnalytics(v) != want {
			t.Fatalf("CanViewAnalytics(%s) = %v, want %v", r, !want, want)
		}
		if CanExportData(v) != want {
			t.Fatalf("CanExportData(%s) = %v, want %v", r, !want, want)
		}
		if CanManageSettings(v) != want {
			t.Fatalf("CanManageSettings(%s) = %v, want %v", r, !want, want)
		}
	}
	if CanViewAnalytics(nil) || CanExportData(nil) || CanManageSettings(nil) {
		t.Fatal("nil viewer should be denied everywhere")
	}
}

func TestCanAssignTickets(t *testing.T) {
	for _, r := range []models.Role{models.RoleAdmin, models.RoleModerator, models.RoleSupport, models.RoleManager, models.RoleStaff} {
		if !CanAssignTickets(ident("1", r)) {
			t.Fatalf("%s should assign tickets", r)
		}
	}
	if CanAssignTickets(ident("1", models.RoleUser)) {
		t.Fatal("plain user should not assign tickets")
	}
	if CanAssignTickets(nil) {
		t.Fatal("nil viewer should not assign tickets")
	}
}
