package permission

import (
	"testing"

	"github.com/opsdesk/opsdesk/models"
)

// capabilityTable is the expected grant matrix, enumerated in full.
var capabilityTable = map[Capability]map[models.Role]bool{
	ViewAllTickets: {
		models.RoleAdmin:     true,
		models.RoleModerator: true,
		models.RoleSupport:   true,
		models.RoleManager:   true,
		models.RoleStaff:     true,
		models.RoleUser:      false,
	},
	EditAnyTicket: {
		models.RoleAdmin:     true,
		models.RoleModerator: true,
		models.RoleSupport:   true,
		models.RoleManager:   true,
		models.RoleStaff:     true,
		models.RoleUser:      false,
	},
	AssignTickets: {
		models.RoleAdmin:     true,
		models.RoleModerator: true,
		models.RoleSupport:   true,
		models.RoleManager:   true,
		models.RoleStaff:     true,
		models.RoleUser:      false,
	},
	ManageUsers: {
		models.RoleAdmin:     true,
		models.RoleModerator: true,
		models.RoleSupport:   true,
		models.RoleManager:   true,
		models.RoleStaff:     true,
		models.RoleUser:      false,
	},
	AccessReports: {
		models.RoleAdmin:     true,
		models.RoleModerator: false,
		models.RoleSupport:   false,
		models.RoleManager:   false,
		models.RoleStaff:     false,
		models.RoleUser:      false,
	},
}

func TestHasCapabilityMatrix(t *testing.T) {
	for _, c := range Capabilities() {
		for _, r := range models.Roles() {
			want := capabilityTable[c][r]
			if got := HasCapability(r, c); got != want {
				t.Fatalf("HasCapability(%s, %s) = %v, want %v", r, c, got, want)
			}
		}
	}
}

func TestHasCapabilityAdminAlwaysGranted(t *testing.T) {
	for _, c := range Capabilities() {
		if !HasCapability(models.RoleAdmin, c) {
			t.Fatalf("admin should hold %s", c)
		}
	}
	// even a capability this build does not know about
	if !HasCapability(models.RoleAdmin, Capability("future_toggle")) {
		t.Fatal("admin should hold unknown capabilities")
	}
}

func TestHasCapabilityUnknownInputs(t *testing.T) {
	if HasCapability(models.Role("ghost"), ViewAllTickets) {
		t.Fatal("unknown role should hold nothing")
	}
	if HasCapability(models.RoleModerator, Capability("future_toggle")) {
		t.Fatal("unknown capability should be denied for non-admins")
	}
}

func TestParseCapability(t *testing.T) {
	cases := []struct {
		in   string
		want Capability
		ok   bool
	}{
		{"manage_users", ManageUsers, true},
		{"MANAGE_USERS", ManageUsers, true},
		{" access_reports ", AccessReports, true},
		{"delete_everything", "", false},
	}
	for _, c := range cases {
		got, ok := ParseCapability(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("ParseCapability(%q) = (%v,%v), want (%v,%v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
