package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/permission"
)

// middlewareStatus runs a single request through an identity-injecting
// handler followed by the middleware under test and reports the status.
func middlewareStatus(t *testing.T, mw gin.HandlerFunc, id *models.Identity) int {
	t.Helper()
	r := gin.New()
	r.GET("/guarded", func(c *gin.Context) {
		if id != nil {
			c.Set(ctxIdentityKey, id)
		}
	}, mw, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireRole(t *testing.T) {
	srv := &Server{}
	mw := srv.RequireRole(models.RoleModerator)

	cases := []struct {
		name string
		id   *models.Identity
		want int
	}{
		{"support passes moderator gate", &models.Identity{ID: "u1", Role: models.RoleSupport}, http.StatusNoContent},
		{"admin passes moderator gate", &models.Identity{ID: "u2", Role: models.RoleAdmin}, http.StatusNoContent},
		{"plain user rejected", &models.Identity{ID: "u3", Role: models.RoleUser}, http.StatusForbidden},
		{"missing identity rejected", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := middlewareStatus(t, mw, tc.id); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRequireCapability(t *testing.T) {
	srv := &Server{}
	mw := srv.RequireCapability(permission.AccessReports)

	if got := middlewareStatus(t, mw, &models.Identity{ID: "a1", Role: models.RoleAdmin}); got != http.StatusNoContent {
		t.Fatalf("admin status = %d, want %d", got, http.StatusNoContent)
	}
	if got := middlewareStatus(t, mw, &models.Identity{ID: "m1", Role: models.RoleModerator}); got != http.StatusForbidden {
		t.Fatalf("moderator status = %d, want %d", got, http.StatusForbidden)
	}
	if got := middlewareStatus(t, mw, nil); got != http.StatusForbidden {
		t.Fatalf("anonymous status = %d, want %d", got, http.StatusForbidden)
	}
}
