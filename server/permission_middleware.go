package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/permission"
)

// capability aliases keep the route table readable.
const (
	capManageUsers   = permission.ManageUsers
	capAccessReports = permission.AccessReports
)

// RequireRole returns a middleware that rejects callers whose role tier does
// not dominate the required role. TokenMiddleware must run first.
func (s *Server) RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFromContext(c)
		if id == nil || !permission.HasRole(id.Role, required) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":             "forbidden",
				"error_description": "insufficient role",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCapability returns a middleware that rejects callers whose role does
// not hold the capability. TokenMiddleware must run first.
func (s *Server) RequireCapability(cap permission.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFromContext(c)
		if id == nil || !permission.HasCapability(id.Role, cap) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":             "forbidden",
				"error_description": "insufficient permissions",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
