package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsdesk/opsdesk/dto"
	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/permission"
	"github.com/opsdesk/opsdesk/store"
)

// HandleListUsers returns all users. Route is gated by the manage_users
// capability.
func (s *Server) HandleListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "list users failed"})
		return
	}
	c.JSON(http.StatusOK, dto.FromIdentities(users))
}

// HandleCreateUser registers a new user. Only admins may create users with a
// privileged role; moderator-tier callers create plain users.
func (s *Server) HandleCreateUser(c *gin.Context) {
	var payload struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Role      string `json:"role"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "invalid JSON payload"})
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "email and password are required"})
		return
	}

	role := models.RoleUser
	if payload.Role != "" {
		parsed, ok := models.ParseRole(payload.Role)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "unknown role"})
			return
		}
		role = parsed
	}
	viewer := IdentityFromContext(c)
	if role != models.RoleUser && viewer.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "only admins may grant privileged roles"})
		return
	}

	if _, err := s.users.FindByEmail(c.Request.Context(), payload.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "error_description": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "password hashing failed"})
		return
	}
	user := &models.Identity{
		Email:        payload.Email,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "create user failed"})
		return
	}
	c.JSON(http.StatusCreated, dto.FromIdentity(user))
}

// HandleGetUser returns one user: self, or any user the viewer may manage.
func (s *Server) HandleGetUser(c *gin.Context) {
	viewer := IdentityFromContext(c)
	target, ok := s.loadTarget(c)
	if !ok {
		return
	}
	if viewer.ID != target.ID && !permission.CanManageUser(viewer, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "insufficient permissions"})
		return
	}
	c.JSON(http.StatusOK, dto.FromIdentity(target))
}

// HandleUpdateUser applies a partial update: self-service profile edits, or
// management edits per CanManageUser. Role changes are admin-only.
func (s *Server) HandleUpdateUser(c *gin.Context) {
	viewer := IdentityFromContext(c)
	target, ok := s.loadTarget(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "invalid JSON payload"})
		return
	}

	self := viewer.ID == target.ID
	if !self && !permission.CanManageUser(viewer, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "insufficient permissions"})
		return
	}
	if req.Role != nil {
		if _, ok := models.ParseRole(*req.Role); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "unknown role"})
			return
		}
		// nobody escalates themselves; only admins change roles at all
		if self || viewer.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "role changes require an admin"})
			return
		}
	}

	updated, err := s.users.Update(c.Request.Context(), target.ID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "update user failed"})
		return
	}
	c.JSON(http.StatusOK, dto.FromIdentity(updated))
}

// HandleDeleteUser removes a user the viewer may manage.
func (s *Server) HandleDeleteUser(c *gin.Context) {
	viewer := IdentityFromContext(c)
	target, ok := s.loadTarget(c)
	if !ok {
		return
	}
	if !permission.CanManageUser(viewer, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "insufficient permissions"})
		return
	}
	if err := s.users.Delete(c.Request.Context(), target.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "delete user failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleChangePassword updates a password. Self-service requires the current
// password; managers may reset without it.
func (s *Server) HandleChangePassword(c *gin.Context) {
	viewer := IdentityFromContext(c)
	target, ok := s.loadTarget(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "new_password is required"})
		return
	}

	self := viewer.ID == target.ID
	switch {
	case self:
		if bcrypt.CompareHashAndPassword([]byte(target.PasswordHash), []byte(req.CurrentPassword)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "current password is incorrect"})
			return
		}
	case permission.CanManageUser(viewer, target):
		// managed reset, no current password needed
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "insufficient permissions"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "password hashing failed"})
		return
	}
	if err := s.users.UpdatePassword(c.Request.Context(), target.ID, string(hash)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "password update failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetSettings returns the per-user settings document.
func (s *Server) HandleGetSettings(c *gin.Context) {
	viewer := IdentityFromContext(c)
	target, ok := s.loadTarget(c)
	if !ok {
		return
	}
	if viewer.ID != target.ID && !permission.CanManageUser(viewer, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "insufficient permissions"})
		return
	}
	doc, err := s.users.GetSettings(c.Request.Context(), target.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "load settings failed"})
		return
	}
	c.Data(http.StatusOK, "application/json", doc)
}

// HandlePutSettings replaces the per-user settings document.
func (s *Server) HandlePutSettings(c *gin.Context) {
	viewer := IdentityFromContext(c)
	target, ok := s.loadTarget(c)
	if !ok {
		return
	}
	if viewer.ID != target.ID && !permission.CanManageUser(viewer, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "insufficient permissions"})
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "settings must be a JSON document"})
		return
	}
	if err := s.users.SetSettings(c.Request.Context(), target.ID, raw); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "save settings failed"})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// loadTarget resolves the :id path param, writing the error response itself
// when the user does not exist.
func (s *Server) loadTarget(c *gin.Context) (*models.Identity, bool) {
	target, err := s.users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "user not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "load user failed"})
		}
		return nil, false
	}
	return target, true
}
