package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsdesk/opsdesk/dto"
	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/store"
)

// HandleLogin authenticates a user and issues a bearer token.
func (s *Server) HandleLogin(c *gin.Context) {
	var payload dto.LoginRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "invalid JSON payload"})
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "email and password are required"})
		return
	}

	user, err := s.users.FindByEmail(c.Request.Context(), payload.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("login lookup failed", slog.Any("error", err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "invalid email or password"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "invalid email or password"})
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.Error("token generation failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{User: user.Sanitized(), Token: token})
}

// HandleLogout revokes the presented token until its natural expiry.
func (s *Server) HandleLogout(c *gin.Context) {
	token, expiry := tokenFromContext(c)
	if token == "" {
		c.Status(http.StatusNoContent)
		return
	}
	if expiry.IsZero() {
		expiry = time.Now().Add(s.cfg.TokenTTL())
	}
	if err := s.revocations.Revoke(c.Request.Context(), token, expiry); err != nil {
		s.logger.Error("token revocation failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "revocation failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) issueToken(user *models.Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.TokenTTL()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Server.TokenSecret))
}
