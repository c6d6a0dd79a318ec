package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/opsdesk/opsdesk/models"
)

const (
	ctxIdentityKey = "identity"
	ctxTokenKey    = "bearer_token"
	ctxExpiryKey   = "token_expiry"
)

// TokenMiddleware validates the bearer token and sets the caller's identity
// in context. It runs before any role or capability check.
func (s *Server) TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "missing authorization header",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid authorization header format",
			})
			c.Abort()
			return
		}
		tokenString := parts[1]

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.cfg.Server.TokenSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid access token",
			})
			c.Abort()
			return
		}

		revoked, err := s.revocations.IsRevoked(c.Request.Context(), tokenString)
		if err == nil && revoked {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "token has been revoked",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid token claims",
			})
			c.Abort()
			return
		}

		id := &models.Identity{}
		if sub, err := claims.GetSubject(); err == nil {
			id.ID = sub
		}
		if email, ok := claims["email"].(string); ok {
			id.Email = email
		}
		if roleStr, ok := claims["role"].(string); ok {
			if role, ok := models.ParseRole(roleStr); ok {
				id.Role = role
			}
		}
		if id.ID == "" || !id.Role.Valid() {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "token carries no usable identity",
			})
			c.Abort()
			return
		}

		c.Set(ctxIdentityKey, id)
		c.Set(ctxTokenKey, tokenString)
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			c.Set(ctxExpiryKey, exp.Time)
		}
		c.Next()
	}
}

// IdentityFromContext retrieves the authenticated identity set by
// TokenMiddleware. Returns nil when absent.
func IdentityFromContext(c *gin.Context) *models.Identity {
	if v, exists := c.Get(ctxIdentityKey); exists {
		if id, ok := v.(*models.Identity); ok {
			return id
		}
	}
	return nil
}

func tokenFromContext(c *gin.Context) (string, time.Time) {
	token, _ := c.Get(ctxTokenKey)
	expiry, _ := c.Get(ctxExpiryKey)
	ts, _ := token.(string)
	exp, _ := expiry.(time.Time)
	return ts, exp
}
