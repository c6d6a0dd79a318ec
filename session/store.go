// Package session holds the client-side source of truth for who is signed in
// and what they can do. Identity and token are persisted in a single-file
// buntdb store so a restart restores the session without a network call.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/buntdb"

	"github.com/opsdesk/opsdesk/dto"
	"github.com/opsdesk/opsdesk/gateway"
	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/permission"
)

// Storage keys. Both are written together on login and removed together on
// logout.
const (
	keyUser  = "user"
	keyToken = "token"
)

// ErrNotAuthenticated is returned by operations that need a signed-in
// identity.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Store is the session/authorization store. All methods are safe for
// concurrent use.
type Store struct {
	client *gateway.Client
	logger *slog.Logger
	db     *buntdb.DB

	mu          sync.RWMutex
	identity    *models.Identity
	token       string
	initialized bool
}

// Open opens (or creates) the session database at path and returns a Store
// bound to the given gateway client. Use ":memory:" in tests.
func Open(path string, client *gateway.Client, logger *slog.Logger) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger, db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Initialize restores a persisted session, if any. It never fails outward:
// storage errors are logged and leave the store signed out. The initialized
// flag flips to true exactly once, whatever the outcome.
func (s *Store) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.initialized = true

	var rawUser, rawToken string
	err := s.db.View(func(tx *buntdb.Tx) error {
		var err error
		if rawUser, err = tx.Get(keyUser); err != nil {
			return err
		}
		rawToken, err = tx.Get(keyToken)
		return err
	})
	if err != nil {
		if !errors.Is(err, buntdb.ErrNotFound) {
			s.logger.Warn("session restore failed, starting signed out", slog.Any("error", err))
		}
		return
	}

	var id models.Identity
	if err := json.Unmarshal([]byte(rawUser), &id); err != nil {
		s.logger.Warn("persisted identity is corrupt, starting signed out", slog.Any("error", err))
		return
	}
	s.identity = &id
	s.token = rawToken
}

// Initialized reports whether Initialize has run.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// IsAuthenticated is true iff the store has finished its initial restore and
// an identity is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized && s.identity != nil
}

// Identity returns a copy of the signed-in identity, or nil when signed out.
func (s *Store) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Login authenticates against the backend, stores the returned identity in
// memory and durable storage, and returns it. Auth failures are returned to
// the caller for display; persistence failures only degrade restore-on-start
// and are logged, not surfaced.
func (s *Store) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	var resp dto.LoginResponse
	err := s.client.Do(ctx, gateway.RequestSpec{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		Body:      dto.LoginRequest{Email: email, Password: password},
		Retries:   gateway.NoRetries,
		ErrorOpts: gateway.ErrorOptions{Silent: true, Context: "login"},
	}, &resp)
	if err != nil {
		return nil, err
	}

	id := resp.User.Sanitized()

	s.mu.Lock()
	s.identity = &id
	s.token = resp.Token
	s.mu.Unlock()

	s.persist(&id, resp.Token)
	out := id
	return &out, nil
}

// Logout clears the session from memory and durable storage and revokes the
// token server-side on a best-effort basis. Safe to call when signed out.
func (s *Store) Logout(ctx context.Context) {
	s.mu.RLock()
	hadToken := s.token != ""
	s.mu.RUnlock()

	// revoke before clearing so the bearer header is still attached
	if hadToken {
		if err := s.client.Do(ctx, gateway.RequestSpec{
			Method:    http.MethodPost,
			Path:      "/auth/logout",
			Retries:   gateway.NoRetries,
			ErrorOpts: gateway.ErrorOptions{Silent: true, Context: "logout"},
		}, nil); err != nil {
			s.logger.Debug("server-side logout failed", slog.Any("error", err))
		}
	}

	s.mu.Lock()
	s.identity = nil
	s.token = ""
	s.mu.Unlock()

	err := s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(keyUser); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		if _, err := tx.Delete(keyToken); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to clear persisted session", slog.Any("error", err))
	}
}

// UpdateProfile merges a partial identity into the current one via the
// backend, persists the acknowledged result and returns it.
func (s *Store) UpdateProfile(ctx context.Context, req dto.UpdateUserRequest) (*models.Identity, error) {
	current := s.Identity()
	if current == nil {
		return nil, ErrNotAuthenticated
	}

	var ack dto.UserResponse
	err := s.client.Do(ctx, gateway.RequestSpec{
		Method:    http.MethodPut,
		Path:      "/users/" + current.ID,
		Body:      req,
		ErrorOpts: gateway.ErrorOptions{Context: "update profile"},
	}, &ack)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.identity != nil && s.identity.ID == ack.ID {
		s.identity.Email = ack.Email
		s.identity.FirstName = ack.FirstName
		s.identity.LastName = ack.LastName
		s.identity.Role = ack.Role
		s.identity.UpdatedAt = ack.UpdatedAt
	}
	merged := s.identity
	token := s.token
	s.mu.Unlock()

	if merged == nil {
		return nil, ErrNotAuthenticated
	}
	s.persist(merged, token)
	out := *merged
	return &out, nil
}

// persist writes both session keys in one transaction. Failures are logged
// and swallowed; the in-memory session stays valid.
func (s *Store) persist(id *models.Identity, token string) {
	raw, err := json.Marshal(id.Sanitized())
	if err != nil {
		s.logger.Warn("failed to encode identity for persistence", slog.Any("error", err))
		return
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(keyUser, string(raw), nil); err != nil {
			return err
		}
		_, _, err := tx.Set(keyToken, token, nil)
		return err
	})
	if err != nil {
		s.logger.Warn("failed to persist session", slog.Any("error", err))
	}
}

// HasPermission reports whether the signed-in role tier dominates the
// required role's tier. Signed out always fails.
func (s *Store) HasPermission(required models.Role) bool {
	role, ok := s.CurrentRole()
	if !ok {
		return false
	}
	return permission.HasRole(role, required)
}

// HasSpecificPermission reports whether the signed-in role holds the given
// capability. Signed out always fails.
func (s *Store) HasSpecificPermission(c permission.Capability) bool {
	role, ok := s.CurrentRole()
	if !ok {
		return false
	}
	return permission.HasCapability(role, c)
}

// IsAdmin reports whether the signed-in identity is an admin.
func (s *Store) IsAdmin() bool {
	role, ok := s.CurrentRole()
	return ok && role == models.RoleAdmin
}

// IsModeratorTier reports whether the signed-in identity is moderator tier or
// above.
func (s *Store) IsModeratorTier() bool {
	role, ok := s.CurrentRole()
	return ok && role.Tier() >= models.TierModerator
}

// IsUser reports whether the signed-in identity is a plain user.
func (s *Store) IsUser() bool {
	role, ok := s.CurrentRole()
	return ok && role == models.RoleUser
}

// Token implements gateway.CredentialSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentRole implements gateway.CredentialSource.
func (s *Store) CurrentRole() (models.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return "", false
	}
	return s.identity.Role, true
}

// TokenExpiresAt inspects the bearer token's exp claim without verifying the
// signature. ok is false when signed out or the token carries no expiry.
func (s *Store) TokenExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
