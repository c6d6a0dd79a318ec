package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// RevocationStore tracks bearer tokens invalidated before their natural
// expiry (logout, compromised credentials).
type RevocationStore interface {
	// Revoke marks a token unusable until its expiry.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	// IsRevoked reports whether a token has been revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// tokenHash returns a stable hex sha256 for a token string so raw tokens are
// never stored.
func tokenHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// MemoryRevocationStore keeps revocations in process memory. Suitable for a
// single-instance development backend.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time // token hash -> expiry
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.revoked[tokenHash(token)] = expiresAt
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[tokenHash(token)]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(s.revoked, tokenHash(token))
		return false, nil
	}
	return true, nil
}

// purgeLocked drops expired entries; called with the lock held.
func (s *MemoryRevocationStore) purgeLocked() {
	now := time.Now()
	for h, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, h)
		}
	}
}
