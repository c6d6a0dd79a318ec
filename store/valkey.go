package store

import (
	"context"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

// ValkeyRevocationStore stores token revocations in Valkey (Redis-compatible)
// so revocation survives restarts and is shared between instances.
type ValkeyRevocationStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyRevocationStore creates a Valkey-backed revocation store.
// addr example: "127.0.0.1:6379"; prefix helps namespace keys.
func NewValkeyRevocationStore(addr, prefix string) (*ValkeyRevocationStore, error) {
	cli, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "opsdesk:"
	}
	return &ValkeyRevocationStore{client: cli, prefix: prefix}, nil
}

func (s *ValkeyRevocationStore) key(token string) string {
	return s.prefix + "revoked:" + tokenHash(token)
}

// Revoke stores the token hash with a TTL matching the token's remaining
// lifetime; already-expired tokens are a no-op.
func (s *ValkeyRevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Do(ctx, s.client.B().Set().Key(s.key(token)).Value("1").Ex(ttl).Build()).Error()
}

// IsRevoked checks for the token hash.
func (s *ValkeyRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(s.key(token)).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the underlying connection.
func (s *ValkeyRevocationStore) Close() { s.client.Close() }
