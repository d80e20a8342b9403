// Package session caches verified token identities in Redis so the API
// server does not re-verify a JWT and re-load the user row on every request.
// A cache miss falls back to full verification; a Redis outage degrades to
// the same path, never to a denial.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionPrefix is the Redis key prefix for cached token identities.
	SessionPrefix = "session:"

	// SessionTTL bounds how long a cached identity is trusted before the
	// token is re-verified. Kept short so admin revocation takes effect
	// within minutes.
	SessionTTL = 15 * time.Minute
)

// Session is a cached, verified token identity.
type Session struct {
	UserID      string `redis:"user_id"`
	DisplayName string `redis:"display_name"`
	Admin       bool   `redis:"admin"`
	CachedAt    int64  `redis:"cached_at"` // unix timestamp
}

// Store caches verified sessions in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a session store connected to Redis.
func NewStore(redisAddr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis connection failed: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing Redis client. Used when the caller
// shares one client across stores.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// tokenKey hashes the raw bearer token so the credential itself is never
// stored in Redis.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return SessionPrefix + hex.EncodeToString(sum[:])
}

// Cache stores a verified identity keyed by the token's hash.
func (s *Store) Cache(ctx context.Context, token string, userID uuid.UUID, displayName string, admin bool) error {
	key := tokenKey(token)
	fields := map[string]interface{}{
		"user_id":      userID.String(),
		"display_name": displayName,
		"admin":        admin,
		"cached_at":    time.Now().Unix(),
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: cache: %w", err)
	}
	return nil
}

// Lookup returns the cached identity for a token, or nil on a miss.
func (s *Store) Lookup(ctx context.Context, token string) (*Session, error) {
	var sess Session
	if err := s.client.HGetAll(ctx, tokenKey(token)).Scan(&sess); err != nil {
		return nil, fmt.Errorf("session: lookup: %w", err)
	}
	if sess.UserID == "" {
		return nil, nil // miss
	}
	return &sess, nil
}

// Invalidate drops the cached identity for a token.
func (s *Store) Invalidate(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("session: invalidate: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
