// Package notify persists per-user notification inboxes in Redis and fans
// marketplace events out to them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// InboxPrefix is the Redis key prefix for per-user notification lists.
	InboxPrefix = "inbox:"

	// InboxCap bounds how many notifications are retained per user.
	InboxCap = 100

	// InboxTTL expires inactive inboxes.
	InboxTTL = 7 * 24 * time.Hour
)

// Notification kinds.
const (
	KindItemApproved  = "item_approved"
	KindItemRejected  = "item_rejected"
	KindOfferReceived = "offer_received"
	KindOfferAccepted = "offer_accepted"
	KindOfferRejected = "offer_rejected"
	KindMatchFound    = "match_found"
)

// Notification is a single inbox entry.
type Notification struct {
	Kind      string    `json:"kind"`
	ItemID    string    `json:"item_id,omitempty"`
	OfferID   string    `json:"offer_id,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages notification inboxes in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a notification store connected to Redis.
func NewStore(redisAddr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("notify: redis connection failed: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing Redis client.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func inboxKey(userID uuid.UUID) string {
	return InboxPrefix + userID.String()
}

// Push prepends a notification to the user's inbox, trimming it to the cap.
func (s *Store) Push(ctx context.Context, userID uuid.UUID, n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}

	key := inboxKey(userID)
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, InboxCap-1)
	pipe.Expire(ctx, key, InboxTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notify: push: %w", err)
	}
	return nil
}

// List returns the newest notifications for a user, up to limit.
func (s *Store) List(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 || limit > InboxCap {
		limit = InboxCap
	}

	raw, err := s.client.LRange(ctx, inboxKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("notify: list: %w", err)
	}

	out := make([]Notification, 0, len(raw))
	for _, entry := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(entry), &n); err != nil {
			continue // skip corrupt entries rather than failing the read
		}
		out = append(out, n)
	}
	return out, nil
}

// Clear empties a user's inbox.
func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, inboxKey(userID)).Err(); err != nil {
		return fmt.Errorf("notify: clear: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
