package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// setupTestStore creates a Store connected to a test Redis instance.
// Requires Redis running on localhost:6379. Tests are skipped if unavailable.
func setupTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid conflicts
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: Redis not available: %v", err)
	}

	rdb.FlushDB(ctx)

	t.Cleanup(func() {
		rdb.FlushDB(ctx)
		rdb.Close()
	})

	return NewStoreWithClient(rdb), ctx
}

func TestCacheAndLookup(t *testing.T) {
	store, ctx := setupTestStore(t)

	userID := uuid.New()
	token := "token-abc"

	if err := store.Cache(ctx, token, userID, "ada", true); err != nil {
		t.Fatalf("cache failed: %v", err)
	}

	sess, err := store.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if sess == nil {
		t.Fatal("expected cached session, got miss")
	}
	if sess.UserID != userID.String() {
		t.Errorf("expected user %s, got %s", userID, sess.UserID)
	}
	if !sess.Admin {
		t.Error("expected admin flag to survive the round trip")
	}
}

func TestLookup_Miss(t *testing.T) {
	store, ctx := setupTestStore(t)

	sess, err := store.Lookup(ctx, "never-cached")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil for uncached token, got %+v", sess)
	}
}

func TestInvalidate(t *testing.T) {
	store, ctx := setupTestStore(t)

	token := "token-to-drop"
	if err := store.Cache(ctx, token, uuid.New(), "", false); err != nil {
		t.Fatalf("cache failed: %v", err)
	}
	if err := store.Invalidate(ctx, token); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	sess, err := store.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if sess != nil {
		t.Error("expected invalidated token to miss")
	}
}

func TestTokenNotStoredVerbatim(t *testing.T) {
	store, ctx := setupTestStore(t)

	token := "super-secret-token"
	if err := store.Cache(ctx, token, uuid.New(), "", false); err != nil {
		t.Fatalf("cache failed: %v", err)
	}

	// The raw token must not appear as a key.
	if n, err := store.client.Exists(ctx, SessionPrefix+token).Result(); err != nil {
		t.Fatalf("exists failed: %v", err)
	} else if n != 0 {
		t.Error("raw token used as a Redis key")
	}
}
