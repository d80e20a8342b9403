package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestLimiter creates a Limiter connected to a test Redis instance.
// Requires Redis running on localhost:6379. Tests are skipped if unavailable.
func setupTestLimiter(t *testing.T) (*Limiter, context.Context) {
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

	return NewLimiter(rdb), ctx
}

func TestAllow_WithinLimit(t *testing.T) {
	limiter, ctx := setupTestLimiter(t)
	rule := Rule{Key: "rl:test:", Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "user-1", rule)
		if err != nil {
			t.Fatalf("allow %d failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
}

func TestAllow_OverLimit(t *testing.T) {
	limiter, ctx := setupTestLimiter(t)
	rule := Rule{Key: "rl:test:", Limit: 2, Window: time.Minute}

	limiter.Allow(ctx, "user-1", rule)
	limiter.Allow(ctx, "user-1", rule)

	ok, err := limiter.Allow(ctx, "user-1", rule)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if ok {
		t.Error("third request should be rate limited")
	}
}

func TestAllow_IndependentIdentifiers(t *testing.T) {
	limiter, ctx := setupTestLimiter(t)
	rule := Rule{Key: "rl:test:", Limit: 1, Window: time.Minute}

	limiter.Allow(ctx, "user-1", rule)

	ok, err := limiter.Allow(ctx, "user-2", rule)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if !ok {
		t.Error("user-2 should not share user-1's counter")
	}
}

func TestRemaining(t *testing.T) {
	limiter, ctx := setupTestLimiter(t)
	rule := Rule{Key: "rl:test:", Limit: 5, Window: time.Minute}

	if got, _ := limiter.Remaining(ctx, "user-1", rule); got != 5 {
		t.Errorf("expected full limit before any request, got %d", got)
	}

	limiter.Allow(ctx, "user-1", rule)
	limiter.Allow(ctx, "user-1", rule)

	if got, _ := limiter.Remaining(ctx, "user-1", rule); got != 3 {
		t.Errorf("expected 3 remaining, got %d", got)
	}
}

func TestAllow_WindowExpires(t *testing.T) {
	limiter, ctx := setupTestLimiter(t)
	rule := Rule{Key: "rl:test:", Limit: 1, Window: time.Second}

	limiter.Allow(ctx, "user-1", rule)
	if ok, _ := limiter.Allow(ctx, "user-1", rule); ok {
		t.Fatal("second request inside the window should be limited")
	}

	time.Sleep(1100 * time.Millisecond)

	ok, err := limiter.Allow(ctx, "user-1", rule)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if !ok {
		t.Error("request after window expiry should be allowed")
	}
}
