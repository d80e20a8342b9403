package notify

import (
	"context"
	"fmt"
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

func TestPushAndList(t *testing.T) {
	store, ctx := setupTestStore(t)
	user := uuid.New()

	if err := store.Push(ctx, user, Notification{Kind: KindItemApproved, Text: "first"}); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if err := store.Push(ctx, user, Notification{Kind: KindOfferReceived, Text: "second"}); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	got, err := store.List(ctx, user, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	// Newest first.
	if got[0].Text != "second" || got[1].Text != "first" {
		t.Errorf("expected newest-first order, got %q then %q", got[0].Text, got[1].Text)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped on push")
	}
}

func TestList_EmptyInbox(t *testing.T) {
	store, ctx := setupTestStore(t)

	got, err := store.List(ctx, uuid.New(), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty inbox, got %d entries", len(got))
	}
}

func TestPush_TrimsToCap(t *testing.T) {
	store, ctx := setupTestStore(t)
	user := uuid.New()

	for i := 0; i < InboxCap+20; i++ {
		n := Notification{Kind: KindMatchFound, Text: fmt.Sprintf("n%d", i)}
		if err := store.Push(ctx, user, n); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}

	got, err := store.List(ctx, user, InboxCap*2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != InboxCap {
		t.Errorf("expected inbox capped at %d, got %d", InboxCap, len(got))
	}
	// The newest entry survives the trim.
	if got[0].Text != fmt.Sprintf("n%d", InboxCap+19) {
		t.Errorf("expected newest entry first, got %q", got[0].Text)
	}
}

func TestClear(t *testing.T) {
	store, ctx := setupTestStore(t)
	user := uuid.New()

	if err := store.Push(ctx, user, Notification{Kind: KindItemApproved, Text: "x"}); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if err := store.Clear(ctx, user); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	got, err := store.List(ctx, user, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected cleared inbox, got %d entries", len(got))
	}
}
