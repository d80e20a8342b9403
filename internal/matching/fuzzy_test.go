package matching

import (
	"testing"

	"github.com/google/uuid"

	"github.com/swaphub/marketplace/internal/catalog"
)

func TestSimilarity_IdenticalAfterNormalization(t *testing.T) {
	if got := Similarity("iPhone  12 Pro", "iphone 12 pro"); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestSimilarity_DisjointStrings(t *testing.T) {
	got := Similarity("abc", "xyz")
	if got != 0 {
		t.Errorf("expected 0 for fully disjoint strings, got %v", got)
	}
}

func TestSimilarity_EmptyStrings(t *testing.T) {
	if got := Similarity("", ""); got != 0 {
		t.Errorf("expected 0 for two empty strings, got %v", got)
	}
	if got := Similarity("phone", ""); got != 0 {
		t.Errorf("expected 0 against an empty string, got %v", got)
	}
}

func TestSimilarity_Range(t *testing.T) {
	pairs := [][2]string{
		{"gaming laptop", "laptop for gaming"},
		{"wooden chair", "office chair"},
		{"a", "abcdefgh"},
	}
	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Similarity(%q, %q) = %v, out of [0, 1]", p[0], p[1], got)
		}
	}
}

func TestRankBySimilarity_OrdersByScoreDescending(t *testing.T) {
	source := newItem(uuid.New(), 100, 0)
	source.DesiredSwap = "android phone"

	close := newItem(uuid.New(), 100, 0)
	close.Title = "android phone"
	far := newItem(uuid.New(), 100, 0)
	far.Title = "leather sofa"
	far.Description = "barely used"

	scored := RankBySimilarity([]catalog.Item{far, close}, source)

	if len(scored) != 2 {
		t.Fatalf("expected 2 scored candidates, got %d", len(scored))
	}
	if scored[0].Item.ID != close.ID {
		t.Errorf("expected the closer title first, got %q", scored[0].Item.Title)
	}
	if scored[0].Score < scored[1].Score {
		t.Errorf("scores not descending: %v then %v", scored[0].Score, scored[1].Score)
	}
}

func TestRankBySimilarity_NoThresholdEveryCandidateReturned(t *testing.T) {
	source := newItem(uuid.New(), 100, 0)
	source.DesiredSwap = "something very specific"

	pool := []catalog.Item{
		newItem(uuid.New(), 100, 0),
		newItem(uuid.New(), 100, 0),
		newItem(uuid.New(), 100, 0),
	}
	if got := RankBySimilarity(pool, source); len(got) != len(pool) {
		t.Errorf("expected all %d candidates back, got %d", len(pool), len(got))
	}
}
