package matching

import (
	"fmt"
	"math"

	"github.com/swaphub/marketplace/internal/catalog"
)

// Verdict classifies a pairing by who would need to add cash to balance it.
type Verdict string

const (
	// VerdictFair means both items carry the same computed value.
	VerdictFair Verdict = "fair"

	// VerdictCandidateHigher means the candidate is worth more; the
	// requester may need to add the delta in cash.
	VerdictCandidateHigher Verdict = "candidate_higher"

	// VerdictSourceHigher means the source item is worth more; the other
	// party may need to add the delta in cash.
	VerdictSourceHigher Verdict = "source_higher"
)

// Fairness is the signed value difference between two items and its verdict.
// It is presentational guidance only: no money moves, users negotiate any
// top-up out of band.
type Fairness struct {
	Delta   float64 `json:"delta"`   // Value(candidate) - Value(source)
	Verdict Verdict `json:"verdict"`
}

// Resolve computes the fairness classification for a source/candidate pair.
// It is antisymmetric in its delta: Resolve(a, b).Delta == -Resolve(b, a).Delta.
func Resolve(source, candidate catalog.Item) Fairness {
	delta := Value(candidate) - Value(source)

	f := Fairness{Delta: delta}
	switch {
	case delta > 0:
		f.Verdict = VerdictCandidateHigher
	case delta < 0:
		f.Verdict = VerdictSourceHigher
	default:
		f.Verdict = VerdictFair
	}
	return f
}

// Message renders the guidance text shown next to a match card.
func (f Fairness) Message() string {
	switch f.Verdict {
	case VerdictCandidateHigher:
		return fmt.Sprintf("their item is valued %.0f higher; you may need to add %.0f in cash", f.Delta, f.Delta)
	case VerdictSourceHigher:
		return fmt.Sprintf("your item is valued %.0f higher; they may need to add %.0f in cash", math.Abs(f.Delta), math.Abs(f.Delta))
	default:
		return "this looks like an even swap"
	}
}
