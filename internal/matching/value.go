// Package matching implements the swap matching engine: item valuation, the
// tolerance-band candidate filter, locality ranking, fairness verdicts, and
// optional fuzzy desired-swap scoring. Every function here is a pure
// computation over already-fetched items; all I/O (candidate pool queries,
// notifications) lives in the orchestration around this package.
package matching

import (
	"errors"
	"math"

	"github.com/swaphub/marketplace/internal/catalog"
)

// ErrInvalidValue is returned when a numeric value field cannot be used.
// Callers are expected to validate user input before items reach the engine;
// this sentinel exists so that validation failures are reported distinctly
// from "no matches".
var ErrInvalidValue = errors.New("matching: invalid value")

// Value computes the single comparable value of an item: the declared
// estimate plus any declared cash top-up. Zero-valued fields contribute
// nothing; the result is never negative for validated items.
func Value(it catalog.Item) float64 {
	return it.EstimatedValue + it.CashBalance
}

// ValidateValue checks that a user-entered value pair is usable by the
// engine. Malformed numbers (negative, NaN, infinite) must be rejected here,
// at the boundary, so Value itself can stay a plain sum.
func ValidateValue(estimated, cash float64) error {
	for _, v := range []float64{estimated, cash} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidValue
		}
	}
	return nil
}
