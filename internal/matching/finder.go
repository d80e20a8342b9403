package matching

import (
	"math"

	"github.com/swaphub/marketplace/internal/catalog"
)

// BandTolerance is the fractional width of the value tolerance band. A ±10%
// band lets near-fair trades surface without requiring exact value equality,
// which would make matches vanishingly rare for user-entered estimates.
const BandTolerance = 0.10

// Band returns the inclusive [min, max] value window around a total. The
// bounds are floored/ceiled so the band is always at least as wide as the
// raw percentages. A zero total collapses the band to [0, 0]: a zero-value
// item matches only other zero-value items, which is accepted behavior.
func Band(total float64) (min, max float64) {
	return math.Floor(total * (1 - BandTolerance)),
		math.Ceil(total * (1 + BandTolerance))
}

// FindMatches filters the candidate pool down to items whose computed value
// falls inside the tolerance band around the source item's value.
//
// The pool is expected to already be restricted to approved items in the
// source's category excluding the source owner (the catalog's candidate
// query), but the source item and same-owner entries are skipped here again
// so a stale or mis-filtered pool can never surface a self-match.
//
// An empty pool or an empty result is not an error: it means "no matches".
func FindMatches(source catalog.Item, pool []catalog.Item) []catalog.Item {
	min, max := Band(Value(source))

	matches := make([]catalog.Item, 0, len(pool))
	for _, c := range pool {
		if c.ID == source.ID || c.OwnerID == source.OwnerID {
			continue
		}
		if v := Value(c); v >= min && v <= max {
			matches = append(matches, c)
		}
	}
	return matches
}
