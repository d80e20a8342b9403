package matching

import "github.com/swaphub/marketplace/internal/catalog"

// Rank orders candidates by locality affinity: items in the same state as the
// source sort before the rest. Within each group the input order (the store's
// recency order) is preserved, so this is a stable partition rather than a
// full ordering. No secondary numeric scoring is applied; user-entered value
// estimates are too noisy to rank on.
func Rank(candidates []catalog.Item, source catalog.Item) []catalog.Item {
	ranked := make([]catalog.Item, 0, len(candidates))
	var away []catalog.Item

	for _, c := range candidates {
		if c.State != "" && c.State == source.State {
			ranked = append(ranked, c)
		} else {
			away = append(away, c)
		}
	}
	return append(ranked, away...)
}
