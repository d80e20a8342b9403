package matching

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/swaphub/marketplace/internal/catalog"
)

// ScoredItem pairs a candidate with its desired-swap similarity score.
type ScoredItem struct {
	Item  catalog.Item `json:"item"`
	Score float64      `json:"similarity_score"`
}

// Similarity returns a normalized edit-distance similarity in [0, 1] between
// two free-text strings. 1 means identical after normalization, 0 means no
// character overlap within the longer string's length. Two empty strings
// score 0: an empty desired-swap seed carries no signal.
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" && nb == "" {
		return 0
	}

	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}

	dist := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(dist)/float64(longest)
}

// RankBySimilarity scores each candidate's title and description against the
// source item's desired-swap text and returns the candidates ordered by score
// descending. Ties keep their input order. No minimum threshold is enforced:
// every candidate is returned, scored.
//
// This is an optional refinement layer on top of the band matcher, not a
// replacement for it.
func RankBySimilarity(candidates []catalog.Item, source catalog.Item) []ScoredItem {
	scored := make([]ScoredItem, len(candidates))
	for i, c := range candidates {
		scored[i] = ScoredItem{
			Item:  c,
			Score: Similarity(source.DesiredSwap, c.Title+" "+c.Description),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// normalize lowercases and collapses runs of whitespace so similarity is not
// dominated by formatting differences.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
