package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/swaphub/marketplace/internal/catalog"
	"github.com/swaphub/marketplace/internal/matching"
	"github.com/swaphub/marketplace/internal/metrics"
)

// matchResult is one candidate in a match response, carrying the candidate
// item, the fairness assessment relative to the source item and, when fuzzy
// ranking is requested, the desired-swap similarity score.
type matchResult struct {
	Item            catalog.Item      `json:"item"`
	Fairness        matching.Fairness `json:"fairness"`
	FairnessMessage string            `json:"fairness_message"`
	SimilarityScore *float64          `json:"similarity_score,omitempty"`
}

// handleMatches returns swap candidates for one of the caller's items:
// same-category approved items within the value band, same-state first. With
// fuzzy=1 the in-band candidates are reordered by desired-swap similarity.
//
// An empty candidate pool is a normal outcome, not an error. If the pool
// cannot be fetched at all, the response degrades to an empty match list with
// a warning instead of failing the request.
func (a *API) handleMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	source, err := a.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		log.Printf("[api] get item %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if source.OwnerID != identityFrom(r).UserID {
		respondError(w, http.StatusNotFound, "not_found", "item not found")
		return
	}

	started := time.Now()

	pool, err := a.catalog.Candidates(r.Context(), source.Category, source.OwnerID)
	if err != nil {
		log.Printf("[api] candidate pool for item %s: %v", id, err)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"matches": []matchResult{},
			"warning": "match candidates are temporarily unavailable",
		})
		return
	}

	matches := matching.FindMatches(*source, pool)

	var results []matchResult
	if r.URL.Query().Get("fuzzy") == "1" {
		scored := matching.RankBySimilarity(matches, *source)
		results = make([]matchResult, 0, len(scored))
		for _, sc := range scored {
			score := sc.Score
			f := matching.Resolve(*source, sc.Item)
			results = append(results, matchResult{
				Item:            sc.Item,
				Fairness:        f,
				FairnessMessage: f.Message(),
				SimilarityScore: &score,
			})
		}
	} else {
		ranked := matching.Rank(matches, *source)
		results = make([]matchResult, 0, len(ranked))
		for _, m := range ranked {
			f := matching.Resolve(*source, m)
			results = append(results, matchResult{
				Item:            m,
				Fairness:        f,
				FairnessMessage: f.Message(),
			})
		}
	}

	metrics.MatchesComputed.Inc()
	metrics.MatchDuration.Observe(time.Since(started).Seconds())

	respondJSON(w, http.StatusOK, map[string]interface{}{"matches": results})
}
