package httpapi

import (
	"log"
	"net/http"
	"strconv"
)

// handlePoints returns the caller's points balance and recent ledger entries.
// The balance is computed from the ledger, which is the authoritative record.
func (a *API) handlePoints(w http.ResponseWriter, r *http.Request) {
	userID := identityFrom(r).UserID

	balance, err := a.points.Balance(r.Context(), userID)
	if err != nil {
		log.Printf("[api] points balance %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.points.Entries(r.Context(), userID, limit)
	if err != nil {
		log.Printf("[api] points entries %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"balance": balance,
		"entries": entries,
	})
}
