package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/swaphub/marketplace/internal/users"
)

type locationRequest struct {
	State string `json:"state"`
	LGA   string `json:"lga"`
}

// handleSetLocation updates the caller's default state and LGA, used to
// prefill new listings. Location never affects match eligibility, only
// ranking.
func (a *API) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.State == "" {
		respondError(w, http.StatusBadRequest, "missing_state", "state is required")
		return
	}

	userID := identityFrom(r).UserID
	err := a.users.SetLocation(r.Context(), userID, req.State, req.LGA)
	switch {
	case err == nil:
	case errors.Is(err, users.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "user not found")
		return
	default:
		log.Printf("[api] set location %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
