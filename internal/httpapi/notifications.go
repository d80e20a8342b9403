package httpapi

import (
	"log"
	"net/http"
	"strconv"
)

// handleNotifications returns the caller's inbox, newest first.
func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := identityFrom(r).UserID

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := a.inbox.List(r.Context(), userID, limit)
	if err != nil {
		log.Printf("[api] list notifications %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"notifications": list})
}

// handleClearNotifications empties the caller's inbox.
func (a *API) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	userID := identityFrom(r).UserID

	if err := a.inbox.Clear(r.Context(), userID); err != nil {
		log.Printf("[api] clear notifications %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
