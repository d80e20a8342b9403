package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swaphub/marketplace/internal/catalog"
	"github.com/swaphub/marketplace/internal/matching"
	"github.com/swaphub/marketplace/internal/messaging"
)

// itemRequest is the user-editable subset of an item.
type itemRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	EstimatedValue float64 `json:"estimated_value"`
	CashBalance    float64 `json:"cash_balance"`
	State          string  `json:"state"`
	LGA            string  `json:"lga"`
	DesiredSwap    string  `json:"desired_swap"`
	ImageURL       string  `json:"image_url"`
}

func (req *itemRequest) apply(it *catalog.Item) {
	it.Title = req.Title
	it.Description = req.Description
	it.Category = catalog.Category(req.Category)
	it.EstimatedValue = req.EstimatedValue
	it.CashBalance = req.CashBalance
	it.State = req.State
	it.LGA = req.LGA
	it.DesiredSwap = req.DesiredSwap
	it.ImageURL = req.ImageURL
}

// validate runs the domain checks that map to a 400 response.
func (req *itemRequest) validate() error {
	probe := catalog.Item{}
	req.apply(&probe)
	if err := probe.Validate(); err != nil {
		return err
	}
	return matching.ValidateValue(req.EstimatedValue, req.CashBalance)
}

// handleCreateItem lists a new item. It always enters the review queue as
// pending, regardless of what the client sends.
func (a *API) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}

	it := &catalog.Item{OwnerID: identityFrom(r).UserID}
	req.apply(it)

	if err := a.catalog.Create(r.Context(), it); err != nil {
		log.Printf("[api] create item: %v", err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	respondJSON(w, http.StatusCreated, it)
}

// handleGetItem returns a single item. Non-approved items are visible only to
// their owner and admins.
func (a *API) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	it, err := a.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		log.Printf("[api] get item %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	caller := identityFrom(r)
	if it.Status != catalog.StatusApproved && it.OwnerID != caller.UserID && !caller.Admin {
		// Hidden listings look identical to missing ones.
		respondError(w, http.StatusNotFound, "not_found", "item not found")
		return
	}

	respondJSON(w, http.StatusOK, it)
}

// handleListItems lists approved items, optionally filtered by category and
// state. With mine=1 it lists the caller's own items in every status.
func (a *API) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	minValue, _ := strconv.ParseFloat(q.Get("min_value"), 64)
	maxValue, _ := strconv.ParseFloat(q.Get("max_value"), 64)

	f := catalog.Filter{
		Status:   catalog.StatusApproved,
		Category: catalog.Category(q.Get("category")),
		State:    q.Get("state"),
		MinValue: minValue,
		MaxValue: maxValue,
		Limit:    100,
	}
	if q.Get("mine") == "1" {
		f.Status = catalog.Status(q.Get("status")) // empty means all statuses
		f.OwnerID = identityFrom(r).UserID
	}
	if f.Category != "" && !f.Category.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_category", "unknown category")
		return
	}

	items, err := a.catalog.List(r.Context(), f)
	if err != nil {
		log.Printf("[api] list items: %v", err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// handleUpdateItem applies an owner edit. Edits always send the item back to
// the pending review state.
func (a *API) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}

	it := &catalog.Item{ID: id}
	req.apply(it)

	err := a.catalog.Update(r.Context(), identityFrom(r).UserID, it)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "item not found")
		return
	case errors.Is(err, catalog.ErrNotOwner):
		respondError(w, http.StatusForbidden, "not_owner", "you do not own this item")
		return
	default:
		log.Printf("[api] update item %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	// The edit may have pulled an approved item out of the matcher's index.
	a.publishItemEvent(a.nats.PublishItemUpdated, messaging.ItemEvent{
		ItemID:   id.String(),
		OwnerID:  identityFrom(r).UserID.String(),
		Title:    it.Title,
		Category: string(it.Category),
		Status:   string(catalog.StatusPending),
	})

	updated, err := a.catalog.Get(r.Context(), id)
	if err != nil {
		log.Printf("[api] reload item %s: %v", id, err)
		respondJSON(w, http.StatusOK, it)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// handleDeleteItem removes an item owned by the caller.
func (a *API) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	// Category is needed so the matcher can evict the index entry.
	existing, err := a.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		log.Printf("[api] get item %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	err = a.catalog.Delete(r.Context(), id, identityFrom(r).UserID)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "item not found")
		return
	case errors.Is(err, catalog.ErrNotOwner):
		respondError(w, http.StatusForbidden, "not_owner", "you do not own this item")
		return
	default:
		log.Printf("[api] delete item %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	a.publishItemEvent(a.nats.PublishItemUpdated, messaging.ItemEvent{
		ItemID:   id.String(),
		OwnerID:  identityFrom(r).UserID.String(),
		Category: string(existing.Category),
		Status:   "deleted",
	})

	respondJSON(w, http.StatusNoContent, nil)
}

// publishItemEvent marshals and publishes an item event, logging failures.
// Publishing is best-effort: the write has already committed.
func (a *API) publishItemEvent(publish func([]byte) error, ev messaging.ItemEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[api] marshal item event: %v", err)
		return
	}
	if err := publish(payload); err != nil {
		log.Printf("[api] publish item event: %v", err)
	}
}

// parseID extracts and validates the {id} URL parameter.
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_id", "malformed id")
		return uuid.Nil, false
	}
	return id, true
}
