package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/swaphub/marketplace/internal/catalog"
	"github.com/swaphub/marketplace/internal/messaging"
	"github.com/swaphub/marketplace/internal/metrics"
)

// handleReviewQueue lists items awaiting review, oldest submissions mixed in
// with the rest (newest first, matching the other list endpoints).
func (a *API) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	items, err := a.catalog.List(r.Context(), catalog.Filter{
		Status: catalog.StatusPending,
		Limit:  200,
	})
	if err != nil {
		log.Printf("[api] review queue: %v", err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	counts, err := a.catalog.CountByStatus(r.Context())
	if err != nil {
		log.Printf("[api] status counts: %v", err)
	} else {
		for status, n := range counts {
			metrics.ItemsByStatus.WithLabelValues(string(status)).Set(float64(n))
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// handleApprove moves a pending item to approved and awards the owner the
// listing bonus. The status flip is conditional on the item still being
// pending, so two concurrent approvals award points exactly once.
func (a *API) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	flipped, it, err := a.catalog.Approve(r.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "item not found")
		return
	case err != nil:
		log.Printf("[api] approve item %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	// A repeated approve is idempotent; approving an item in any other
	// non-pending state is a conflict.
	if !flipped && it.Status != catalog.StatusApproved {
		respondError(w, http.StatusConflict, "invalid_transition", "item is not pending review")
		return
	}

	if flipped {
		if err := a.points.Award(r.Context(), it.OwnerID, a.approvalPoints, "item_approved", it.ID); err != nil {
			// The approval stands; the award can be replayed from the logs.
			log.Printf("[api] award points for item %s: %v", it.ID, err)
		} else {
			metrics.PointsAwarded.Add(float64(a.approvalPoints))
		}

		a.publishItemEvent(a.nats.PublishItemApproved, messaging.ItemEvent{
			ItemID:   it.ID.String(),
			OwnerID:  it.OwnerID.String(),
			Title:    it.Title,
			Category: string(it.Category),
			Status:   string(it.Status),
		})
	}

	respondJSON(w, http.StatusOK, it)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// handleReject moves a pending item to rejected with a reason the owner will
// see. The reason is mandatory.
func (a *API) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req rejectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := catalog.ValidateRejectReason(req.Reason); err != nil {
		respondError(w, http.StatusBadRequest, "reason_too_short", "a rejection reason is required")
		return
	}

	flipped, it, err := a.catalog.Reject(r.Context(), id, req.Reason)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "item not found")
		return
	case errors.Is(err, catalog.ErrReasonTooShort):
		respondError(w, http.StatusBadRequest, "reason_too_short", "a rejection reason is required")
		return
	case err != nil:
		log.Printf("[api] reject item %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	if !flipped && it.Status != catalog.StatusRejected {
		respondError(w, http.StatusConflict, "invalid_transition", "item is not pending review")
		return
	}

	if flipped {
		a.publishItemEvent(a.nats.PublishItemRejected, messaging.ItemEvent{
			ItemID:   it.ID.String(),
			OwnerID:  it.OwnerID.String(),
			Title:    it.Title,
			Category: string(it.Category),
			Status:   string(it.Status),
			Reason:   it.ReviewReason,
		})
	}

	respondJSON(w, http.StatusOK, it)
}
