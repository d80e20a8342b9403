package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/swaphub/marketplace/internal/catalog"
	"github.com/swaphub/marketplace/internal/messaging"
	"github.com/swaphub/marketplace/internal/metrics"
	"github.com/swaphub/marketplace/internal/offers"
)

type createOfferRequest struct {
	OfferedItemID string `json:"offered_item_id"`
	TargetItemID  string `json:"target_item_id"`
	Message       string `json:"message"`
}

// handleCreateOffer proposes a swap: the caller offers one of their approved
// items against someone else's approved item.
func (a *API) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	offeredID, err := uuid.Parse(req.OfferedItemID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_id", "malformed offered_item_id")
		return
	}
	targetID, err := uuid.Parse(req.TargetItemID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_id", "malformed target_item_id")
		return
	}

	offer, err := a.offers.Create(r.Context(), offeredID, targetID, identityFrom(r).UserID, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "item not found")
		return
	case errors.Is(err, catalog.ErrNotOwner):
		respondError(w, http.StatusForbidden, "not_owner", "you can only offer your own items")
		return
	case errors.Is(err, offers.ErrSelfOffer):
		respondError(w, http.StatusBadRequest, "self_offer", "you cannot offer against your own item")
		return
	case errors.Is(err, offers.ErrItemUnavailable):
		respondError(w, http.StatusConflict, "item_unavailable", "one of the items is not available for swap")
		return
	default:
		log.Printf("[api] create offer: %v", err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	metrics.OffersTotal.WithLabelValues(string(offer.Status)).Inc()
	a.publishOfferEvent(a.nats.PublishOfferCreated, offer)

	respondJSON(w, http.StatusCreated, offer)
}

// handleListOffers lists offers the caller made or received, newest first.
func (a *API) handleListOffers(w http.ResponseWriter, r *http.Request) {
	list, err := a.offers.ListForUser(r.Context(), identityFrom(r).UserID)
	if err != nil {
		log.Printf("[api] list offers: %v", err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"offers": list})
}

// handleAcceptOffer accepts a pending offer. Both items flip to swapped and
// any other pending offers touching them are rejected, all in one
// transaction.
func (a *API) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	a.resolveOffer(w, r, a.offers.Accept)
}

// handleRejectOffer declines a pending offer.
func (a *API) handleRejectOffer(w http.ResponseWriter, r *http.Request) {
	a.resolveOffer(w, r, a.offers.Reject)
}

// resolveOffer is the shared accept/reject path: parse the offer ID, run the
// store resolution as the caller, map domain errors to responses and publish
// the outcome.
func (a *API) resolveOffer(w http.ResponseWriter, r *http.Request,
	resolve func(ctx context.Context, offerID, resolverID uuid.UUID) (*offers.Offer, error)) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	offer, err := resolve(r.Context(), id, identityFrom(r).UserID)
	switch {
	case err == nil:
	case errors.Is(err, offers.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "offer not found")
		return
	case errors.Is(err, offers.ErrNotTarget):
		respondError(w, http.StatusForbidden, "not_target", "only the offer's recipient can resolve it")
		return
	case errors.Is(err, offers.ErrAlreadyResolved):
		respondError(w, http.StatusConflict, "already_resolved", "offer has already been resolved")
		return
	case errors.Is(err, offers.ErrItemUnavailable):
		respondError(w, http.StatusConflict, "item_unavailable", "one of the items is no longer available")
		return
	default:
		log.Printf("[api] resolve offer %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	metrics.OffersTotal.WithLabelValues(string(offer.Status)).Inc()
	a.publishOfferEvent(a.nats.PublishOfferResolved, offer)

	if offer.Status == offers.StatusAccepted {
		// Both items left the approved pool; tell the matcher to evict them.
		for _, itemID := range []uuid.UUID{offer.OfferedItemID, offer.TargetItemID} {
			if it, err := a.catalog.Get(r.Context(), itemID); err == nil {
				a.publishItemEvent(a.nats.PublishItemUpdated, messaging.ItemEvent{
					ItemID:   it.ID.String(),
					OwnerID:  it.OwnerID.String(),
					Title:    it.Title,
					Category: string(it.Category),
					Status:   string(it.Status),
				})
			}
		}
	}

	respondJSON(w, http.StatusOK, offer)
}

// publishOfferEvent marshals and publishes an offer event, logging failures.
func (a *API) publishOfferEvent(publish func([]byte) error, offer *offers.Offer) {
	ev := messaging.OfferEvent{
		OfferID:       offer.ID.String(),
		OfferedItemID: offer.OfferedItemID.String(),
		TargetItemID:  offer.TargetItemID.String(),
		OffererID:     offer.OffererID.String(),
		TargetOwnerID: offer.TargetOwnerID.String(),
		Status:        string(offer.Status),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[api] marshal offer event: %v", err)
		return
	}
	if err := publish(payload); err != nil {
		log.Printf("[api] publish offer event: %v", err)
	}
}
