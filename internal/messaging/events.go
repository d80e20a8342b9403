package messaging

// ItemEvent is the payload for item.approved, item.rejected and item.updated
// subjects.
type ItemEvent struct {
	ItemID   string `json:"item_id"`
	OwnerID  string `json:"owner_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"` // rejection reason, if any
}

// OfferEvent is the payload for offer.created and offer.resolved subjects.
type OfferEvent struct {
	OfferID       string `json:"offer_id"`
	OfferedItemID string `json:"offered_item_id"`
	TargetItemID  string `json:"target_item_id"`
	OffererID     string `json:"offerer_id"`
	TargetOwnerID string `json:"target_owner_id"`
	Status        string `json:"status"`
}

// MatchFoundEvent is published on match.found.<user_id> when the matcher
// discovers that a new counterpart exists for one of the user's listings.
type MatchFoundEvent struct {
	ItemID        string  `json:"item_id"`         // the user's own listing
	MatchedItemID string  `json:"matched_item_id"` // the newly available counterpart
	MatchedTitle  string  `json:"matched_title"`
	Delta         float64 `json:"delta"`
	Verdict       string  `json:"verdict"`
}

// FeedEvent is the payload pushed to feed.user.<user_id> subjects and relayed
// verbatim to connected WebSocket clients.
type FeedEvent struct {
	Kind    string `json:"kind"` // item_approved, item_rejected, offer_received, offer_resolved, match_found, notification
	ItemID  string `json:"item_id,omitempty"`
	OfferID string `json:"offer_id,omitempty"`
	Text    string `json:"text,omitempty"`
	Ts      int64  `json:"ts"`
}
