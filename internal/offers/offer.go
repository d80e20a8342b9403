// Package offers provides the swap offer model and its PostgreSQL-backed
// store. An offer links one user's item to another user's item; accepting it
// marks both items swapped in the same transaction.
package offers

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an offer. Offers are terminal once
// resolved: there is no path out of accepted or rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

var (
	// ErrNotFound is returned when an offer does not exist.
	ErrNotFound = errors.New("offers: offer not found")

	// ErrSelfOffer is returned when a user offers against their own item.
	ErrSelfOffer = errors.New("offers: cannot offer on your own item")

	// ErrAlreadyResolved is returned when accepting or rejecting an offer
	// that is no longer pending.
	ErrAlreadyResolved = errors.New("offers: offer already resolved")

	// ErrItemUnavailable is returned when either item is not in the
	// approved state at resolution time.
	ErrItemUnavailable = errors.New("offers: item no longer available")

	// ErrNotTarget is returned when someone other than the target item's
	// owner tries to resolve an offer.
	ErrNotTarget = errors.New("offers: only the target owner may resolve")
)

// Offer is a proposal to swap OfferedItem for TargetItem.
type Offer struct {
	ID            uuid.UUID  `json:"id"`
	OfferedItemID uuid.UUID  `json:"offered_item_id"`
	TargetItemID  uuid.UUID  `json:"target_item_id"`
	OffererID     uuid.UUID  `json:"offerer_id"`
	TargetOwnerID uuid.UUID  `json:"target_owner_id"`
	Status        Status     `json:"status"`
	Message       string     `json:"message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}
