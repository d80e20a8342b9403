// Package catalog provides the item listing model and its PostgreSQL-backed
// store. It owns the review lifecycle (pending -> approved/rejected ->
// swapped) and the candidate-pool queries consumed by the matching engine.
package catalog

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Category classifies a listing. The set is fixed; anything that does not
// fit goes under CategoryOthers.
type Category string

const (
	CategoryFood        Category = "food"
	CategoryPhone       Category = "phone"
	CategoryElectronics Category = "electronics"
	CategoryFurniture   Category = "furniture"
	CategoryWears       Category = "wears"
	CategoryServices    Category = "services"
	CategoryFarm        Category = "farm"
	CategoryOthers      Category = "others"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryFood, CategoryPhone, CategoryElectronics, CategoryFurniture,
	CategoryWears, CategoryServices, CategoryFarm, CategoryOthers,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status is the review lifecycle state of an item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSwapped  Status = "swapped"
)

// MinRejectReasonChars is the minimum length of a rejection reason shown to
// the item owner.
const MinRejectReasonChars = 3

var (
	// ErrNotFound is returned when an item does not exist or is not visible
	// to the caller.
	ErrNotFound = errors.New("catalog: item not found")

	// ErrInvalidCategory is returned for a category outside the fixed set.
	ErrInvalidCategory = errors.New("catalog: invalid category")

	// ErrInvalidTransition is returned for a status change the review state
	// machine does not permit.
	ErrInvalidTransition = errors.New("catalog: invalid status transition")

	// ErrReasonTooShort is returned when a rejection reason is missing or
	// shorter than MinRejectReasonChars.
	ErrReasonTooShort = errors.New("catalog: rejection reason too short")

	// ErrNotOwner is returned when a user mutates an item they do not own.
	ErrNotOwner = errors.New("catalog: not the item owner")
)

// Item is a listing a user offers for swap. EstimatedValue and CashBalance
// together form the item's comparable value; State and LGA are used only for
// match ranking, never for eligibility.
type Item struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       Category  `json:"category"`
	EstimatedValue float64   `json:"estimated_value"`
	CashBalance    float64   `json:"cash_balance"`
	State          string    `json:"state"`
	LGA            string    `json:"lga"`
	DesiredSwap    string    `json:"desired_swap"`
	ImageURL       string    `json:"image_url,omitempty"`
	Status         Status    `json:"status"`
	ReviewReason   string    `json:"review_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CanTransition reports whether the review state machine permits moving an
// item from one status to another:
//
//	pending  -> approved | rejected  (administrator review)
//	approved -> swapped              (accepted offer)
//	any      -> pending              (owner edit, forces re-review)
//
// Rejected items re-enter the flow only through an edit; there is no direct
// rejected -> approved path.
func CanTransition(from, to Status) bool {
	if to == StatusPending {
		return true // edits always send the item back to review
	}
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusSwapped
	default:
		return false
	}
}

// ValidateRejectReason checks that a rejection reason is present and long
// enough to be meaningful to the owner.
func ValidateRejectReason(reason string) error {
	if utf8.RuneCountInString(reason) < MinRejectReasonChars {
		return ErrReasonTooShort
	}
	return nil
}

// Validate checks the user-supplied fields of an item before it is written.
func (it *Item) Validate() error {
	if it.Title == "" {
		return fmt.Errorf("catalog: title is required")
	}
	if !it.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, it.Category)
	}
	if it.EstimatedValue < 0 || it.CashBalance < 0 {
		return fmt.Errorf("catalog: value fields must be non-negative")
	}
	return nil
}
