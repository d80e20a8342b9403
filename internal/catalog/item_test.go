package catalog

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusSwapped, false},
		{StatusApproved, StatusSwapped, true},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false}, // must go through an edit
		{StatusRejected, StatusSwapped, false},
		{StatusSwapped, StatusApproved, false},
		// Edits always force re-review, from any state.
		{StatusApproved, StatusPending, true},
		{StatusRejected, StatusPending, true},
		{StatusSwapped, StatusPending, true},
		{StatusPending, StatusPending, true},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValidateRejectReason(t *testing.T) {
	if err := ValidateRejectReason(""); !errors.Is(err, ErrReasonTooShort) {
		t.Errorf("empty reason: expected ErrReasonTooShort, got %v", err)
	}
	if err := ValidateRejectReason("no"); !errors.Is(err, ErrReasonTooShort) {
		t.Errorf("two chars: expected ErrReasonTooShort, got %v", err)
	}
	if err := ValidateRejectReason("bad photos"); err != nil {
		t.Errorf("valid reason: unexpected error %v", err)
	}
	// Rune count, not byte count.
	if err := ValidateRejectReason("äöü"); err != nil {
		t.Errorf("3-rune reason: unexpected error %v", err)
	}
}

func TestItemValidate(t *testing.T) {
	valid := Item{
		OwnerID:        uuid.New(),
		Title:          "Infinix phone",
		Category:       CategoryPhone,
		EstimatedValue: 200,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid item: unexpected error %v", err)
	}

	noTitle := valid
	noTitle.Title = ""
	if err := noTitle.Validate(); err == nil {
		t.Error("expected error for missing title")
	}

	badCategory := valid
	badCategory.Category = "vehicles"
	if err := badCategory.Validate(); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}

	negative := valid
	negative.CashBalance = -5
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative cash balance")
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		if !c.Valid() {
			t.Errorf("category %q should be valid", c)
		}
	}
	if Category("vehicles").Valid() {
		t.Error("unknown category should not be valid")
	}
	if Category("").Valid() {
		t.Error("empty category should not be valid")
	}
}
