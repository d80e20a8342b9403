package matching

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/swaphub/marketplace/internal/catalog"
)

// newItem is a helper that builds a minimal approved item for engine tests.
func newItem(owner uuid.UUID, estimated, cash float64) catalog.Item {
	return catalog.Item{
		ID:             uuid.New(),
		OwnerID:        owner,
		Category:       catalog.CategoryElectronics,
		EstimatedValue: estimated,
		CashBalance:    cash,
		Status:         catalog.StatusApproved,
	}
}

// ---------- Value ----------

func TestValue_SumsEstimateAndCash(t *testing.T) {
	it := newItem(uuid.New(), 100, 50)
	if got := Value(it); got != 150 {
		t.Errorf("expected 150, got %v", got)
	}
}

func TestValue_ZeroFieldsContributeNothing(t *testing.T) {
	if got := Value(newItem(uuid.New(), 0, 0)); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := Value(newItem(uuid.New(), 250, 0)); got != 250 {
		t.Errorf("expected 250, got %v", got)
	}
}

func TestValidateValue(t *testing.T) {
	cases := []struct {
		name      string
		est, cash float64
		wantErr   bool
	}{
		{"valid", 100, 20, false},
		{"zero", 0, 0, false},
		{"negative estimate", -1, 0, true},
		{"negative cash", 0, -5, true},
		{"nan", math.NaN(), 0, true},
		{"inf", math.Inf(1), 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateValue(tc.est, tc.cash)
			if tc.wantErr && err == nil {
				t.Error("expected an error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// ---------- Band / FindMatches ----------

func TestBand_FloorsAndCeilsBounds(t *testing.T) {
	min, max := Band(1000)
	if min != 900 || max != 1100 {
		t.Errorf("expected [900, 1100], got [%v, %v]", min, max)
	}

	// 10% of 995 is not integral; the band must widen outward.
	min, max = Band(995)
	if min != 895 || max != 1095 {
		t.Errorf("expected [895, 1095], got [%v, %v]", min, max)
	}
}

func TestFindMatches_BandScenario(t *testing.T) {
	owner := uuid.New()
	source := newItem(owner, 1000, 0)

	inBandLow := newItem(uuid.New(), 900, 0)
	inBandMid := newItem(uuid.New(), 1050, 0)
	outOfBand := newItem(uuid.New(), 1200, 0)
	ownItem := newItem(owner, 1100, 0) // in band but same owner

	pool := []catalog.Item{inBandLow, inBandMid, outOfBand, ownItem}
	matches := FindMatches(source, pool)

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != inBandLow.ID || matches[1].ID != inBandMid.ID {
		t.Errorf("expected the 900 and 1050 items, got %v and %v",
			Value(matches[0]), Value(matches[1]))
	}
}

func TestFindMatches_BandIsInclusive(t *testing.T) {
	source := newItem(uuid.New(), 1000, 0)
	edgeLow := newItem(uuid.New(), 900, 0)
	edgeHigh := newItem(uuid.New(), 1100, 0)

	matches := FindMatches(source, []catalog.Item{edgeLow, edgeHigh})
	if len(matches) != 2 {
		t.Errorf("expected both boundary values to match, got %d", len(matches))
	}
}

func TestFindMatches_CashCountsTowardValue(t *testing.T) {
	source := newItem(uuid.New(), 800, 200) // total 1000
	candidate := newItem(uuid.New(), 700, 250)

	matches := FindMatches(source, []catalog.Item{candidate})
	if len(matches) != 1 {
		t.Errorf("expected cash top-up to bring the candidate in band")
	}
}

func TestFindMatches_NeverReturnsSelf(t *testing.T) {
	source := newItem(uuid.New(), 500, 0)
	pool := []catalog.Item{source, newItem(uuid.New(), 500, 0)}

	for _, m := range FindMatches(source, pool) {
		if m.ID == source.ID {
			t.Error("source item returned as its own match")
		}
		if m.OwnerID == source.OwnerID {
			t.Error("same-owner item returned as a match")
		}
	}
}

func TestFindMatches_ZeroValueMatchesOnlyZero(t *testing.T) {
	source := newItem(uuid.New(), 0, 0)
	zero := newItem(uuid.New(), 0, 0)
	cheap := newItem(uuid.New(), 1, 0)

	matches := FindMatches(source, []catalog.Item{zero, cheap})
	if len(matches) != 1 || matches[0].ID != zero.ID {
		t.Errorf("expected only the zero-value candidate, got %d matches", len(matches))
	}
}

func TestFindMatches_EmptyPoolIsNotAnError(t *testing.T) {
	source := newItem(uuid.New(), 100, 0)
	if got := FindMatches(source, nil); len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}

// ---------- Rank ----------

func TestRank_SameStateFirstPreservingOrder(t *testing.T) {
	source := newItem(uuid.New(), 100, 0)
	source.State = "Lagos"

	a := newItem(uuid.New(), 100, 0)
	a.State = "Abuja"
	b := newItem(uuid.New(), 100, 0)
	b.State = "Lagos"
	c := newItem(uuid.New(), 100, 0)
	c.State = "Kano"
	d := newItem(uuid.New(), 100, 0)
	d.State = "Lagos"

	ranked := Rank([]catalog.Item{a, b, c, d}, source)

	want := []uuid.UUID{b.ID, d.ID, a.ID, c.ID}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("position %d: unexpected item (state %q)", i, ranked[i].State)
		}
	}
}

func TestRank_IsStableWithinGroups(t *testing.T) {
	source := newItem(uuid.New(), 100, 0)
	source.State = "Lagos"

	var pool []catalog.Item
	for i := 0; i < 6; i++ {
		it := newItem(uuid.New(), 100, 0)
		it.State = "Abuja" // all in the same (non-local) group
		pool = append(pool, it)
	}

	ranked := Rank(pool, source)
	for i := range pool {
		if ranked[i].ID != pool[i].ID {
			t.Fatalf("input order not preserved at position %d", i)
		}
	}
}

func TestRank_EmptySourceStateMatchesNothing(t *testing.T) {
	source := newItem(uuid.New(), 100, 0) // State == ""

	a := newItem(uuid.New(), 100, 0) // State == "" too
	ranked := Rank([]catalog.Item{a}, source)
	if len(ranked) != 1 {
		t.Fatalf("candidate lost during ranking")
	}
}

// ---------- Fairness ----------

func TestResolve_Verdicts(t *testing.T) {
	source := newItem(uuid.New(), 1000, 0)

	higher := newItem(uuid.New(), 1200, 0)
	f := Resolve(source, higher)
	if f.Verdict != VerdictCandidateHigher || f.Delta != 200 {
		t.Errorf("expected candidate_higher/200, got %s/%v", f.Verdict, f.Delta)
	}

	lower := newItem(uuid.New(), 700, 0)
	f = Resolve(source, lower)
	if f.Verdict != VerdictSourceHigher || f.Delta != -300 {
		t.Errorf("expected source_higher/-300, got %s/%v", f.Verdict, f.Delta)
	}

	equal := newItem(uuid.New(), 900, 100)
	f = Resolve(source, equal)
	if f.Verdict != VerdictFair || f.Delta != 0 {
		t.Errorf("expected fair/0, got %s/%v", f.Verdict, f.Delta)
	}
}

func TestResolve_Antisymmetry(t *testing.T) {
	a := newItem(uuid.New(), 430, 20)
	b := newItem(uuid.New(), 610, 0)

	if Resolve(a, b).Delta != -Resolve(b, a).Delta {
		t.Error("fairness delta is not antisymmetric")
	}
}

func TestResolve_Reflexivity(t *testing.T) {
	a := newItem(uuid.New(), 430, 20)
	f := Resolve(a, a)
	if f.Verdict != VerdictFair || f.Delta != 0 {
		t.Errorf("expected fair/0 against itself, got %s/%v", f.Verdict, f.Delta)
	}
}
