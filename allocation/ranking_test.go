package allocation

import (
	"testing"
	"time"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(month time.Month, d int) *time.Time {
	t := day(month, d)
	return &t
}

func lp(id string, qty float64, received time.Time, expiry *time.Time) LicensePlate {
	return LicensePlate{
		ID:             LPID(id),
		LPNumber:       "LP-" + id,
		MaterialID:     "mat-1",
		QuantityOnHand: Qty(qty),
		ReceivedAt:     received,
		ExpiryAt:       expiry,
		UOM:            "kg",
		QAStatus:       QAAvailable,
	}
}

func ids(lps []LicensePlate) []LPID {
	out := make([]LPID, len(lps))
	for i, l := range lps {
		out[i] = l.ID
	}
	return out
}

func assertOrder(t *testing.T, got []LicensePlate, want ...LPID) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d LPs, got %d: %v", len(want), len(got), ids(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s (full order: %v)", i, id, got[i].ID, ids(got))
		}
	}
}

// =============================================================================
// POLICY ORDER TESTS
// =============================================================================

func TestRank_FIFOOrdersByReceipt_FEFOOrdersByExpiry(t *testing.T) {
	// GIVEN: L1 received Jan 1 with no expiry, L2 received Jan 2 expiring Feb 1
	pool := []LicensePlate{
		lp("L1", 100, day(time.January, 1), nil),
		lp("L2", 50, day(time.January, 2), dayPtr(time.February, 1)),
	}

	// WHEN/THEN: FIFO picks the older receipt first
	assertOrder(t, Rank(pool, PolicyFIFO), "L1", "L2")

	// WHEN/THEN: FEFO picks the soonest expiry first; no-expiry sorts last
	assertOrder(t, Rank(pool, PolicyFEFO), "L2", "L1")
}

func TestRank_FIFO_TieBreaksOnExpiryThenID(t *testing.T) {
	received := day(time.March, 1)
	pool := []LicensePlate{
		lp("L3", 10, received, nil),
		lp("L2", 10, received, dayPtr(time.June, 1)),
		lp("L1", 10, received, dayPtr(time.April, 1)),
	}

	// Same receipt date: sooner expiry wins, no-expiry last
	assertOrder(t, Rank(pool, PolicyFIFO), "L1", "L2", "L3")
}

func TestRank_FEFO_TieBreaksOnReceiptThenID(t *testing.T) {
	expiry := dayPtr(time.May, 1)
	pool := []LicensePlate{
		lp("L2", 10, day(time.February, 1), expiry),
		lp("L1", 10, day(time.January, 1), expiry),
		lp("L3", 10, day(time.February, 1), expiry),
	}

	// Same expiry: older receipt wins, then ID
	assertOrder(t, Rank(pool, PolicyFEFO), "L1", "L2", "L3")
}

func TestRank_NoExpiryLPsSortLastUnderFEFO(t *testing.T) {
	pool := []LicensePlate{
		lp("L1", 10, day(time.January, 1), nil),
		lp("L2", 10, day(time.January, 2), nil),
		lp("L3", 10, day(time.January, 3), dayPtr(time.December, 1)),
	}

	assertOrder(t, Rank(pool, PolicyFEFO), "L3", "L1", "L2")
}

// =============================================================================
// PURITY TESTS
// =============================================================================

func TestRank_IsDeterministic(t *testing.T) {
	pool := []LicensePlate{
		lp("L4", 5, day(time.January, 4), dayPtr(time.March, 1)),
		lp("L1", 10, day(time.January, 1), nil),
		lp("L3", 20, day(time.January, 1), dayPtr(time.February, 1)),
		lp("L2", 15, day(time.January, 2), dayPtr(time.February, 1)),
	}

	for _, policy := range []PickPolicy{PolicyFIFO, PolicyFEFO} {
		first := Rank(pool, policy)
		for i := 0; i < 10; i++ {
			again := Rank(pool, policy)
			for j := range first {
				if first[j].ID != again[j].ID {
					t.Fatalf("%s: run %d diverged at position %d: %v vs %v",
						policy, i, j, ids(first), ids(again))
				}
			}
		}
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	pool := []LicensePlate{
		lp("L2", 10, day(time.January, 2), nil),
		lp("L1", 10, day(time.January, 1), nil),
	}

	Rank(pool, PolicyFIFO)

	if pool[0].ID != "L2" || pool[1].ID != "L1" {
		t.Errorf("input slice was reordered: %v", ids(pool))
	}
}

// =============================================================================
// SUGGESTION AND PARSING
// =============================================================================

func TestSuggest_ReturnsRankedHead(t *testing.T) {
	pool := []LicensePlate{
		lp("L1", 100, day(time.January, 1), nil),
		lp("L2", 50, day(time.January, 2), dayPtr(time.February, 1)),
	}

	suggested, ok := Suggest(pool, PolicyFEFO)
	if !ok || suggested.ID != "L2" {
		t.Errorf("expected L2 suggested under FEFO, got %v (ok=%v)", suggested.ID, ok)
	}

	if _, ok := Suggest(nil, PolicyFIFO); ok {
		t.Error("expected no suggestion from an empty pool")
	}
}

func TestParsePickPolicy_DefaultsToFIFO(t *testing.T) {
	cases := map[string]PickPolicy{
		"fifo":    PolicyFIFO,
		"fefo":    PolicyFEFO,
		"":        PolicyFIFO,
		"unknown": PolicyFIFO,
	}
	for in, want := range cases {
		if got := ParsePickPolicy(in); got != want {
			t.Errorf("ParsePickPolicy(%q) = %v, want %v", in, got, want)
		}
	}
}

// =============================================================================
// EXPIRY FLAGS
// =============================================================================

func TestNearExpiry_ThirtyDayWindow(t *testing.T) {
	now := day(time.June, 1)

	within := lp("L1", 10, day(time.January, 1), dayPtr(time.June, 20))
	if !within.NearExpiry(now) {
		t.Error("expiry in 19 days should flag near-expiry")
	}

	far := lp("L2", 10, day(time.January, 1), dayPtr(time.August, 1))
	if far.NearExpiry(now) {
		t.Error("expiry in 61 days should not flag near-expiry")
	}

	none := lp("L3", 10, day(time.January, 1), nil)
	if none.NearExpiry(now) {
		t.Error("no expiry should never flag near-expiry")
	}

	past := lp("L4", 10, day(time.January, 1), dayPtr(time.May, 1))
	if past.NearExpiry(now) {
		t.Error("already-expired LP should not flag near-expiry")
	}
}
