package allocation

import (
	"errors"
	"testing"
	"time"
)

func availableLP(id string, onHand, reserved float64) LicensePlate {
	l := lp(id, onHand, day(time.January, 1), nil)
	l.QuantityReserved = Qty(reserved)
	return l
}

// =============================================================================
// VALIDATION RULES
// =============================================================================

func TestValidate_AcceptsCommittablePicks(t *testing.T) {
	pool := []LicensePlate{
		availableLP("L1", 100, 0),
		availableLP("L2", 50, 30),
	}
	picks := []Pick{
		{LPID: "L1", Quantity: Qty(100)},
		{LPID: "L2", Quantity: Qty(20)},
	}

	if err := Validate(picks, pool); err != nil {
		t.Errorf("expected picks to validate, got %v", err)
	}
}

func TestValidate_RejectsNonPositiveQuantity(t *testing.T) {
	pool := []LicensePlate{availableLP("L1", 100, 0)}

	for _, qty := range []float64{0, -5} {
		err := Validate([]Pick{{LPID: "L1", Quantity: Qty(qty)}}, pool)
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("quantity %v: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
}

func TestValidate_RejectsUnknownLP(t *testing.T) {
	pool := []LicensePlate{availableLP("L1", 100, 0)}

	err := Validate([]Pick{{LPID: "L9", Quantity: Qty(10)}}, pool)
	if !errors.Is(err, ErrUnknownLP) {
		t.Errorf("expected ErrUnknownLP, got %v", err)
	}

	var unknownErr *UnknownLPError
	if !errors.As(err, &unknownErr) || unknownErr.LPID != "L9" {
		t.Errorf("expected UnknownLPError naming L9, got %v", err)
	}
}

func TestValidate_RejectsExceedingAvailable_ReportsCap(t *testing.T) {
	// GIVEN: L1 has 100 on hand with 80 already reserved (20 available)
	// WHEN: Picking 30
	// THEN: Fails with the 20-unit cap in the error
	pool := []LicensePlate{availableLP("L1", 100, 80)}

	err := Validate([]Pick{{LPID: "L1", Quantity: Qty(30)}}, pool)
	if !errors.Is(err, ErrExceedsAvailable) {
		t.Fatalf("expected ErrExceedsAvailable, got %v", err)
	}

	var exceedsErr *ExceedsAvailableError
	if !errors.As(err, &exceedsErr) {
		t.Fatalf("expected ExceedsAvailableError, got %T", err)
	}
	if !exceedsErr.Available.Equal(Qty(20)) {
		t.Errorf("reported cap = %v, want 20", exceedsErr.Available)
	}
	if !exceedsErr.Requested.Equal(Qty(30)) {
		t.Errorf("reported request = %v, want 30", exceedsErr.Requested)
	}
}

func TestValidate_ReservedQuantityIsNotAvailable(t *testing.T) {
	pool := []LicensePlate{availableLP("L1", 50, 50)}

	err := Validate([]Pick{{LPID: "L1", Quantity: Qty(1)}}, pool)
	if !errors.Is(err, ErrExceedsAvailable) {
		t.Errorf("fully reserved LP should reject any pick, got %v", err)
	}
}

// =============================================================================
// DUPLICATE PICK MERGING
// =============================================================================

func TestValidate_MergesDuplicatePicksBeforeChecking(t *testing.T) {
	// Two picks of 15 against 20 available must fail as a merged 30
	pool := []LicensePlate{availableLP("L1", 20, 0)}
	picks := []Pick{
		{LPID: "L1", Quantity: Qty(15)},
		{LPID: "L1", Quantity: Qty(15)},
	}

	err := Validate(picks, pool)
	if !errors.Is(err, ErrExceedsAvailable) {
		t.Errorf("expected merged duplicates to exceed available, got %v", err)
	}
}

func TestMergePicks_SumsAndPreservesOrder(t *testing.T) {
	picks := []Pick{
		{LPID: "L2", Quantity: Qty(5)},
		{LPID: "L1", Quantity: Qty(10)},
		{LPID: "L2", Quantity: Qty(7)},
	}

	merged := MergePicks(picks)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged picks, got %d", len(merged))
	}
	if merged[0].LPID != "L2" || !merged[0].Quantity.Equal(Qty(12)) {
		t.Errorf("first merged pick = %+v, want L2/12", merged[0])
	}
	if merged[1].LPID != "L1" || !merged[1].Quantity.Equal(Qty(10)) {
		t.Errorf("second merged pick = %+v, want L1/10", merged[1])
	}
}
