package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/allocation-engine/allocation"
)

func seedTestLP(m *TxMemory, id string, onHand float64) {
	m.SeedLicensePlate(allocation.LicensePlate{
		ID:             allocation.LPID(id),
		MaterialID:     "mat-1",
		QuantityOnHand: allocation.Qty(onHand),
		ReceivedAt:     time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		UOM:            "kg",
		QAStatus:       allocation.QAAvailable,
	})
}

func TestTxMemory_WithTxRollsBackOnError(t *testing.T) {
	// GIVEN: An LP with no reservations
	mem := NewTxMemory()
	seedTestLP(mem, "L1", 100)
	ctx := context.Background()

	// WHEN: A transaction reserves quantity then fails
	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(s allocation.Store) error {
		if err := s.ApplyReserved(ctx, "L1", allocation.Qty(40), 0); err != nil {
			return err
		}
		if err := s.CreateReservation(ctx, allocation.Reservation{
			ID: "res-1", LPID: "L1", WorkOrderID: "wo-1", WorkOrderMaterialID: "wom-1",
			Quantity: allocation.Qty(40), Status: allocation.ReservationActive,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the fn error back, got %v", err)
	}

	// THEN: Every write was rolled back
	lp, err := mem.GetLicensePlate(ctx, "L1")
	if err != nil {
		t.Fatal(err)
	}
	if !lp.QuantityReserved.IsZero() {
		t.Errorf("reserved = %v after rollback, want 0", lp.QuantityReserved)
	}
	if lp.Version != 0 {
		t.Errorf("version = %d after rollback, want 0", lp.Version)
	}
	r, err := mem.GetReservation(ctx, "res-1")
	if err != nil {
		t.Fatal(err)
	}
	if r != nil {
		t.Error("reservation survived rollback")
	}
}

func TestMemory_ApplyReserved_VersionGuard(t *testing.T) {
	mem := NewTxMemory()
	seedTestLP(mem, "L1", 100)
	ctx := context.Background()

	if err := mem.ApplyReserved(ctx, "L1", allocation.Qty(30), 0); err != nil {
		t.Fatal(err)
	}

	// Stale version loses
	err := mem.ApplyReserved(ctx, "L1", allocation.Qty(30), 0)
	if !errors.Is(err, allocation.ErrConcurrentModification) {
		t.Errorf("expected ErrConcurrentModification, got %v", err)
	}

	// Bounds hold even with the right version
	err = mem.ApplyReserved(ctx, "L1", allocation.Qty(80), 1)
	if !errors.Is(err, allocation.ErrConcurrentModification) {
		t.Errorf("over-reserving past on-hand should fail, got %v", err)
	}
}

func TestMemory_ReadsReturnCopies(t *testing.T) {
	mem := NewTxMemory()
	seedTestLP(mem, "L1", 100)
	ctx := context.Background()

	lp, err := mem.GetLicensePlate(ctx, "L1")
	if err != nil {
		t.Fatal(err)
	}
	lp.QuantityReserved = allocation.Qty(999)

	fresh, err := mem.GetLicensePlate(ctx, "L1")
	if err != nil {
		t.Fatal(err)
	}
	if !fresh.QuantityReserved.IsZero() {
		t.Error("mutating a returned LP leaked into the store")
	}
}
