/*
Package allocation provides the core reservation allocation engine.

PURPOSE:
  This package contains the types and algorithms for committing physical
  inventory units ("license plates", LPs) against the outstanding material
  demand of a production work order. It answers: which LPs, and how much
  of each, should be reserved to satisfy a required quantity of a material,
  under a chosen picking policy (FIFO or FEFO).

KEY CONCEPTS IN THIS FILE (types.go):
  - LicensePlate: A uniquely identified physical lot/batch with quantity,
    receipt date, optional expiry, and QA status
  - Reservation: A durable commitment of LP quantity to one work-order
    material line
  - MaterialDemand: The requirement context (required quantity per line)
  - Pick: A proposed (LP, quantity) pair submitted by a caller

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Derived state is never stored: reserved totals and coverage are
     recomputed on every read
  3. Auditability: Reservations are released, never deleted; every mutation
     records an actor and an idempotency key
  4. Pure core: ranking, validation, and coverage are side-effect-free

USAGE:
  ranked := allocation.Rank(pool, allocation.PolicyFEFO)
  picks := []allocation.Pick{{LPID: ranked[0].ID, Quantity: qty}}
  result, err := engine.Commit(ctx, materialID, picks, opts)

SEE ALSO:
  - ranking.go: FIFO/FEFO ordering
  - validate.go: Pick validation against the pool
  - coverage.go: Required-vs-reserved classification
  - engine.go: Transactional commit and release
*/
package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// QUANTITY HELPERS
// =============================================================================

// Qty builds a decimal quantity from a float. Test and wiring convenience;
// production callers should parse strings to preserve precision.
func Qty(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// MustParseQty parses a decimal string, returning zero on failure.
func MustParseQty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type LPID string
type ReservationID string
type MaterialID string
type WorkOrderID string
type WorkOrderMaterialID string

// =============================================================================
// LICENSE PLATE - Physical, uniquely identified unit of stock
// =============================================================================

// QAStatus gates whether an LP may be reserved at all.
type QAStatus string

const (
	QAAvailable   QAStatus = "available"
	QABlocked     QAStatus = "blocked"
	QAQuarantined QAStatus = "quarantined"
	QAExpired     QAStatus = "expired"
)

// LicensePlate is a physical lot/batch of one material.
//
// INVARIANT: 0 <= QuantityReserved <= QuantityOnHand at all times.
// QuantityReserved is the sole shared mutable field; it is only changed
// inside Engine.Commit and Engine.Release transaction boundaries.
type LicensePlate struct {
	ID         LPID
	LPNumber   string
	MaterialID MaterialID

	QuantityOnHand   decimal.Decimal
	QuantityReserved decimal.Decimal

	ReceivedAt time.Time
	ExpiryAt   *time.Time // nil = no expiry (ranks last under FEFO)

	LotNumber string
	Location  string
	UOM       string
	QAStatus  QAStatus

	// Version guards optimistic writes to QuantityReserved.
	// Bumped by the store on every reserved-quantity change.
	Version int64
}

// AvailableQuantity is on-hand minus reserved. Never negative by invariant.
func (lp LicensePlate) AvailableQuantity() decimal.Decimal {
	return lp.QuantityOnHand.Sub(lp.QuantityReserved)
}

// Reservable reports whether the LP can accept new reservations as of now:
// QA-available, not past expiry, and with available quantity remaining.
func (lp LicensePlate) Reservable(now time.Time) bool {
	if lp.QAStatus != QAAvailable {
		return false
	}
	if lp.ExpiryAt != nil && lp.ExpiryAt.Before(now) {
		return false
	}
	return lp.AvailableQuantity().IsPositive()
}

// NearExpiry reports whether the LP expires within the warning window.
// Informational only; surfaced on the pool listing, never enforced.
func (lp LicensePlate) NearExpiry(now time.Time) bool {
	if lp.ExpiryAt == nil {
		return false
	}
	days := lp.ExpiryAt.Sub(now)
	return days >= 0 && days < 30*24*time.Hour
}

// =============================================================================
// RESERVATION - Durable commitment of LP quantity to a material line
// =============================================================================

type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationReleased ReservationStatus = "released"
)

// Reservation commits Quantity of one LP to one work-order material line.
// Reservations are never hard-deleted; release flips Status and stamps
// ReleasedAt so the audit trail survives.
//
// INVARIANT: the sum of Quantity over active reservations for an LP equals
// that LP's QuantityReserved.
type Reservation struct {
	ID                  ReservationID
	LPID                LPID
	WorkOrderID         WorkOrderID
	WorkOrderMaterialID WorkOrderMaterialID

	Quantity decimal.Decimal

	Status     ReservationStatus
	CreatedAt  time.Time
	CreatedBy  string
	ReleasedAt *time.Time

	// IdempotencyKey dedupes retried commits. Empty for reservations
	// created before the key was introduced.
	IdempotencyKey string
}

// =============================================================================
// MATERIAL DEMAND - The requirement context
// =============================================================================

// MaterialDemand is one material line of a work order.
// ReservedQuantity is deliberately absent: it is always recomputed as the
// sum of active reservations (see Store.SumActiveReserved) so it can never
// go stale.
type MaterialDemand struct {
	WorkOrderMaterialID WorkOrderMaterialID
	WorkOrderID         WorkOrderID
	MaterialID          MaterialID

	RequiredQuantity decimal.Decimal
	UOM              string
}

// =============================================================================
// PICK - A proposed allocation submitted by a caller
// =============================================================================

// Pick is one (LP, quantity) pair in a commit request.
type Pick struct {
	LPID     LPID
	Quantity decimal.Decimal
}

// MergePicks sums duplicate LP references into a single pick per LP,
// preserving first-seen order. Duplicates are merged, not rejected.
func MergePicks(picks []Pick) []Pick {
	idx := make(map[LPID]int, len(picks))
	merged := make([]Pick, 0, len(picks))
	for _, p := range picks {
		if i, ok := idx[p.LPID]; ok {
			merged[i].Quantity = merged[i].Quantity.Add(p.Quantity)
			continue
		}
		idx[p.LPID] = len(merged)
		merged = append(merged, p)
	}
	return merged
}

// TotalQuantity sums pick quantities.
func TotalQuantity(picks []Pick) decimal.Decimal {
	total := decimal.Zero
	for _, p := range picks {
		total = total.Add(p.Quantity)
	}
	return total
}

// =============================================================================
// OTHER-WORK-ORDER CONTENTION (informational)
// =============================================================================

// OtherReservation summarizes quantity held on an LP by a different work
// order. Display-only: contention from other work orders never blocks a
// reservation here.
type OtherReservation struct {
	WorkOrderID WorkOrderID
	Quantity    decimal.Decimal
}
