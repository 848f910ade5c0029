/*
store.go - Persistence contract for LPs, reservations, and demand

PURPOSE:
  Defines the interface between the engine and the database. The engine
  never mutates shared state outside a Store transaction; the Store owns
  the per-LP serialization that makes the no-double-spend guarantee hold.

KEY INTERFACES:
  Store:   Reads plus the primitive writes the engine composes
  TxStore: Wraps Store operations in an atomic transaction

CONCURRENCY CONTRACT:
  ApplyReserved is a version-guarded write: it adjusts an LP's
  QuantityReserved only when the caller's version matches the stored
  version, returning ErrConcurrentModification otherwise. Combined with
  WithTx this gives at-most-one concurrent successful allocation per unit
  of LP quantity - the storage layer enforces it, not the caller.

AUDIT:
  Reservations are written once and thereafter only transitioned
  (active -> released) or shrunk (partial release). No deletes.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - allocation/store/memory.go: In-memory for testing

SEE ALSO:
  - engine.go: The only caller of the mutating methods
*/
package allocation

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence contract the engine composes inside transactions.
type Store interface {
	// GetDemand returns the material line, or ErrDemandNotFound.
	GetDemand(ctx context.Context, id WorkOrderMaterialID) (*MaterialDemand, error)

	// GetLicensePlate returns the LP by id, or nil when absent.
	GetLicensePlate(ctx context.Context, id LPID) (*LicensePlate, error)

	// ListLicensePlates returns every LP of a material, in no particular
	// order. Callers filter with Reservable and order with Rank.
	ListLicensePlates(ctx context.Context, materialID MaterialID) ([]LicensePlate, error)

	// ApplyReserved adjusts an LP's QuantityReserved by delta (positive to
	// reserve, negative to release) iff the stored version equals version.
	// Returns ErrConcurrentModification on a stale version.
	ApplyReserved(ctx context.Context, id LPID, delta decimal.Decimal, version int64) error

	// CreateReservation persists a new reservation row. Returns
	// ErrDuplicateIdempotencyKey when the key is already recorded.
	CreateReservation(ctx context.Context, r Reservation) error

	// UpdateReservation persists a status/quantity transition of an
	// existing reservation.
	UpdateReservation(ctx context.Context, r Reservation) error

	// GetReservation returns the reservation by id, or nil when absent.
	GetReservation(ctx context.Context, id ReservationID) (*Reservation, error)

	// ActiveReservations returns the active reservations of one material
	// line, ordered by CreatedAt ascending.
	ActiveReservations(ctx context.Context, id WorkOrderMaterialID) ([]Reservation, error)

	// ActiveReservationsByWorkOrder returns every active reservation of a
	// work order across all of its material lines.
	ActiveReservationsByWorkOrder(ctx context.Context, id WorkOrderID) ([]Reservation, error)

	// ActiveReservationsByLP returns the active reservations holding
	// quantity on one LP.
	ActiveReservationsByLP(ctx context.Context, id LPID) ([]Reservation, error)

	// SumActiveReserved returns the reserved total of a material line -
	// the derived quantity that is never stored.
	SumActiveReserved(ctx context.Context, id WorkOrderMaterialID) (decimal.Decimal, error)

	// HasIdempotencyKey reports whether a commit with this key was applied.
	HasIdempotencyKey(ctx context.Context, key string) (bool, error)
}

// TxStore wraps Store with transaction support. Engine.Commit and
// Engine.Release run entirely inside WithTx: if fn returns an error the
// transaction is rolled back, otherwise committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
