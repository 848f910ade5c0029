/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on sentinels with errors.Is() and unwrap structured
  errors for detail (e.g. the numeric cap that was exceeded).

ERROR CATEGORIES:
  1. Caller bugs     - InvalidQuantity, UnknownLP: stale or malformed input,
                       retrying the same picks will not help
  2. Retryable       - ConcurrentReservationConflict, ConcurrentModification:
                       re-query the pool and retry with fresh data
  3. Guarded path    - OverReservationNotAcknowledged: not a failure, a
                       prompt; resubmit with acknowledgment to proceed

SEE ALSO:
  - validate.go: Produces the validation errors
  - engine.go: Produces the conflict and over-reservation errors
*/
package allocation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidQuantity is returned when a pick quantity is zero, negative,
	// or otherwise not a usable positive number.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrExceedsAvailable is returned when a pick exceeds the LP's
	// available (unreserved) quantity.
	ErrExceedsAvailable = errors.New("exceeds available quantity")

	// ErrUnknownLP is returned when a pick references an LP that is not in
	// the current pool (stale snapshot, wrong material, or removed).
	ErrUnknownLP = errors.New("unknown license plate")

	// ErrConcurrentReservationConflict is returned when a commit loses a
	// race: another actor reserved overlapping quantity between the caller's
	// snapshot and the commit. Re-query the pool and retry.
	ErrConcurrentReservationConflict = errors.New("concurrent reservation conflict")

	// ErrOverReservationNotAcknowledged is returned when a commit would push
	// the line's reserved total past its required quantity and the caller has
	// not acknowledged the over-reservation. Acknowledged commits succeed.
	ErrOverReservationNotAcknowledged = errors.New("over-reservation not acknowledged")

	// ErrReservationNotFound is returned on release of an unknown reservation.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrDemandNotFound is returned when the work-order material line does
	// not exist.
	ErrDemandNotFound = errors.New("work order material not found")

	// ErrDuplicateIdempotencyKey is returned when a commit carries an
	// idempotency key that has already been applied. Expected on retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrConcurrentModification is returned by stores when an optimistic
	// version check fails on an LP write.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrMissingActor is returned when a mutating operation carries no
	// authenticated actor identity.
	ErrMissingActor = errors.New("actor identity required")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidQuantityError reports a non-positive or malformed pick quantity.
type InvalidQuantityError struct {
	LPID     LPID
	Quantity decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %v for LP %s: must be a positive number", e.Quantity, e.LPID)
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidQuantity }

// ExceedsAvailableError reports the cap that was exceeded so the caller can
// adjust the pick without another round trip.
type ExceedsAvailableError struct {
	LPID      LPID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *ExceedsAvailableError) Error() string {
	return fmt.Sprintf("LP %s: requested %v exceeds available %v", e.LPID, e.Requested, e.Available)
}

func (e *ExceedsAvailableError) Unwrap() error { return ErrExceedsAvailable }

// UnknownLPError reports a pick against an LP absent from the pool.
type UnknownLPError struct {
	LPID LPID
}

func (e *UnknownLPError) Error() string {
	return fmt.Sprintf("LP %s not found in available pool", e.LPID)
}

func (e *UnknownLPError) Unwrap() error { return ErrUnknownLP }

// ConflictError wraps the validation failure that surfaced inside the commit
// transaction, distinguishing a lost race from a caller bug.
type ConflictError struct {
	LPID      LPID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("LP %s reserved concurrently: requested %v, only %v now available", e.LPID, e.Requested, e.Available)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrentReservationConflict }

// OverReservationError reports by how much the commit would exceed the
// required quantity. Resubmitting with AllowOverReservation proceeds.
type OverReservationError struct {
	WorkOrderMaterialID WorkOrderMaterialID
	Required            decimal.Decimal
	Prospective         decimal.Decimal
	Excess              decimal.Decimal
}

func (e *OverReservationError) Error() string {
	return fmt.Sprintf("reserving %v exceeds required %v by %v: acknowledgment required", e.Prospective, e.Required, e.Excess)
}

func (e *OverReservationError) Unwrap() error { return ErrOverReservationNotAcknowledged }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable reports whether retrying with freshly queried state might
// succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentReservationConflict) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsClientError reports whether the error indicates bad or stale caller
// input that should not be blindly retried.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrUnknownLP) ||
		errors.Is(err, ErrExceedsAvailable) ||
		errors.Is(err, ErrMissingActor)
}

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrDemandNotFound)
}
