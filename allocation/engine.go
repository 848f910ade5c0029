/*
engine.go - Transactional commit and release of reservations

PURPOSE:
  The stateful core of the package. Everything else here is a pure
  function; the Engine is where allocations become durable reservation
  rows and where the no-double-spend guarantee is enforced.

COMMIT SEQUENCE (all inside one store transaction):
  1. Reject duplicate idempotency keys (retry dedup)
  2. Re-fetch the demand line and every referenced LP - never trust the
     caller's snapshot
  3. Re-validate each pick against fresh quantities; a pick that now
     exceeds availability means another actor won the race, and the whole
     commit fails with a conflict error - no partial commit
  4. Guard over-reservation: exceeding the required quantity needs explicit
     acknowledgment (soft guard - acknowledged commits succeed, because
     only the required quantity is consumed at production close-out)
  5. Create one reservation per pick, increment each LP's reserved
     quantity through a version-guarded write, return recomputed coverage

RELEASE:
  Full or partial, same transactional discipline. Releasing an
  already-released reservation is a successful no-op so retried release
  calls are harmless.

SEE ALSO:
  - store.go: The transaction and version-guard contract
  - validate.go: The advisory pre-commit validation callers run first
*/
package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine commits and releases reservations against a transactional store.
type Engine struct {
	store  TxStore
	logger *zap.Logger

	// Now is the clock used for timestamps and expiry checks.
	// Overridable in tests.
	Now func() time.Time
}

// NewEngine creates an engine on the given store. A nil logger disables
// engine logging.
func NewEngine(store TxStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		logger: logger,
		Now:    time.Now,
	}
}

// =============================================================================
// COMMIT - Reservation Transaction Manager
// =============================================================================

// CommitOptions carries the per-commit flags and identity.
type CommitOptions struct {
	// AllowOverReservation acknowledges reserving past the required
	// quantity. Without it, an over-reserving commit fails softly.
	AllowOverReservation bool

	// ActorID is the authenticated identity recorded as CreatedBy.
	// Required for every mutating operation.
	ActorID string

	// IdempotencyKey dedupes retried commits. Optional but recommended:
	// a caller-side timeout leaves the outcome unknown, and resubmitting
	// with the same key cannot double-commit.
	IdempotencyKey string
}

// CommitResult reports the reservations created and the line's coverage
// recomputed after the commit.
type CommitResult struct {
	Reservations []Reservation
	Coverage     CoverageResult
}

// Commit durably reserves the picked quantities for a material line.
// All-or-nothing: either every pick commits or none do.
func (e *Engine) Commit(ctx context.Context, materialID WorkOrderMaterialID, picks []Pick, opts CommitOptions) (*CommitResult, error) {
	if opts.ActorID == "" {
		return nil, ErrMissingActor
	}
	merged := MergePicks(picks)
	if len(merged) == 0 {
		return nil, &InvalidQuantityError{Quantity: decimal.Zero}
	}

	var result *CommitResult
	err := e.store.WithTx(ctx, func(s Store) error {
		r, err := e.commitTx(ctx, s, materialID, merged, opts)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("reservation committed",
		zap.String("wo_material_id", string(materialID)),
		zap.Int("picks", len(merged)),
		zap.String("actor", opts.ActorID),
		zap.String("coverage", string(result.Coverage.Status)),
	)
	return result, nil
}

// commitTx is the transaction body, shared by Commit and AutoReserve.
func (e *Engine) commitTx(ctx context.Context, s Store, materialID WorkOrderMaterialID, merged []Pick, opts CommitOptions) (*CommitResult, error) {
	if opts.IdempotencyKey != "" {
		seen, err := s.HasIdempotencyKey(ctx, opts.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, ErrDuplicateIdempotencyKey
		}
	}

	demand, err := s.GetDemand(ctx, materialID)
	if err != nil {
		return nil, err
	}

	now := e.Now()

	// Fresh fetch of every referenced LP. The caller's snapshot is
	// possibly stale; only these quantities count.
	lps := make([]LicensePlate, 0, len(merged))
	for _, p := range merged {
		if !p.Quantity.IsPositive() {
			return nil, &InvalidQuantityError{LPID: p.LPID, Quantity: p.Quantity}
		}
		lp, err := s.GetLicensePlate(ctx, p.LPID)
		if err != nil {
			return nil, err
		}
		if lp == nil || lp.MaterialID != demand.MaterialID || !e.inPool(*lp, now) {
			return nil, &UnknownLPError{LPID: p.LPID}
		}
		if available := lp.AvailableQuantity(); p.Quantity.GreaterThan(available) {
			// Exceeding availability at commit time means another actor
			// reserved overlapping quantity since the caller's snapshot.
			return nil, &ConflictError{
				LPID:      p.LPID,
				Requested: p.Quantity,
				Available: available,
			}
		}
		lps = append(lps, *lp)
	}

	reserved, err := s.SumActiveReserved(ctx, materialID)
	if err != nil {
		return nil, err
	}
	prospective := reserved.Add(TotalQuantity(merged))
	if prospective.GreaterThan(demand.RequiredQuantity) && !opts.AllowOverReservation {
		return nil, &OverReservationError{
			WorkOrderMaterialID: materialID,
			Required:            demand.RequiredQuantity,
			Prospective:         prospective,
			Excess:              prospective.Sub(demand.RequiredQuantity),
		}
	}

	reservations := make([]Reservation, 0, len(merged))
	for i, p := range merged {
		if err := s.ApplyReserved(ctx, p.LPID, p.Quantity, lps[i].Version); err != nil {
			return nil, err
		}
		r := Reservation{
			ID:                  ReservationID(uuid.NewString()),
			LPID:                p.LPID,
			WorkOrderID:         demand.WorkOrderID,
			WorkOrderMaterialID: materialID,
			Quantity:            p.Quantity,
			Status:              ReservationActive,
			CreatedAt:           now,
			CreatedBy:           opts.ActorID,
		}
		if i == 0 {
			// The key dedupes the commit as a whole; recording it on the
			// first row is enough for HasIdempotencyKey.
			r.IdempotencyKey = opts.IdempotencyKey
		}
		if err := s.CreateReservation(ctx, r); err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}

	return &CommitResult{
		Reservations: reservations,
		Coverage:     Coverage(demand.RequiredQuantity, prospective),
	}, nil
}

// inPool reports whether an LP belongs to the reservable pool, ignoring
// available quantity: an LP drained by a concurrent commit is still "known",
// and the shortfall surfaces as a conflict rather than an unknown-LP error.
func (e *Engine) inPool(lp LicensePlate, now time.Time) bool {
	if lp.QAStatus != QAAvailable {
		return false
	}
	return lp.ExpiryAt == nil || !lp.ExpiryAt.Before(now)
}

// =============================================================================
// RELEASE - Release Manager
// =============================================================================

// ReleaseResult reports the outcome of a release.
type ReleaseResult struct {
	Reservation      Reservation
	ReleasedQuantity decimal.Decimal
	Coverage         CoverageResult

	// AlreadyReleased is set when the reservation was released before this
	// call; the call is then a successful no-op.
	AlreadyReleased bool
}

// Release reverses a reservation, fully (quantity nil) or partially.
// A partial release that brings the reservation to zero fully releases it.
// Releasing an already-released reservation succeeds without effect.
func (e *Engine) Release(ctx context.Context, id ReservationID, quantity *decimal.Decimal, actorID string) (*ReleaseResult, error) {
	if actorID == "" {
		return nil, ErrMissingActor
	}

	var result *ReleaseResult
	err := e.store.WithTx(ctx, func(s Store) error {
		r, err := s.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrReservationNotFound
		}
		if r.Status == ReservationReleased {
			cov, err := e.lineCoverage(ctx, s, r.WorkOrderMaterialID)
			if err != nil {
				return err
			}
			result = &ReleaseResult{Reservation: *r, Coverage: cov, AlreadyReleased: true}
			return nil
		}

		delta := r.Quantity
		if quantity != nil {
			if !quantity.IsPositive() || quantity.GreaterThan(r.Quantity) {
				return &InvalidQuantityError{LPID: r.LPID, Quantity: *quantity}
			}
			delta = *quantity
		}

		lp, err := s.GetLicensePlate(ctx, r.LPID)
		if err != nil {
			return err
		}
		if lp == nil {
			return &UnknownLPError{LPID: r.LPID}
		}
		if err := s.ApplyReserved(ctx, r.LPID, delta.Neg(), lp.Version); err != nil {
			return err
		}

		now := e.Now()
		r.Quantity = r.Quantity.Sub(delta)
		if r.Quantity.IsZero() {
			r.Status = ReservationReleased
			r.ReleasedAt = &now
		}
		if err := s.UpdateReservation(ctx, *r); err != nil {
			return err
		}

		cov, err := e.lineCoverage(ctx, s, r.WorkOrderMaterialID)
		if err != nil {
			return err
		}
		result = &ReleaseResult{Reservation: *r, ReleasedQuantity: delta, Coverage: cov}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyReleased {
		e.logger.Info("reservation released",
			zap.String("reservation_id", string(id)),
			zap.String("released_qty", result.ReleasedQuantity.String()),
			zap.String("actor", actorID),
		)
	}
	return result, nil
}

// ReleaseWorkOrder fully releases every active reservation of a work order
// (cancellation close-out). Idempotent: a second call finds nothing active
// and returns zero. Returns the number of reservations released.
func (e *Engine) ReleaseWorkOrder(ctx context.Context, workOrderID WorkOrderID, actorID string) (int, error) {
	if actorID == "" {
		return 0, ErrMissingActor
	}

	released := 0
	err := e.store.WithTx(ctx, func(s Store) error {
		active, err := s.ActiveReservationsByWorkOrder(ctx, workOrderID)
		if err != nil {
			return err
		}
		now := e.Now()
		for _, r := range active {
			lp, err := s.GetLicensePlate(ctx, r.LPID)
			if err != nil {
				return err
			}
			if lp == nil {
				return &UnknownLPError{LPID: r.LPID}
			}
			if err := s.ApplyReserved(ctx, r.LPID, r.Quantity.Neg(), lp.Version); err != nil {
				return err
			}
			r.Status = ReservationReleased
			r.ReleasedAt = &now
			if err := s.UpdateReservation(ctx, r); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.logger.Info("work order reservations released",
		zap.String("work_order_id", string(workOrderID)),
		zap.Int("count", released),
		zap.String("actor", actorID),
	)
	return released, nil
}

// =============================================================================
// AUTO-RESERVATION - Fill remaining demand down the ranked pool
// =============================================================================

// AutoReserveResult reports what an automatic allocation achieved.
type AutoReserveResult struct {
	Reservations []Reservation
	Allocated    decimal.Decimal

	// Shortage is the required quantity the pool could not cover.
	Shortage decimal.Decimal

	Coverage CoverageResult
}

// AutoReserve walks the ranked pool and reserves min(remaining, available)
// per LP until the line's remaining demand is covered or the pool runs out.
// Never over-reserves. Runs as one transaction with the same discipline as
// Commit.
func (e *Engine) AutoReserve(ctx context.Context, materialID WorkOrderMaterialID, policy PickPolicy, actorID string) (*AutoReserveResult, error) {
	if actorID == "" {
		return nil, ErrMissingActor
	}

	var result *AutoReserveResult
	err := e.store.WithTx(ctx, func(s Store) error {
		demand, err := s.GetDemand(ctx, materialID)
		if err != nil {
			return err
		}
		reserved, err := s.SumActiveReserved(ctx, materialID)
		if err != nil {
			return err
		}
		remaining := demand.RequiredQuantity.Sub(reserved)
		cov := Coverage(demand.RequiredQuantity, reserved)
		if !remaining.IsPositive() {
			result = &AutoReserveResult{Coverage: cov}
			return nil
		}

		now := e.Now()
		pool, err := s.ListLicensePlates(ctx, demand.MaterialID)
		if err != nil {
			return err
		}
		reservable := pool[:0:0]
		for _, lp := range pool {
			if lp.Reservable(now) {
				reservable = append(reservable, lp)
			}
		}

		var picks []Pick
		allocated := decimal.Zero
		for _, lp := range Rank(reservable, policy) {
			if !remaining.IsPositive() {
				break
			}
			take := decimal.Min(remaining, lp.AvailableQuantity())
			picks = append(picks, Pick{LPID: lp.ID, Quantity: take})
			allocated = allocated.Add(take)
			remaining = remaining.Sub(take)
		}

		if len(picks) == 0 {
			result = &AutoReserveResult{Shortage: remaining, Coverage: cov}
			return nil
		}

		commit, err := e.commitTx(ctx, s, materialID, picks, CommitOptions{ActorID: actorID})
		if err != nil {
			return err
		}
		result = &AutoReserveResult{
			Reservations: commit.Reservations,
			Allocated:    allocated,
			Shortage:     remaining,
			Coverage:     commit.Coverage,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("auto-reservation complete",
		zap.String("wo_material_id", string(materialID)),
		zap.String("allocated", result.Allocated.String()),
		zap.String("shortage", result.Shortage.String()),
		zap.String("actor", actorID),
	)
	return result, nil
}

// =============================================================================
// READS - Pool listing and coverage
// =============================================================================

// AvailableLP is a pool entry enriched for display: the suggested-pick
// hint, a near-expiry flag, and contention held by other work orders.
type AvailableLP struct {
	LicensePlate

	Suggested  bool
	NearExpiry bool

	// OtherReservations is quantity held by other work orders. Read-only,
	// informational: it warns about contention, it never blocks.
	OtherReservations []OtherReservation
}

// ListAvailableLPs returns the reservable pool for a material, ranked under
// the given policy, with the head marked as the suggested pick.
func (e *Engine) ListAvailableLPs(ctx context.Context, materialID MaterialID, workOrderID WorkOrderID, policy PickPolicy) ([]AvailableLP, error) {
	now := e.Now()
	pool, err := e.store.ListLicensePlates(ctx, materialID)
	if err != nil {
		return nil, err
	}

	reservable := pool[:0:0]
	for _, lp := range pool {
		if lp.Reservable(now) {
			reservable = append(reservable, lp)
		}
	}

	ranked := Rank(reservable, policy)
	out := make([]AvailableLP, 0, len(ranked))
	for i, lp := range ranked {
		entry := AvailableLP{
			LicensePlate: lp,
			Suggested:    i == 0,
			NearExpiry:   lp.NearExpiry(now),
		}
		held, err := e.store.ActiveReservationsByLP(ctx, lp.ID)
		if err != nil {
			return nil, err
		}
		byWO := make(map[WorkOrderID]decimal.Decimal)
		var order []WorkOrderID
		for _, r := range held {
			if r.WorkOrderID == workOrderID {
				continue
			}
			if _, ok := byWO[r.WorkOrderID]; !ok {
				order = append(order, r.WorkOrderID)
			}
			byWO[r.WorkOrderID] = byWO[r.WorkOrderID].Add(r.Quantity)
		}
		for _, wo := range order {
			entry.OtherReservations = append(entry.OtherReservations, OtherReservation{
				WorkOrderID: wo,
				Quantity:    byWO[wo],
			})
		}
		out = append(out, entry)
	}
	return out, nil
}

// LineCoverage recomputes the coverage of a material line from its active
// reservations.
func (e *Engine) LineCoverage(ctx context.Context, materialID WorkOrderMaterialID) (*CoverageResult, error) {
	var cov CoverageResult
	demand, err := e.store.GetDemand(ctx, materialID)
	if err != nil {
		return nil, err
	}
	reserved, err := e.store.SumActiveReserved(ctx, materialID)
	if err != nil {
		return nil, err
	}
	cov = Coverage(demand.RequiredQuantity, reserved)
	return &cov, nil
}

// LineReservations returns the active reservations of a material line with
// its recomputed coverage.
func (e *Engine) LineReservations(ctx context.Context, materialID WorkOrderMaterialID) ([]Reservation, *CoverageResult, error) {
	cov, err := e.LineCoverage(ctx, materialID)
	if err != nil {
		return nil, nil, err
	}
	active, err := e.store.ActiveReservations(ctx, materialID)
	if err != nil {
		return nil, nil, err
	}
	return active, cov, nil
}

func (e *Engine) lineCoverage(ctx context.Context, s Store, materialID WorkOrderMaterialID) (CoverageResult, error) {
	demand, err := s.GetDemand(ctx, materialID)
	if err != nil {
		return CoverageResult{}, err
	}
	reserved, err := s.SumActiveReserved(ctx, materialID)
	if err != nil {
		return CoverageResult{}, err
	}
	return Coverage(demand.RequiredQuantity, reserved), nil
}
