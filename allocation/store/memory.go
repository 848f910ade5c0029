// Package store provides allocation.TxStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	lps          map[allocation.LPID]allocation.LicensePlate
	reservations map[allocation.ReservationID]allocation.Reservation
	demands      map[allocation.WorkOrderMaterialID]allocation.MaterialDemand
	idempotency  map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		lps:          make(map[allocation.LPID]allocation.LicensePlate),
		reservations: make(map[allocation.ReservationID]allocation.Reservation),
		demands:      make(map[allocation.WorkOrderMaterialID]allocation.MaterialDemand),
		idempotency:  make(map[string]bool),
	}
}

// SeedLicensePlate installs an LP. Test/dev setup, not part of the
// allocation.Store contract (goods receipt is out of engine scope).
func (m *Memory) SeedLicensePlate(lp allocation.LicensePlate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lps[lp.ID] = lp
}

// SeedDemand installs a material line. Test/dev setup.
func (m *Memory) SeedDemand(d allocation.MaterialDemand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.demands[d.WorkOrderMaterialID] = d
}

func (m *Memory) GetDemand(_ context.Context, id allocation.WorkOrderMaterialID) (*allocation.MaterialDemand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getDemandLocked(id)
}

func (m *Memory) getDemandLocked(id allocation.WorkOrderMaterialID) (*allocation.MaterialDemand, error) {
	d, ok := m.demands[id]
	if !ok {
		return nil, allocation.ErrDemandNotFound
	}
	copy := d
	return &copy, nil
}

func (m *Memory) GetLicensePlate(_ context.Context, id allocation.LPID) (*allocation.LicensePlate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLPLocked(id)
}

func (m *Memory) getLPLocked(id allocation.LPID) (*allocation.LicensePlate, error) {
	lp, ok := m.lps[id]
	if !ok {
		return nil, nil
	}
	copy := lp
	return &copy, nil
}

func (m *Memory) ListLicensePlates(_ context.Context, materialID allocation.MaterialID) ([]allocation.LicensePlate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLPsLocked(materialID)
}

func (m *Memory) listLPsLocked(materialID allocation.MaterialID) ([]allocation.LicensePlate, error) {
	var out []allocation.LicensePlate
	for _, lp := range m.lps {
		if lp.MaterialID == materialID {
			out = append(out, lp)
		}
	}
	// Map iteration is randomized; stable output keeps callers' ranking
	// reproducible before they even sort.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ApplyReserved(_ context.Context, id allocation.LPID, delta decimal.Decimal, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyReservedLocked(id, delta, version)
}

func (m *Memory) applyReservedLocked(id allocation.LPID, delta decimal.Decimal, version int64) error {
	lp, ok := m.lps[id]
	if !ok {
		return &allocation.UnknownLPError{LPID: id}
	}
	if lp.Version != version {
		return allocation.ErrConcurrentModification
	}
	next := lp.QuantityReserved.Add(delta)
	if next.IsNegative() || next.GreaterThan(lp.QuantityOnHand) {
		return allocation.ErrConcurrentModification
	}
	lp.QuantityReserved = next
	lp.Version++
	m.lps[id] = lp
	return nil
}

func (m *Memory) CreateReservation(_ context.Context, r allocation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createReservationLocked(r)
}

func (m *Memory) createReservationLocked(r allocation.Reservation) error {
	if r.IdempotencyKey != "" && m.idempotency[r.IdempotencyKey] {
		return allocation.ErrDuplicateIdempotencyKey
	}
	m.reservations[r.ID] = r
	if r.IdempotencyKey != "" {
		m.idempotency[r.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) UpdateReservation(_ context.Context, r allocation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateReservationLocked(r)
}

func (m *Memory) updateReservationLocked(r allocation.Reservation) error {
	if _, ok := m.reservations[r.ID]; !ok {
		return allocation.ErrReservationNotFound
	}
	m.reservations[r.ID] = r
	return nil
}

func (m *Memory) GetReservation(_ context.Context, id allocation.ReservationID) (*allocation.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getReservationLocked(id)
}

func (m *Memory) getReservationLocked(id allocation.ReservationID) (*allocation.Reservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	copy := r
	return &copy, nil
}

func (m *Memory) ActiveReservations(_ context.Context, id allocation.WorkOrderMaterialID) ([]allocation.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeLocked(func(r allocation.Reservation) bool { return r.WorkOrderMaterialID == id })
}

func (m *Memory) ActiveReservationsByWorkOrder(_ context.Context, id allocation.WorkOrderID) ([]allocation.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeLocked(func(r allocation.Reservation) bool { return r.WorkOrderID == id })
}

func (m *Memory) ActiveReservationsByLP(_ context.Context, id allocation.LPID) ([]allocation.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeLocked(func(r allocation.Reservation) bool { return r.LPID == id })
}

func (m *Memory) activeLocked(match func(allocation.Reservation) bool) ([]allocation.Reservation, error) {
	var out []allocation.Reservation
	for _, r := range m.reservations {
		if r.Status == allocation.ReservationActive && match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) SumActiveReserved(_ context.Context, id allocation.WorkOrderMaterialID) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sumActiveLocked(id)
}

func (m *Memory) sumActiveLocked(id allocation.WorkOrderMaterialID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range m.reservations {
		if r.Status == allocation.ReservationActive && r.WorkOrderMaterialID == id {
			total = total.Add(r.Quantity)
		}
	}
	return total, nil
}

func (m *Memory) HasIdempotencyKey(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[key], nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot + rollback on error; the store mutex held for
// the duration serializes concurrent transactions.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(allocation.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}
	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		lps:          make(map[allocation.LPID]allocation.LicensePlate, len(tm.lps)),
		reservations: make(map[allocation.ReservationID]allocation.Reservation, len(tm.reservations)),
		demands:      make(map[allocation.WorkOrderMaterialID]allocation.MaterialDemand, len(tm.demands)),
		idempotency:  make(map[string]bool, len(tm.idempotency)),
	}
	for k, v := range tm.lps {
		s.lps[k] = v
	}
	for k, v := range tm.reservations {
		s.reservations[k] = v
	}
	for k, v := range tm.demands {
		s.demands[k] = v
	}
	for k, v := range tm.idempotency {
		s.idempotency[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.lps = s.lps
	tm.reservations = s.reservations
	tm.demands = s.demands
	tm.idempotency = s.idempotency
}

type memorySnapshot struct {
	lps          map[allocation.LPID]allocation.LicensePlate
	reservations map[allocation.ReservationID]allocation.Reservation
	demands      map[allocation.WorkOrderMaterialID]allocation.MaterialDemand
	idempotency  map[string]bool
}

// txMemoryView calls the parent's locked methods directly: the transaction
// already holds the store mutex.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetDemand(_ context.Context, id allocation.WorkOrderMaterialID) (*allocation.MaterialDemand, error) {
	return tv.parent.getDemandLocked(id)
}

func (tv *txMemoryView) GetLicensePlate(_ context.Context, id allocation.LPID) (*allocation.LicensePlate, error) {
	return tv.parent.getLPLocked(id)
}

func (tv *txMemoryView) ListLicensePlates(_ context.Context, materialID allocation.MaterialID) ([]allocation.LicensePlate, error) {
	return tv.parent.listLPsLocked(materialID)
}

func (tv *txMemoryView) ApplyReserved(_ context.Context, id allocation.LPID, delta decimal.Decimal, version int64) error {
	return tv.parent.applyReservedLocked(id, delta, version)
}

func (tv *txMemoryView) CreateReservation(_ context.Context, r allocation.Reservation) error {
	return tv.parent.createReservationLocked(r)
}

func (tv *txMemoryView) UpdateReservation(_ context.Context, r allocation.Reservation) error {
	return tv.parent.updateReservationLocked(r)
}

func (tv *txMemoryView) GetReservation(_ context.Context, id allocation.ReservationID) (*allocation.Reservation, error) {
	return tv.parent.getReservationLocked(id)
}

func (tv *txMemoryView) ActiveReservations(_ context.Context, id allocation.WorkOrderMaterialID) ([]allocation.Reservation, error) {
	return tv.parent.activeLocked(func(r allocation.Reservation) bool { return r.WorkOrderMaterialID == id })
}

func (tv *txMemoryView) ActiveReservationsByWorkOrder(_ context.Context, id allocation.WorkOrderID) ([]allocation.Reservation, error) {
	return tv.parent.activeLocked(func(r allocation.Reservation) bool { return r.WorkOrderID == id })
}

func (tv *txMemoryView) ActiveReservationsByLP(_ context.Context, id allocation.LPID) ([]allocation.Reservation, error) {
	return tv.parent.activeLocked(func(r allocation.Reservation) bool { return r.LPID == id })
}

func (tv *txMemoryView) SumActiveReserved(_ context.Context, id allocation.WorkOrderMaterialID) (decimal.Decimal, error) {
	return tv.parent.sumActiveLocked(id)
}

func (tv *txMemoryView) HasIdempotencyKey(_ context.Context, key string) (bool, error) {
	return tv.parent.idempotency[key], nil
}
