/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements allocation.Store and allocation.TxStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  license_plates: Inventory units with on-hand/reserved quantities and a
                  version column for optimistic concurrency
  reservations:   Quantity claims by work-order material lines; never
                  deleted, only transitioned active -> released
  wo_materials:   Work-order material demand lines

NO-DOUBLE-SPEND ENFORCEMENT:
  ApplyReserved is a single version-guarded UPDATE: it matches the row on
  (id, version) and requires the new reserved quantity to stay within
  [0, qty_on_hand]. Zero rows affected means a concurrent writer won the
  race and the caller gets ErrConcurrentModification. The engine runs the
  whole commit inside WithTx, so a lost race rolls back every pick.

DERIVED STATE:
  wo_materials carries no reserved_qty column. The reserved total of a
  line is always SUM(quantity) over its active reservations
  (SumActiveReserved), so it cannot drift from the reservation rows.

INDEXES:
  - idx_lps_material:              LP pool listing per material (hot path)
  - idx_reservations_wo_material:  Coverage computation
  - idx_reservations_lp:           Holder lookup per LP
  - idx_reservations_idempotency:  UNIQUE, commit replay detection

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/allocation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := allocation.NewEngine(store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - allocation/store.go: Interface definitions
  - allocation/engine.go: Higher-level engine using the store
  - allocation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
)

// Store implements allocation.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- License plates (inventory units)
	CREATE TABLE IF NOT EXISTS license_plates (
		id TEXT PRIMARY KEY,
		lp_number TEXT NOT NULL,
		material_id TEXT NOT NULL,
		qty_on_hand TEXT NOT NULL,
		qty_reserved TEXT NOT NULL DEFAULT '0',
		received_at TEXT NOT NULL,
		expiry_at TEXT,
		lot_number TEXT,
		location TEXT,
		uom TEXT NOT NULL,
		qa_status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0
	);

	-- LP pool listing per material (hot path for ranking)
	CREATE INDEX IF NOT EXISTS idx_lps_material
		ON license_plates(material_id);

	-- Reservations (never deleted; active -> released only)
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		lp_id TEXT NOT NULL,
		work_order_id TEXT NOT NULL,
		wo_material_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		created_by TEXT NOT NULL,
		released_at TEXT,
		idempotency_key TEXT,
		FOREIGN KEY (lp_id) REFERENCES license_plates(id)
	);

	CREATE INDEX IF NOT EXISTS idx_reservations_wo_material
		ON reservations(wo_material_id, status);
	CREATE INDEX IF NOT EXISTS idx_reservations_work_order
		ON reservations(work_order_id, status);
	CREATE INDEX IF NOT EXISTS idx_reservations_lp
		ON reservations(lp_id, status);

	-- Commit replay detection
	CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_idempotency
		ON reservations(idempotency_key) WHERE idempotency_key IS NOT NULL;

	-- Work-order material demand lines.
	-- Deliberately no reserved_qty column: reserved is derived from the
	-- active reservations every time.
	CREATE TABLE IF NOT EXISTS wo_materials (
		id TEXT PRIMARY KEY,
		work_order_id TEXT NOT NULL,
		material_id TEXT NOT NULL,
		required_qty TEXT NOT NULL,
		uom TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wo_materials_work_order
		ON wo_materials(work_order_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is the common surface of *sql.DB and *sql.Tx the store methods
// run against, so the same code serves both direct and transactional calls.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// SETUP WRITES (goods receipt / demand ingestion, outside the engine)
// =============================================================================

// SaveLicensePlate inserts or replaces an LP record.
func (s *Store) SaveLicensePlate(ctx context.Context, lp allocation.LicensePlate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO license_plates
		(id, lp_number, material_id, qty_on_hand, qty_reserved, received_at,
		 expiry_at, lot_number, location, uom, qa_status, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lp_number = excluded.lp_number,
			material_id = excluded.material_id,
			qty_on_hand = excluded.qty_on_hand,
			qty_reserved = excluded.qty_reserved,
			received_at = excluded.received_at,
			expiry_at = excluded.expiry_at,
			lot_number = excluded.lot_number,
			location = excluded.location,
			uom = excluded.uom,
			qa_status = excluded.qa_status,
			version = excluded.version
	`

	_, err := s.db.ExecContext(ctx, query,
		string(lp.ID),
		lp.LPNumber,
		string(lp.MaterialID),
		lp.QuantityOnHand.String(),
		lp.QuantityReserved.String(),
		lp.ReceivedAt.UTC().Format(time.RFC3339),
		nullTime(lp.ExpiryAt),
		nullString(lp.LotNumber),
		nullString(lp.Location),
		lp.UOM,
		string(lp.QAStatus),
		lp.Version,
	)
	return err
}

// SaveDemand inserts or replaces a work-order material line.
func (s *Store) SaveDemand(ctx context.Context, d allocation.MaterialDemand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO wo_materials (id, work_order_id, material_id, required_qty, uom)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			work_order_id = excluded.work_order_id,
			material_id = excluded.material_id,
			required_qty = excluded.required_qty,
			uom = excluded.uom
	`

	_, err := s.db.ExecContext(ctx, query,
		string(d.WorkOrderMaterialID),
		string(d.WorkOrderID),
		string(d.MaterialID),
		d.RequiredQuantity.String(),
		d.UOM,
	)
	return err
}

// =============================================================================
// ALLOCATION STORE (allocation.Store interface)
// =============================================================================

// GetDemand returns the material line, or ErrDemandNotFound.
func (s *Store) GetDemand(ctx context.Context, id allocation.WorkOrderMaterialID) (*allocation.MaterialDemand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getDemand(ctx, s.db, id)
}

func getDemand(ctx context.Context, q querier, id allocation.WorkOrderMaterialID) (*allocation.MaterialDemand, error) {
	var (
		d        allocation.MaterialDemand
		required string
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, work_order_id, material_id, required_qty, uom FROM wo_materials WHERE id = ?",
		string(id),
	).Scan(&d.WorkOrderMaterialID, &d.WorkOrderID, &d.MaterialID, &required, &d.UOM)

	if err == sql.ErrNoRows {
		return nil, allocation.ErrDemandNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load demand: %w", err)
	}

	d.RequiredQuantity, err = decimal.NewFromString(required)
	if err != nil {
		return nil, fmt.Errorf("corrupt required_qty for %s: %w", id, err)
	}
	return &d, nil
}

// GetLicensePlate returns the LP by id, or nil when absent.
func (s *Store) GetLicensePlate(ctx context.Context, id allocation.LPID) (*allocation.LicensePlate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLicensePlate(ctx, s.db, id)
}

const lpColumns = `id, lp_number, material_id, qty_on_hand, qty_reserved,
	received_at, expiry_at, lot_number, location, uom, qa_status, version`

func getLicensePlate(ctx context.Context, q querier, id allocation.LPID) (*allocation.LicensePlate, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+lpColumns+" FROM license_plates WHERE id = ?", string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load license plate: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	lp, err := scanLicensePlate(rows)
	if err != nil {
		return nil, err
	}
	return &lp, nil
}

// ListLicensePlates returns every LP of a material.
func (s *Store) ListLicensePlates(ctx context.Context, materialID allocation.MaterialID) ([]allocation.LicensePlate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLicensePlates(ctx, s.db, materialID)
}

func listLicensePlates(ctx context.Context, q querier, materialID allocation.MaterialID) ([]allocation.LicensePlate, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+lpColumns+" FROM license_plates WHERE material_id = ? ORDER BY id",
		string(materialID))
	if err != nil {
		return nil, fmt.Errorf("failed to list license plates: %w", err)
	}
	defer rows.Close()

	var lps []allocation.LicensePlate
	for rows.Next() {
		lp, err := scanLicensePlate(rows)
		if err != nil {
			return nil, err
		}
		lps = append(lps, lp)
	}
	return lps, rows.Err()
}

func scanLicensePlate(rows *sql.Rows) (allocation.LicensePlate, error) {
	var (
		lp         allocation.LicensePlate
		onHand     string
		reserved   string
		receivedAt string
		expiryAt   sql.NullString
		lotNumber  sql.NullString
		location   sql.NullString
	)

	err := rows.Scan(
		&lp.ID, &lp.LPNumber, &lp.MaterialID, &onHand, &reserved,
		&receivedAt, &expiryAt, &lotNumber, &location, &lp.UOM,
		&lp.QAStatus, &lp.Version,
	)
	if err != nil {
		return lp, fmt.Errorf("failed to scan license plate: %w", err)
	}

	if lp.QuantityOnHand, err = decimal.NewFromString(onHand); err != nil {
		return lp, fmt.Errorf("corrupt qty_on_hand for %s: %w", lp.ID, err)
	}
	if lp.QuantityReserved, err = decimal.NewFromString(reserved); err != nil {
		return lp, fmt.Errorf("corrupt qty_reserved for %s: %w", lp.ID, err)
	}
	lp.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt)
	if expiryAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiryAt.String)
		lp.ExpiryAt = &t
	}
	lp.LotNumber = lotNumber.String
	lp.Location = location.String
	return lp, nil
}

// ApplyReserved adjusts an LP's reserved quantity iff the stored version
// matches. The arithmetic runs in Go on decimals, not in SQL on floats; the
// guarded UPDATE matches on (id, version), so any interleaved write bumps
// version and voids the match.
func (s *Store) ApplyReserved(ctx context.Context, id allocation.LPID, delta decimal.Decimal, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyReserved(ctx, s.db, id, delta, version)
}

func applyReserved(ctx context.Context, q querier, id allocation.LPID, delta decimal.Decimal, version int64) error {
	var (
		onHand   string
		reserved string
	)
	err := q.QueryRowContext(ctx,
		"SELECT qty_on_hand, qty_reserved FROM license_plates WHERE id = ? AND version = ?",
		string(id), version,
	).Scan(&onHand, &reserved)
	if err == sql.ErrNoRows {
		// Absent or stale version; distinguish for the caller.
		var count int
		if err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM license_plates WHERE id = ?", string(id),
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to check license plate: %w", err)
		}
		if count == 0 {
			return &allocation.UnknownLPError{LPID: id}
		}
		return allocation.ErrConcurrentModification
	}
	if err != nil {
		return fmt.Errorf("failed to load license plate for update: %w", err)
	}

	onHandQty, err := decimal.NewFromString(onHand)
	if err != nil {
		return fmt.Errorf("corrupt qty_on_hand for %s: %w", id, err)
	}
	reservedQty, err := decimal.NewFromString(reserved)
	if err != nil {
		return fmt.Errorf("corrupt qty_reserved for %s: %w", id, err)
	}

	next := reservedQty.Add(delta)
	if next.IsNegative() || next.GreaterThan(onHandQty) {
		return allocation.ErrConcurrentModification
	}

	res, err := q.ExecContext(ctx,
		"UPDATE license_plates SET qty_reserved = ?, version = version + 1 WHERE id = ? AND version = ?",
		next.String(), string(id), version,
	)
	if err != nil {
		return fmt.Errorf("failed to apply reserved delta: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return allocation.ErrConcurrentModification
	}
	return nil
}

// CreateReservation persists a new reservation row.
func (s *Store) CreateReservation(ctx context.Context, r allocation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createReservation(ctx, s.db, r)
}

func createReservation(ctx context.Context, q querier, r allocation.Reservation) error {
	query := `
		INSERT INTO reservations
		(id, lp_id, work_order_id, wo_material_id, quantity, status,
		 created_at, created_by, released_at, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		string(r.ID),
		string(r.LPID),
		string(r.WorkOrderID),
		string(r.WorkOrderMaterialID),
		r.Quantity.String(),
		string(r.Status),
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.CreatedBy,
		nullTime(r.ReleasedAt),
		nullString(r.IdempotencyKey),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return allocation.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

// UpdateReservation persists a status/quantity transition.
func (s *Store) UpdateReservation(ctx context.Context, r allocation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateReservation(ctx, s.db, r)
}

func updateReservation(ctx context.Context, q querier, r allocation.Reservation) error {
	res, err := q.ExecContext(ctx,
		"UPDATE reservations SET quantity = ?, status = ?, released_at = ? WHERE id = ?",
		r.Quantity.String(), string(r.Status), nullTime(r.ReleasedAt), string(r.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return allocation.ErrReservationNotFound
	}
	return nil
}

// GetReservation returns the reservation by id, or nil when absent.
func (s *Store) GetReservation(ctx context.Context, id allocation.ReservationID) (*allocation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getReservation(ctx, s.db, id)
}

const reservationColumns = `id, lp_id, work_order_id, wo_material_id, quantity,
	status, created_at, created_by, released_at, idempotency_key`

func getReservation(ctx context.Context, q querier, id allocation.ReservationID) (*allocation.Reservation, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanReservation(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ActiveReservations returns the active reservations of a material line,
// ordered by creation time.
func (s *Store) ActiveReservations(ctx context.Context, id allocation.WorkOrderMaterialID) ([]allocation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryReservations(ctx, s.db, activeByLineQuery, string(id))
}

// ActiveReservationsByWorkOrder returns every active reservation of a work
// order across all of its material lines.
func (s *Store) ActiveReservationsByWorkOrder(ctx context.Context, id allocation.WorkOrderID) ([]allocation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryReservations(ctx, s.db, activeByWorkOrderQuery, string(id))
}

// ActiveReservationsByLP returns the active reservations holding quantity
// on one LP.
func (s *Store) ActiveReservationsByLP(ctx context.Context, id allocation.LPID) ([]allocation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryReservations(ctx, s.db, activeByLPQuery, string(id))
}

const (
	activeByLineQuery = "SELECT " + reservationColumns +
		" FROM reservations WHERE wo_material_id = ? AND status = 'active' ORDER BY created_at ASC, id ASC"
	activeByWorkOrderQuery = "SELECT " + reservationColumns +
		" FROM reservations WHERE work_order_id = ? AND status = 'active' ORDER BY created_at ASC, id ASC"
	activeByLPQuery = "SELECT " + reservationColumns +
		" FROM reservations WHERE lp_id = ? AND status = 'active' ORDER BY created_at ASC, id ASC"
)

func queryReservations(ctx context.Context, q querier, query string, args ...any) ([]allocation.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []allocation.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func scanReservation(rows *sql.Rows) (allocation.Reservation, error) {
	var (
		r              allocation.Reservation
		quantity       string
		createdAt      string
		releasedAt     sql.NullString
		idempotencyKey sql.NullString
	)

	err := rows.Scan(
		&r.ID, &r.LPID, &r.WorkOrderID, &r.WorkOrderMaterialID, &quantity,
		&r.Status, &createdAt, &r.CreatedBy, &releasedAt, &idempotencyKey,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan reservation: %w", err)
	}

	if r.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return r, fmt.Errorf("corrupt quantity for %s: %w", r.ID, err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if releasedAt.Valid {
		t, _ := time.Parse(time.RFC3339, releasedAt.String)
		r.ReleasedAt = &t
	}
	r.IdempotencyKey = idempotencyKey.String
	return r, nil
}

// SumActiveReserved returns the reserved total of a material line. Summed
// in Go over decimal strings rather than SQL SUM to avoid float drift.
func (s *Store) SumActiveReserved(ctx context.Context, id allocation.WorkOrderMaterialID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sumActiveReserved(ctx, s.db, id)
}

func sumActiveReserved(ctx context.Context, q querier, id allocation.WorkOrderMaterialID) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT quantity FROM reservations WHERE wo_material_id = ? AND status = 'active'",
		string(id))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum reservations: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var quantity string
		if err := rows.Scan(&quantity); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan quantity: %w", err)
		}
		qty, err := decimal.NewFromString(quantity)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt quantity: %w", err)
		}
		total = total.Add(qty)
	}
	return total, rows.Err()
}

// HasIdempotencyKey reports whether a commit with this key was applied.
func (s *Store) HasIdempotencyKey(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasIdempotencyKey(ctx, s.db, key)
}

func hasIdempotencyKey(ctx context.Context, q querier, key string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE idempotency_key = ?", key,
	).Scan(&count)
	return count > 0, err
}

// =============================================================================
// TRANSACTIONAL STORE (allocation.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store allocation.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every Store call through the open *sql.Tx. The parent's
// mutex is already held for the duration of WithTx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetDemand(ctx context.Context, id allocation.WorkOrderMaterialID) (*allocation.MaterialDemand, error) {
	return getDemand(ctx, ts.tx, id)
}

func (ts *txStore) GetLicensePlate(ctx context.Context, id allocation.LPID) (*allocation.LicensePlate, error) {
	return getLicensePlate(ctx, ts.tx, id)
}

func (ts *txStore) ListLicensePlates(ctx context.Context, materialID allocation.MaterialID) ([]allocation.LicensePlate, error) {
	return listLicensePlates(ctx, ts.tx, materialID)
}

func (ts *txStore) ApplyReserved(ctx context.Context, id allocation.LPID, delta decimal.Decimal, version int64) error {
	return applyReserved(ctx, ts.tx, id, delta, version)
}

func (ts *txStore) CreateReservation(ctx context.Context, r allocation.Reservation) error {
	return createReservation(ctx, ts.tx, r)
}

func (ts *txStore) UpdateReservation(ctx context.Context, r allocation.Reservation) error {
	return updateReservation(ctx, ts.tx, r)
}

func (ts *txStore) GetReservation(ctx context.Context, id allocation.ReservationID) (*allocation.Reservation, error) {
	return getReservation(ctx, ts.tx, id)
}

func (ts *txStore) ActiveReservations(ctx context.Context, id allocation.WorkOrderMaterialID) ([]allocation.Reservation, error) {
	return queryReservations(ctx, ts.tx, activeByLineQuery, string(id))
}

func (ts *txStore) ActiveReservationsByWorkOrder(ctx context.Context, id allocation.WorkOrderID) ([]allocation.Reservation, error) {
	return queryReservations(ctx, ts.tx, activeByWorkOrderQuery, string(id))
}

func (ts *txStore) ActiveReservationsByLP(ctx context.Context, id allocation.LPID) ([]allocation.Reservation, error) {
	return queryReservations(ctx, ts.tx, activeByLPQuery, string(id))
}

func (ts *txStore) SumActiveReserved(ctx context.Context, id allocation.WorkOrderMaterialID) (decimal.Decimal, error) {
	return sumActiveReserved(ctx, ts.tx, id)
}

func (ts *txStore) HasIdempotencyKey(ctx context.Context, key string) (bool, error) {
	return hasIdempotencyKey(ctx, ts.tx, key)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
