package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// SeatInventoryRepo is the authoritative store of occupied seats per
// (vehicle number, travel date) key.  Each key maps to at most one row
// in seat_inventory, enforced by a unique index, and the occupied set
// is stored as a JSON array of seat codes.
//
// Reserve and Release serialize per key through an exclusive row lock
// (SELECT ... FOR UPDATE) held for the duration of a single short
// transaction, so concurrent reservations for the same key cannot both
// pass the conflict check, while operations on different keys proceed
// in parallel.  Rows are created lazily on first reservation and never
// deleted, even when the occupied set drains to empty.
type SeatInventoryRepo struct {
	db *sql.DB
}

// NewSeatInventoryRepo returns a SeatInventoryRepo bound to the given database.
func NewSeatInventoryRepo(db *sql.DB) *SeatInventoryRepo { return &SeatInventoryRepo{db: db} }

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// reserveAttempts bounds the insert-race retry loop in Reserve.  The
// race window is a single missing-row insert, so one retry is normally
// enough; the bound keeps a misbehaving server from looping forever.
const reserveAttempts = 3

// GetOccupied returns the occupied seat codes for key.  A missing row
// is not an error: it means nothing has been reserved yet and an empty
// slice is returned.
func (r *SeatInventoryRepo) GetOccupied(ctx context.Context, key model.ReservationKey) ([]string, error) {
	const q = `SELECT occupied_seats FROM seat_inventory WHERE vehicle_number = ? AND travel_date = ?`
	var raw []byte
	err := r.db.QueryRowContext(ctx, q, key.VehicleNumber, key.DateString()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSeats(raw)
}

// Reserve atomically adds seats to the occupied set for key.  It reads
// the current set under an exclusive row lock, runs the conflict check
// against it, and only then writes, so the check and the write are a
// single step as observed by any concurrent Reserve on the same key.
//
// On conflict it returns a *SeatConflictError listing every requested
// seat that intersects the occupied set, and the row is not mutated.
// When no row exists yet one is inserted; if a concurrent caller wins
// that insert, the duplicate-key error is absorbed and the attempt is
// retried against the freshly created row with a fresh conflict check.
func (r *SeatInventoryRepo) Reserve(ctx context.Context, key model.ReservationKey, seats []string) error {
	var lastErr error
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		retry, err := r.reserveOnce(ctx, key, seats)
		if err == nil || !retry {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("reserve %s/%s: %w", key.VehicleNumber, key.DateString(), lastErr)
}

// reserveOnce runs one reservation transaction.  The boolean result
// reports whether the caller should retry with fresh state.
func (r *SeatInventoryRepo) reserveOnce(ctx context.Context, key model.ReservationKey, seats []string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT id, occupied_seats FROM seat_inventory
	             WHERE vehicle_number = ? AND travel_date = ? FOR UPDATE`
	var rowID uint64
	var raw []byte
	err = tx.QueryRowContext(ctx, sel, key.VehicleNumber, key.DateString()).Scan(&rowID, &raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First reservation for this key: create the row.  Losing the
		// insert race to a concurrent caller surfaces as a duplicate
		// key error, which means occupancy must be re-read.
		encoded, encErr := encodeSeats(seats)
		if encErr != nil {
			return false, encErr
		}
		const ins = `INSERT INTO seat_inventory (vehicle_number, travel_date, occupied_seats, last_updated)
		             VALUES (?, ?, ?, UTC_TIMESTAMP())`
		if _, err := tx.ExecContext(ctx, ins, key.VehicleNumber, key.DateString(), encoded); err != nil {
			var me *mysql.MySQLError
			if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
				return true, err
			}
			return false, err
		}
	case err != nil:
		return false, err
	default:
		occupied, decErr := decodeSeats(raw)
		if decErr != nil {
			return false, decErr
		}
		if conflicts := ConflictingSeats(seats, occupied); len(conflicts) > 0 {
			return false, &SeatConflictError{Seats: conflicts}
		}
		encoded, encErr := encodeSeats(mergeSeats(occupied, seats))
		if encErr != nil {
			return false, encErr
		}
		const upd = `UPDATE seat_inventory SET occupied_seats = ?, last_updated = UTC_TIMESTAMP() WHERE id = ?`
		if _, err := tx.ExecContext(ctx, upd, encoded, rowID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return false, nil
}

// Release removes seats from the occupied set for key.  Seats not in
// the set, and keys with no row at all, are skipped silently so that a
// release can be repeated after a partial failure without changing the
// outcome.  A successful release bumps last_updated.
func (r *SeatInventoryRepo) Release(ctx context.Context, key model.ReservationKey, seats []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT id, occupied_seats FROM seat_inventory
	             WHERE vehicle_number = ? AND travel_date = ? FOR UPDATE`
	var rowID uint64
	var raw []byte
	err = tx.QueryRowContext(ctx, sel, key.VehicleNumber, key.DateString()).Scan(&rowID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		// Nothing reserved under this key; releasing is a no-op.
		return nil
	}
	if err != nil {
		return err
	}
	occupied, err := decodeSeats(raw)
	if err != nil {
		return err
	}
	encoded, err := encodeSeats(removeSeats(occupied, seats))
	if err != nil {
		return err
	}
	const upd = `UPDATE seat_inventory SET occupied_seats = ?, last_updated = UTC_TIMESTAMP() WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, encoded, rowID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetOccupied overwrites the full occupied set for key, creating the
// row when absent.  It exists for the reconciliation path only; the
// reservation flow must go through Reserve and Release.
func (r *SeatInventoryRepo) SetOccupied(ctx context.Context, key model.ReservationKey, seats []string) error {
	encoded, err := encodeSeats(mergeSeats(nil, seats))
	if err != nil {
		return err
	}
	const q = `INSERT INTO seat_inventory (vehicle_number, travel_date, occupied_seats, last_updated)
	           VALUES (?, ?, ?, UTC_TIMESTAMP())
	           ON DUPLICATE KEY UPDATE occupied_seats = VALUES(occupied_seats), last_updated = UTC_TIMESTAMP()`
	_, err = r.db.ExecContext(ctx, q, key.VehicleNumber, key.DateString(), encoded)
	return err
}

// encodeSeats marshals a seat list for the occupied_seats JSON column.
// A nil slice is stored as an empty array rather than JSON null.
func encodeSeats(seats []string) ([]byte, error) {
	if seats == nil {
		seats = []string{}
	}
	return json.Marshal(seats)
}

// decodeSeats unmarshals the occupied_seats column.  An empty or NULL
// column value decodes to an empty set.
func decodeSeats(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var seats []string
	if err := json.Unmarshal(raw, &seats); err != nil {
		return nil, fmt.Errorf("decode occupied seats: %w", err)
	}
	if seats == nil {
		seats = []string{}
	}
	return seats, nil
}

// mergeSeats appends added to base, keeping order and dropping any
// code already present so no seat ever appears twice.
func mergeSeats(base, added []string) []string {
	out := make([]string, 0, len(base)+len(added))
	seen := make(map[string]struct{}, len(base)+len(added))
	for _, group := range [][]string{base, added} {
		for _, s := range group {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// removeSeats returns base without any of the codes in removed.
func removeSeats(base, removed []string) []string {
	drop := make(map[string]struct{}, len(removed))
	for _, s := range removed {
		drop[s] = struct{}{}
	}
	out := make([]string, 0, len(base))
	for _, s := range base {
		if _, ok := drop[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
