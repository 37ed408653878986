package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dilaxno/photomark-backend/internal/engine"
	"github.com/Dilaxno/photomark-backend/internal/model"
)

// SlotRepo provides data access to the slots table.  All timestamps are
// stored and compared in UTC.  Mutating methods are compare-and-swap
// writes: the WHERE clause carries the expected prior state, and a zero
// rows-affected result means another caller got there first.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the provided database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, session_date_id, starts_at, ends_at, position, status,
       held_until, held_by, hold_token, booking_id, version, created_at, updated_at`

func scanSlot(row interface{ Scan(...interface{}) error }) (*model.Slot, error) {
	var s model.Slot
	var heldUntil sql.NullTime
	var heldBy, holdToken sql.NullString
	var bookingID sql.NullInt64
	err := row.Scan(
		&s.ID, &s.SessionDateID, &s.StartsAt, &s.EndsAt, &s.Position, &s.Status,
		&heldUntil, &heldBy, &holdToken, &bookingID, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if heldUntil.Valid {
		t := heldUntil.Time.UTC()
		s.HeldUntil = &t
	}
	if heldBy.Valid {
		v := heldBy.String
		s.HeldBy = &v
	}
	if holdToken.Valid {
		v := holdToken.String
		s.HoldToken = &v
	}
	if bookingID.Valid {
		v := uint64(bookingID.Int64)
		s.BookingID = &v
	}
	return &s, nil
}

// GetSlot returns a single slot by ID.  It returns engine.ErrNotFound
// when no such slot exists.
func (r *SlotRepo) GetSlot(ctx context.Context, slotID uint64) (*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
	s, err := scanSlot(r.db.QueryRowContext(ctx, q, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	return s, err
}

// ListAvailable returns the slots under a session date that a visitor may
// hold as of the given instant, ordered by start time.  A slot whose hold
// has lapsed counts as available even before the sweeper reclaims it, so
// listings never show a false "fully booked" state.
func (r *SlotRepo) ListAvailable(ctx context.Context, sessionDateID uint64, asOf time.Time) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots
               WHERE session_date_id = ?
                 AND (status = 'AVAILABLE' OR (status = 'HELD' AND held_until < ?))
               ORDER BY starts_at, position`
	rows, err := r.db.QueryContext(ctx, q, sessionDateID, asOf.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// PlaceHold atomically claims a slot: the UPDATE succeeds only when the
// slot is AVAILABLE or carries a hold that lapsed before now (the caller
// effectively steals a stale hold).  When the write affects no rows the
// slot is inspected once more to distinguish contention from a missing
// row.
func (r *SlotRepo) PlaceHold(ctx context.Context, slotID uint64, holder, token string, until, now time.Time) error {
	const q = `UPDATE slots
               SET status = 'HELD', held_until = ?, held_by = ?, hold_token = ?,
                   booking_id = NULL, version = version + 1
               WHERE id = ?
                 AND (status = 'AVAILABLE' OR (status = 'HELD' AND held_until < ?))`
	res, err := r.db.ExecContext(ctx, q, until.UTC(), holder, token, slotID, now.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM slots WHERE id = ?`, slotID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ErrNotFound
	}
	if err != nil {
		return err
	}
	return engine.ErrSlotUnavailable
}

// RenewHold extends held_until for the current holder.  The condition
// requires an unexpired hold owned by holder; on failure the row is read
// back to report the precise reason.
func (r *SlotRepo) RenewHold(ctx context.Context, slotID uint64, holder string, until, now time.Time) error {
	const q = `UPDATE slots SET held_until = ?, version = version + 1
               WHERE id = ? AND status = 'HELD' AND held_by = ? AND held_until > ?`
	res, err := r.db.ExecContext(ctx, q, until.UTC(), slotID, holder, now.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var status string
	var heldBy sql.NullString
	var heldUntil sql.NullTime
	err = r.db.QueryRowContext(ctx,
		`SELECT status, held_by, held_until FROM slots WHERE id = ?`, slotID,
	).Scan(&status, &heldBy, &heldUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == model.SlotHeld && heldBy.Valid && heldBy.String == holder {
		return engine.ErrExpiredHold
	}
	return engine.ErrHoldMismatch
}

// ReleaseHold returns a held slot to AVAILABLE when held by holder.  It
// is deliberately idempotent: no matching row is a successful no-op.
func (r *SlotRepo) ReleaseHold(ctx context.Context, slotID uint64, holder string) (bool, error) {
	const q = `UPDATE slots
               SET status = 'AVAILABLE', held_until = NULL, held_by = NULL, hold_token = NULL,
                   version = version + 1
               WHERE id = ? AND status = 'HELD' AND held_by = ?`
	res, err := r.db.ExecContext(ctx, q, slotID, holder)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ExpiredHolds returns up to limit slots whose holds lapsed before now,
// oldest expiry first.  The sweeper reclaims each one individually.
func (r *SlotRepo) ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots
               WHERE status = 'HELD' AND held_until < ?
               ORDER BY held_until LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// Reclaim frees a slot whose hold the sweeper saw expire.  The write is
// keyed on the exact held_until value observed, so a hold that was
// legitimately renewed between the sweeper's read and this write is left
// untouched.
func (r *SlotRepo) Reclaim(ctx context.Context, slotID uint64, heldUntil time.Time) (bool, error) {
	const q = `UPDATE slots
               SET status = 'AVAILABLE', held_until = NULL, held_by = NULL, hold_token = NULL,
                   version = version + 1
               WHERE id = ? AND status = 'HELD' AND held_until = ?`
	res, err := r.db.ExecContext(ctx, q, slotID, heldUntil.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
