package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dilaxno/photomark-backend/internal/engine"
	"github.com/Dilaxno/photomark-backend/internal/model"
)

// BookingRepo persists bookings and performs the two multi-table
// transitions that must be atomic with the booking row: confirm and
// cancel.  Both lock the slot row with SELECT ... FOR UPDATE so the
// transaction is the sole serialization point.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, slot_id, session_id, reference, contact_email, contact_name,
       status, payment_ref, created_at, updated_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (*model.Booking, error) {
	var b model.Booking
	var payRef sql.NullString
	err := row.Scan(
		&b.ID, &b.SlotID, &b.SessionID, &b.Reference, &b.ContactEmail, &b.ContactName,
		&b.Status, &payRef, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if payRef.Valid {
		v := payRef.String
		b.PaymentRef = &v
	}
	return &b, nil
}

// Confirm inserts the booking and moves the slot to BOOKED in a single
// transaction.  The slot row is read under FOR UPDATE first; the observed
// state decides the outcome, so two concurrent confirms on the same slot
// serialize and exactly one inserts a booking:
//
//	HELD by holder, unexpired   → booked
//	HELD by holder, lapsed      → ErrExpiredHold
//	HELD by someone else        → ErrHoldMismatch
//	AVAILABLE, auto-confirm on  → booked (hold step bypassed)
//	AVAILABLE otherwise         → ErrExpiredHold (the hold was reclaimed)
//	BOOKED                      → ErrSlotUnavailable
func (r *BookingRepo) Confirm(ctx context.Context, b *model.Booking, holder string, autoConfirm bool, now time.Time) error {
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
	var status string
	var heldBy sql.NullString
	var heldUntil sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT status, held_by, held_until FROM slots WHERE id = ? FOR UPDATE`, b.SlotID,
	).Scan(&status, &heldBy, &heldUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ErrNotFound
	}
	if err != nil {
		return err
	}
	switch status {
	case model.SlotHeld:
		if !heldBy.Valid || heldBy.String != holder {
			return engine.ErrHoldMismatch
		}
		if !heldUntil.Valid || !heldUntil.Time.After(now) {
			return engine.ErrExpiredHold
		}
	case model.SlotAvailable:
		if !autoConfirm {
			return engine.ErrExpiredHold
		}
	default:
		return engine.ErrSlotUnavailable
	}
	const ins = `INSERT INTO bookings (slot_id, session_id, reference, contact_email, contact_name, status, payment_ref)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	var payRef interface{}
	if b.PaymentRef != nil {
		payRef = *b.PaymentRef
	}
	res, err := tx.ExecContext(ctx, ins,
		b.SlotID, b.SessionID, b.Reference, b.ContactEmail, b.ContactName, b.Status, payRef,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const up = `UPDATE slots
                SET status = 'BOOKED', booking_id = ?, held_until = NULL, held_by = NULL,
                    hold_token = NULL, version = version + 1
                WHERE id = ?`
	if _, err := tx.ExecContext(ctx, up, b.ID, b.SlotID); err != nil {
		return err
	}
	const sel = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	got, err := scanBooking(tx.QueryRowContext(ctx, sel, b.ID))
	if err != nil {
		return err
	}
	*b = *got
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Cancel marks a booking CANCELLED and frees its slot in one transaction.
// The booking row is kept for audit.  Cancelling an already-cancelled
// booking reports freed=false and changes nothing.
func (r *BookingRepo) Cancel(ctx context.Context, bookingID uint64) (*model.Slot, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var slotID uint64
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT slot_id, status FROM bookings WHERE id = ? FOR UPDATE`, bookingID,
	).Scan(&slotID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, engine.ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if status == model.BookingCancelled {
		return nil, false, nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED' WHERE id = ?`, bookingID,
	); err != nil {
		return nil, false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE slots
         SET status = 'AVAILABLE', booking_id = NULL, held_until = NULL, held_by = NULL,
             hold_token = NULL, version = version + 1
         WHERE id = ? AND status = 'BOOKED' AND booking_id = ?`,
		slotID, bookingID,
	); err != nil {
		return nil, false, err
	}
	slot, err := scanSlot(tx.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ?`, slotID,
	))
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	committed = true
	return slot, true, nil
}

// GetBooking returns a booking by ID or engine.ErrNotFound.
func (r *BookingRepo) GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	return b, err
}

// ListByDateForOwner returns all bookings under a session date after
// verifying the caller owns the parent session.  Newest first.
func (r *BookingRepo) ListByDateForOwner(ctx context.Context, dateID uint64, ownerUID string) ([]model.Booking, error) {
	const checkQ = `SELECT m.owner_uid
                    FROM session_dates d
                    JOIN mini_sessions m ON m.id = d.session_id
                    WHERE d.id = ?`
	var actual string
	err := r.db.QueryRowContext(ctx, checkQ, dateID).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if actual != ownerUID {
		return nil, ErrForbidden
	}
	const q = `SELECT b.id, b.slot_id, b.session_id, b.reference, b.contact_email, b.contact_name,
                      b.status, b.payment_ref, b.created_at, b.updated_at
               FROM bookings b
               JOIN slots sl ON sl.id = b.slot_id
               WHERE sl.session_date_id = ?
               ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, dateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// OwnerOf resolves the owner of the session a booking belongs to, for
// authorization checks ahead of cancellation.
func (r *BookingRepo) OwnerOf(ctx context.Context, bookingID uint64) (string, error) {
	const q = `SELECT m.owner_uid
               FROM bookings b
               JOIN mini_sessions m ON m.id = b.session_id
               WHERE b.id = ?`
	var owner string
	err := r.db.QueryRowContext(ctx, q, bookingID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", engine.ErrNotFound
	}
	return owner, err
}
