package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Dilaxno/photomark-backend/internal/engine"
	"github.com/Dilaxno/photomark-backend/internal/model"
)

// WaitlistRepo provides persistence for waitlist entries.  Entries are
// owned by the Waitlist Coordinator; nothing else mutates them.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistColumns = `id, session_id, session_date_id, contact_email, contact_name,
       preferred_times, status, notified_at, notified_slot_id, created_at`

func scanEntry(row interface{ Scan(...interface{}) error }) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	var dateID, slotID sql.NullInt64
	var prefs sql.NullString
	var notifiedAt sql.NullTime
	err := row.Scan(
		&e.ID, &e.SessionID, &dateID, &e.ContactEmail, &e.ContactName,
		&prefs, &e.Status, &notifiedAt, &slotID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dateID.Valid {
		v := uint64(dateID.Int64)
		e.SessionDateID = &v
	}
	if slotID.Valid {
		v := uint64(slotID.Int64)
		e.NotifiedSlotID = &v
	}
	if notifiedAt.Valid {
		t := notifiedAt.Time.UTC()
		e.NotifiedAt = &t
	}
	if prefs.Valid && prefs.String != "" {
		// A row with unparsable preferences still promotes; the engine
		// treats an empty list as matching everything.
		_ = json.Unmarshal([]byte(prefs.String), &e.PreferredTimes)
	}
	return &e, nil
}

// CreateEntry inserts a new WAITING entry and populates its ID and
// creation timestamp.
func (r *WaitlistRepo) CreateEntry(ctx context.Context, e *model.WaitlistEntry) error {
	var prefs interface{}
	if len(e.PreferredTimes) > 0 {
		raw, err := json.Marshal(e.PreferredTimes)
		if err != nil {
			return err
		}
		prefs = string(raw)
	}
	var dateID interface{}
	if e.SessionDateID != nil {
		dateID = *e.SessionDateID
	}
	const q = `INSERT INTO waitlist_entries
               (session_id, session_date_id, contact_email, contact_name, preferred_times, status)
               VALUES (?, ?, ?, ?, ?, 'WAITING')`
	res, err := r.db.ExecContext(ctx, q, e.SessionID, dateID, e.ContactEmail, e.ContactName, prefs)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.Status = model.WaitlistWaiting
	return r.db.QueryRowContext(ctx,
		`SELECT created_at FROM waitlist_entries WHERE id = ?`, e.ID,
	).Scan(&e.CreatedAt)
}

// ListWaiting returns WAITING entries for a session that either prefer
// the given date or have no date preference, FIFO by creation time with
// ID as the tie-break.
func (r *WaitlistRepo) ListWaiting(ctx context.Context, sessionID, sessionDateID uint64) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistColumns + ` FROM waitlist_entries
               WHERE session_id = ? AND status = 'WAITING'
                 AND (session_date_id IS NULL OR session_date_id = ?)
               ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, sessionID, sessionDateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// FindNotifiedBySlot returns the NOTIFIED entry whose promotional hold
// sits on the slot, or nil when there is none.
func (r *WaitlistRepo) FindNotifiedBySlot(ctx context.Context, slotID uint64) (*model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistColumns + ` FROM waitlist_entries
               WHERE notified_slot_id = ? AND status = 'NOTIFIED'
               ORDER BY notified_at DESC LIMIT 1`
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// MarkNotified promotes an entry: WAITING → NOTIFIED with the slot it was
// promoted onto.  The status condition keeps a double promotion from two
// racing releases.
func (r *WaitlistRepo) MarkNotified(ctx context.Context, entryID, slotID uint64, at time.Time) error {
	const q = `UPDATE waitlist_entries
               SET status = 'NOTIFIED', notified_at = ?, notified_slot_id = ?
               WHERE id = ? AND status = 'WAITING'`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), slotID, entryID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

// MarkWaiting reverts a promotion that lost the race for its slot.
func (r *WaitlistRepo) MarkWaiting(ctx context.Context, entryID uint64) error {
	const q = `UPDATE waitlist_entries
               SET status = 'WAITING', notified_at = NULL, notified_slot_id = NULL
               WHERE id = ? AND status = 'NOTIFIED'`
	_, err := r.db.ExecContext(ctx, q, entryID)
	return err
}

// MarkExpired retires a NOTIFIED entry whose promotional hold lapsed
// without conversion.
func (r *WaitlistRepo) MarkExpired(ctx context.Context, entryID uint64) error {
	const q = `UPDATE waitlist_entries SET status = 'EXPIRED'
               WHERE id = ? AND status = 'NOTIFIED'`
	_, err := r.db.ExecContext(ctx, q, entryID)
	return err
}

// MarkConverted records that a promoted visitor completed their booking.
func (r *WaitlistRepo) MarkConverted(ctx context.Context, entryID, bookingID uint64) error {
	const q = `UPDATE waitlist_entries SET status = 'CONVERTED', converted_booking_id = ?
               WHERE id = ? AND status = 'NOTIFIED'`
	res, err := r.db.ExecContext(ctx, q, bookingID, entryID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}
