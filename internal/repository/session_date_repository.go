package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dilaxno/photomark-backend/internal/engine"
	"github.com/Dilaxno/photomark-backend/internal/model"
)

// SessionDateRepo provides persistence for scheduled dates and generates
// their slots.  Deleting a date cascades to its slots via the FK.
type SessionDateRepo struct {
	db *sql.DB
}

// NewSessionDateRepo returns a new SessionDateRepo bound to the database.
func NewSessionDateRepo(db *sql.DB) *SessionDateRepo { return &SessionDateRepo{db: db} }

// CreateWithSlots inserts a session date and generates its slots in one
// transaction.  The date's window is divided into fixed-length intervals
// of duration+buffer minutes; capacity_per_slot parallel rows are created
// per interval.  Generation is idempotent per date: a count guard inside
// the transaction plus the UNIQUE(session_date_id, starts_at, position)
// key make re-runs a no-op instead of a duplicate set.
func (r *SessionDateRepo) CreateWithSlots(ctx context.Context, d *model.SessionDate, s *model.MiniSession) error {
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
	const ins = `INSERT INTO session_dates (session_id, date, starts_at, ends_at, location, location_notes)
                 VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins,
		d.SessionID, d.Date, d.StartsAt.UTC(), d.EndsAt.UTC(), d.Location, d.LocationNotes,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	if err := generateSlotsTx(ctx, tx, d, s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GenerateSlots re-runs slot generation for an existing date.  Because
// generation is guarded, calling it again after a successful run creates
// nothing.
func (r *SessionDateRepo) GenerateSlots(ctx context.Context, d *model.SessionDate, s *model.MiniSession) error {
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
	if err := generateSlotsTx(ctx, tx, d, s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// generateSlotsTx divides the date window into steps of duration+buffer
// and bulk-inserts the slot rows.  A window too short for even one slot
// yields none, which is valid.
func generateSlotsTx(ctx context.Context, tx *sql.Tx, d *model.SessionDate, s *model.MiniSession) error {
	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slots WHERE session_date_id = ?`, d.ID,
	).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	step := time.Duration(s.DurationMinutes+s.BufferMinutes) * time.Minute
	length := time.Duration(s.DurationMinutes) * time.Minute
	if step <= 0 {
		return nil
	}
	capacity := s.CapacityPerSlot
	if capacity == 0 {
		capacity = 1
	}
	query := `INSERT INTO slots (session_date_id, starts_at, ends_at, position, status) VALUES `
	args := make([]interface{}, 0)
	first := true
	for start := d.StartsAt.UTC(); !start.Add(length).After(d.EndsAt.UTC()); start = start.Add(step) {
		for pos := uint32(0); pos < capacity; pos++ {
			if !first {
				query += ","
			}
			first = false
			query += "(?, ?, ?, ?, 'AVAILABLE')"
			args = append(args, d.ID, start, start.Add(length), pos)
		}
	}
	if first {
		return nil
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetDate returns a session date by ID or engine.ErrNotFound.
func (r *SessionDateRepo) GetDate(ctx context.Context, dateID uint64) (*model.SessionDate, error) {
	const q = `SELECT id, session_id, date, starts_at, ends_at, location, location_notes, created_at
               FROM session_dates WHERE id = ?`
	var d model.SessionDate
	err := r.db.QueryRowContext(ctx, q, dateID).Scan(
		&d.ID, &d.SessionID, &d.Date, &d.StartsAt, &d.EndsAt, &d.Location, &d.LocationNotes, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListBySession returns all dates scheduled under a session, earliest
// first.
func (r *SessionDateRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.SessionDate, error) {
	const q = `SELECT id, session_id, date, starts_at, ends_at, location, location_notes, created_at
               FROM session_dates WHERE session_id = ? ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	dates := make([]model.SessionDate, 0)
	for rows.Next() {
		var d model.SessionDate
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Date, &d.StartsAt, &d.EndsAt, &d.Location, &d.LocationNotes, &d.CreatedAt); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// DeleteForOwner removes a date after verifying the caller owns the
// parent session.  Slots go with it via the cascading FK.  Returns
// engine.ErrNotFound for a missing date and ErrForbidden for a foreign
// one.
func (r *SessionDateRepo) DeleteForOwner(ctx context.Context, dateID uint64, ownerUID string) error {
	const checkQ = `SELECT m.owner_uid
                    FROM session_dates d
                    JOIN mini_sessions m ON m.id = d.session_id
                    WHERE d.id = ?`
	var actual string
	err := r.db.QueryRowContext(ctx, checkQ, dateID).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ErrNotFound
	}
	if err != nil {
		return err
	}
	if actual != ownerUID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM session_dates WHERE id = ?`, dateID)
	return err
}
