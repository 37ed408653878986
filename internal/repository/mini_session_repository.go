package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dilaxno/photomark-backend/internal/engine"
	"github.com/Dilaxno/photomark-backend/internal/model"
)

// MiniSessionRepo provides persistence for mini-session templates.  A
// session is owned exclusively by its creator; ownership is enforced here
// so handlers only translate errors.
type MiniSessionRepo struct {
	db *sql.DB
}

// NewMiniSessionRepo returns a new MiniSessionRepo bound to the database.
func NewMiniSessionRepo(db *sql.DB) *MiniSessionRepo { return &MiniSessionRepo{db: db} }

const sessionColumns = `id, owner_uid, name, description, duration_minutes, buffer_minutes,
       price_cents, deposit_cents, capacity_per_slot, hold_ttl_minutes,
       allow_waitlist, auto_confirm, published, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*model.MiniSession, error) {
	var s model.MiniSession
	err := row.Scan(
		&s.ID, &s.OwnerUID, &s.Name, &s.Description, &s.DurationMinutes, &s.BufferMinutes,
		&s.PriceCents, &s.DepositCents, &s.CapacityPerSlot, &s.HoldTTLMinutes,
		&s.AllowWaitlist, &s.AutoConfirm, &s.Published, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new mini-session and populates the generated ID and
// DB-default timestamps on the given struct.
func (r *MiniSessionRepo) Create(ctx context.Context, s *model.MiniSession) error {
	const q = `INSERT INTO mini_sessions
               (owner_uid, name, description, duration_minutes, buffer_minutes,
                price_cents, deposit_cents, capacity_per_slot, hold_ttl_minutes,
                allow_waitlist, auto_confirm, published)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		s.OwnerUID, s.Name, s.Description, s.DurationMinutes, s.BufferMinutes,
		s.PriceCents, s.DepositCents, s.CapacityPerSlot, s.HoldTTLMinutes,
		s.AllowWaitlist, s.AutoConfirm, s.Published,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT ` + sessionColumns + ` FROM mini_sessions WHERE id = ?`
	got, err := scanSession(r.db.QueryRowContext(ctx, sel, s.ID))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// GetSession returns a mini-session by ID or engine.ErrNotFound.
func (r *MiniSessionRepo) GetSession(ctx context.Context, sessionID uint64) (*model.MiniSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM mini_sessions WHERE id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	return s, err
}

// GetSessionForSlot resolves the mini-session a slot belongs to, joining
// through session_dates.  Returns engine.ErrNotFound for an unknown slot.
func (r *MiniSessionRepo) GetSessionForSlot(ctx context.Context, slotID uint64) (*model.MiniSession, error) {
	const q = `SELECT m.id, m.owner_uid, m.name, m.description, m.duration_minutes, m.buffer_minutes,
                      m.price_cents, m.deposit_cents, m.capacity_per_slot, m.hold_ttl_minutes,
                      m.allow_waitlist, m.auto_confirm, m.published, m.created_at, m.updated_at
               FROM slots sl
               JOIN session_dates d ON d.id = sl.session_date_id
               JOIN mini_sessions m ON m.id = d.session_id
               WHERE sl.id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	return s, err
}

// GetForOwner returns a session after verifying ownership.  It returns
// engine.ErrNotFound for a missing session and ErrForbidden when the
// caller does not own it.
func (r *MiniSessionRepo) GetForOwner(ctx context.Context, sessionID uint64, ownerUID string) (*model.MiniSession, error) {
	s, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.OwnerUID != ownerUID {
		return nil, ErrForbidden
	}
	return s, nil
}

// ListByOwner returns all sessions created by the owner, newest first.
func (r *MiniSessionRepo) ListByOwner(ctx context.Context, ownerUID string) ([]model.MiniSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM mini_sessions
               WHERE owner_uid = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]model.MiniSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// UpdateDisplay changes the fields that stay mutable after slots have
// been generated: name, description and the publish flag.  Generation
// fields (duration, buffer, capacity) are frozen by omission.
func (r *MiniSessionRepo) UpdateDisplay(ctx context.Context, sessionID uint64, ownerUID, name, description string, published bool) error {
	if _, err := r.GetForOwner(ctx, sessionID, ownerUID); err != nil {
		return err
	}
	const q = `UPDATE mini_sessions SET name = ?, description = ?, published = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, name, description, published, sessionID)
	return err
}
