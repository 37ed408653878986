package engine

import (
	"context"
	"time"

	"github.com/Dilaxno/photomark-backend/internal/model"
)

// Clock supplies the current instant.  Components default to UTC wall time;
// tests substitute a manual clock.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// SlotStore is the durable record of slot state.  Every mutating method is
// a compare-and-swap: the write succeeds only when the row still satisfies
// the stated precondition, so two racing callers can never both win.
type SlotStore interface {
	// GetSlot returns the slot or ErrNotFound.
	GetSlot(ctx context.Context, slotID uint64) (*model.Slot, error)

	// ListAvailable returns slots under a date that are AVAILABLE, or HELD
	// with held_until < asOf (stale holds read as available), ordered by
	// start time.
	ListAvailable(ctx context.Context, sessionDateID uint64, asOf time.Time) ([]model.Slot, error)

	// PlaceHold transitions AVAILABLE→HELD, or steals a hold whose
	// held_until < now.  Returns ErrSlotUnavailable when the slot is
	// genuinely held or booked, ErrNotFound for an unknown slot.
	PlaceHold(ctx context.Context, slotID uint64, holder, token string, until, now time.Time) error

	// RenewHold extends held_until for the current, unexpired holder.
	// Returns ErrHoldMismatch for a foreign holder, ErrExpiredHold when the
	// caller's hold has already lapsed.
	RenewHold(ctx context.Context, slotID uint64, holder string, until, now time.Time) error

	// ReleaseHold transitions HELD→AVAILABLE when held by holder.  It is
	// idempotent: releasing a slot not held by the caller is a no-op and
	// reports released=false.
	ReleaseHold(ctx context.Context, slotID uint64, holder string) (released bool, err error)

	// ExpiredHolds returns up to limit slots with status HELD and
	// held_until < now, oldest expiry first.
	ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Slot, error)

	// Reclaim transitions HELD→AVAILABLE keyed on the exact held_until the
	// sweeper observed, so a hold renewed in between is left alone.
	// Reports whether this call performed the transition.
	Reclaim(ctx context.Context, slotID uint64, heldUntil time.Time) (bool, error)
}

// BookingStore persists bookings and performs the booked-state transitions
// that must be atomic with the booking row itself.
type BookingStore interface {
	// Confirm inserts the booking and transitions the slot to BOOKED in a
	// single transaction.  The transition requires the slot to be HELD by
	// holder with an unexpired hold, or — when autoConfirm is set —
	// AVAILABLE.  On contention the second caller fails with
	// ErrSlotUnavailable, ErrHoldMismatch or ErrExpiredHold depending on
	// the state it observed; a duplicate booking is never created.
	Confirm(ctx context.Context, b *model.Booking, holder string, autoConfirm bool, now time.Time) error

	// Cancel marks the booking CANCELLED (kept for audit) and frees its
	// slot in the same transaction.  freed is false when the booking was
	// already cancelled.  Returns ErrNotFound for an unknown booking.
	Cancel(ctx context.Context, bookingID uint64) (slot *model.Slot, freed bool, err error)

	// GetBooking returns the booking or ErrNotFound.
	GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error)
}

// SessionStore resolves MiniSession configuration the engine needs: hold
// TTL override, auto-confirm and waitlist flags.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID uint64) (*model.MiniSession, error)
	GetSessionForSlot(ctx context.Context, slotID uint64) (*model.MiniSession, error)
}

// WaitlistStore owns WaitlistEntry rows; only the Coordinator mutates them.
type WaitlistStore interface {
	CreateEntry(ctx context.Context, e *model.WaitlistEntry) error

	// ListWaiting returns WAITING entries for the session whose date
	// preference is sessionDateID or unset, FIFO by creation time with ID
	// as tie-break.
	ListWaiting(ctx context.Context, sessionID, sessionDateID uint64) ([]model.WaitlistEntry, error)

	// FindNotifiedBySlot returns the NOTIFIED entry whose promotional hold
	// sits on slotID, or nil when there is none.
	FindNotifiedBySlot(ctx context.Context, slotID uint64) (*model.WaitlistEntry, error)

	MarkNotified(ctx context.Context, entryID, slotID uint64, at time.Time) error
	MarkWaiting(ctx context.Context, entryID uint64) error
	MarkExpired(ctx context.Context, entryID uint64) error
	MarkConverted(ctx context.Context, entryID, bookingID uint64) error
}

// EventPublisher emits domain events for downstream notification delivery.
// Publishing is fire-and-forget: implementations log failures and never
// interrupt the booking flow.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, b *model.Booking, s *model.Slot)
	BookingCancelled(ctx context.Context, b *model.Booking, s *model.Slot)
	WaitlistNotified(ctx context.Context, e *model.WaitlistEntry, s *model.Slot, holdUntil time.Time)
}

// holdTTL resolves the hold lifetime for a session: the per-session
// override when set, otherwise the configured default.
func holdTTL(s *model.MiniSession, def time.Duration) time.Duration {
	if s != nil && s.HoldTTLMinutes > 0 {
		return time.Duration(s.HoldTTLMinutes) * time.Minute
	}
	return def
}
