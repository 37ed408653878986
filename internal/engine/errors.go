// Package engine implements the slot reservation state machine: temporary
// holds with expiry, atomic booking confirmation, background reclamation of
// lapsed holds, and FIFO waitlist promotion.  All slot status transitions
// are delegated to the store as conditional writes; the engine never does a
// read-modify-write on slot state.
package engine

import "errors"

// Sentinel errors returned by the engine.  Handlers compare with errors.Is
// and translate to HTTP status codes.  None of these are fatal; contention
// errors in particular are expected under concurrent traffic and must be
// surfaced to the caller rather than retried.
var (
	// ErrSlotUnavailable signals hold/confirm contention: the slot is
	// genuinely held by someone else or already booked.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrHoldMismatch signals that the caller is not the current holder.
	ErrHoldMismatch = errors.New("hold mismatch")

	// ErrExpiredHold signals an operation on a hold whose TTL has lapsed.
	ErrExpiredHold = errors.New("hold expired")

	// ErrNotFound signals an unknown slot, session, date, booking or entry.
	ErrNotFound = errors.New("not found")

	// ErrPaymentFailed propagates a failed payment result.  The hold is
	// left intact so the visitor may retry within the TTL.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrWaitlistClosed signals a join attempt on a session that does not
	// allow waitlisting.
	ErrWaitlistClosed = errors.New("waitlist closed")
)
