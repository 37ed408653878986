package model

import "time"

// Slot statuses.  A slot moves AVAILABLE → HELD → BOOKED on the normal
// path, HELD → AVAILABLE on expiry or release, and BOOKED → AVAILABLE on
// cancellation.  Only HELD carries an expiry instant.
const (
	SlotAvailable = "AVAILABLE"
	SlotHeld      = "HELD"
	SlotBooked    = "BOOKED"
)

// Slot is the atomic reservable unit: one fixed time interval under a
// SessionDate.  Hold state lives directly on the row so that every status
// transition is a single conditional write.  At any instant a slot has at
// most one of an active hold or a confirmed booking.
//
// Fields:
//  ID            – primary key identifier.
//  SessionDateID – the date this slot belongs to.
//  StartsAt      – slot start (UTC).
//  EndsAt        – slot end (UTC).
//  Position      – index within the interval when capacity_per_slot > 1.
//  Status        – AVAILABLE, HELD or BOOKED.
//  HeldUntil     – hold expiry; set only while HELD.
//  HeldBy        – contact identity of the holder; set only while HELD.
//  HoldToken     – opaque token returned to the holder for correlation.
//  BookingID     – reference to the confirmed booking; set only while BOOKED.
//  Version       – bumped on every status transition.
type Slot struct {
	ID            uint64     // slots.id
	SessionDateID uint64     // slots.session_date_id
	StartsAt      time.Time  // slots.starts_at
	EndsAt        time.Time  // slots.ends_at
	Position      uint32     // slots.position
	Status        string     // slots.status
	HeldUntil     *time.Time // slots.held_until (nullable)
	HeldBy        *string    // slots.held_by (nullable)
	HoldToken     *string    // slots.hold_token (nullable)
	BookingID     *uint64    // slots.booking_id (nullable)
	Version       uint32     // slots.version
	CreatedAt     time.Time  // slots.created_at
	UpdatedAt     time.Time  // slots.updated_at
}
