package model

import "time"

// Booking statuses.  Cancelled bookings are kept for audit; the slot is
// the authority on occupancy.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Booking is the confirmed reservation record, linked 1:1 to the slot
// that produced it.  Reference is an opaque public identifier handed to
// the visitor; PaymentRef correlates the external payment.
type Booking struct {
	ID           uint64    // bookings.id
	SlotID       uint64    // bookings.slot_id
	SessionID    uint64    // bookings.session_id
	Reference    string    // bookings.reference
	ContactEmail string    // bookings.contact_email
	ContactName  string    // bookings.contact_name
	Status       string    // bookings.status
	PaymentRef   *string   // bookings.payment_ref (nullable)
	CreatedAt    time.Time // bookings.created_at
	UpdatedAt    time.Time // bookings.updated_at
}
