// Package queue defines the message payloads exchanged over the broker
// and the background consumer that turns them into notification log
// entries.
package queue

// Queue names.  One durable queue per event kind; the routing key equals
// the queue name on the default exchange.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
	WaitlistNotifiedQueue = "waitlist.notified"
)

// BookingConfirmedEvent is published when a slot reservation is
// confirmed.  It carries enough for downstream consumers to send the
// confirmation email without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID    uint64 `json:"booking_id"`
	Reference    string `json:"reference"`
	SlotID       uint64 `json:"slot_id"`
	SessionID    uint64 `json:"session_id"`
	ContactEmail string `json:"contact_email"`
	ContactName  string `json:"contact_name"`
	StartsAt     string `json:"starts_at"`
	EndsAt       string `json:"ends_at"`
	ConfirmedAt  string `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a confirmed booking is
// cancelled and its slot returns to the pool.
type BookingCancelledEvent struct {
	BookingID    uint64 `json:"booking_id"`
	Reference    string `json:"reference"`
	SlotID       uint64 `json:"slot_id"`
	SessionID    uint64 `json:"session_id"`
	ContactEmail string `json:"contact_email"`
	CancelledAt  string `json:"cancelled_at"`
}

// WaitlistNotifiedEvent is published when a waitlist entry is promoted
// onto a freed slot.  HoldExpiresAt tells the notification how long the
// recipient has to claim the slot.
type WaitlistNotifiedEvent struct {
	EntryID       uint64 `json:"entry_id"`
	SessionID     uint64 `json:"session_id"`
	SlotID        uint64 `json:"slot_id"`
	ContactEmail  string `json:"contact_email"`
	ContactName   string `json:"contact_name"`
	StartsAt      string `json:"starts_at"`
	HoldExpiresAt string `json:"hold_expires_at"`
	NotifiedAt    string `json:"notified_at"`
}
