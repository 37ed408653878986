package model

import "time"

// Waitlist entry statuses.
const (
	WaitlistWaiting   = "WAITING"
	WaitlistNotified  = "NOTIFIED"
	WaitlistConverted = "CONVERTED"
	WaitlistExpired   = "EXPIRED"
)

// WaitlistEntry records standby demand for a MiniSession or one of its
// dates.  Promotion is FIFO by CreatedAt (ties broken by ID).  When an
// entry is promoted it becomes NOTIFIED and a hold is placed on the freed
// slot on its behalf; NotifiedSlotID records which slot, so that a lapsed
// promotional hold can expire the entry and move on to the next in line.
type WaitlistEntry struct {
	ID             uint64     // waitlist_entries.id
	SessionID      uint64     // waitlist_entries.session_id
	SessionDateID  *uint64    // waitlist_entries.session_date_id (nullable; nil = any date)
	ContactEmail   string     // waitlist_entries.contact_email
	ContactName    string     // waitlist_entries.contact_name
	PreferredTimes []string   // waitlist_entries.preferred_times (JSON, "HH:MM-HH:MM" ranges)
	Status         string     // waitlist_entries.status
	NotifiedAt     *time.Time // waitlist_entries.notified_at (nullable)
	NotifiedSlotID *uint64    // waitlist_entries.notified_slot_id (nullable)
	CreatedAt      time.Time  // waitlist_entries.created_at
}
