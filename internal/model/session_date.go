package model

import "time"

// SessionDate is one calendar date scheduled under a MiniSession.  Its
// window (StartsAt..EndsAt) is divided into slots at creation time.
// Deleting a date cascades to its slots.
type SessionDate struct {
	ID            uint64    // session_dates.id
	SessionID     uint64    // session_dates.session_id
	Date          string    // session_dates.date (YYYY-MM-DD)
	StartsAt      time.Time // session_dates.starts_at (window open, UTC)
	EndsAt        time.Time // session_dates.ends_at (window close, UTC)
	Location      string    // session_dates.location (override, may be empty)
	LocationNotes string    // session_dates.location_notes
	CreatedAt     time.Time // session_dates.created_at
}
