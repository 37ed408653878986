package model

import "time"

// MiniSession is a bookable offering template published by a photographer.
// Dates are scheduled under a session and divided into fixed-length slots
// of DurationMinutes + BufferMinutes.  Once slots have been generated the
// generation fields are frozen; only display fields may still change.
//
// Fields:
//  ID              – primary key identifier.
//  OwnerUID        – account identifier of the photographer who owns it.
//  Name            – public display name.
//  Description     – public display description.
//  DurationMinutes – length of a single slot.
//  BufferMinutes   – gap between consecutive slots.
//  PriceCents      – full price per slot in cents.
//  DepositCents    – deposit collected at booking time, in cents.
//  CapacityPerSlot – number of parallel slot rows generated per interval.
//  HoldTTLMinutes  – hold lifetime override; 0 means use the global default.
//  AllowWaitlist   – whether visitors may join a waitlist when full.
//  AutoConfirm     – when true, booking skips the hold step (no payment gate).
//  Published       – whether the session is visible to the public.
type MiniSession struct {
	ID              uint64    // mini_sessions.id
	OwnerUID        string    // mini_sessions.owner_uid
	Name            string    // mini_sessions.name
	Description     string    // mini_sessions.description
	DurationMinutes uint32    // mini_sessions.duration_minutes
	BufferMinutes   uint32    // mini_sessions.buffer_minutes
	PriceCents      uint32    // mini_sessions.price_cents
	DepositCents    uint32    // mini_sessions.deposit_cents
	CapacityPerSlot uint32    // mini_sessions.capacity_per_slot
	HoldTTLMinutes  uint32    // mini_sessions.hold_ttl_minutes
	AllowWaitlist   bool      // mini_sessions.allow_waitlist
	AutoConfirm     bool      // mini_sessions.auto_confirm
	Published       bool      // mini_sessions.published
	CreatedAt       time.Time // mini_sessions.created_at
	UpdatedAt       time.Time // mini_sessions.updated_at
}
