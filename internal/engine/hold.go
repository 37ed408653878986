package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Hold is the receipt returned to a visitor who reserved a slot ahead of
// payment.  The token correlates later renew/confirm calls.
type Hold struct {
	SlotID    uint64    `json:"slot_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HoldManager grants, renews and releases temporary holds.  It delegates
// every transition to the store's conditional writes, so it is safe to run
// from any number of request handlers across processes.
type HoldManager struct {
	slots      SlotStore
	sessions   SessionStore
	waitlist   *Coordinator // may be nil; notified on voluntary release
	defaultTTL time.Duration
	now        Clock
}

// NewHoldManager constructs a HoldManager.  defaultTTL applies to sessions
// without a per-session override.  waitlist may be nil when promotion is
// not wired (tests).
func NewHoldManager(slots SlotStore, sessions SessionStore, waitlist *Coordinator, defaultTTL time.Duration, now Clock) *HoldManager {
	if slots == nil || sessions == nil {
		panic("nil store passed to NewHoldManager")
	}
	if now == nil {
		now = utcNow
	}
	return &HoldManager{slots: slots, sessions: sessions, waitlist: waitlist, defaultTTL: defaultTTL, now: now}
}

// PlaceHold reserves a slot for holderContact for the session's TTL.  The
// underlying write succeeds only when the slot is AVAILABLE or carries a
// hold that has already lapsed, so two concurrent requests can never both
// win; the loser observes ErrSlotUnavailable.
func (m *HoldManager) PlaceHold(ctx context.Context, slotID uint64, holderContact string) (*Hold, error) {
	session, err := m.sessions.GetSessionForSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	until := now.Add(holdTTL(session, m.defaultTTL))
	token := uuid.NewString()
	if err := m.slots.PlaceHold(ctx, slotID, holderContact, token, until, now); err != nil {
		return nil, err
	}
	return &Hold{SlotID: slotID, Token: token, ExpiresAt: until}, nil
}

// RenewHold extends the caller's hold by a fresh TTL.  Only the current
// holder may renew; a lapsed hold cannot be revived.
func (m *HoldManager) RenewHold(ctx context.Context, slotID uint64, holderContact string) (*Hold, error) {
	session, err := m.sessions.GetSessionForSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	until := now.Add(holdTTL(session, m.defaultTTL))
	if err := m.slots.RenewHold(ctx, slotID, holderContact, until, now); err != nil {
		return nil, err
	}
	return &Hold{SlotID: slotID, ExpiresAt: until}, nil
}

// ReleaseHold gives the slot back voluntarily.  Releasing a slot the
// caller no longer holds is a silent no-op.  A real release notifies the
// Waitlist Coordinator so the next standby entry can be promoted.
func (m *HoldManager) ReleaseHold(ctx context.Context, slotID uint64, holderContact string) error {
	slot, err := m.slots.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	released, err := m.slots.ReleaseHold(ctx, slotID, holderContact)
	if err != nil {
		return err
	}
	if released && m.waitlist != nil {
		return m.waitlist.OnSlotReleased(ctx, slot)
	}
	return nil
}
