package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dilaxno/photomark-backend/internal/model"
)

// memStore is an in-memory implementation of the store interfaces with
// the same conditional-write semantics as the SQL repositories.  A single
// mutex serializes writes, so goroutine races exercise the CAS rules
// rather than data races.
type memStore struct {
	mu          sync.Mutex
	slots       map[uint64]*model.Slot
	sessions    map[uint64]*model.MiniSession
	slotSession map[uint64]uint64
	bookings    map[uint64]*model.Booking
	entries     map[uint64]*model.WaitlistEntry
	nextBooking uint64
	nextEntry   uint64
	seq         int64 // entry creation order tie-break
}

func newMemStore() *memStore {
	return &memStore{
		slots:       make(map[uint64]*model.Slot),
		sessions:    make(map[uint64]*model.MiniSession),
		slotSession: make(map[uint64]uint64),
		bookings:    make(map[uint64]*model.Booking),
		entries:     make(map[uint64]*model.WaitlistEntry),
	}
}

func (m *memStore) addSession(s *model.MiniSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *memStore) addSlot(s *model.Slot, sessionID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Status == "" {
		s.Status = model.SlotAvailable
	}
	m.slots[s.ID] = s
	m.slotSession[s.ID] = sessionID
}

func (m *memStore) slotCopy(id uint64) *model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.slots[id]
	return &s
}

func (m *memStore) entryCopy(id uint64) *model.WaitlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := *m.entries[id]
	return &e
}

// SlotStore

func (m *memStore) GetSlot(_ context.Context, slotID uint64) (*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListAvailable(_ context.Context, dateID uint64, asOf time.Time) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Slot, 0)
	for _, s := range m.slots {
		if s.SessionDateID != dateID {
			continue
		}
		if s.Status == model.SlotAvailable ||
			(s.Status == model.SlotHeld && s.HeldUntil != nil && s.HeldUntil.Before(asOf)) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (m *memStore) PlaceHold(_ context.Context, slotID uint64, holder, token string, until, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return ErrNotFound
	}
	free := s.Status == model.SlotAvailable ||
		(s.Status == model.SlotHeld && s.HeldUntil != nil && s.HeldUntil.Before(now))
	if !free {
		return ErrSlotUnavailable
	}
	u := until
	h := holder
	t := token
	s.Status = model.SlotHeld
	s.HeldUntil = &u
	s.HeldBy = &h
	s.HoldToken = &t
	s.Version++
	return nil
}

func (m *memStore) RenewHold(_ context.Context, slotID uint64, holder string, until, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return ErrNotFound
	}
	if s.Status == model.SlotHeld && s.HeldBy != nil && *s.HeldBy == holder {
		if s.HeldUntil == nil || !s.HeldUntil.After(now) {
			return ErrExpiredHold
		}
		u := until
		s.HeldUntil = &u
		s.Version++
		return nil
	}
	return ErrHoldMismatch
}

func (m *memStore) ReleaseHold(_ context.Context, slotID uint64, holder string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return false, ErrNotFound
	}
	if s.Status != model.SlotHeld || s.HeldBy == nil || *s.HeldBy != holder {
		return false, nil
	}
	m.clearHoldLocked(s)
	return true, nil
}

func (m *memStore) ExpiredHolds(_ context.Context, now time.Time, limit int) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Slot, 0)
	for _, s := range m.slots {
		if s.Status == model.SlotHeld && s.HeldUntil != nil && s.HeldUntil.Before(now) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HeldUntil.Before(*out[j].HeldUntil) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Reclaim(_ context.Context, slotID uint64, heldUntil time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return false, ErrNotFound
	}
	if s.Status != model.SlotHeld || s.HeldUntil == nil || !s.HeldUntil.Equal(heldUntil) {
		return false, nil
	}
	m.clearHoldLocked(s)
	return true, nil
}

func (m *memStore) clearHoldLocked(s *model.Slot) {
	s.Status = model.SlotAvailable
	s.HeldUntil = nil
	s.HeldBy = nil
	s.HoldToken = nil
	s.Version++
}

// BookingStore

func (m *memStore) Confirm(_ context.Context, b *model.Booking, holder string, autoConfirm bool, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[b.SlotID]
	if !ok {
		return ErrNotFound
	}
	switch s.Status {
	case model.SlotHeld:
		if s.HeldBy == nil || *s.HeldBy != holder {
			return ErrHoldMismatch
		}
		if s.HeldUntil == nil || !s.HeldUntil.After(now) {
			return ErrExpiredHold
		}
	case model.SlotAvailable:
		if !autoConfirm {
			return ErrExpiredHold
		}
	default:
		return ErrSlotUnavailable
	}
	m.nextBooking++
	b.ID = m.nextBooking
	b.CreatedAt = now
	cp := *b
	m.bookings[b.ID] = &cp
	s.Status = model.SlotBooked
	s.HeldUntil = nil
	s.HeldBy = nil
	s.HoldToken = nil
	s.BookingID = &cp.ID
	s.Version++
	return nil
}

func (m *memStore) Cancel(_ context.Context, bookingID uint64) (*model.Slot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, false, ErrNotFound
	}
	if b.Status == model.BookingCancelled {
		return nil, false, nil
	}
	b.Status = model.BookingCancelled
	s := m.slots[b.SlotID]
	if s.Status == model.SlotBooked && s.BookingID != nil && *s.BookingID == bookingID {
		s.Status = model.SlotAvailable
		s.BookingID = nil
		s.Version++
	}
	cp := *s
	return &cp, true, nil
}

func (m *memStore) GetBooking(_ context.Context, bookingID uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// SessionStore

func (m *memStore) GetSession(_ context.Context, sessionID uint64) (*model.MiniSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) GetSessionForSlot(_ context.Context, slotID uint64) (*model.MiniSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sid, ok := m.slotSession[slotID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.sessions[sid]
	return &cp, nil
}

// WaitlistStore

func (m *memStore) CreateEntry(_ context.Context, e *model.WaitlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEntry++
	m.seq++
	e.ID = m.nextEntry
	e.Status = model.WaitlistWaiting
	e.CreatedAt = time.Unix(0, m.seq)
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *memStore) ListWaiting(_ context.Context, sessionID, sessionDateID uint64) ([]model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.WaitlistEntry, 0)
	for _, e := range m.entries {
		if e.SessionID != sessionID || e.Status != model.WaitlistWaiting {
			continue
		}
		if e.SessionDateID != nil && *e.SessionDateID != sessionDateID {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) FindNotifiedBySlot(_ context.Context, slotID uint64) (*model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Status == model.WaitlistNotified && e.NotifiedSlotID != nil && *e.NotifiedSlotID == slotID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) MarkNotified(_ context.Context, entryID, slotID uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok || e.Status != model.WaitlistWaiting {
		return ErrNotFound
	}
	t := at
	sid := slotID
	e.Status = model.WaitlistNotified
	e.NotifiedAt = &t
	e.NotifiedSlotID = &sid
	return nil
}

func (m *memStore) MarkWaiting(_ context.Context, entryID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[entryID]; ok && e.Status == model.WaitlistNotified {
		e.Status = model.WaitlistWaiting
		e.NotifiedAt = nil
		e.NotifiedSlotID = nil
	}
	return nil
}

func (m *memStore) MarkExpired(_ context.Context, entryID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[entryID]; ok && e.Status == model.WaitlistNotified {
		e.Status = model.WaitlistExpired
	}
	return nil
}

func (m *memStore) MarkConverted(_ context.Context, entryID, bookingID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok || e.Status != model.WaitlistNotified {
		return ErrNotFound
	}
	e.Status = model.WaitlistConverted
	return nil
}

// fakeClock is a manual clock shared by engine components under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingPublisher counts emitted events.
type recordingPublisher struct {
	mu        sync.Mutex
	confirmed int
	cancelled int
	notified  int
}

func (p *recordingPublisher) BookingConfirmed(context.Context, *model.Booking, *model.Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed++
}

func (p *recordingPublisher) BookingCancelled(context.Context, *model.Booking, *model.Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled++
}

func (p *recordingPublisher) WaitlistNotified(context.Context, *model.WaitlistEntry, *model.Slot, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notified++
}

func (p *recordingPublisher) counts() (confirmed, cancelled, notified int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirmed, p.cancelled, p.notified
}
