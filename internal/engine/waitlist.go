package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dilaxno/photomark-backend/internal/model"
)

// Coordinator records standby demand and promotes the next waiting entry
// whenever capacity is released.  Promotion is first-come-first-served by
// entry creation time.  A promoted entry receives a hold with the same TTL
// as a fresh booker; if that hold lapses unconverted the entry expires and
// the next in line is promoted on the following sweep.
type Coordinator struct {
	waitlist   WaitlistStore
	sessions   SessionStore
	slots      SlotStore
	events     EventPublisher // may be nil
	defaultTTL time.Duration
	now        Clock
}

// NewCoordinator constructs a Coordinator.  events may be nil.
func NewCoordinator(waitlist WaitlistStore, sessions SessionStore, slots SlotStore, events EventPublisher, defaultTTL time.Duration, now Clock) *Coordinator {
	if waitlist == nil || sessions == nil || slots == nil {
		panic("nil store passed to NewCoordinator")
	}
	if now == nil {
		now = utcNow
	}
	return &Coordinator{waitlist: waitlist, sessions: sessions, slots: slots, events: events, defaultTTL: defaultTTL, now: now}
}

// Join adds a standby request for a session, optionally pinned to one of
// its dates.  Sessions that do not allow waitlisting reject the join with
// ErrWaitlistClosed.
func (co *Coordinator) Join(ctx context.Context, sessionID uint64, sessionDateID *uint64, contact Contact, preferredTimes []string) (*model.WaitlistEntry, error) {
	session, err := co.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.AllowWaitlist {
		return nil, ErrWaitlistClosed
	}
	e := &model.WaitlistEntry{
		SessionID:      sessionID,
		SessionDateID:  sessionDateID,
		ContactEmail:   contact.Email,
		ContactName:    contact.Name,
		PreferredTimes: preferredTimes,
		Status:         model.WaitlistWaiting,
	}
	if err := co.waitlist.CreateEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// OnSlotReleased runs one promotion attempt for a freed slot.  The
// earliest-created WAITING entry matching the slot's date (entries with no
// date preference match any date) is marked NOTIFIED and a hold is placed
// on its behalf.  Time preferences act as a secondary filter: entries
// whose ranges exclude the slot's start stay WAITING and the next entry is
// considered.  With no match the slot simply remains available.  The scan
// is bounded by the number of waiting entries.
func (co *Coordinator) OnSlotReleased(ctx context.Context, slot *model.Slot) error {
	session, err := co.sessions.GetSessionForSlot(ctx, slot.ID)
	if err != nil {
		return err
	}
	if !session.AllowWaitlist {
		return nil
	}
	entries, err := co.waitlist.ListWaiting(ctx, session.ID, slot.SessionDateID)
	if err != nil {
		return err
	}
	now := co.now()
	until := now.Add(holdTTL(session, co.defaultTTL))
	for i := range entries {
		e := &entries[i]
		if !matchesPreferredTimes(e.PreferredTimes, slot.StartsAt) {
			continue
		}
		if err := co.waitlist.MarkNotified(ctx, e.ID, slot.ID, now); err != nil {
			// A concurrent promotion already moved this entry; try the next.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		if err := co.slots.PlaceHold(ctx, slot.ID, e.ContactEmail, uuid.NewString(), until, now); err != nil {
			// Someone grabbed the slot first; put the entry back in line.
			if werr := co.waitlist.MarkWaiting(ctx, e.ID); werr != nil {
				log.Printf("waitlist: revert entry %d failed: %v", e.ID, werr)
			}
			if errors.Is(err, ErrSlotUnavailable) {
				return nil
			}
			return err
		}
		if co.events != nil {
			e.Status = model.WaitlistNotified
			e.NotifiedAt = &now
			e.NotifiedSlotID = &slot.ID
			co.events.WaitlistNotified(ctx, e, slot, until)
		}
		return nil
	}
	return nil
}

// HoldLapsed is invoked by the sweeper for every hold it reclaims.  When
// the lapsed hold was a promotional one, the corresponding NOTIFIED entry
// expires before the next-in-line promotion runs for the same slot.
func (co *Coordinator) HoldLapsed(ctx context.Context, slot *model.Slot) error {
	entry, err := co.waitlist.FindNotifiedBySlot(ctx, slot.ID)
	if err != nil {
		return err
	}
	if entry != nil {
		if err := co.waitlist.MarkExpired(ctx, entry.ID); err != nil {
			return err
		}
	}
	return co.OnSlotReleased(ctx, slot)
}

// Convert marks a promoted entry CONVERTED once its visitor completed a
// booking.
func (co *Coordinator) Convert(ctx context.Context, entryID, bookingID uint64) error {
	return co.waitlist.MarkConverted(ctx, entryID, bookingID)
}

// convertForSlot converts the NOTIFIED entry sitting on slotID when its
// contact is the one who just booked.  Failures are logged only; the
// booking has already committed.
func (co *Coordinator) convertForSlot(ctx context.Context, slotID uint64, contact string, bookingID uint64) {
	entry, err := co.waitlist.FindNotifiedBySlot(ctx, slotID)
	if err != nil || entry == nil {
		return
	}
	if !strings.EqualFold(entry.ContactEmail, contact) {
		return
	}
	if err := co.waitlist.MarkConverted(ctx, entry.ID, bookingID); err != nil {
		log.Printf("waitlist: convert entry %d failed: %v", entry.ID, err)
	}
}

// matchesPreferredTimes reports whether a slot start satisfies an entry's
// preferred time ranges ("HH:MM-HH:MM", slot-start clock time, UTC).  An
// empty preference list matches everything; a malformed range is skipped
// rather than treated as a veto.
func matchesPreferredTimes(ranges []string, start time.Time) bool {
	if len(ranges) == 0 {
		return true
	}
	minutes := start.Hour()*60 + start.Minute()
	for _, r := range ranges {
		from, to, ok := parseTimeRange(r)
		if !ok {
			continue
		}
		if minutes >= from && minutes < to {
			return true
		}
	}
	return false
}

func parseTimeRange(r string) (from, to int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(r), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	from, ok = parseClock(parts[0])
	if !ok {
		return 0, 0, false
	}
	to, ok = parseClock(parts[1])
	if !ok || to <= from {
		return 0, 0, false
	}
	return from, to, true
}

func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
