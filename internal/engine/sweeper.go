package engine

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper reclaims slots whose holds have lapsed.  Reads already treat
// stale holds as available, so the sweep exists to keep storage consistent
// and to drive waitlist promotion, which nothing triggers on pure reads.
// Each pass reclaims with the same compare-and-swap discipline as
// placeHold, keyed on the exact held_until it observed, so a hold renewed
// between read and write is never clobbered.
type Sweeper struct {
	slots    SlotStore
	waitlist *Coordinator // may be nil
	batch    int
	now      Clock
	cron     *cron.Cron
}

// NewSweeper constructs a Sweeper.  batch caps the number of holds
// reclaimed per pass; waitlist may be nil.
func NewSweeper(slots SlotStore, waitlist *Coordinator, batch int, now Clock) *Sweeper {
	if slots == nil {
		panic("nil store passed to NewSweeper")
	}
	if now == nil {
		now = utcNow
	}
	if batch <= 0 {
		batch = 200
	}
	return &Sweeper{slots: slots, waitlist: waitlist, batch: batch, now: now}
}

// Start schedules recurring sweeps at the given cadence.  Shorter cadence
// reduces inventory lock-up at the cost of more write load; the value is a
// deployment tunable, not a constant.
func (s *Sweeper) Start(every time.Duration) {
	s.cron = cron.New()
	s.cron.Schedule(cron.Every(every), cron.FuncJob(func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			log.Printf("sweeper: pass failed: %v", err)
		}
	}))
	s.cron.Start()
	log.Printf("sweeper: running every %s", every)
}

// Stop halts the schedule and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep runs one pass: every slot with a lapsed hold is atomically
// returned to AVAILABLE and reported to the Waitlist Coordinator exactly
// once.  A failure on an individual slot is logged and the pass moves on;
// one bad row must not halt the sweep.  Running the sweep twice in
// succession cannot double-transition a slot or double-notify the
// waitlist, because the second reclaim's CAS finds the row already moved.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.slots.ExpiredHolds(ctx, now, s.batch)
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for i := range expired {
		slot := &expired[i]
		if slot.HeldUntil == nil {
			continue
		}
		ok, err := s.slots.Reclaim(ctx, slot.ID, *slot.HeldUntil)
		if err != nil {
			log.Printf("sweeper: reclaim slot %d: %v", slot.ID, err)
			continue
		}
		if !ok {
			// Renewed or transitioned since we looked; not ours to touch.
			continue
		}
		reclaimed++
		if s.waitlist != nil {
			if err := s.waitlist.HoldLapsed(ctx, slot); err != nil {
				log.Printf("sweeper: waitlist promotion for slot %d: %v", slot.ID, err)
			}
		}
	}
	return reclaimed, nil
}
