package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/Dilaxno/photomark-backend/internal/model"
)

// PaymentResult is what the external payment provider reports back for a
// hold.  Only the correlation reference and the outcome matter here;
// capture details stay with the provider.
type PaymentResult struct {
	Reference string `json:"payment_ref"`
	OK        bool   `json:"payment_ok"`
}

// Contact identifies the visitor completing a booking or joining a
// waitlist.  Email is the holder identity recorded on slot rows.
type Contact struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// Confirmer converts a valid hold into a permanent booking, exactly once,
// and reverses bookings on cancellation.
type Confirmer struct {
	slots    SlotStore
	bookings BookingStore
	sessions SessionStore
	waitlist *Coordinator   // may be nil
	events   EventPublisher // may be nil
	now      Clock
}

// NewConfirmer constructs a Confirmer.  waitlist and events may be nil.
func NewConfirmer(slots SlotStore, bookings BookingStore, sessions SessionStore, waitlist *Coordinator, events EventPublisher, now Clock) *Confirmer {
	if slots == nil || bookings == nil || sessions == nil {
		panic("nil store passed to NewConfirmer")
	}
	if now == nil {
		now = utcNow
	}
	return &Confirmer{slots: slots, bookings: bookings, sessions: sessions, waitlist: waitlist, events: events, now: now}
}

// Confirm finalises a booking for the slot.  The caller must either hold
// the slot with an unexpired hold, or the session must auto-confirm and
// the slot be AVAILABLE (direct booking with no payment gate).  A failed
// payment leaves the hold intact so the visitor may retry within the TTL.
// The slot transition and the booking insert happen in one transaction, so
// at most one confirm can ever succeed per slot.
func (cf *Confirmer) Confirm(ctx context.Context, slotID uint64, contact Contact, payment PaymentResult) (*model.Booking, error) {
	session, err := cf.sessions.GetSessionForSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !session.AutoConfirm && !payment.OK {
		return nil, ErrPaymentFailed
	}
	b := &model.Booking{
		SlotID:       slotID,
		SessionID:    session.ID,
		Reference:    uuid.NewString(),
		ContactEmail: contact.Email,
		ContactName:  contact.Name,
		Status:       model.BookingConfirmed,
	}
	if payment.Reference != "" {
		ref := payment.Reference
		b.PaymentRef = &ref
	}
	if err := cf.bookings.Confirm(ctx, b, contact.Email, session.AutoConfirm, cf.now()); err != nil {
		return nil, err
	}
	if cf.waitlist != nil {
		// A promoted waitlist visitor completing their booking converts
		// the entry; best effort, the booking itself already committed.
		cf.waitlist.convertForSlot(ctx, slotID, contact.Email, b.ID)
	}
	if cf.events != nil {
		if slot, err := cf.slots.GetSlot(ctx, slotID); err == nil {
			cf.events.BookingConfirmed(ctx, b, slot)
		}
	}
	return b, nil
}

// Cancel reverses a booking: the slot returns to AVAILABLE, the booking is
// marked cancelled for audit, and the Waitlist Coordinator is given one
// promotion attempt on the freed slot.  Cancelling twice is a no-op.
func (cf *Confirmer) Cancel(ctx context.Context, bookingID uint64) error {
	slot, freed, err := cf.bookings.Cancel(ctx, bookingID)
	if err != nil {
		return err
	}
	if !freed {
		return nil
	}
	if cf.events != nil {
		if b, err := cf.bookings.GetBooking(ctx, bookingID); err == nil {
			cf.events.BookingCancelled(ctx, b, slot)
		}
	}
	if cf.waitlist != nil {
		return cf.waitlist.OnSlotReleased(ctx, slot)
	}
	return nil
}
