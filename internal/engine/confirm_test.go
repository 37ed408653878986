package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dilaxno/photomark-backend/internal/model"
)

func TestConfirmHappyPath(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)
	events := &recordingPublisher{}
	cf := NewConfirmer(store, store, store, nil, events, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	booking, err := cf.Confirm(context.Background(), 100,
		Contact{Email: "a@example.com", Name: "Ada"},
		PaymentResult{Reference: "pay_1", OK: true})
	require.NoError(t, err)
	assert.NotZero(t, booking.ID)
	assert.NotEmpty(t, booking.Reference)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	require.NotNil(t, booking.PaymentRef)
	assert.Equal(t, "pay_1", *booking.PaymentRef)

	slot := store.slotCopy(100)
	assert.Equal(t, model.SlotBooked, slot.Status)
	assert.Nil(t, slot.HeldBy)
	require.NotNil(t, slot.BookingID)
	assert.Equal(t, booking.ID, *slot.BookingID)

	confirmed, _, _ := events.counts()
	assert.Equal(t, 1, confirmed)
}

func TestConfirmAtMostOneBookingUnderContention(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)
	cf := NewConfirmer(store, store, store, nil, nil, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := cf.Confirm(context.Background(), 100,
				Contact{Email: "a@example.com"},
				PaymentResult{Reference: "pay", OK: true})
			results[i] = err
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, store.bookings, 1)
}

func TestMixedHoldConfirmRaceYieldsOneBooking(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)
	cf := NewConfirmer(store, store, store, nil, nil, clock.Now)

	// Each racer runs the full visitor flow: grab the hold, then confirm.
	const racers = 24
	var wg sync.WaitGroup
	booked := make([]bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("racer%d@example.com", i)
			if _, err := m.PlaceHold(context.Background(), 100, email); err != nil {
				return
			}
			_, err := cf.Confirm(context.Background(), 100,
				Contact{Email: email},
				PaymentResult{Reference: "pay", OK: true})
			booked[i] = err == nil
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range booked {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, store.bookings, 1)
	assert.Equal(t, model.SlotBooked, store.slotCopy(100).Status)
}

func TestConfirmFailedPaymentKeepsHold(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)
	cf := NewConfirmer(store, store, store, nil, nil, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	_, err = cf.Confirm(context.Background(), 100,
		Contact{Email: "a@example.com"},
		PaymentResult{OK: false})
	assert.ErrorIs(t, err, ErrPaymentFailed)

	// The hold survives so the visitor can retry within the TTL.
	slot := store.slotCopy(100)
	assert.Equal(t, model.SlotHeld, slot.Status)

	_, err = cf.Confirm(context.Background(), 100,
		Contact{Email: "a@example.com"},
		PaymentResult{Reference: "pay_retry", OK: true})
	assert.NoError(t, err)
}

func TestConfirmAutoConfirmSkipsHold(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{AutoConfirm: true})
	cf := NewConfirmer(store, store, store, nil, nil, clock.Now)

	booking, err := cf.Confirm(context.Background(), 100,
		Contact{Email: "walkup@example.com"},
		PaymentResult{})
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.Equal(t, model.SlotBooked, store.slotCopy(100).Status)
}

func TestConfirmWithoutHold(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	cf := NewConfirmer(store, store, store, nil, nil, clock.Now)

	// AVAILABLE slot, no auto-confirm: the caller's hold must have been
	// reclaimed already.
	_, err := cf.Confirm(context.Background(), 100,
		Contact{Email: "a@example.com"},
		PaymentResult{OK: true})
	assert.ErrorIs(t, err, ErrExpiredHold)
}

// A visitor whose hold lapsed and whose slot was taken over must get a
// definitive error, not a booking.
func TestConfirmAfterHoldStolen(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)
	cf := NewConfirmer(store, store, store, nil, nil, clock.Now)

	// A holds at t=0.
	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	// B fails at t=1m while the hold is fresh.
	clock.Advance(time.Minute)
	_, err = m.PlaceHold(context.Background(), 100, "b@example.com")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// B succeeds at t=6m after A's hold lapsed.
	clock.Advance(5 * time.Minute)
	_, err = m.PlaceHold(context.Background(), 100, "b@example.com")
	require.NoError(t, err)

	// A's confirm at t=7m observes B's hold.
	clock.Advance(time.Minute)
	_, err = cf.Confirm(context.Background(), 100,
		Contact{Email: "a@example.com"},
		PaymentResult{OK: true})
	assert.ErrorIs(t, err, ErrHoldMismatch)
	assert.Empty(t, store.bookings)
}

func TestConfirmExpiredButUnreclaimedHold(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)
	cf := NewConfirmer(store, store, store, nil, nil, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	// Nobody stole the slot, but the TTL is gone.
	clock.Advance(6 * time.Minute)
	_, err = cf.Confirm(context.Background(), 100,
		Contact{Email: "a@example.com"},
		PaymentResult{OK: true})
	assert.ErrorIs(t, err, ErrExpiredHold)
}

func TestCancelFreesSlotOnce(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)
	events := &recordingPublisher{}
	cf := NewConfirmer(store, store, store, nil, events, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)
	booking, err := cf.Confirm(context.Background(), 100,
		Contact{Email: "a@example.com"},
		PaymentResult{Reference: "pay", OK: true})
	require.NoError(t, err)

	require.NoError(t, cf.Cancel(context.Background(), booking.ID))
	slot := store.slotCopy(100)
	assert.Equal(t, model.SlotAvailable, slot.Status)
	assert.Nil(t, slot.BookingID)

	got, err := store.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)

	// Second cancel is a no-op, including events.
	require.NoError(t, cf.Cancel(context.Background(), booking.ID))
	_, cancelled, _ := events.counts()
	assert.Equal(t, 1, cancelled)
}

func TestCancelUnknownBooking(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	cf := NewConfirmer(store, store, store, nil, nil, clock.Now)

	assert.ErrorIs(t, cf.Cancel(context.Background(), 42), ErrNotFound)
}
