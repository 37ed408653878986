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

var testEpoch = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// fixture builds a store holding one session with one slot and a clock
// parked at testEpoch.
func fixture(t *testing.T, session *model.MiniSession) (*memStore, *fakeClock) {
	t.Helper()
	if session.ID == 0 {
		session.ID = 1
	}
	store := newMemStore()
	store.addSession(session)
	store.addSlot(&model.Slot{
		ID:            100,
		SessionDateID: 10,
		StartsAt:      testEpoch.Add(time.Hour),
		EndsAt:        testEpoch.Add(time.Hour + 30*time.Minute),
	}, session.ID)
	return store, newFakeClock(testEpoch)
}

func TestPlaceHoldSingleWinnerUnderContention(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{Published: true})
	m := NewHoldManager(store, store, nil, 10*time.Minute, clock.Now)

	const contenders = 32
	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.PlaceHold(context.Background(), 100, fmt.Sprintf("visitor%d@example.com", i))
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
	assert.Equal(t, model.SlotHeld, store.slotCopy(100).Status)
}

func TestPlaceHoldUsesSessionTTLOverride(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{HoldTTLMinutes: 5})
	m := NewHoldManager(store, store, nil, 10*time.Minute, clock.Now)

	hold, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, testEpoch.Add(5*time.Minute), hold.ExpiresAt)
	assert.NotEmpty(t, hold.Token)
}

func TestPlaceHoldStealsLapsedHold(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "first@example.com")
	require.NoError(t, err)

	// Inside the TTL the slot is taken.
	clock.Advance(time.Minute)
	_, err = m.PlaceHold(context.Background(), 100, "second@example.com")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Past the TTL the stale hold is stolen without waiting for a sweep.
	clock.Advance(5 * time.Minute)
	hold, err := m.PlaceHold(context.Background(), 100, "second@example.com")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(5*time.Minute), hold.ExpiresAt)

	slot := store.slotCopy(100)
	require.NotNil(t, slot.HeldBy)
	assert.Equal(t, "second@example.com", *slot.HeldBy)
}

func TestPlaceHoldUnknownSlot(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 999, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenewHoldExtendsDeadline(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	hold, err := m.RenewHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(5*time.Minute), hold.ExpiresAt)
}

func TestRenewHoldForeignHolder(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	_, err = m.RenewHold(context.Background(), 100, "b@example.com")
	assert.ErrorIs(t, err, ErrHoldMismatch)
}

func TestRenewHoldAfterLapse(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	_, err = m.RenewHold(context.Background(), 100, "a@example.com")
	assert.ErrorIs(t, err, ErrExpiredHold)
}

func TestReleaseHoldIsIdempotent(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	require.NoError(t, m.ReleaseHold(context.Background(), 100, "a@example.com"))
	slot := store.slotCopy(100)
	assert.Equal(t, model.SlotAvailable, slot.Status)
	version := slot.Version

	// Second release is a silent no-op.
	require.NoError(t, m.ReleaseHold(context.Background(), 100, "a@example.com"))
	assert.Equal(t, version, store.slotCopy(100).Version)
}

func TestReleaseHoldByNonHolderLeavesHold(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	require.NoError(t, m.ReleaseHold(context.Background(), 100, "b@example.com"))
	slot := store.slotCopy(100)
	assert.Equal(t, model.SlotHeld, slot.Status)
	require.NotNil(t, slot.HeldBy)
	assert.Equal(t, "a@example.com", *slot.HeldBy)
}

func TestStaleHoldVisibleInAvailability(t *testing.T) {
	store, clock := fixture(t, &model.MiniSession{})
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)

	held, err := store.ListAvailable(context.Background(), 10, clock.Now())
	require.NoError(t, err)
	assert.Empty(t, held)

	// Even before any sweep, a lapsed hold reads as available.
	clock.Advance(6 * time.Minute)
	free, err := store.ListAvailable(context.Background(), 10, clock.Now())
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, uint64(100), free[0].ID)
}
