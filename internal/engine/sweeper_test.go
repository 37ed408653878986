package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dilaxno/photomark-backend/internal/model"
)

func sweepFixture(t *testing.T, slotCount int) (*memStore, *fakeClock) {
	t.Helper()
	store := newMemStore()
	store.addSession(&model.MiniSession{ID: 1})
	for i := 0; i < slotCount; i++ {
		store.addSlot(&model.Slot{
			ID:            uint64(100 + i),
			SessionDateID: 10,
			StartsAt:      testEpoch.Add(time.Duration(i) * time.Hour),
			EndsAt:        testEpoch.Add(time.Duration(i)*time.Hour + 30*time.Minute),
		}, 1)
	}
	return store, newFakeClock(testEpoch)
}

func TestSweepReclaimsOnlyLapsedHolds(t *testing.T) {
	store, clock := sweepFixture(t, 3)
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)
	_, err = m.PlaceHold(context.Background(), 101, "b@example.com")
	require.NoError(t, err)

	// The third hold is placed later and is still fresh at sweep time.
	clock.Advance(4 * time.Minute)
	_, err = m.PlaceHold(context.Background(), 102, "c@example.com")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	s := NewSweeper(store, nil, 200, clock.Now)
	reclaimed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reclaimed)

	assert.Equal(t, model.SlotAvailable, store.slotCopy(100).Status)
	assert.Equal(t, model.SlotAvailable, store.slotCopy(101).Status)
	assert.Equal(t, model.SlotHeld, store.slotCopy(102).Status)
}

func TestSweepTwiceIsIdempotent(t *testing.T) {
	store, clock := sweepFixture(t, 1)
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)
	clock.Advance(6 * time.Minute)

	s := NewSweeper(store, nil, 200, clock.Now)
	first, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}

func TestSweepBatchLimit(t *testing.T) {
	store, clock := sweepFixture(t, 3)
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)
	for i := uint64(100); i < 103; i++ {
		_, err := m.PlaceHold(context.Background(), i, "a@example.com")
		require.NoError(t, err)
	}
	clock.Advance(6 * time.Minute)

	s := NewSweeper(store, nil, 2, clock.Now)
	first, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	second, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second)
}

// takeoverStore lets another visitor grab the slot between the sweeper's
// read of expired holds and its reclaim write.
type takeoverStore struct {
	*memStore
	clock *fakeClock
	once  sync.Once
}

func (s *takeoverStore) ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Slot, error) {
	slots, err := s.memStore.ExpiredHolds(ctx, now, limit)
	s.once.Do(func() {
		now := s.clock.Now()
		_ = s.memStore.PlaceHold(ctx, 100, "thief@example.com", "tok", now.Add(5*time.Minute), now)
	})
	return slots, err
}

func TestSweepLeavesTakenOverSlotAlone(t *testing.T) {
	store, clock := sweepFixture(t, 1)
	m := NewHoldManager(store, store, nil, 5*time.Minute, clock.Now)

	_, err := m.PlaceHold(context.Background(), 100, "a@example.com")
	require.NoError(t, err)
	clock.Advance(6 * time.Minute)

	wrapped := &takeoverStore{memStore: store, clock: clock}
	s := NewSweeper(wrapped, nil, 200, clock.Now)
	reclaimed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, reclaimed)

	// The reclaim was keyed on the old held_until, so the new hold stands.
	slot := store.slotCopy(100)
	assert.Equal(t, model.SlotHeld, slot.Status)
	require.NotNil(t, slot.HeldBy)
	assert.Equal(t, "thief@example.com", *slot.HeldBy)
}
