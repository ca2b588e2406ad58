package frame

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingPanicsWithoutSlots(t *testing.T) {
	assert.Panics(t, func() { NewRing(0) })
}

func TestAcquireCyclesSlots(t *testing.T) {
	r := NewRing(2)
	ctx := context.Background()

	var seen []int
	for range 4 {
		h, err := r.Acquire(ctx)
		require.NoError(t, err)
		seen = append(seen, h.Slot().Index())
		f, err := h.Submit()
		require.NoError(t, err)
		f.Signal()
	}
	assert.Equal(t, []int{0, 1, 0, 1}, seen)
	assert.Equal(t, uint64(2), r.Slot(0).Generation())
	assert.Equal(t, uint64(2), r.Slot(1).Generation())
}

func TestStaleHandle(t *testing.T) {
	r := NewRing(1)
	ctx := context.Background()

	old, err := r.Acquire(ctx)
	require.NoError(t, err)
	f, err := old.Submit()
	require.NoError(t, err)
	f.Signal()

	current, err := r.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, old.Slot(), current.Slot())

	_, err = old.Stage("uniforms", 16)
	assert.ErrorIs(t, err, ErrStaleSlot)
	_, err = old.Submit()
	assert.ErrorIs(t, err, ErrStaleSlot)
	assert.NoError(t, current.Check())
}

func TestWriteAfterSubmit(t *testing.T) {
	r := NewRing(2)
	h, err := r.Acquire(context.Background())
	require.NoError(t, err)

	_, err = h.Submit()
	require.NoError(t, err)

	_, err = h.Stage("commands", 20)
	assert.ErrorIs(t, err, ErrSlotInFlight)
	_, err = h.Submit()
	assert.ErrorIs(t, err, ErrSlotInFlight)
	assert.Equal(t, 1, r.InFlight())
}

func TestAcquireWaitsForFence(t *testing.T) {
	r := NewRing(1)
	ctx := context.Background()

	h, err := r.Acquire(ctx)
	require.NoError(t, err)
	f, err := h.Submit()
	require.NoError(t, err)

	acquired := make(chan *Handle)
	go func() {
		next, err := r.Acquire(ctx)
		if err == nil {
			acquired <- next
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("acquired a slot the GPU still owns")
	case <-time.After(20 * time.Millisecond):
	}

	f.Signal()
	select {
	case next, ok := <-acquired:
		require.True(t, ok)
		assert.Equal(t, uint64(2), next.Generation())
	case <-time.After(time.Second):
		t.Fatal("acquire did not resume after the fence signaled")
	}
}

func TestAcquireTimesOut(t *testing.T) {
	r := NewRing(1)
	h, err := r.Acquire(context.Background())
	require.NoError(t, err)
	_, err = h.Submit()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Acquire(ctx)
	assert.ErrorIs(t, err, ErrFenceTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(1), r.Slot(0).Generation(), "a timed out acquire leaves the slot untouched")
}

func TestAcquireRejectsUnsubmittedSlot(t *testing.T) {
	r := NewRing(1)
	_, err := r.Acquire(context.Background())
	require.NoError(t, err)

	_, err = r.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrSlotInFlight)
}

func TestReleaseReturnsSlot(t *testing.T) {
	r := NewRing(1)
	h, err := r.Acquire(context.Background())
	require.NoError(t, err)

	h.Release()
	assert.Equal(t, PhaseIdle, h.Slot().Phase())

	next, err := r.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next.Generation())

	h.Release()
	assert.Equal(t, PhaseWriting, next.Slot().Phase(), "a stale release is ignored")
}

func TestStageReusesBuffers(t *testing.T) {
	r := NewRing(1)
	h, err := r.Acquire(context.Background())
	require.NoError(t, err)

	buf, err := h.Stage("uniforms", 64)
	require.NoError(t, err)
	assert.Len(t, buf, 64)
	buf[0] = 7

	f, err := h.Submit()
	require.NoError(t, err)
	f.Signal()

	h, err = r.Acquire(context.Background())
	require.NoError(t, err)
	again, err := h.Stage("uniforms", 32)
	require.NoError(t, err)
	assert.Len(t, again, 32)
	assert.Equal(t, byte(7), again[0])
}

func TestFenceSignalIsIdempotent(t *testing.T) {
	f := newFence()
	assert.False(t, f.Signaled())
	f.Signal()
	f.Signal()
	assert.True(t, f.Signaled())
	assert.NoError(t, f.Wait(context.Background()))
}
