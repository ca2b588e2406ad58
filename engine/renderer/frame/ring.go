// Package frame rotates per-frame CPU staging between a writer phase and a reader phase.
//
// A Ring holds N slots. The renderer acquires the next slot, writes the frame's uniform and command
// staging into it, then submits it; from then on the GPU owns the slot until its fence signals.
// Acquiring a slot waits for that fence, so at most N frames are in flight and a slot is never
// rewritten while the GPU may still read it.
package frame

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrSlotInFlight is returned when a slot is written or submitted outside its writer phase.
	ErrSlotInFlight = errors.New("frame: slot in flight")

	// ErrStaleSlot is returned when a handle is used after its slot was acquired again.
	ErrStaleSlot = errors.New("frame: stale slot handle")

	// ErrFenceTimeout is returned when a slot's previous fence does not signal in time.
	ErrFenceTimeout = errors.New("frame: fence timeout")
)

// DefaultSlots is the number of frames in flight when no count is configured.
const DefaultSlots = 3

// Phase is the ownership state of a slot.
type Phase int

const (
	// PhaseIdle means no frame holds the slot.
	PhaseIdle Phase = iota

	// PhaseWriting means the CPU owns the slot and may write its staging.
	PhaseWriting

	// PhaseInFlight means the slot was submitted and the GPU owns it until its fence signals.
	PhaseInFlight
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWriting:
		return "writing"
	case PhaseInFlight:
		return "in flight"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Slot is one entry of the ring.
type Slot struct {
	mu sync.Mutex

	index      int
	generation uint64
	phase      Phase
	fence      *Fence

	// staging holds reusable byte buffers keyed by name, written during PhaseWriting.
	staging map[string][]byte
}

// Index returns the slot's position in the ring.
func (s *Slot) Index() int {
	return s.index
}

// Generation returns how many times the slot has been acquired.
func (s *Slot) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Phase returns the current phase of the slot.
func (s *Slot) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

// phaseLocked folds a signaled in-flight fence back into PhaseIdle.
func (s *Slot) phaseLocked() Phase {
	if s.phase == PhaseInFlight && s.fence.Signaled() {
		s.phase = PhaseIdle
	}
	return s.phase
}

// Ring is a fixed set of slots handed out round robin.
type Ring struct {
	mu    sync.Mutex
	slots []*Slot
	next  int
}

// NewRing creates a ring of n slots. It panics if n is not positive.
//
// Parameters:
//   - n: the number of frames allowed in flight
//
// Returns:
//   - *Ring: the ring, every slot idle
func NewRing(n int) *Ring {
	if n <= 0 {
		panic(fmt.Sprintf("frame: ring needs at least one slot, got %d", n))
	}
	r := &Ring{slots: make([]*Slot, n)}
	for i := range r.slots {
		r.slots[i] = &Slot{
			index:   i,
			fence:   signaledFence(),
			staging: make(map[string][]byte),
		}
	}
	return r
}

// Len returns the number of slots.
func (r *Ring) Len() int {
	return len(r.slots)
}

// Slot returns slot i, for inspection.
func (r *Ring) Slot(i int) *Slot {
	return r.slots[i]
}

// InFlight returns the number of slots the GPU still owns.
func (r *Ring) InFlight() int {
	n := 0
	for _, s := range r.slots {
		if s.Phase() == PhaseInFlight {
			n++
		}
	}
	return n
}

// Acquire hands out the next slot in writer phase, waiting for its previous fence first.
// The ring only advances once the slot is handed out, so a timed-out Acquire retries the same slot.
//
// Parameters:
//   - ctx: bounds the fence wait
//
// Returns:
//   - *Handle: the writer handle for this frame
//   - error: ErrFenceTimeout if the previous frame in this slot did not finish in time,
//     or ErrSlotInFlight if another writer still holds the slot
func (r *Ring) Acquire(ctx context.Context) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slots[r.next]

	s.mu.Lock()
	phase, fence := s.phaseLocked(), s.fence
	s.mu.Unlock()

	switch phase {
	case PhaseWriting:
		return nil, fmt.Errorf("%w: slot %d is still being written", ErrSlotInFlight, s.index)
	case PhaseInFlight:
		if err := fence.Wait(ctx); err != nil {
			return nil, fmt.Errorf("slot %d: %w", s.index, err)
		}
	}

	s.mu.Lock()
	s.generation++
	s.phase = PhaseWriting
	s.fence = newFence()
	h := &Handle{slot: s, generation: s.generation}
	s.mu.Unlock()

	r.next = (r.next + 1) % len(r.slots)
	return h, nil
}

// Handle is the writer's view of one acquisition of a slot.
// Every method fails with ErrStaleSlot once the slot has been acquired again.
type Handle struct {
	slot       *Slot
	generation uint64
}

// Slot returns the underlying slot.
func (h *Handle) Slot() *Slot {
	return h.slot
}

// Generation returns the slot generation this handle was issued for.
func (h *Handle) Generation() uint64 {
	return h.generation
}

// Check reports whether the handle is current and still in writer phase.
func (h *Handle) Check() error {
	h.slot.mu.Lock()
	defer h.slot.mu.Unlock()
	return h.checkLocked()
}

func (h *Handle) checkLocked() error {
	if h.slot.generation != h.generation {
		return fmt.Errorf("%w: slot %d generation %d, handle %d", ErrStaleSlot, h.slot.index, h.slot.generation, h.generation)
	}
	if p := h.slot.phaseLocked(); p != PhaseWriting {
		return fmt.Errorf("%w: slot %d is %s", ErrSlotInFlight, h.slot.index, p)
	}
	return nil
}

// Stage returns the slot's staging buffer named key, resized to size bytes.
// The buffer is reused across generations; its contents are whatever the previous frame left.
//
// Parameters:
//   - key: the staging buffer name
//   - size: the number of bytes needed
//
// Returns:
//   - []byte: a writable buffer of len size, valid until Submit
//   - error: ErrStaleSlot or ErrSlotInFlight outside the writer phase
func (h *Handle) Stage(key string, size int) ([]byte, error) {
	h.slot.mu.Lock()
	defer h.slot.mu.Unlock()

	if err := h.checkLocked(); err != nil {
		return nil, err
	}
	buf := h.slot.staging[key]
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	h.slot.staging[key] = buf
	return buf, nil
}

// Submit hands the slot to the GPU. The returned fence must be signaled when the submitted work completes.
//
// Returns:
//   - *Fence: the slot's fence for this generation
//   - error: ErrStaleSlot or ErrSlotInFlight outside the writer phase
func (h *Handle) Submit() (*Fence, error) {
	h.slot.mu.Lock()
	defer h.slot.mu.Unlock()

	if err := h.checkLocked(); err != nil {
		return nil, err
	}
	h.slot.phase = PhaseInFlight
	return h.slot.fence, nil
}

// Release returns an unsubmitted slot to idle, for a frame dropped before submission.
// It is a no-op once the slot was submitted or reacquired.
func (h *Handle) Release() {
	h.slot.mu.Lock()
	defer h.slot.mu.Unlock()

	if h.slot.generation != h.generation || h.slot.phase != PhaseWriting {
		return
	}
	h.slot.phase = PhaseIdle
	h.slot.fence.Signal()
}
