package frame

import (
	"context"
	"fmt"
	"sync"
)

// Fence is signaled once, when the GPU finishes the work submitted with a frame.
// The wgpu backend signals it from queue.OnSubmittedWorkDone.
type Fence struct {
	once sync.Once
	done chan struct{}
}

func newFence() *Fence {
	return &Fence{done: make(chan struct{})}
}

// signaledFence returns a fence that is already signaled, the state of a slot that was never submitted.
func signaledFence() *Fence {
	f := newFence()
	f.Signal()
	return f
}

// Signal marks the fence signaled. Extra calls are no-ops.
func (f *Fence) Signal() {
	f.once.Do(func() { close(f.done) })
}

// Done returns a channel closed when the fence is signaled.
func (f *Fence) Done() <-chan struct{} {
	return f.done
}

// Signaled reports whether Signal has been called.
func (f *Fence) Signaled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the fence is signaled or ctx ends.
//
// Parameters:
//   - ctx: bounds the wait, typically with the configured fence timeout
//
// Returns:
//   - error: nil once signaled, or ErrFenceTimeout wrapping the context error
func (f *Fence) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrFenceTimeout, ctx.Err())
	}
}
