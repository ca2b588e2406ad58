package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling turns the per-second profiler log on or off, overriding renderer.profiling.
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profiling.Store(enabled)
	}
}

// WithTickRate sets how often the tick callback runs. Scene edits made there are picked up by the
// next rendered frame. Non-positive rates fall back to 60 ticks per second.
func WithTickRate(hz float64) EngineBuilderOption {
	return func(e *engine) {
		e.tickNanos.Store(int64(hzToPeriod(hz, 60)))
	}
}

// WithWindow sets the window the engine pumps events for and sizes the renderer from.
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScene sets the scene the engine renders.
//
// Parameters:
//   - s: the Scene to render
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithRenderer sets the renderer frames are drawn with instead of creating a WebGPU renderer
// for the window. The engine releases it when Run returns.
//
// Parameters:
//   - r: the renderer to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithConfig sets the configuration the engine creates its renderer from.
// renderer.profiling in the configuration turns on the profiler.
//
// Parameters:
//   - cfg: the configuration; a copy is kept
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg.Clone()
	}
}

// WithConfigWatcher hands the engine a running config watcher. Snapshots it publishes are applied
// to the renderer between frames. The engine closes the watcher when Run returns.
//
// Parameters:
//   - w: the watcher, usually from config.Watch
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigWatcher(w *config.Watcher) EngineBuilderOption {
	return func(e *engine) {
		e.watcher = w
		if e.cfg == nil {
			e.cfg = w.Snapshot()
		}
	}
}

// WithRenderFrameLimit caps rendered frames per second. 0, the default, renders as fast as frame
// slots come back from the GPU.
func WithRenderFrameLimit(hz float64) EngineBuilderOption {
	return func(e *engine) {
		e.limitNanos.Store(int64(hzToPeriod(hz, 0)))
	}
}

// hzToPeriod converts a rate to the time between events. A non-positive rate uses fallback,
// and a zero fallback means no period.
func hzToPeriod(hz, fallback float64) time.Duration {
	if hz <= 0 {
		hz = fallback
	}
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}
