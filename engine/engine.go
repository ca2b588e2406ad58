package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, or nil for a headless engine
	Window() window.Window

	// Renderer returns the renderer frames are drawn with.
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic and input processing. Scene edits made here are queued and
	// applied between frames.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetScene replaces the scene that is rendered. The swap takes effect on the next frame.
	//
	// Parameters:
	//   - s: the Scene to render, or nil to render nothing
	SetScene(s scene.Scene)

	// Scene returns the scene that is rendered, or nil.
	Scene() scene.Scene

	// Frame returns the index of the last submitted frame, 0 before the first.
	Frame() uint64

	// DroppedFrames returns the number of frames dropped since the engine was created.
	DroppedFrames() uint64

	// Run starts the engine and render loops and blocks until the window closes or Quit is called.
	// The renderer and config watcher are released before Run returns.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// engine runs two loops under one errgroup: a fixed-rate tick loop for game logic and a render loop
// bounded by frame slots. The window's message pump runs on the caller of Run.
type engine struct {
	window   window.Window
	renderer renderer.Renderer
	cfg      *config.Config
	watcher  *config.Watcher
	profiler *profiler.Profiler

	// ctx is cancelled on quit so a render blocked on a frame fence returns.
	ctx      context.Context
	cancel   context.CancelFunc
	quitOnce sync.Once

	// settings the loops re-read every iteration; durations are stored as nanoseconds
	profiling  atomic.Bool
	tickNanos  atomic.Int64
	limitNanos atomic.Int64

	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	sceneMu sync.RWMutex
	scene   scene.Scene

	// nextFrame only advances when a frame is submitted, so the last submitted frame is nextFrame - 1.
	nextFrame atomic.Uint64
	// lastStats is owned by the render loop.
	lastStats renderer.FrameStats
}

// NewEngine creates an engine. Without WithRenderer a WebGPU renderer is created for the window from
// the configuration, so one of the two is required.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{
		ctx:      ctx,
		cancel:   cancel,
		profiler: profiler.NewProfiler(),
	}
	e.tickNanos.Store(int64(time.Second / 60))
	e.nextFrame.Store(1)

	for _, opt := range options {
		opt(e)
	}

	if e.cfg == nil {
		e.cfg = config.Default()
	}
	if e.cfg.Renderer.Profiling {
		e.profiling.Store(true)
	}
	if e.renderer == nil {
		if e.window == nil {
			panic("engine: a window or WithRenderer is required")
		}
		e.renderer = renderer.NewRenderer(renderer.BackendTypeWGPU, e.window, renderer.WithConfig(e.cfg))
	}
	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	g, ctx := errgroup.WithContext(e.ctx)
	g.Go(func() error { return e.tickLoop(ctx) })
	g.Go(func() error { return e.renderLoop(ctx) })
	g.Go(func() error {
		// a failed loop cancels ctx; take the window down with it
		<-ctx.Done()
		e.Quit()
		return nil
	})

	if e.window != nil {
		// blocks until the window closes
		e.window.ProcessMessages()
		e.Quit()
	}
	if err := g.Wait(); err != nil {
		log.Printf("[Engine] stopped: %v", err)
	}
	e.shutdown()
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.cancel()
		if e.window != nil {
			e.window.RequestClose()
		}
	})
}

// shutdown releases what the engine owns once both loops have exited.
func (e *engine) shutdown() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			log.Printf("[Engine] config watcher close: %v", err)
		}
	}
	e.renderer.Release()
	if e.window != nil {
		if err := e.window.Close(); err != nil {
			log.Printf("[Engine] window close: %v", err)
		}
	}
}

// tickLoop fires the tick callback at the tick rate. A rate change is picked up on the next tick.
func (e *engine) tickLoop(ctx context.Context) error {
	period := e.tickPeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
			if p := e.tickPeriod(); p != period {
				period = p
				ticker.Reset(p)
			}
		}
	}
}

// renderLoop renders frames until ctx is done. A panic in a frame ends the loop with an error
// instead of crashing the process.
func (e *engine) renderLoop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render loop panic: %v", r)
		}
	}()

	last := time.Now()
	for ctx.Err() == nil {
		start := time.Now()
		dt := float32(start.Sub(last).Seconds())
		last = start

		e.pollConfig()
		presented := e.renderFrame()

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}
		if presented && e.profiling.Load() {
			e.profiler.Tick(profiler.Frame{
				CPUTime: time.Since(start),
				Meshes:  e.lastStats.Meshes,
				Path:    e.lastStats.Path.String(),
			})
		}

		if wait := e.frameLimit() - time.Since(start); wait > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
		}
	}
	return nil
}

// renderFrame applies the scene's queued mutations and renders one frame.
// A dropped frame is logged and counted; its index is reused by the next attempt.
//
// Returns:
//   - bool: true if the frame was submitted and presented
func (e *engine) renderFrame() bool {
	s := e.Scene()
	if s == nil {
		return false
	}

	frame := e.nextFrame.Load()
	if err := s.ApplyPending(frame - 1); err != nil {
		log.Printf("[Engine] scene %q: %v", s.Name(), err)
	}

	stats, err := e.renderer.Render(e.ctx, renderer.NewFrameInput(s, frame))
	switch {
	case err == nil:
		e.lastStats = stats
		e.nextFrame.Store(stats.Frame + 1)
		return true
	case e.ctx.Err() != nil:
		// quitting; the wait was cut short
		return false
	case errors.Is(err, renderer.ErrFrameDropped):
		log.Printf("[Engine] %v", err)
	default:
		log.Printf("[Engine] frame %d failed: %v", frame, err)
	}
	e.profiler.Dropped()
	return false
}

// pollConfig applies the newest configuration snapshot from the watcher, if one is waiting.
func (e *engine) pollConfig() {
	if e.watcher == nil {
		return
	}
	select {
	case next := <-e.watcher.Updates():
		e.applyConfig(next)
	case err := <-e.watcher.Errors():
		log.Printf("[Engine] config reload ignored: %v", err)
	default:
	}
}

func (e *engine) applyConfig(next *config.Config) {
	if err := e.renderer.ApplyConfig(next); err != nil {
		log.Printf("[Engine] config rejected by renderer: %v", err)
		return
	}
	e.cfg = e.renderer.Config()
	e.profiling.Store(e.cfg.Renderer.Profiling)
}

// resize forwards a window resize to the renderer and the scene camera.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if err := e.renderer.Resize(width, height); err != nil {
		log.Printf("[Engine] resize to %dx%d: %v", width, height, err)
		return
	}
	if s := e.Scene(); s != nil {
		if c := s.Camera(); c != nil {
			c.SetAspect(float32(width) / float32(height))
		}
	}
}

func (e *engine) tickPeriod() time.Duration {
	return time.Duration(e.tickNanos.Load())
}

func (e *engine) frameLimit() time.Duration {
	return time.Duration(e.limitNanos.Load())
}

func (e *engine) EnableProfiler() {
	e.profiling.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profiling.Store(false)
}

func (e *engine) SetTickRate(hz float64) {
	e.tickNanos.Store(int64(hzToPeriod(hz, 60)))
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(hz float64) {
	e.limitNanos.Store(int64(hzToPeriod(hz, 0)))
}

func (e *engine) SetScene(s scene.Scene) {
	e.sceneMu.Lock()
	defer e.sceneMu.Unlock()
	e.scene = s
}

func (e *engine) Scene() scene.Scene {
	e.sceneMu.RLock()
	defer e.sceneMu.RUnlock()
	return e.scene
}

func (e *engine) Frame() uint64 {
	return e.nextFrame.Load() - 1
}

func (e *engine) DroppedFrames() uint64 {
	return e.profiler.TotalDropped()
}
