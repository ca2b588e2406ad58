package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRenderer records the frames it is asked to render and fails the ones listed in drop.
type stubRenderer struct {
	mu sync.Mutex

	cfg      *config.Config
	frames   []renderer.FrameInput
	resident []int
	drop     map[uint64]bool
	failWith error
	sizes    [][2]int
	released bool
}

var _ renderer.Renderer = &stubRenderer{}

func newStubRenderer() *stubRenderer {
	return &stubRenderer{cfg: config.Default(), drop: map[uint64]bool{}}
}

func (r *stubRenderer) Pipeline(string) pipeline.Pipeline { return nil }
func (r *stubRenderer) Pipelines() map[string]pipeline.Pipeline { return nil }
func (r *stubRenderer) RegisterPipelines(...pipeline.Pipeline) error { return nil }
func (r *stubRenderer) SetPresentMode(renderer.PresentMode) {}
func (r *stubRenderer) InFlight() int { return 0 }

func (r *stubRenderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, [2]int{width, height})
	return nil
}

func (r *stubRenderer) Config() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Clone()
}

func (r *stubRenderer) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg.Clone()
	return nil
}

func (r *stubRenderer) Render(ctx context.Context, in renderer.FrameInput) (renderer.FrameStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return renderer.FrameStats{}, fmt.Errorf("%w: frame %d: %w", renderer.ErrFrameDropped, in.Frame, err)
	}
	r.frames = append(r.frames, in)
	r.resident = append(r.resident, in.Scene.Materials().Resident(in.Frame))
	if r.failWith != nil {
		return renderer.FrameStats{}, r.failWith
	}
	if r.drop[in.Frame] {
		return renderer.FrameStats{}, fmt.Errorf("%w: frame %d: fence timeout", renderer.ErrFrameDropped, in.Frame)
	}
	return renderer.FrameStats{Frame: in.Frame, Meshes: len(in.Meshes)}, nil
}

func (r *stubRenderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
}

func (r *stubRenderer) frameIndices() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.Frame
	}
	return out
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) (*engine, *stubRenderer) {
	t.Helper()
	r := newStubRenderer()
	e := NewEngine(append([]EngineBuilderOption{WithRenderer(r)}, options...)...).(*engine)
	return e, r
}

func newTestScene(t *testing.T) scene.Scene {
	t.Helper()
	s := scene.NewScene("test", scene.WithComputeWorkers(1))
	t.Cleanup(s.Close)
	return s
}

func TestNewEngineNeedsWindowOrRenderer(t *testing.T) {
	assert.Panics(t, func() { NewEngine() })
}

func TestRenderFrameWithoutScene(t *testing.T) {
	e, r := newTestEngine(t)
	assert.False(t, e.renderFrame())
	assert.Empty(t, r.frameIndices())
	assert.Equal(t, uint64(0), e.Frame())
}

func TestRenderFrameAppliesPendingMutations(t *testing.T) {
	s := newTestScene(t)
	e, r := newTestEngine(t, WithScene(s))

	s.Add(model.NewModel(model.WithPart(model.Cube(1), nil)), common.Identity4())
	require.True(t, e.renderFrame())

	require.Len(t, r.frames, 1)
	assert.Equal(t, uint64(1), r.frames[0].Frame)
	assert.Len(t, r.frames[0].Meshes, 1, "queued adds land before the frame reads the mesh table")
	assert.Equal(t, 1, r.resident[0], "a material committed after frame 0 is resident for frame 1")
	assert.Equal(t, uint64(1), e.Frame())
}

func TestRenderFrameMaterialResidencyFollowsSubmittedFrames(t *testing.T) {
	s := newTestScene(t)
	e, r := newTestEngine(t, WithScene(s))

	require.True(t, e.renderFrame())
	red := material.NewMaterial(material.WithName("red"))
	s.Add(model.NewModel(model.WithPart(model.Plane(2), red)), common.Identity4())

	require.True(t, e.renderFrame())
	assert.Equal(t, []uint64{1, 2}, r.frameIndices())
	assert.Equal(t, []int{0, 1}, r.resident, "committed after frame 1, resident from frame 2")
}

func TestRenderFrameCountsDroppedFramesAndRetriesIndex(t *testing.T) {
	s := newTestScene(t)
	e, r := newTestEngine(t, WithScene(s))
	r.drop[2] = true

	assert.True(t, e.renderFrame())
	assert.False(t, e.renderFrame())
	assert.Equal(t, uint64(1), e.DroppedFrames())
	assert.Equal(t, uint64(1), e.Frame())

	delete(r.drop, 2)
	assert.True(t, e.renderFrame())
	assert.Equal(t, []uint64{1, 2, 2}, r.frameIndices(), "a dropped frame's index is reused")
	assert.Equal(t, uint64(2), e.Frame())
}

func TestRenderFrameCountsOtherErrorsAsDropped(t *testing.T) {
	s := newTestScene(t)
	e, r := newTestEngine(t, WithScene(s))
	r.failWith = errors.New("device lost")

	assert.False(t, e.renderFrame())
	assert.Equal(t, uint64(1), e.DroppedFrames())
}

func TestRenderFrameAfterQuitIsNotCounted(t *testing.T) {
	s := newTestScene(t)
	e, _ := newTestEngine(t, WithScene(s))
	e.Quit()

	assert.False(t, e.renderFrame())
	assert.Equal(t, uint64(0), e.DroppedFrames())
}

func TestApplyConfig(t *testing.T) {
	e, r := newTestEngine(t)

	next := config.Default()
	next.Renderer.Profiling = true
	next.Shadow.Resolution = 1024
	e.applyConfig(next)
	assert.True(t, e.profiling.Load())
	assert.Equal(t, uint32(1024), r.Config().Shadow.Resolution)

	bad := config.Default()
	bad.Shadow.Resolution = 3
	e.applyConfig(bad)
	assert.Equal(t, uint32(1024), r.Config().Shadow.Resolution, "a rejected snapshot changes nothing")
	assert.Equal(t, uint32(1024), e.cfg.Shadow.Resolution)
}

func TestWithConfigEnablesProfiler(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Profiling = true
	e, _ := newTestEngine(t, WithConfig(cfg))
	assert.True(t, e.profiling.Load())
}

func TestResizeUpdatesRendererAndCamera(t *testing.T) {
	s := newTestScene(t)
	e, r := newTestEngine(t, WithScene(s))

	e.resize(0, 0)
	assert.Empty(t, r.sizes)

	e.resize(800, 400)
	assert.Equal(t, [][2]int{{800, 400}}, r.sizes)
	assert.InDelta(t, 2.0, s.Camera().Aspect(), 1e-6)
}

func TestSetScene(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Nil(t, e.Scene())
	s := newTestScene(t)
	e.SetScene(s)
	assert.Equal(t, s, e.Scene())
}

func TestRunHeadlessUntilQuit(t *testing.T) {
	s := newTestScene(t)
	e, r := newTestEngine(t, WithScene(s), WithRenderFrameLimit(1000))

	frames := 0
	e.SetRenderCallback(func(float32) {
		frames++
		if frames == 3 {
			e.Quit()
		}
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}

	assert.GreaterOrEqual(t, e.Frame(), uint64(3))
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.True(t, r.released)
}

func TestSetTickRate(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetTickRate(0)
	assert.Equal(t, time.Second/60, e.tickPeriod())
	e.SetTickRate(120)
	assert.Equal(t, time.Second/120, e.tickPeriod())
	e.SetTickRate(0.5)
	assert.Equal(t, 2*time.Second, e.tickPeriod(), "fractional rates are not truncated")

	e.SetRenderFrameLimit(-1)
	assert.Zero(t, e.frameLimit())
	e.SetRenderFrameLimit(30)
	assert.Equal(t, time.Second/30, e.frameLimit())
}

func TestTickLoopFollowsRateChange(t *testing.T) {
	e, _ := newTestEngine(t, WithTickRate(1000))

	var ticks atomic.Int32
	e.SetTickCallback(func(float32) {
		if ticks.Add(1) == 2 {
			e.SetTickRate(500)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.tickLoop(ctx) }()

	require.Eventually(t, func() bool { return ticks.Load() >= 5 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, time.Second/500, e.tickPeriod())
}

func TestRenderLoopReportsPanic(t *testing.T) {
	s := newTestScene(t)
	e, _ := newTestEngine(t, WithScene(s))
	e.SetRenderCallback(func(float32) { panic("boom") })

	err := e.renderLoop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
