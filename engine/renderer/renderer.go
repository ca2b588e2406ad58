package renderer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/assets"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/generator"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// Pipeline keys of the deferred frame.
const (
	PipelineKeyGenerate     = generator.DefaultPipelineKey
	PipelineKeyShadow       = "shadow"
	PipelineKeyGBuffer        = "gbuffer"
	PipelineKeyGBufferWorld   = "gbuffer_world"
	PipelineKeyComposite      = "composite"
	PipelineKeyCompositeWorld = "composite_world"
)

// Staging buffer names in each frame slot.
const (
	stageVertexUniforms   = "vertex_uniforms"
	stageFragmentUniforms = "fragment_uniforms"
)

// ErrFrameDropped wraps every error that made Render give up on a frame.
// Nothing of a dropped frame reaches the surface and its slot is free for the next frame.
var ErrFrameDropped = errors.New("renderer: frame dropped")

// CommandPath is the way a frame's draw commands were produced and executed.
type CommandPath int

const (
	// CommandPathGPU dispatches the generate_commands program and draws indirectly from its output.
	CommandPathGPU CommandPath = iota

	// CommandPathCPUIndirect generates commands on the worker pool, uploads them and draws indirectly.
	CommandPathCPUIndirect

	// CommandPathCPUDirect generates commands on the worker pool and replays them as direct draws.
	// Used when the adapter cannot honor first instance in indirect draws.
	CommandPathCPUDirect
)

// String returns a short name of the path.
func (p CommandPath) String() string {
	switch p {
	case CommandPathGPU:
		return "gpu"
	case CommandPathCPUIndirect:
		return "cpu indirect"
	case CommandPathCPUDirect:
		return "cpu direct"
	default:
		return fmt.Sprintf("CommandPath(%d)", int(p))
	}
}

// SceneSource is the part of a scene the renderer reads while recording a frame.
// scene.Scene satisfies it.
type SceneSource interface {
	Store() model.Store
	Materials() material.Table
	Pool() worker.DynamicWorkerPool
	VertexUniforms(view, projection, lightViewProjection common.Mat4) []layout.VertexUniforms
}

// FrameInput is everything one frame renders. It is captured once per frame so the whole frame
// sees a single consistent camera, light and mesh table.
type FrameInput struct {
	// Frame is the frame number. A material committed at frame F is first uploaded for frame F+1.
	Frame uint64

	View              common.Mat4
	Projection        common.Mat4
	InverseProjection common.Mat4
	Frustum           common.Frustum

	// Light is the shading light. Nil shades with a default light and skips the shadow pass.
	Light        light.Light
	AmbientColor common.Vec3

	Meshes          []layout.MeshDescriptor
	Bounds          common.Bounds
	CullingDisabled bool

	Scene SceneSource
}

// NewFrameInput captures the current state of s for frame.
//
// Parameters:
//   - s: the scene, after ApplyPending
//   - frame: the frame number
//
// Returns:
//   - FrameInput: the frame snapshot
func NewFrameInput(s scene.Scene, frame uint64) FrameInput {
	m := s.Camera().Matrices()
	return FrameInput{
		Frame:             frame,
		View:              m.View,
		Projection:        m.Projection,
		InverseProjection: m.InverseProjection,
		Frustum:           m.Frustum(),
		Light:             s.Light(),
		AmbientColor:      s.AmbientColor(),
		Meshes:            s.Meshes(),
		Bounds:            s.Bounds(),
		CullingDisabled:   s.CullingDisabled(),
		Scene:             s,
	}
}

// FrameStats reports what Render did with a frame.
type FrameStats struct {
	Frame  uint64
	Meshes int
	Path   CommandPath
	Shadow ShadowState
}

// uploadState counts what of the scene store and material table already reached the GPU.
type uploadState struct {
	vertices  int
	indices   int
	materials int
	layers    int
}

type renderer struct {
	mu sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	cfg         *config.Config
	pipelines   map[string]pipeline.Pipeline

	width, height         uint32
	indirectFirstInstance bool

	ring      *frame.Ring
	generator generator.Generator

	shadow    *shadowPass
	geometry  *geometryPass
	composite *compositePass

	// sceneGeometry owns the scene vertex streams and index buffer of the bound store.
	sceneGeometry bind_group_provider.BindGroupProvider
	sceneStore    model.Store
	sceneTable    material.Table
	uploaded      uploadState

	setup setup
}

// Renderer records and submits deferred frames.
//
// A frame runs four stages in one submission: command generation (compute or CPU), the shadow
// depth pass from the light, the G-Buffer geometry pass, and the full-screen lighting composite.
// Per-frame CPU staging rotates through a ring of slots so that at most frame.slots frames are in
// flight; a frame whose slot does not come back within frame.fence_timeout is dropped.
type Renderer interface {
	// Pipeline returns the registered pipeline with key, or nil. The built-in keys are the
	// PipelineKey constants.
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns a copy of the registered pipelines by key.
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates the GPU object of each pipeline and registers it under its key.
	// A key that is already registered keeps its first pipeline.
	//
	// Parameters:
	//   - pipelines: render or compute pipelines with their shaders set
	//
	// Returns:
	//   - error: the first pipeline that failed validation or creation; earlier ones stay registered
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface and recreates the G-Buffer at width x height framebuffer
	// pixels. A zero size, as reported for a minimized window, is ignored.
	Resize(width, height int) error

	// SetPresentMode switches the present mode on the next Resize.
	SetPresentMode(mode PresentMode)

	// Config returns a copy of the configuration in effect.
	Config() *config.Config

	// ApplyConfig switches to cfg between frames. Shadow, G-Buffer, culling, clear color and
	// generator mode changes apply to the next frame. Generator capacity, workgroup size and the
	// frame slot count size GPU resources at startup, so changes to them are logged and ignored.
	//
	// Parameters:
	//   - cfg: the new configuration
	//
	// Returns:
	//   - error: the Validate error of cfg, or an error recreating a resource
	ApplyConfig(cfg *config.Config) error

	// Render records, submits and presents one frame.
	//
	// Parameters:
	//   - ctx: bounds the wait for a free frame slot together with frame.fence_timeout
	//   - in: the frame snapshot
	//
	// Returns:
	//   - FrameStats: what the frame did, filled as far as it got
	//   - error: nil, or an error wrapping ErrFrameDropped
	Render(ctx context.Context, in FrameInput) (FrameStats, error)

	// InFlight returns the number of submitted frames the GPU has not finished.
	InFlight() int

	// Release releases every GPU resource and the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer with every deferred pipeline registered and the frame resources allocated.
// Scene resources are created on the first Render of a scene.
// It panics when the configuration is invalid, when a Go record disagrees with its WGSL layout,
// or when a GPU resource cannot be created.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window to present into; may be nil only together with WithBackend
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		backendType: backendType,
		cfg:         config.Default(),
		pipelines:   make(map[string]pipeline.Pipeline),
		setup:       setup{overrides: make(map[string]pipeline.Pipeline)},
	}
	// options run first, the adapter request below depends on them
	for _, opt := range options {
		opt(r)
	}

	if err := r.cfg.Validate(); err != nil {
		panic(fmt.Sprintf("renderer: %v", err))
	}
	if err := shader.VerifyRecordLayouts(); err != nil {
		panic(fmt.Sprintf("renderer: %v", err))
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			if win == nil {
				panic("renderer: the wgpu backend needs a window")
			}
			r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.setup.softwareAdapter(r.cfg))
		}
	}
	r.backend.SetPresentMode(r.setup.presentModeFor(r.cfg))

	width, height := r.cfg.Window.Width, r.cfg.Window.Height
	if win != nil {
		width, height = win.Width(), win.Height()
	}
	r.backend.ConfigureSurface(width, height)
	r.width, r.height = uint32(max(width, 1)), uint32(max(height, 1))

	if err := r.init(); err != nil {
		panic(fmt.Sprintf("renderer: %v", err))
	}
	return r
}

// init registers the pipelines and creates every resource that does not depend on a scene.
func (r *renderer) init() error {
	r.indirectFirstInstance = r.backend.SupportsIndirectFirstInstance()
	r.logCommandPath()

	pipelines, err := r.buildPipelines()
	if err != nil {
		return err
	}
	if err := r.RegisterPipelines(pipelines...); err != nil {
		return err
	}

	r.ring = frame.NewRing(r.cfg.Frame.Slots)
	r.generator = generator.NewGenerator(r.cfg.Generator.Capacity,
		generator.WithPipelineKey(PipelineKeyGenerate),
		generator.WithWorkgroupSize(r.cfg.Generator.Workgroup),
	)
	genPipeline := r.pipelines[PipelineKeyGenerate]
	if err := r.backend.InitBindGroup(r.generator.Provider(), genPipeline.BindGroupLayoutDescriptors()[0],
		r.generator.BufferUsageOverrides(), r.generator.BufferSizes()); err != nil {
		return fmt.Errorf("command generator: %w", err)
	}

	r.shadow = newShadowPass(r.pipelines[PipelineKeyShadow])
	if err := r.shadow.initTarget(r.backend, r.cfg.Shadow.Resolution); err != nil {
		return fmt.Errorf("shadow map: %w", err)
	}

	r.composite = newCompositePass(r.pipelines[PipelineKeyComposite], r.pipelines[PipelineKeyCompositeWorld])
	if err := r.composite.bindLighting(r.backend, r.shadow.target); err != nil {
		return fmt.Errorf("lighting: %w", err)
	}
	if err := r.composite.initQuad(r.backend); err != nil {
		return fmt.Errorf("quad: %w", err)
	}

	r.geometry = newGeometryPass(r.pipelines[PipelineKeyGBuffer], r.pipelines[PipelineKeyGBufferWorld])
	return r.initGBuffer()
}

func (r *renderer) initGBuffer() error {
	if err := r.geometry.initTargets(r.backend, r.width, r.height, r.cfg.GBuffer.WorldPosition); err != nil {
		return err
	}
	return r.composite.bindGBuffer(r.backend, r.geometry.targets, r.cfg.GBuffer.WorldPosition)
}

// buildPipelines creates the deferred pipelines from the embedded programs, with a G-Buffer and a
// composite variant for each setting of gbuffer.world_position.
// A pipeline given through WithPipeline replaces the built one with the same key.
func (r *renderer) buildPipelines() ([]pipeline.Pipeline, error) {
	load := func(name, key string, t shader.ShaderType, edit func(string) (string, error), opts ...shader.ShaderOption) (shader.Shader, error) {
		src, err := assets.Source(name)
		if err != nil {
			return nil, err
		}
		if edit != nil {
			if src, err = edit(src); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
		s, err := shader.NewShader(key, t, src, opts...)
		if err != nil {
			return nil, err
		}
		if r.cfg.Generator.Validate {
			if err := shader.Validate(s.Source()); err != nil {
				log.Printf("[Renderer] offline compile of %s failed, the device compiler decides: %v", name, err)
			}
		}
		return s, nil
	}

	workgroup := func(src string) (string, error) {
		return strings.Replace(src,
			fmt.Sprintf("@workgroup_size(%d)", generator.DefaultWorkgroupSize),
			fmt.Sprintf("@workgroup_size(%d)", r.cfg.Generator.Workgroup), 1), nil
	}
	worldPosition := func(src string) (string, error) {
		extension, err := assets.Source(assets.CompositeWorld)
		if err != nil {
			return "", err
		}
		return worldPositionSource(src, extension)
	}
	cs, err := load(assets.GenerateCommands, PipelineKeyGenerate, shader.ShaderTypeCompute, workgroup)
	if err != nil {
		return nil, err
	}
	if got := cs.WorkgroupSize()[0]; got != r.cfg.Generator.Workgroup {
		return nil, fmt.Errorf("generate_commands workgroup size is %d, configured %d", got, r.cfg.Generator.Workgroup)
	}

	shadowVS, err := load(assets.Shadow, PipelineKeyShadow, shader.ShaderTypeVertex, nil)
	if err != nil {
		return nil, err
	}
	gbufferVS, err := load(assets.GBuffer, PipelineKeyGBuffer, shader.ShaderTypeVertex, nil,
		shader.WithVertexLayouts(layout.SceneVertexLayouts()))
	if err != nil {
		return nil, err
	}
	gbufferFS, err := load(assets.GBuffer, PipelineKeyGBuffer, shader.ShaderTypeFragment, nil)
	if err != nil {
		return nil, err
	}
	compositeVS, err := load(assets.Composite, PipelineKeyComposite, shader.ShaderTypeVertex, nil,
		shader.WithVertexLayouts(layout.QuadVertexLayouts()))
	if err != nil {
		return nil, err
	}
	compositeFS, err := load(assets.Composite, PipelineKeyComposite, shader.ShaderTypeFragment, nil)
	if err != nil {
		return nil, err
	}
	compositeWorldVS, err := load(assets.Composite, PipelineKeyCompositeWorld, shader.ShaderTypeVertex, worldPosition,
		shader.WithVertexLayouts(layout.QuadVertexLayouts()))
	if err != nil {
		return nil, err
	}
	compositeWorldFS, err := load(assets.Composite, PipelineKeyCompositeWorld, shader.ShaderTypeFragment, worldPosition)
	if err != nil {
		return nil, err
	}

	gbuffer := func(key string, targets int) pipeline.Pipeline {
		return pipeline.NewPipeline(key, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(gbufferVS),
			pipeline.WithFragmentShader(gbufferFS),
			pipeline.WithColorTargets(gbufferFormats[:targets]...),
			pipeline.WithCullMode(wgpu.CullModeBack),
		)
	}
	composite := func(key string, vs, fs shader.Shader) pipeline.Pipeline {
		return pipeline.NewPipeline(key, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(vs),
			pipeline.WithFragmentShader(fs),
			pipeline.WithFullscreenQuad(),
		)
	}
	built := []pipeline.Pipeline{
		pipeline.NewPipeline(PipelineKeyGenerate, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(cs)),
		pipeline.NewPipeline(PipelineKeyShadow, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(shadowVS),
			pipeline.WithShadowCaster(2, 2),
		),
		gbuffer(PipelineKeyGBuffer, len(gbufferTargets)),
		gbuffer(PipelineKeyGBufferWorld, len(gbufferTargets)+1),
		composite(PipelineKeyComposite, compositeVS, compositeFS),
		composite(PipelineKeyCompositeWorld, compositeWorldVS, compositeWorldFS),
	}
	for i, p := range built {
		if o, ok := r.setup.overrides[p.PipelineKey()]; ok {
			built[i] = o
		}
	}
	return built, nil
}

// logCommandPath reports when the configured generator mode cannot be honored.
func (r *renderer) logCommandPath() {
	if r.cfg.Generator.Mode == config.GeneratorGPU && !r.indirectFirstInstance {
		log.Printf("[Renderer] adapter lacks indirect-first-instance; commands are generated on the CPU and drawn directly")
	}
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelines[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.pipelines)
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(pipelines...)
}

// register creates and records pipelines. Caller must hold r.mu.
func (r *renderer) register(pipelines ...pipeline.Pipeline) error {
	create := map[pipeline.PipelineType]func(pipeline.Pipeline) error{
		pipeline.PipelineTypeCompute: r.backend.RegisterComputePipeline,
		pipeline.PipelineTypeRender:  r.backend.RegisterRenderPipeline,
	}
	for _, p := range pipelines {
		if _, ok := r.pipelines[p.PipelineKey()]; ok {
			continue
		}
		fn, ok := create[p.Type()]
		if !ok {
			return fmt.Errorf("register %s: unknown pipeline type %d", p.PipelineKey(), p.Type())
		}
		if err := fn(p); err != nil {
			return fmt.Errorf("register %s: %w", p.PipelineKey(), err)
		}
		r.pipelines[p.PipelineKey()] = p
	}
	return nil
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backend.ConfigureSurface(width, height)
	r.width, r.height = uint32(width), uint32(height)
	return r.initGBuffer()
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Config() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Clone()
}

func (r *renderer) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	old, next := r.cfg, cfg.Clone()
	if next.Generator.Capacity != old.Generator.Capacity {
		log.Printf("[Renderer] generator.capacity applies on restart, keeping %d", old.Generator.Capacity)
		next.Generator.Capacity = old.Generator.Capacity
	}
	if next.Generator.Workgroup != old.Generator.Workgroup {
		log.Printf("[Renderer] generator.workgroup applies on restart, keeping %d", old.Generator.Workgroup)
		next.Generator.Workgroup = old.Generator.Workgroup
	}
	if next.Frame.Slots != old.Frame.Slots {
		log.Printf("[Renderer] frame.slots applies on restart, keeping %d", old.Frame.Slots)
		next.Frame.Slots = old.Frame.Slots
	}

	if next.Renderer.SoftwareAdapter != old.Renderer.SoftwareAdapter {
		log.Printf("[Renderer] renderer.software_adapter applies on restart")
	}
	if next.Renderer.VSync != old.Renderer.VSync && r.setup.presentMode == nil {
		mode := PresentModeOf(next)
		r.backend.SetPresentMode(mode)
		r.backend.ConfigureSurface(int(r.width), int(r.height))
		log.Printf("[Renderer] present mode %s", mode)
	}

	if next.Shadow.Resolution != old.Shadow.Resolution {
		if err := r.shadow.initTarget(r.backend, next.Shadow.Resolution); err != nil {
			return fmt.Errorf("shadow map: %w", err)
		}
		if err := r.composite.bindLighting(r.backend, r.shadow.target); err != nil {
			return fmt.Errorf("lighting: %w", err)
		}
		log.Printf("[Renderer] shadow map resized to %dx%d", next.Shadow.Resolution, next.Shadow.Resolution)
	}

	r.cfg = next
	if next.GBuffer.WorldPosition != old.GBuffer.WorldPosition {
		if err := r.initGBuffer(); err != nil {
			return fmt.Errorf("g-buffer: %w", err)
		}
	}
	if next.Generator.Mode != old.Generator.Mode {
		log.Printf("[Renderer] generator mode %s", next.Generator.Mode)
		r.logCommandPath()
	}
	return nil
}

func (r *renderer) InFlight() int {
	return r.ring.InFlight()
}

func (r *renderer) Render(ctx context.Context, in FrameInput) (FrameStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := FrameStats{Frame: in.Frame, Meshes: len(in.Meshes)}
	drop := func(err error) (FrameStats, error) {
		return stats, fmt.Errorf("%w: frame %d: %w", ErrFrameDropped, in.Frame, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Frame.FenceTimeout))
	h, err := r.ring.Acquire(waitCtx)
	cancel()
	if err != nil {
		return drop(err)
	}
	submitted := false
	defer func() {
		if !submitted {
			h.Release()
		}
	}()

	if err := r.bindScene(in.Scene); err != nil {
		return drop(err)
	}
	if err := checkResidency(in.Meshes, in.Scene.Materials(), in.Frame); err != nil {
		return drop(err)
	}
	if err := r.upload(in.Scene, in.Frame); err != nil {
		return drop(err)
	}

	view, err := generator.NewMeshCommandView(in.Meshes, r.generator.Capacity())
	if err != nil {
		return drop(err)
	}

	stats.Shadow = r.shadow.resolve(r.cfg.Shadow.Enabled, in.Light)
	l := in.Light
	if l == nil {
		l = light.NewDefaultLight(in.Bounds)
	}
	lightViewProjection := common.Identity4()
	if stats.Shadow == ShadowStateEnabled {
		lightViewProjection = l.ViewProjection(in.Bounds)
	}
	if err := r.writeUniforms(h, in, l, lightViewProjection, stats.Shadow); err != nil {
		return drop(err)
	}

	cmds, path, err := r.generate(view, in)
	stats.Path = path
	if err != nil {
		return drop(err)
	}

	if err := r.backend.BeginFrame(); err != nil {
		return drop(err)
	}
	if err := r.record(view, cmds, path, stats.Shadow); err != nil {
		r.backend.AbortFrame()
		return drop(err)
	}

	fence, err := h.Submit()
	if err != nil {
		r.backend.AbortFrame()
		return drop(err)
	}
	submitted = true
	if err := r.backend.Submit(fence.Signal); err != nil {
		fence.Signal()
		r.backend.AbortFrame()
		return drop(err)
	}
	r.backend.Present()
	return stats, nil
}

// checkResidency rejects a frame whose meshes name a material the table does not hold for it yet.
// Residency is a prefix of the table, so an index past Resident(frame) was never uploaded.
func checkResidency(meshes []layout.MeshDescriptor, table material.Table, frame uint64) error {
	resident := table.Resident(frame)
	for i, m := range meshes {
		if int(m.MaterialIndex) < resident {
			continue
		}
		if _, err := table.Lookup(material.Index(m.MaterialIndex), frame); err != nil {
			return fmt.Errorf("mesh %d: %w", i, err)
		}
		return fmt.Errorf("mesh %d: %w: material %d", i, material.ErrNotResident, m.MaterialIndex)
	}
	return nil
}

// bindScene creates the geometry buffers and the scene-sized bind groups the first time a store
// and material table are rendered, and again whenever the scene is swapped.
func (r *renderer) bindScene(s SceneSource) error {
	if s == nil {
		return errors.New("frame has no scene")
	}
	store, table := s.Store(), s.Materials()
	if r.sceneGeometry != nil && store == r.sceneStore && table == r.sceneTable {
		return nil
	}

	if r.sceneGeometry != nil {
		r.sceneGeometry.Release()
	}
	r.sceneGeometry = bind_group_provider.NewBindGroupProvider("Scene Geometry")
	if err := r.backend.InitGeometryBuffers(r.sceneGeometry, []uint64{
		uint64(store.VertexCapacity() * layout.PositionNormalStride),
		uint64(store.VertexCapacity() * layout.TexCoordStride),
	}, uint64(store.IndexCapacity()*4)); err != nil {
		return fmt.Errorf("scene geometry: %w", err)
	}

	uniformsSize := uint64(r.generator.Capacity() * layout.VertexUniforms{}.Size())
	if err := r.shadow.initBindGroup(r.backend, r.sceneGeometry, uniformsSize); err != nil {
		return fmt.Errorf("shadow bind group: %w", err)
	}

	w, h := table.LayerSize()
	if err := r.geometry.initBindGroup(r.backend,
		r.shadow.vertexUniforms(),
		r.composite.fragmentUniforms(),
		r.generator.ArgumentBuffer(),
		uint64(table.Capacity()*layout.MaterialRecord{}.Size()),
		w, h, uint32(max(table.LayerCapacity(), 1)),
	); err != nil {
		return fmt.Errorf("geometry bind group: %w", err)
	}

	r.sceneStore, r.sceneTable = store, table
	r.uploaded = uploadState{}
	log.Printf("[Renderer] scene bound with room for %d vertices, %d indices, %d materials, %d texture layers",
		store.VertexCapacity(), store.IndexCapacity(), table.Capacity(), table.LayerCapacity())
	return nil
}

// upload writes whatever the store and material table gained since the last frame.
// Both only ever append, so each upload is the tail past the previous one.
func (r *renderer) upload(s SceneSource, frameIndex uint64) error {
	store, table := s.Store(), s.Materials()
	var writes []bind_group_provider.BufferWrite

	positions, texCoords := store.PositionNormal(), store.TexCoords()
	if n := len(positions) / layout.PositionNormalStride; n > r.uploaded.vertices {
		from := r.uploaded.vertices
		writes = append(writes,
			bind_group_provider.BufferWrite{
				Provider: r.sceneGeometry,
				Binding:  int(binding.VertexBufferVertex),
				Offset:   uint64(from * layout.PositionNormalStride),
				Data:     positions[from*layout.PositionNormalStride : n*layout.PositionNormalStride],
				Target:   bind_group_provider.TargetVertex,
			},
			bind_group_provider.BufferWrite{
				Provider: r.sceneGeometry,
				Binding:  int(binding.VertexBufferTextureCoordinates),
				Offset:   uint64(from * layout.TexCoordStride),
				Data:     texCoords[from*layout.TexCoordStride : n*layout.TexCoordStride],
				Target:   bind_group_provider.TargetVertex,
			},
		)
		r.uploaded.vertices = n
	}

	indices := store.Indices()
	if n := len(indices) / 4; n > r.uploaded.indices {
		from := r.uploaded.indices
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: r.sceneGeometry,
			Offset:   uint64(from * 4),
			Data:     indices[from*4 : n*4],
			Target:   bind_group_provider.TargetIndex,
		})
		r.uploaded.indices = n
	}

	// only records resident for this frame; later ones follow on the frame they become visible
	if n := table.Resident(frameIndex); n > r.uploaded.materials {
		from := r.uploaded.materials
		records := table.Records()[from:n]
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: r.geometry.provider,
			Binding:  int(binding.BufferMaterialTable),
			Offset:   uint64(from * layout.MaterialRecord{}.Size()),
			Data:     layout.MarshalAll(records),
		})
		r.uploaded.materials = n
	}
	r.backend.WriteBuffers(writes)

	layers := table.Layers()
	for i := r.uploaded.layers; i < len(layers); i++ {
		if err := r.backend.WriteTextureLayer(r.geometry.provider, int(binding.BufferMaterialTextures), uint32(i), layers[i]); err != nil {
			return fmt.Errorf("material layer %d: %w", i, err)
		}
	}
	r.uploaded.layers = len(layers)
	return nil
}

// writeUniforms stages the per-object and frame uniforms in the slot and writes them.
func (r *renderer) writeUniforms(h *frame.Handle, in FrameInput, l light.Light, lightViewProjection common.Mat4, state ShadowState) error {
	uniforms := in.Scene.VertexUniforms(in.View, in.Projection, lightViewProjection)
	stride := layout.VertexUniforms{}.Size()
	vertexStage, err := h.Stage(stageVertexUniforms, len(uniforms)*stride)
	if err != nil {
		return err
	}
	for i, u := range uniforms {
		copy(vertexStage[i*stride:], u.Marshal())
	}

	inverseView, ok := common.Invert4(in.View)
	if !ok {
		inverseView = common.Identity4()
	}
	w, hgt := float32(r.width), float32(r.height)
	fu := layout.FragmentUniforms{
		ViewLightPosition: l.ViewSpace(in.View),
		LightColor:        l.Radiance(),
		AmbientColor:      common.Vec4{in.AmbientColor[0], in.AmbientColor[1], in.AmbientColor[2], 1},
		InverseProjection: in.InverseProjection,
		InverseView:       inverseView,
		View:              in.View,
		ShadowParams:      r.cfg.ShadowSettings().Params(state == ShadowStateEnabled),
		Viewport:          common.Vec4{w, hgt, 1 / w, 1 / hgt},
	}
	fragmentStage, err := h.Stage(stageFragmentUniforms, fu.Size())
	if err != nil {
		return err
	}
	copy(fragmentStage, fu.Marshal())

	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: r.shadow.provider, Binding: int(binding.BufferVertexUniforms), Data: vertexStage},
		{Provider: r.composite.lighting, Binding: int(binding.BufferFragmentUniforms), Data: fragmentStage},
	})
	return nil
}

// generate fills the frame's command slots on the path the configuration and adapter allow.
func (r *renderer) generate(view *generator.MeshCommandView, in FrameInput) (drawCommands, CommandPath, error) {
	culling := r.cfg.Renderer.Culling && !in.CullingDisabled
	cmds := drawCommands{
		count:    view.Len(),
		geometry: r.generator.CommandBuffer(),
		shadow:   r.generator.ShadowCommandBuffer(),
	}

	if r.cfg.Generator.Mode == config.GeneratorGPU && r.indirectFirstInstance {
		writes, err := r.generator.Prepare(view, in.Frustum, culling)
		if err != nil {
			return cmds, CommandPathGPU, err
		}
		if r.cfg.Generator.Validate {
			// the GPU output is never read back; check the same inputs on the CPU instead
			check, err := generator.NewMeshCommandView(view.Meshes(), view.Capacity())
			if err != nil {
				return cmds, CommandPathGPU, err
			}
			if err := generator.Generate(check, in.Frustum, culling, in.Scene.Pool()); err != nil {
				return cmds, CommandPathGPU, err
			}
		}
		r.backend.WriteBuffers(writes)
		cmds.indirect = true
		return cmds, CommandPathGPU, nil
	}

	path := CommandPathCPUDirect
	if r.indirectFirstInstance {
		path = CommandPathCPUIndirect
	}
	if err := generator.Generate(view, in.Frustum, culling, in.Scene.Pool()); err != nil {
		return cmds, path, err
	}
	// the argument slots are uploaded on both CPU paths since the geometry pass reads them
	writes, err := r.generator.StageCommands(view)
	if err != nil {
		return cmds, path, err
	}
	r.backend.WriteBuffers(writes)

	cmds.indirect = path == CommandPathCPUIndirect
	cmds.geometryArgs = view.Commands()
	cmds.shadowArgs = view.ShadowCommands()
	return cmds, path, nil
}

// record encodes the frame's passes in order.
func (r *renderer) record(view *generator.MeshCommandView, cmds drawCommands, path CommandPath, state ShadowState) error {
	if path == CommandPathGPU {
		r.backend.DispatchCompute(r.pipelines[PipelineKeyGenerate],
			[]bind_group_provider.BindGroupProvider{r.generator.Provider()},
			r.generator.WorkgroupCount(view.Len()))
	}
	if state == ShadowStateEnabled {
		if err := r.shadow.record(r.backend, r.sceneGeometry, cmds); err != nil {
			return err
		}
	}
	if err := r.geometry.record(r.backend, r.sceneGeometry, r.clearColor(), cmds); err != nil {
		return err
	}
	return r.composite.record(r.backend)
}

func (r *renderer) clearColor() wgpu.Color {
	c := r.cfg.Renderer.ClearColor
	return wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.composite.release()
	r.geometry.release()
	r.shadow.release()
	if r.sceneGeometry != nil {
		r.sceneGeometry.Release()
	}
	r.generator.Release()
	r.backend.Release()
}
