package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// G-Buffer target formats, indexed by binding.RenderTargetIndex.Location().
var gbufferFormats = []wgpu.TextureFormat{
	wgpu.TextureFormatRGBA8Unorm,  // albedo rgb, specular intensity a
	wgpu.TextureFormatRGBA16Float, // view normal xyz, shininess / 256 a
	wgpu.TextureFormatR32Float,    // linear view depth, 0 for background
	wgpu.TextureFormatRGBA32Float, // light clip position
	wgpu.TextureFormatRGBA16Float, // world position
}

// gbufferTargets lists the sampled G-Buffer targets in location order.
var gbufferTargets = []binding.RenderTargetIndex{
	binding.RenderTargetAlbedo,
	binding.RenderTargetNormal,
	binding.RenderTargetDepth,
	binding.RenderTargetShadow,
}

// depthAttachmentKey is the provider key of the geometry pass depth buffer, which is never sampled.
const depthAttachmentKey = 0

// drawCommands is the frame's command set as the passes consume it.
// With indirect set the passes read the GPU buffers; otherwise they replay the CPU slots with direct draws.
type drawCommands struct {
	count    int
	indirect bool

	geometry *wgpu.Buffer
	shadow   *wgpu.Buffer

	geometryArgs []layout.IndirectArgs
	shadowArgs   []layout.IndirectArgs
}

func (c drawCommands) executeGeometry(backend RendererBackend) {
	if c.indirect {
		executeIndirect(backend, c.geometry, c.count)
		return
	}
	executeDirect(backend, c.geometryArgs)
}

func (c drawCommands) executeShadow(backend RendererBackend) {
	if c.indirect {
		executeIndirect(backend, c.shadow, c.count)
		return
	}
	executeDirect(backend, c.shadowArgs)
}

// executeIndirect issues one indirect draw per slot. Slots the generator culled carry zero counts and draw nothing.
func executeIndirect(backend RendererBackend, buf *wgpu.Buffer, count int) {
	stride := uint64(layout.IndirectArgs{}.Size())
	for i := range count {
		backend.DrawIndexedIndirect(buf, uint64(i)*stride)
	}
}

func executeDirect(backend RendererBackend, args []layout.IndirectArgs) {
	for _, a := range args {
		if a.IsNoop() {
			continue
		}
		backend.DrawIndexed(a.IndexCount, a.InstanceCount, a.FirstIndex, a.BaseVertex, a.FirstInstance)
	}
}

// geometryPass rasterizes every visible mesh into the G-Buffer.
type geometryPass struct {
	basic pipeline.Pipeline
	world pipeline.Pipeline

	// provider binds the uniforms, draw arguments and the material table with its textures.
	provider bind_group_provider.BindGroupProvider

	// targets owns the G-Buffer textures keyed by binding.RenderTargetIndex, and the depth buffer.
	targets       bind_group_provider.BindGroupProvider
	worldPosition bool
	width, height uint32
}

func newGeometryPass(basic, world pipeline.Pipeline) *geometryPass {
	return &geometryPass{basic: basic, world: world}
}

// pipeline returns the variant matching the current target set.
func (g *geometryPass) pipeline() pipeline.Pipeline {
	if g.worldPosition {
		return g.world
	}
	return g.basic
}

// initTargets (re)creates the G-Buffer at the given size.
//
// Parameters:
//   - backend: the backend creating the textures
//   - width, height: the surface size
//   - worldPosition: whether the optional world position target is written
//
// Returns:
//   - error: an error if a target could not be created
func (g *geometryPass) initTargets(backend RendererBackend, width, height uint32, worldPosition bool) error {
	if g.targets != nil {
		g.targets.Release()
	}
	g.targets = bind_group_provider.NewBindGroupProvider("G-Buffer")
	g.width, g.height, g.worldPosition = width, height, worldPosition

	targets := gbufferTargets
	if worldPosition {
		targets = append(targets[:len(targets):len(targets)], binding.RenderTargetWorldPosition)
	}
	for _, t := range targets {
		if err := backend.InitRenderTarget(g.targets, int(t), RenderTargetDescriptor{
			Width:  width,
			Height: height,
			Format: gbufferFormats[t.Location()],
		}); err != nil {
			return fmt.Errorf("g-buffer %v: %w", t, err)
		}
	}
	return backend.InitRenderTarget(g.targets, depthAttachmentKey, RenderTargetDescriptor{
		Width:  width,
		Height: height,
		Format: wgpu.TextureFormatDepth32Float,
	})
}

// targetCount returns the number of color targets written this frame.
func (g *geometryPass) targetCount() int {
	if g.worldPosition {
		return len(gbufferTargets) + 1
	}
	return len(gbufferTargets)
}

// initBindGroup builds the pass bind group over buffers owned by the shadow pass, the lighting
// provider and the generator, and creates the material table, texture array and sampler.
//
// Parameters:
//   - backend: the backend creating the resources
//   - vertexUniforms: the per-object uniform buffer
//   - fragmentUniforms: the frame uniform buffer
//   - arguments: the generator argument buffer
//   - materialTableSize: byte size of the material table
//   - layerWidth, layerHeight, layers: the material texture array size
//
// Returns:
//   - error: an error if a resource could not be created
func (g *geometryPass) initBindGroup(backend RendererBackend, vertexUniforms, fragmentUniforms, arguments *wgpu.Buffer, materialTableSize uint64, layerWidth, layerHeight, layers uint32) error {
	if g.provider != nil {
		g.provider.Release()
	}
	g.provider = bind_group_provider.NewBindGroupProvider("Geometry",
		bind_group_provider.WithSharedBuffer(int(binding.BufferVertexUniforms), vertexUniforms),
		bind_group_provider.WithSharedBuffer(int(binding.BufferFragmentUniforms), fragmentUniforms),
		bind_group_provider.WithSharedBuffer(int(binding.BufferDrawArguments), arguments),
	)
	if err := backend.InitTextureArray(g.provider, int(binding.BufferMaterialTextures), layerWidth, layerHeight, layers); err != nil {
		return err
	}
	if err := backend.InitSampler(g.provider, int(binding.BufferMaterialSampler), common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeRepeat,
		AddressModeV: wgpu.AddressModeRepeat,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
	}); err != nil {
		return err
	}
	// both variants share one layout
	return backend.InitBindGroup(g.provider, g.basic.BindGroupLayoutDescriptors()[0], nil, map[int]uint64{
		int(binding.BufferMaterialTable): materialTableSize,
	})
}

// record encodes the G-Buffer pass.
//
// Parameters:
//   - backend: the backend recording the frame
//   - geometry: the provider owning the scene vertex and index buffers
//   - clear: the albedo clear color, which the composite shows for background pixels
//   - cmds: the frame's draw commands
//
// Returns:
//   - error: an error if the pass could not begin
func (g *geometryPass) record(backend RendererBackend, geometry bind_group_provider.BindGroupProvider, clear wgpu.Color, cmds drawCommands) error {
	colors := make([]ColorAttachment, g.targetCount())
	for i := range colors {
		colors[i] = ColorAttachment{View: g.targets.TextureView(i + 1)}
	}
	colors[binding.RenderTargetAlbedo.Location()].Clear = clear

	if err := backend.BeginRenderPass(PassDescriptor{
		Label:  "Geometry Pass",
		Colors: colors,
		Depth: &DepthAttachment{
			View:  g.targets.TextureView(depthAttachmentKey),
			Clear: 1,
		},
	}); err != nil {
		return fmt.Errorf("geometry pass: %w", err)
	}
	backend.SetPipeline(g.pipeline())
	backend.SetBindGroups(g.provider)
	backend.SetVertexBuffers(geometry)
	backend.SetIndexBuffer(geometry)
	cmds.executeGeometry(backend)
	backend.EndRenderPass()
	return nil
}

func (g *geometryPass) release() {
	if g.provider != nil {
		g.provider.Release()
	}
	if g.targets != nil {
		g.targets.Release()
	}
}
