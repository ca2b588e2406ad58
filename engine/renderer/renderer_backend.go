package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType selects the GPU API NewRenderer creates a backend for.
type RendererBackendType int

const (
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode is how finished frames reach the display.
type PresentMode int

const (
	// PresentModeVSync waits for vertical blank: no tearing, frame rate capped at the refresh rate.
	PresentModeVSync PresentMode = iota
	// PresentModeUncapped presents immediately, trading tearing for latency.
	PresentModeUncapped
)

// PresentModeOf returns the present mode renderer.vsync asks for.
func PresentModeOf(cfg *config.Config) PresentMode {
	if cfg.Renderer.VSync {
		return PresentModeVSync
	}
	return PresentModeUncapped
}

func (m PresentMode) String() string {
	if m == PresentModeVSync {
		return "vsync"
	}
	return "uncapped"
}

// wgpu maps the mode onto the surface present mode. Fifo is the only mode every adapter supports.
func (m PresentMode) wgpu() wgpu.PresentMode {
	if m == PresentModeVSync {
		return wgpu.PresentModeFifo
	}
	return wgpu.PresentModeImmediate
}

// RenderTargetDescriptor describes a texture the renderer draws into and later samples.
type RenderTargetDescriptor struct {
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
}

// ColorAttachment is one color output of a render pass.
type ColorAttachment struct {
	// View is the target texture view. Ignored when Surface is set.
	View *wgpu.TextureView
	// Surface selects the current swapchain texture as the target.
	Surface bool
	// Clear is the value the attachment is cleared to when the pass begins.
	Clear wgpu.Color
}

// DepthAttachment is the depth output of a render pass.
type DepthAttachment struct {
	View  *wgpu.TextureView
	Clear float32
	// Store keeps the depth contents after the pass, needed when a later pass samples them.
	Store bool
}

// PassDescriptor describes a render pass. Every attachment is cleared when the pass begins.
type PassDescriptor struct {
	Label  string
	Colors []ColorAttachment
	Depth  *DepthAttachment
}

// RendererBackend is the GPU API the Renderer records frames against.
//
// A frame is recorded into a single command encoder: BeginFrame, any number of DispatchCompute
// calls and BeginRenderPass ... EndRenderPass blocks, then one Submit and Present. Everything
// recorded between BeginFrame and Submit reaches the queue as one command buffer.
type RendererBackend interface {
	// ConfigureSurface (re)creates the swap chain at width x height framebuffer pixels with the
	// current present mode. Called at start, on resize and after a present mode change.
	ConfigureSurface(width, height int)

	// SetPresentMode takes effect on the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the presentation format chosen by ConfigureSurface.
	SurfaceFormat() wgpu.TextureFormat

	// SupportsIndirectFirstInstance reports whether indirect draws honor the first instance field.
	// Without it the mesh index cannot reach the shaders through an indirect draw.
	SupportsIndirectFirstInstance() bool

	// RegisterRenderPipeline validates p, creates its GPU render pipeline and stores it on p.
	// A pipeline without a fragment shader is depth-only.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline validates p, creates its GPU compute pipeline and stores it on p.
	RegisterComputePipeline(p pipeline.Pipeline) error

	// InitBindGroup creates the layout and the bind group of provider. Buffer bindings the provider
	// has no buffer for get a new one; attached views, samplers and buffers are bound as they are.
	//
	// Parameters:
	//   - provider: receives the layout, the group and any created buffers
	//   - descriptor: the reflected layout
	//   - bufferUsageOverrides: usage flags ORed into created buffers, by binding; may be nil
	//   - bufferSizeOverrides: sizes used instead of MinBindingSize, by binding; may be nil
	//
	// Returns:
	//   - error: the binding or GPU call that failed
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitGeometryBuffers creates vertex streams and an index buffer on the provider.
	// Vertex streams are also usable as read-only storage so a pass can pull vertices without a vertex layout.
	//
	// Parameters:
	//   - provider: the provider that owns the buffers
	//   - vertexSizes: the byte size of each vertex stream in slot order
	//   - indexSize: the byte size of the index buffer, 0 for none
	//
	// Returns:
	//   - error: an error if a buffer could not be created
	InitGeometryBuffers(provider bind_group_provider.BindGroupProvider, vertexSizes []uint64, indexSize uint64) error

	// InitTextureArray creates a 2D array texture and a texture_2d_array view of it at binding.
	//
	// Parameters:
	//   - provider: the provider that owns the texture
	//   - binding: the binding index
	//   - width, height: the size of each layer
	//   - layers: the number of layers
	//
	// Returns:
	//   - error: an error if the texture could not be created
	InitTextureArray(provider bind_group_provider.BindGroupProvider, binding int, width, height, layers uint32) error

	// WriteTextureLayer uploads one layer of the array texture at binding.
	//
	// Parameters:
	//   - provider: the provider holding the texture
	//   - binding: the binding index
	//   - layer: the destination layer
	//   - data: RGBA8 pixels of exactly one layer
	//
	// Returns:
	//   - error: an error if the provider has no texture at binding
	WriteTextureLayer(provider bind_group_provider.BindGroupProvider, binding int, layer uint32, data common.TextureStagingData) error

	// InitRenderTarget creates a texture that can be rendered to and sampled, and stores it with its view at binding.
	//
	// Parameters:
	//   - provider: the provider that owns the target
	//   - binding: the binding index, or any unused key for attachments that are never sampled
	//   - desc: the target size and format
	//
	// Returns:
	//   - error: an error if the texture could not be created
	InitRenderTarget(provider bind_group_provider.BindGroupProvider, binding int, desc RenderTargetDescriptor) error

	// InitSampler creates a sampler at binding. Zero fields of samplerStagingData take the defaults
	// and a non-zero Compare makes a comparison sampler.
	InitSampler(provider bind_group_provider.BindGroupProvider, binding int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers queues every write. Writes whose target buffer does not exist are skipped.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next swapchain texture and creates the frame's command encoder.
	// It fails when the surface is lost or outdated, or a frame is already being recorded.
	BeginFrame() error

	// DispatchCompute encodes a compute pass into the frame encoder.
	//
	// Parameters:
	//   - p: the registered compute pipeline
	//   - bindGroups: the providers whose bind groups are set, in group order
	//   - workGroupCount: the number of workgroups in x, y and z
	DispatchCompute(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)

	// BeginRenderPass starts a render pass in the frame encoder.
	//
	// Parameters:
	//   - desc: the pass attachments
	//
	// Returns:
	//   - error: an error if no frame is being recorded or a pass is already open
	BeginRenderPass(desc PassDescriptor) error

	// SetPipeline sets the render pipeline of the open pass.
	SetPipeline(p pipeline.Pipeline)

	// SetBindGroups sets the bind group of each provider, the first at group 0.
	SetBindGroups(bindGroups ...bind_group_provider.BindGroupProvider)

	// SetVertexBuffers binds every vertex stream of the provider at its slot.
	SetVertexBuffers(provider bind_group_provider.BindGroupProvider)

	// SetIndexBuffer binds the uint32 index buffer of the provider.
	SetIndexBuffer(provider bind_group_provider.BindGroupProvider)

	// DrawIndexedIndirect draws with the 20-byte argument record at offset in buf.
	DrawIndexedIndirect(buf *wgpu.Buffer, offset uint64)

	// DrawIndexed draws directly with arguments recorded on the CPU.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)

	// Draw draws non-indexed vertices.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// EndRenderPass ends the open render pass.
	EndRenderPass()

	// Submit finishes the frame encoder and submits it. onDone runs once the GPU has finished the submitted work.
	//
	// Parameters:
	//   - onDone: the completion callback, usually a fence signal
	//
	// Returns:
	//   - error: an error if no frame was recorded or the encoder could not be finished
	Submit(onDone func()) error

	// Present shows the swapchain texture and releases it, once per frame after Submit.
	Present()

	// AbortFrame discards everything recorded since BeginFrame and releases the swapchain texture
	// without presenting it. It is a no-op when no frame is being recorded.
	AbortFrame()

	Release()
}
