package renderer

import (
	"errors"
	"fmt"
	"log"
	"maps"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pollInterval is how often the backend pumps device callbacks while work is in flight.
const pollInterval = time.Millisecond

// errNoFrame is returned when a recording call is made outside BeginFrame ... Submit.
var errNoFrame = errors.New("renderer: no frame is being recorded")

// defaultSampler fills the fields a SamplerStagingData leaves zero.
var defaultSampler = wgpu.SamplerDescriptor{
	AddressModeU:  wgpu.AddressModeRepeat,
	AddressModeV:  wgpu.AddressModeRepeat,
	AddressModeW:  wgpu.AddressModeRepeat,
	MagFilter:     wgpu.FilterModeLinear,
	MinFilter:     wgpu.FilterModeLinear,
	MipmapFilter:  wgpu.MipmapFilterModeLinear,
	LodMaxClamp:   32,
	MaxAnisotropy: 1,
}

// frameState is what one frame holds between BeginFrame and Present. One encoder records the whole
// frame; pass is the open render pass, if any.
type frameState struct {
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	surface *wgpu.Texture
	view    *wgpu.TextureView
}

// endPass closes the open render pass.
func (f *frameState) endPass() {
	if f.pass == nil {
		return
	}
	f.pass.End()
	f.pass.Release()
	f.pass = nil
}

// releaseSurface drops the acquired surface texture and its view.
func (f *frameState) releaseSurface() {
	if f.view != nil {
		f.view.Release()
		f.view = nil
	}
	if f.surface != nil {
		f.surface.Release()
		f.surface = nil
	}
}

type wgpuRendererBackendImpl struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode

	indirectFirstInstance bool

	frame frameState

	// inFlight counts submissions whose completion callback has not run yet.
	inFlight int
	stopPoll chan struct{}
	pollDone chan struct{}
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend opens the adapter and device for a surface. GPU calls are pinned to the
// calling OS thread. Failing to get an adapter or device panics.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, softwareAdapter bool) RendererBackend {
	runtime.LockOSThread()

	b := &wgpuRendererBackendImpl{
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		stopPoll:    make(chan struct{}),
		pollDone:    make(chan struct{}),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: softwareAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(fmt.Errorf("renderer: request adapter: %w", err))
	}
	b.adapter = adapter

	var features []wgpu.FeatureName
	if adapter.HasFeature(wgpu.FeatureNameIndirectFirstInstance) {
		features = append(features, wgpu.FeatureNameIndirectFirstInstance)
		b.indirectFirstInstance = true
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Main Device",
		RequiredFeatures: features,
		RequiredLimits:   &wgpu.RequiredLimits{Limits: wgpu.DefaultLimits()},
	})
	if err != nil {
		panic(fmt.Errorf("renderer: request device: %w", err))
	}
	b.device = device
	b.queue = device.GetQueue()

	go b.pollLoop()
	return b
}

// pollLoop pumps device callbacks so submitted-work-done notifications fire without the render loop polling.
func (b *wgpuRendererBackendImpl) pollLoop() {
	defer close(b.pollDone)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopPoll:
			return
		case <-ticker.C:
			b.mu.Lock()
			if b.inFlight > 0 {
				b.device.Poll(false, nil)
			}
			b.mu.Unlock()
		}
	}
}

// locked runs fn with the backend mutex held.
func (b *wgpuRendererBackendImpl) locked(fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn()
}

// inPass runs fn on the open render pass. Calls outside a pass are ignored.
func (b *wgpuRendererBackendImpl) inPass(fn func(pass *wgpu.RenderPassEncoder)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame.pass != nil {
		fn(b.frame.pass)
	}
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	caps := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = caps.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})
}

// SetPresentMode takes effect on the next ConfigureSurface.
func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.presentMode = mode.wgpu()
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SupportsIndirectFirstInstance() bool {
	return b.indirectFirstInstance
}

// createPipelineLayout creates one bind group layout per group up to the highest one declared.
// Groups a pipeline skips get an empty layout.
func (b *wgpuRendererBackendImpl) createPipelineLayout(label string, descriptors map[int]wgpu.BindGroupLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	count := 0
	if len(descriptors) > 0 {
		count = slices.Max(slices.Collect(maps.Keys(descriptors))) + 1
	}

	layouts := make([]*wgpu.BindGroupLayout, count)
	for g := range layouts {
		desc := descriptors[g]
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("%s: bind group layout %d: %w", label, g, err)
		}
		layouts[g] = layout
	}
	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
}

// programmableStage compiles a shader and pairs the module with its entry point.
func (b *wgpuRendererBackendImpl) programmableStage(s shader.Shader) (*wgpu.ShaderModule, string, error) {
	desc := s.Module()
	module, err := b.device.CreateShaderModule(desc)
	if err != nil {
		return nil, "", fmt.Errorf("shader %s: %w", desc.Label, err)
	}
	return module, s.EntryPoint(), nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	vertexShader := p.Shader(shader.ShaderTypeVertex)

	return b.locked(func() error {
		vs, vsEntry, err := b.programmableStage(vertexShader)
		if err != nil {
			return err
		}
		layout, err := b.createPipelineLayout(p.PipelineKey(), p.BindGroupLayoutDescriptors())
		if err != nil {
			return err
		}

		var buffers []wgpu.VertexBufferLayout
		for _, slot := range slices.Sorted(maps.Keys(vertexShader.VertexLayouts())) {
			buffers = append(buffers, vertexShader.VertexLayout(slot)...)
		}

		var fragment *wgpu.FragmentState
		if fragmentShader := p.Shader(shader.ShaderTypeFragment); fragmentShader != nil {
			fs, fsEntry, err := b.programmableStage(fragmentShader)
			if err != nil {
				return err
			}
			fragment = &wgpu.FragmentState{Module: fs, EntryPoint: fsEntry, Targets: p.ColorTargets(b.surfaceFormat)}
		}

		state := p.State()
		rp, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:        p.PipelineKey(),
			Layout:       layout,
			Vertex:       wgpu.VertexState{Module: vs, EntryPoint: vsEntry, Buffers: buffers},
			Fragment:     fragment,
			Primitive:    state.Primitive(),
			DepthStencil: state.DepthStencil(),
			Multisample:  wgpu.MultisampleState{Count: 1, Mask: ^uint32(0)},
		})
		if err != nil {
			return fmt.Errorf("pipeline %s: %w", p.PipelineKey(), err)
		}
		p.SetRenderPipeline(rp)
		return nil
	})
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	computeShader := p.Shader(shader.ShaderTypeCompute)

	return b.locked(func() error {
		cs, entry, err := b.programmableStage(computeShader)
		if err != nil {
			return err
		}
		layout, err := b.createPipelineLayout(p.PipelineKey(), p.BindGroupLayoutDescriptors())
		if err != nil {
			return err
		}
		cp, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:   p.PipelineKey(),
			Layout:  layout,
			Compute: wgpu.ProgrammableStageDescriptor{Module: cs, EntryPoint: entry},
		})
		if err != nil {
			return fmt.Errorf("pipeline %s: %w", p.PipelineKey(), err)
		}
		p.SetComputePipeline(cp)
		return nil
	})
}

// InitBindGroup creates the layout (once) and the bind group of a provider. Texture and sampler
// bindings must already be attached. Buffer bindings without a buffer get one sized by the layout's
// MinBindingSize unless a size override is given.
func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	if len(descriptor.Entries) == 0 {
		return nil
	}

	return b.locked(func() error {
		layout := provider.BindGroupLayout()
		if layout == nil {
			var err error
			if layout, err = b.device.CreateBindGroupLayout(&descriptor); err != nil {
				return fmt.Errorf("%s: bind group layout: %w", provider.Label(), err)
			}
			provider.SetBindGroupLayout(layout)
		}

		entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
		for i, le := range descriptor.Entries {
			entry, err := b.bindGroupEntry(provider, le, bufferUsageOverrides, bufferSizeOverrides)
			if err != nil {
				return err
			}
			entries[i] = entry
		}

		group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   provider.Label(),
			Layout:  layout,
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("%s: bind group: %w", provider.Label(), err)
		}
		provider.SetBindGroup(group)
		return nil
	})
}

// bindGroupEntry resolves one layout entry against the provider, creating the buffer if needed.
func (b *wgpuRendererBackendImpl) bindGroupEntry(provider bind_group_provider.BindGroupProvider, le wgpu.BindGroupLayoutEntry, usages map[int]wgpu.BufferUsage, sizes map[int]uint64) (wgpu.BindGroupEntry, error) {
	binding := int(le.Binding)
	res := provider.Resource(binding)

	switch {
	case le.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
		if res.View == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("%s: texture binding %d has no texture view", provider.Label(), binding)
		}
		return wgpu.BindGroupEntry{Binding: le.Binding, TextureView: res.View}, nil

	case le.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		if res.Sampler == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("%s: sampler binding %d has no sampler", provider.Label(), binding)
		}
		return wgpu.BindGroupEntry{Binding: le.Binding, Sampler: res.Sampler}, nil
	}

	if res.Buffer == nil {
		usage := wgpu.BufferUsageCopyDst | usages[binding]
		if le.Buffer.Type == wgpu.BufferBindingTypeUniform {
			usage |= wgpu.BufferUsageUniform
		} else {
			usage |= wgpu.BufferUsageStorage
		}
		size, ok := sizes[binding]
		if !ok {
			size = le.Buffer.MinBindingSize
		}

		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
			Size:  size,
			Usage: usage,
		})
		if err != nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("%s: buffer %d: %w", provider.Label(), binding, err)
		}
		provider.Attach(binding, bind_group_provider.Resource{Buffer: buf})
		res.Buffer = buf
	}
	return wgpu.BindGroupEntry{Binding: le.Binding, Buffer: res.Buffer, Size: wgpu.WholeSize}, nil
}

// InitGeometryBuffers creates the vertex streams and, when indexSize is positive, the index buffer.
// Vertex streams are also storage buffers so compute passes can read them.
func (b *wgpuRendererBackendImpl) InitGeometryBuffers(provider bind_group_provider.BindGroupProvider, vertexSizes []uint64, indexSize uint64) error {
	return b.locked(func() error {
		for slot, size := range vertexSizes {
			buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s Vertex Buffer %d", provider.Label(), slot),
				Size:  size,
				Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("%s: vertex buffer %d: %w", provider.Label(), slot, err)
			}
			provider.SetVertexBuffer(slot, buf)
		}
		if indexSize == 0 {
			return nil
		}

		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label() + " Index Buffer",
			Size:  indexSize,
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("%s: index buffer: %w", provider.Label(), err)
		}
		provider.SetIndexBuffer(buf)
		return nil
	})
}

// createTexture creates a single-mip 2D texture and a view of it. On failure nothing is left allocated.
func (b *wgpuRendererBackendImpl) createTexture(desc wgpu.TextureDescriptor, view *wgpu.TextureViewDescriptor) (*wgpu.Texture, *wgpu.TextureView, error) {
	desc.Dimension = wgpu.TextureDimension2D
	desc.MipLevelCount = 1
	desc.SampleCount = 1

	tex, err := b.device.CreateTexture(&desc)
	if err != nil {
		return nil, nil, err
	}
	tv, err := tex.CreateView(view)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, tv, nil
}

// InitTextureArray creates the RGBA8 layered texture that holds material textures.
func (b *wgpuRendererBackendImpl) InitTextureArray(provider bind_group_provider.BindGroupProvider, binding int, width, height, layers uint32) error {
	layers = max(layers, 1)
	return b.locked(func() error {
		tex, view, err := b.createTexture(wgpu.TextureDescriptor{
			Label:  provider.Label() + " Texture Array",
			Usage:  wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
			Size:   wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: layers},
			Format: wgpu.TextureFormatRGBA8Unorm,
		}, &wgpu.TextureViewDescriptor{
			Label:           provider.Label() + " Texture Array View",
			Format:          wgpu.TextureFormatRGBA8Unorm,
			Dimension:       wgpu.TextureViewDimension2DArray,
			MipLevelCount:   1,
			ArrayLayerCount: layers,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			return fmt.Errorf("%s: texture array: %w", provider.Label(), err)
		}
		provider.Attach(binding, bind_group_provider.Resource{Texture: tex, View: view})
		return nil
	})
}

// WriteTextureLayer uploads tightly packed RGBA8 pixels into one layer of a texture array.
func (b *wgpuRendererBackendImpl) WriteTextureLayer(provider bind_group_provider.BindGroupProvider, binding int, layer uint32, data common.TextureStagingData) error {
	return b.locked(func() error {
		tex := provider.Texture(binding)
		if tex == nil {
			return fmt.Errorf("%s: binding %d has no texture", provider.Label(), binding)
		}
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{Texture: tex, Origin: wgpu.Origin3D{Z: layer}, Aspect: wgpu.TextureAspectAll},
			data.Pixels,
			&wgpu.TextureDataLayout{BytesPerRow: data.Width * 4, RowsPerImage: data.Height},
			&wgpu.Extent3D{Width: data.Width, Height: data.Height, DepthOrArrayLayers: 1},
		)
		return nil
	})
}

// InitRenderTarget creates a texture a pass renders into and a later pass samples.
func (b *wgpuRendererBackendImpl) InitRenderTarget(provider bind_group_provider.BindGroupProvider, binding int, desc RenderTargetDescriptor) error {
	return b.locked(func() error {
		tex, view, err := b.createTexture(wgpu.TextureDescriptor{
			Label:  fmt.Sprintf("%s Target %d", provider.Label(), binding),
			Usage:  wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
			Size:   wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
			Format: desc.Format,
		}, nil)
		if err != nil {
			return fmt.Errorf("%s: render target %d: %w", provider.Label(), binding, err)
		}
		provider.Attach(binding, bind_group_provider.Resource{Texture: tex, View: view})
		return nil
	})
}

// InitSampler creates a sampler. Zero fields of data take the values of defaultSampler.
func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, binding int, data common.SamplerStagingData) error {
	desc := defaultSampler
	desc.Label = provider.Label() + " Sampler"
	desc.AddressModeU = common.Coalesce(data.AddressModeU, desc.AddressModeU)
	desc.AddressModeV = common.Coalesce(data.AddressModeV, desc.AddressModeV)
	desc.AddressModeW = common.Coalesce(data.AddressModeW, desc.AddressModeW)
	desc.MagFilter = common.Coalesce(data.MagFilter, desc.MagFilter)
	desc.MinFilter = common.Coalesce(data.MinFilter, desc.MinFilter)
	desc.MipmapFilter = common.Coalesce(data.MipmapFilter, desc.MipmapFilter)
	desc.LodMinClamp = data.LodMinClamp
	desc.LodMaxClamp = common.Coalesce(data.LodMaxClamp, desc.LodMaxClamp)
	desc.MaxAnisotropy = common.Coalesce(data.MaxAnisotropy, desc.MaxAnisotropy)
	desc.Compare = data.Compare

	return b.locked(func() error {
		samp, err := b.device.CreateSampler(&desc)
		if err != nil {
			return fmt.Errorf("%s: sampler %d: %w", provider.Label(), binding, err)
		}
		provider.Attach(binding, bind_group_provider.Resource{Sampler: samp})
		return nil
	})
}

// WriteBuffers queues every write whose target buffer exists. Empty writes are skipped.
func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		if buf := w.Buffer(); buf != nil && len(w.Data) > 0 {
			b.queue.WriteBuffer(buf, w.Offset, w.Data)
		}
	}
}

// BeginFrame acquires the next surface texture and opens the frame encoder.
func (b *wgpuRendererBackendImpl) BeginFrame() error {
	return b.locked(func() error {
		if b.frame.surface != nil {
			return errors.New("renderer: previous frame surface not yet presented")
		}

		surface, err := b.surface.GetCurrentTexture()
		if err != nil {
			return err
		}
		b.frame.surface = surface

		if b.frame.view, err = surface.CreateView(nil); err != nil {
			b.frame.releaseSurface()
			return err
		}
		if b.frame.encoder, err = b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "Frame Encoder"}); err != nil {
			b.frame.releaseSurface()
			return err
		}
		return nil
	})
}

// DispatchCompute records a compute pass with one dispatch. A zero X count records nothing.
func (b *wgpuRendererBackendImpl) DispatchCompute(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.encoder == nil || workGroupCount[0] == 0 {
		return
	}
	pass := b.frame.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: p.PipelineKey()})
	defer pass.Release()

	pass.SetPipeline(p.Pipeline().(*wgpu.ComputePipeline))
	for group, bg := range bindGroups {
		pass.SetBindGroup(uint32(group), bg.BindGroup(), nil)
	}
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
}

// BeginRenderPass opens a render pass that clears every attachment. Only one pass may be open.
func (b *wgpuRendererBackendImpl) BeginRenderPass(desc PassDescriptor) error {
	return b.locked(func() error {
		if b.frame.encoder == nil {
			return errNoFrame
		}
		if b.frame.pass != nil {
			return fmt.Errorf("render pass %q begun while another is open", desc.Label)
		}

		colors := make([]wgpu.RenderPassColorAttachment, len(desc.Colors))
		for i, c := range desc.Colors {
			view := c.View
			if c.Surface {
				view = b.frame.view
			}
			colors[i] = wgpu.RenderPassColorAttachment{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: c.Clear,
			}
		}

		var depth *wgpu.RenderPassDepthStencilAttachment
		if d := desc.Depth; d != nil {
			depth = &wgpu.RenderPassDepthStencilAttachment{
				View:            d.View,
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpDiscard,
				DepthClearValue: d.Clear,
			}
			if d.Store {
				depth.DepthStoreOp = wgpu.StoreOpStore
			}
		}

		b.frame.pass = b.frame.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label:                  desc.Label,
			ColorAttachments:       colors,
			DepthStencilAttachment: depth,
		})
		return nil
	})
}

func (b *wgpuRendererBackendImpl) SetPipeline(p pipeline.Pipeline) {
	b.inPass(func(pass *wgpu.RenderPassEncoder) {
		pass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	})
}

// SetBindGroups binds providers to groups 0..n-1 in order.
func (b *wgpuRendererBackendImpl) SetBindGroups(bindGroups ...bind_group_provider.BindGroupProvider) {
	b.inPass(func(pass *wgpu.RenderPassEncoder) {
		for group, bg := range bindGroups {
			pass.SetBindGroup(uint32(group), bg.BindGroup(), nil)
		}
	})
}

func (b *wgpuRendererBackendImpl) SetVertexBuffers(provider bind_group_provider.BindGroupProvider) {
	b.inPass(func(pass *wgpu.RenderPassEncoder) {
		for slot, buf := range provider.VertexBuffers() {
			if buf != nil {
				pass.SetVertexBuffer(uint32(slot), buf, 0, wgpu.WholeSize)
			}
		}
	})
}

// SetIndexBuffer binds the provider's index buffer as 32-bit indices, if it has one.
func (b *wgpuRendererBackendImpl) SetIndexBuffer(provider bind_group_provider.BindGroupProvider) {
	b.inPass(func(pass *wgpu.RenderPassEncoder) {
		if buf := provider.IndexBuffer(); buf != nil {
			pass.SetIndexBuffer(buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		}
	})
}

func (b *wgpuRendererBackendImpl) DrawIndexedIndirect(buf *wgpu.Buffer, offset uint64) {
	b.inPass(func(pass *wgpu.RenderPassEncoder) {
		pass.DrawIndexedIndirect(buf, offset)
	})
}

func (b *wgpuRendererBackendImpl) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	b.inPass(func(pass *wgpu.RenderPassEncoder) {
		pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	})
}

func (b *wgpuRendererBackendImpl) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	b.inPass(func(pass *wgpu.RenderPassEncoder) {
		pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	})
}

func (b *wgpuRendererBackendImpl) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame.endPass()
}

// Submit finishes the frame encoder and submits it. onDone runs from the device poll with the backend
// mutex held, so it must not call back into the backend.
func (b *wgpuRendererBackendImpl) Submit(onDone func()) error {
	return b.locked(func() error {
		if b.frame.encoder == nil {
			return errNoFrame
		}
		b.frame.endPass()

		commands, err := b.frame.encoder.Finish(nil)
		b.frame.encoder.Release()
		b.frame.encoder = nil
		if err != nil {
			return err
		}
		b.queue.Submit(commands)
		commands.Release()

		b.inFlight++
		b.queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
			b.inFlight--
			if status != wgpu.QueueWorkDoneStatusSuccess {
				log.Printf("[Renderer] submitted work finished with status %v", status)
			}
			if onDone != nil {
				onDone()
			}
		})
		return nil
	})
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.surface == nil {
		return
	}
	b.surface.Present()
	b.frame.releaseSurface()
}

// AbortFrame drops everything recorded for the current frame without submitting it.
func (b *wgpuRendererBackendImpl) AbortFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frame.endPass()
	if b.frame.encoder != nil {
		b.frame.encoder.Release()
		b.frame.encoder = nil
	}
	b.frame.releaseSurface()
}

// Release waits for submitted work, then frees the device and everything above it. Later calls are no-ops.
func (b *wgpuRendererBackendImpl) Release() {
	select {
	case <-b.stopPoll:
		return
	default:
	}
	close(b.stopPoll)
	<-b.pollDone

	b.mu.Lock()
	defer b.mu.Unlock()
	for b.inFlight > 0 {
		b.device.Poll(true, nil)
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}
