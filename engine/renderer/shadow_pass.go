package renderer

import (
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// ShadowState records whether a frame rendered the shadow map.
type ShadowState int

const (
	// ShadowStateEnabled means the shadow map was rendered and the composite tests against it.
	ShadowStateEnabled ShadowState = iota

	// ShadowStateDisabled means the shadow pass was skipped and every pixel is treated as fully lit.
	// This happens without a shadow casting light, or with shadows switched off in the configuration.
	ShadowStateDisabled
)

// String returns the lowercase name of the state.
func (s ShadowState) String() string {
	switch s {
	case ShadowStateEnabled:
		return "enabled"
	case ShadowStateDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("ShadowState(%d)", int(s))
	}
}

// shadowPass renders scene depth from the light into the shadow map.
type shadowPass struct {
	pipeline pipeline.Pipeline

	// provider binds the position stream, pulled as storage, and the vertex uniforms.
	provider bind_group_provider.BindGroupProvider

	// target owns the shadow map and its comparison sampler.
	target     bind_group_provider.BindGroupProvider
	resolution uint32

	state      ShadowState
	stateKnown bool
}

func newShadowPass(p pipeline.Pipeline) *shadowPass {
	return &shadowPass{pipeline: p}
}

// initTarget (re)creates the depth-only shadow map and its comparison sampler.
//
// Parameters:
//   - backend: the backend creating the resources
//   - resolution: width and height of the map in texels
//
// Returns:
//   - error: an error if the texture or sampler could not be created
func (s *shadowPass) initTarget(backend RendererBackend, resolution uint32) error {
	if s.target != nil {
		s.target.Release()
	}
	s.target = bind_group_provider.NewBindGroupProvider("Shadow Map")
	s.resolution = resolution

	if err := backend.InitRenderTarget(s.target, int(binding.BufferShadowMap), RenderTargetDescriptor{
		Width:  resolution,
		Height: resolution,
		Format: wgpu.TextureFormatDepth32Float,
	}); err != nil {
		return err
	}
	return backend.InitSampler(s.target, int(binding.BufferShadowSampler), common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		Compare:      wgpu.CompareFunctionLess,
	})
}

// initBindGroup binds the shared position stream and creates the vertex uniform buffer,
// which the geometry pass binds as well.
//
// Parameters:
//   - backend: the backend creating the bind group
//   - geometry: the provider owning the scene vertex streams
//   - uniformsSize: byte size of the vertex uniform array
//
// Returns:
//   - error: an error if the bind group could not be created
func (s *shadowPass) initBindGroup(backend RendererBackend, geometry bind_group_provider.BindGroupProvider, uniformsSize uint64) error {
	if s.provider != nil {
		s.provider.Release()
	}
	s.provider = bind_group_provider.NewBindGroupProvider("Shadow",
		bind_group_provider.WithSharedBuffer(int(binding.BufferMeshPositions), geometry.VertexBuffer(int(binding.VertexBufferVertex))),
	)
	return backend.InitBindGroup(s.provider, s.pipeline.BindGroupLayoutDescriptors()[0], nil, map[int]uint64{
		int(binding.BufferVertexUniforms): uniformsSize,
	})
}

// vertexUniforms returns the buffer of per-object vertex uniforms.
func (s *shadowPass) vertexUniforms() *wgpu.Buffer {
	return s.provider.Buffer(int(binding.BufferVertexUniforms))
}

// resolve decides whether the pass runs this frame and logs when the decision changes.
//
// Parameters:
//   - enabled: whether shadows are switched on in the configuration
//   - l: the scene light, or nil
//
// Returns:
//   - ShadowState: the state of this frame
func (s *shadowPass) resolve(enabled bool, l light.Light) ShadowState {
	state := ShadowStateDisabled
	reason := "shadows disabled in config"
	switch {
	case !enabled:
	case l == nil:
		reason = "no light in scene"
	case !l.Enabled() || !l.CastsShadows():
		reason = "light casts no shadows"
	default:
		state = ShadowStateEnabled
	}

	if !s.stateKnown || state != s.state {
		if state == ShadowStateEnabled {
			log.Printf("[Renderer] shadow pass enabled (%dx%d map)", s.resolution, s.resolution)
		} else {
			log.Printf("[Renderer] shadow pass skipped: %s; pixels are shaded fully lit", reason)
		}
	}
	s.state, s.stateKnown = state, true
	return state
}

// record encodes the depth pass over the shadow command slots.
//
// Parameters:
//   - backend: the backend recording the frame
//   - geometry: the provider owning the scene index buffer
//   - cmds: the frame's draw commands
//
// Returns:
//   - error: an error if the pass could not begin
func (s *shadowPass) record(backend RendererBackend, geometry bind_group_provider.BindGroupProvider, cmds drawCommands) error {
	if err := backend.BeginRenderPass(PassDescriptor{
		Label: "Shadow Pass",
		Depth: &DepthAttachment{
			View:  s.target.TextureView(int(binding.BufferShadowMap)),
			Clear: 1,
			Store: true,
		},
	}); err != nil {
		return fmt.Errorf("shadow pass: %w", err)
	}
	backend.SetPipeline(s.pipeline)
	backend.SetBindGroups(s.provider)
	backend.SetIndexBuffer(geometry)
	cmds.executeShadow(backend)
	backend.EndRenderPass()
	return nil
}

func (s *shadowPass) release() {
	if s.provider != nil {
		s.provider.Release()
	}
	if s.target != nil {
		s.target.Release()
	}
}
