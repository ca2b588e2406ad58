package pipeline

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a pipeline in NewPipeline. Options apply in order, so a preset
// such as WithFullscreenQuad can be refined by later options.
type PipelineBuilderOption func(*pipeline)

// withState wraps an edit of the render state as an option.
func withState(fn func(s *RenderState)) PipelineBuilderOption {
	return func(p *pipeline) {
		fn(&p.state)
	}
}

func withStage(stage shader.ShaderType, s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		if s == nil {
			delete(p.stages, stage)
			return
		}
		p.stages[stage] = s
	}
}

// WithVertexShader sets the vertex stage. A render pipeline with only a vertex stage is depth-only.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return withStage(shader.ShaderTypeVertex, s)
}

func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return withStage(shader.ShaderTypeFragment, s)
}

func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return withStage(shader.ShaderTypeCompute, s)
}

// WithRenderState replaces the whole fixed-function state.
func WithRenderState(state RenderState) PipelineBuilderOption {
	return withState(func(s *RenderState) { *s = state })
}

// WithDepthTestEnabled toggles the depth compare. When off the depth compare is Always.
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return withState(func(s *RenderState) { s.DepthTest = enabled })
}

func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return withState(func(s *RenderState) { s.DepthWrite = enabled })
}

// WithDepthBias offsets rasterized depth away from the light, removing self-shadowing acne.
//
// Parameters:
//   - bias: constant bias in depth units
//   - slopeScale: bias scaled by the polygon's depth slope
//
// Returns:
//   - PipelineBuilderOption: the option
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return withState(func(s *RenderState) {
		s.DepthBias, s.DepthBiasSlopeScale = bias, slopeScale
	})
}

// WithBlendEnabled turns on straight alpha blending of every color target, or turns blending off.
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return withState(func(s *RenderState) {
		s.Blend = nil
		if enabled {
			blend := defaultBlend
			s.Blend = &blend
		}
	})
}

// WithBlendState blends every color target with blend. Nil disables blending.
func WithBlendState(blend *wgpu.BlendState) PipelineBuilderOption {
	return withState(func(s *RenderState) { s.Blend = blend })
}

func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return withState(func(s *RenderState) { s.CullMode = mode })
}

func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return withState(func(s *RenderState) { s.Topology = topology })
}

// WithFrontFace sets the winding treated as front facing.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return withState(func(s *RenderState) { s.FrontFace = frontFace })
}

// WithWriteMask restricts which channels every color target writes.
func WithWriteMask(mask wgpu.ColorWriteMask) PipelineBuilderOption {
	return withState(func(s *RenderState) { s.WriteMask = mask })
}

// WithColorTargets sets one color attachment format per location, for multiple render targets.
// Without it a render pipeline draws to the presentation surface.
func WithColorTargets(formats ...wgpu.TextureFormat) PipelineBuilderOption {
	return withState(func(s *RenderState) {
		s.ColorFormats = append([]wgpu.TextureFormat(nil), formats...)
	})
}

// WithDepthFormat sets the depth attachment format. wgpu.TextureFormatUndefined removes the depth attachment.
func WithDepthFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return withState(func(s *RenderState) { s.DepthFormat = format })
}

// WithFullscreenQuad configures a pass that covers the target with a four-vertex triangle strip:
// no culling and no depth attachment.
func WithFullscreenQuad() PipelineBuilderOption {
	return withState(func(s *RenderState) {
		s.Topology = wgpu.PrimitiveTopologyTriangleStrip
		s.CullMode = wgpu.CullModeNone
		s.DepthTest, s.DepthWrite = false, false
		s.DepthFormat = wgpu.TextureFormatUndefined
	})
}

// WithShadowCaster configures a depth-only pass rendered from the light. Front faces are culled so
// the stored depth is that of back faces, and the bias pushes it further from the light.
//
// Parameters:
//   - bias: constant depth bias
//   - slopeScale: slope-scaled depth bias
//
// Returns:
//   - PipelineBuilderOption: the option
func WithShadowCaster(bias int32, slopeScale float32) PipelineBuilderOption {
	return withState(func(s *RenderState) {
		s.CullMode = wgpu.CullModeFront
		s.DepthTest, s.DepthWrite = true, true
		s.DepthBias, s.DepthBiasSlopeScale = bias, slopeScale
		s.ColorFormats = nil
	})
}
