package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// defaultBlend is the straight alpha blend WithBlendEnabled(true) turns on.
var defaultBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// RenderState is the fixed-function state of a render pipeline. Compute pipelines carry the defaults
// and ignore them.
type RenderState struct {
	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	CullMode  wgpu.CullMode

	// DepthFormat is the depth attachment format, or TextureFormatUndefined for none.
	DepthFormat         wgpu.TextureFormat
	DepthTest           bool
	DepthWrite          bool
	DepthBias           int32
	DepthBiasSlopeScale float32

	// ColorFormats lists one format per color attachment location. Empty means a single surface-format target.
	ColorFormats []wgpu.TextureFormat
	WriteMask    wgpu.ColorWriteMask
	// Blend is applied to every color target; nil disables blending.
	Blend *wgpu.BlendState
}

// defaultRenderState is an opaque, depth-tested triangle list drawn to the surface.
func defaultRenderState() RenderState {
	return RenderState{
		Topology:    wgpu.PrimitiveTopologyTriangleList,
		FrontFace:   wgpu.FrontFaceCCW,
		CullMode:    wgpu.CullModeNone,
		DepthFormat: wgpu.TextureFormatDepth32Float,
		DepthTest:   true,
		DepthWrite:  true,
		WriteMask:   wgpu.ColorWriteMaskAll,
	}
}

// Primitive returns the primitive assembly state.
func (s RenderState) Primitive() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  s.Topology,
		FrontFace: s.FrontFace,
		CullMode:  s.CullMode,
	}
}

// DepthStencil returns the depth state, or nil without a depth attachment. Stencil is unused.
// With the depth test off the compare is Always, so writes still land when enabled.
func (s RenderState) DepthStencil() *wgpu.DepthStencilState {
	if s.DepthFormat == wgpu.TextureFormatUndefined {
		return nil
	}
	compare := wgpu.CompareFunctionLess
	if !s.DepthTest {
		compare = wgpu.CompareFunctionAlways
	}
	always := wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}
	return &wgpu.DepthStencilState{
		Format:              s.DepthFormat,
		DepthWriteEnabled:   s.DepthWrite,
		DepthCompare:        compare,
		DepthBias:           s.DepthBias,
		DepthBiasSlopeScale: s.DepthBiasSlopeScale,
		StencilFront:        always,
		StencilBack:         always,
	}
}

// ColorTargets builds one target state per color attachment location.
//
// Parameters:
//   - surfaceFormat: the presentation format used when no color formats were configured
//
// Returns:
//   - []wgpu.ColorTargetState: one state per location
func (s RenderState) ColorTargets(surfaceFormat wgpu.TextureFormat) []wgpu.ColorTargetState {
	formats := s.ColorFormats
	if len(formats) == 0 {
		formats = []wgpu.TextureFormat{surfaceFormat}
	}
	targets := make([]wgpu.ColorTargetState, len(formats))
	for i, f := range formats {
		targets[i] = wgpu.ColorTargetState{
			Format:    f,
			WriteMask: s.WriteMask,
			Blend:     s.Blend,
		}
	}
	return targets
}
