package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType tells render pipelines from compute pipelines.
type PipelineType int

const (
	PipelineTypeCompute PipelineType = iota
	PipelineTypeRender
)

func (t PipelineType) String() string {
	if t == PipelineTypeCompute {
		return "compute"
	}
	return "render"
}

// Pipeline is one GPU pipeline of a pass: the G-Buffer fill, the shadow depth pass, the lighting
// composite or the command generator. It carries its shaders and fixed-function state until the
// backend registers it, then the created WebGPU object.
type Pipeline interface {
	Type() PipelineType

	// PipelineKey returns the key the renderer caches and looks the pipeline up by.
	PipelineKey() string

	// Shader returns the stage of the given type, or nil if the pipeline has none.
	Shader(stage shader.ShaderType) shader.Shader

	// Validate reports a stage set the backend cannot build: a compute pipeline without a
	// compute shader, or a render pipeline without a vertex shader.
	Validate() error

	// Pipeline returns *wgpu.RenderPipeline or *wgpu.ComputePipeline according to Type, nil until registered.
	Pipeline() any

	// State returns a copy of the fixed-function state of a render pipeline.
	State() RenderState

	// ColorTargets builds the color target states of a render pipeline. Depth-only pipelines,
	// those without a fragment shader, have none.
	//
	// Parameters:
	//   - surfaceFormat: the presentation format used when no color formats were configured
	//
	// Returns:
	//   - []wgpu.ColorTargetState: one state per color attachment location
	ColorTargets(surfaceFormat wgpu.TextureFormat) []wgpu.ColorTargetState

	// BindGroupLayoutDescriptors returns the layouts of the whole pipeline keyed by group. The vertex
	// and fragment layouts of a render pipeline are merged by MergeBindGroupLayouts.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	SetRenderPipeline(p *wgpu.RenderPipeline)
	SetComputePipeline(p *wgpu.ComputePipeline)
}

var _ Pipeline = &pipeline{}

type pipeline struct {
	key    string
	kind   PipelineType
	stages map[shader.ShaderType]shader.Shader
	state  RenderState

	render  *wgpu.RenderPipeline
	compute *wgpu.ComputePipeline
}

// NewPipeline creates an unregistered pipeline. Render pipelines start as an opaque, depth-tested,
// unculled triangle list drawn to the surface.
//
// Parameters:
//   - key: the unique key for this pipeline
//   - kind: render or compute
//   - opts: options applied in order
//
// Returns:
//   - Pipeline: the configured pipeline
func NewPipeline(key string, kind PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key:    key,
		kind:   kind,
		stages: make(map[shader.ShaderType]shader.Shader, 2),
		state:  defaultRenderState(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.kind
}

func (p *pipeline) PipelineKey() string {
	return p.key
}

func (p *pipeline) Shader(stage shader.ShaderType) shader.Shader {
	return p.stages[stage]
}

func (p *pipeline) Validate() error {
	required := shader.ShaderTypeVertex
	if p.kind == PipelineTypeCompute {
		required = shader.ShaderTypeCompute
	}
	if p.stages[required] == nil {
		return fmt.Errorf("%s pipeline %s: no %s shader", p.kind, p.key, required)
	}
	return nil
}

func (p *pipeline) Pipeline() any {
	if p.kind == PipelineTypeCompute {
		return p.compute
	}
	return p.render
}

func (p *pipeline) State() RenderState {
	s := p.state
	s.ColorFormats = append([]wgpu.TextureFormat(nil), p.state.ColorFormats...)
	return s
}

func (p *pipeline) ColorTargets(surfaceFormat wgpu.TextureFormat) []wgpu.ColorTargetState {
	if p.stages[shader.ShaderTypeFragment] == nil {
		return nil
	}
	return p.state.ColorTargets(surfaceFormat)
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	layoutsOf := func(stage shader.ShaderType) map[int]wgpu.BindGroupLayoutDescriptor {
		if s := p.stages[stage]; s != nil {
			return s.BindGroupLayoutDescriptors()
		}
		return nil
	}
	if p.kind == PipelineTypeCompute {
		return layoutsOf(shader.ShaderTypeCompute)
	}
	return MergeBindGroupLayouts(layoutsOf(shader.ShaderTypeVertex), layoutsOf(shader.ShaderTypeFragment))
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.render = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.compute = cp
}
