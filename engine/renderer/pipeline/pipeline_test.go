package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gbufferPipeline(t *testing.T, opts ...PipelineBuilderOption) Pipeline {
	t.Helper()
	vs, err := shader.NewShaderFromPath("gbuffer", shader.ShaderTypeVertex, "../assets/gbuffer.wgsl",
		shader.WithVertexLayouts(layout.SceneVertexLayouts()))
	require.NoError(t, err)
	fs, err := shader.NewShaderFromPath("gbuffer", shader.ShaderTypeFragment, "../assets/gbuffer.wgsl")
	require.NoError(t, err)
	return NewPipeline("gbuffer", PipelineTypeRender, append([]PipelineBuilderOption{
		WithVertexShader(vs),
		WithFragmentShader(fs),
	}, opts...)...)
}

func TestDefaults(t *testing.T) {
	p := NewPipeline("p", PipelineTypeRender)
	s := p.State()
	assert.True(t, s.DepthTest)
	assert.True(t, s.DepthWrite)
	assert.Nil(t, s.Blend)
	assert.Equal(t, wgpu.TextureFormatDepth32Float, s.DepthFormat)
	assert.Empty(t, s.ColorFormats)
	assert.Equal(t, wgpu.CompareFunctionLess, s.DepthStencil().DepthCompare)
	assert.Nil(t, p.Pipeline().(*wgpu.RenderPipeline))
}

func TestGBufferLayoutsMergeStages(t *testing.T) {
	p := gbufferPipeline(t)
	layouts := p.BindGroupLayoutDescriptors()
	require.Contains(t, layouts, 0)

	var bindings []uint32
	for _, e := range layouts[0].Entries {
		bindings = append(bindings, e.Binding)
		assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, e.Visibility, "binding %d", e.Binding)
	}
	assert.Equal(t, []uint32{
		uint32(binding.BufferVertexUniforms),
		uint32(binding.BufferFragmentUniforms),
		uint32(binding.BufferDrawArguments),
		uint32(binding.BufferMaterialTable),
		uint32(binding.BufferMaterialTextures),
		uint32(binding.BufferMaterialSampler),
	}, bindings)
}

func TestColorTargets(t *testing.T) {
	p := gbufferPipeline(t, WithColorTargets(
		wgpu.TextureFormatRGBA8Unorm,
		wgpu.TextureFormatRGBA16Float,
	), WithWriteMask(wgpu.ColorWriteMaskRed))

	targets := p.ColorTargets(wgpu.TextureFormatBGRA8Unorm)
	require.Len(t, targets, 2)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, targets[1].Format)
	assert.Equal(t, wgpu.ColorWriteMaskRed, targets[0].WriteMask)
	assert.Nil(t, targets[0].Blend)

	surface := gbufferPipeline(t, WithBlendEnabled(true)).ColorTargets(wgpu.TextureFormatBGRA8Unorm)
	require.Len(t, surface, 1)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, surface[0].Format)
	assert.NotNil(t, surface[0].Blend)
}

func TestDepthOnlyPipeline(t *testing.T) {
	vs, err := shader.NewShaderFromPath("shadow", shader.ShaderTypeVertex, "../assets/shadow.wgsl")
	require.NoError(t, err)
	p := NewPipeline("shadow", PipelineTypeRender, WithVertexShader(vs), WithShadowCaster(2, 1.5))

	assert.Nil(t, p.ColorTargets(wgpu.TextureFormatBGRA8Unorm))
	ds := p.State().DepthStencil()
	require.NotNil(t, ds)
	assert.Equal(t, int32(2), ds.DepthBias)
	assert.Equal(t, float32(1.5), ds.DepthBiasSlopeScale)
	assert.Equal(t, wgpu.CullModeFront, p.State().Primitive().CullMode)

	entries := p.BindGroupLayoutDescriptors()[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(binding.BufferMeshPositions), entries[0].Binding)
	assert.Equal(t, wgpu.ShaderStageVertex, entries[0].Visibility)
}

func TestMergeBindGroupLayoutsDisjointGroups(t *testing.T) {
	v := map[int]wgpu.BindGroupLayoutDescriptor{0: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 3, Visibility: wgpu.ShaderStageVertex}}}}
	f := map[int]wgpu.BindGroupLayoutDescriptor{1: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 1, Visibility: wgpu.ShaderStageFragment}}}}
	merged := MergeBindGroupLayouts(v, f)
	require.Len(t, merged, 2)
	assert.Equal(t, v[0], merged[0])
	assert.Equal(t, f[1], merged[1])
	assert.Empty(t, MergeBindGroupLayouts(nil, nil))
}

func TestFullscreenQuadPreset(t *testing.T) {
	p := NewPipeline("composite", PipelineTypeRender, WithFullscreenQuad(), WithDepthWriteEnabled(true))
	s := p.State()
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, s.Topology)
	assert.Equal(t, wgpu.CullModeNone, s.CullMode)
	assert.False(t, s.DepthTest)
	assert.True(t, s.DepthWrite, "later options refine the preset")
	assert.Nil(t, s.DepthStencil(), "no depth attachment")
}

func TestBlendStateEnablesBlending(t *testing.T) {
	additive := &wgpu.BlendState{
		Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
	}
	p := NewPipeline("p", PipelineTypeRender, WithBlendState(additive))
	assert.Same(t, additive, p.State().Blend)

	assert.Nil(t, NewPipeline("p", PipelineTypeRender, WithBlendState(additive), WithBlendState(nil)).State().Blend)

	alpha := NewPipeline("p", PipelineTypeRender, WithBlendEnabled(true)).State().Blend
	require.NotNil(t, alpha)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, alpha.Color.SrcFactor)
}

func TestValidateRequiresEntryStage(t *testing.T) {
	assert.Error(t, NewPipeline("generate", PipelineTypeCompute).Validate())
	assert.Error(t, NewPipeline("composite", PipelineTypeRender, WithFullscreenQuad()).Validate())

	p := gbufferPipeline(t, WithFragmentShader(nil))
	require.NoError(t, p.Validate())
	assert.Nil(t, p.Shader(shader.ShaderTypeFragment), "a nil stage clears it")
	assert.Nil(t, p.ColorTargets(wgpu.TextureFormatBGRA8Unorm))
}
