package renderer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// reconstructCall is the position lookup of the composite program that the world-position variant replaces.
const reconstructCall = "view_position(in.clip_position.xy, linear_depth)"

// worldPositionSource builds the composite variant reading positions from the world-position target.
//
// Parameters:
//   - composite: the annotated composite program
//   - extension: the declarations that bind and read the world-position target
//
// Returns:
//   - string: the variant source
//   - error: an error if composite no longer contains the reconstruction call
func worldPositionSource(composite, extension string) (string, error) {
	if !strings.Contains(composite, reconstructCall) {
		return "", fmt.Errorf("composite program has no %q to replace", reconstructCall)
	}
	return strings.Replace(composite, reconstructCall, "stored_view_position(texel)", 1) + "\n" + extension, nil
}

// compositePass lights every pixel of the G-Buffer onto the surface with a full-screen quad.
type compositePass struct {
	basic pipeline.Pipeline
	world pipeline.Pipeline

	// worldPosition selects the variant that samples the world-position target.
	worldPosition bool

	// lighting is group 0: the frame uniforms it owns, plus the borrowed shadow map and sampler.
	lighting bind_group_provider.BindGroupProvider
	// gbuffer is group 1: borrowed views of the G-Buffer targets.
	gbuffer bind_group_provider.BindGroupProvider
	// quad owns the full-screen quad vertex stream.
	quad bind_group_provider.BindGroupProvider
}

func newCompositePass(basic, world pipeline.Pipeline) *compositePass {
	return &compositePass{basic: basic, world: world}
}

// pipeline returns the variant matching the bound G-Buffer.
func (c *compositePass) pipeline() pipeline.Pipeline {
	if c.worldPosition {
		return c.world
	}
	return c.basic
}

// initQuad creates and fills the quad vertex stream.
func (c *compositePass) initQuad(backend RendererBackend) error {
	c.quad = bind_group_provider.NewBindGroupProvider("Fullscreen Quad")
	data := layout.MarshalQuad()
	if err := backend.InitGeometryBuffers(c.quad, []uint64{uint64(len(data))}, 0); err != nil {
		return err
	}
	backend.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: c.quad,
		Binding:  0,
		Data:     data,
		Target:   bind_group_provider.TargetVertex,
	}})
	return nil
}

// bindLighting (re)creates group 0 over the given shadow map. The frame uniform buffer survives a rebind.
//
// Parameters:
//   - backend: the backend creating the bind group
//   - shadow: the provider owning the shadow map and comparison sampler
//
// Returns:
//   - error: an error if the bind group could not be created
func (c *compositePass) bindLighting(backend RendererBackend, shadow bind_group_provider.BindGroupProvider) error {
	var uniforms *wgpu.Buffer
	if c.lighting != nil {
		uniforms = c.lighting.Buffer(int(binding.BufferFragmentUniforms))
		// keep the uniform buffer, drop only the old bind group
		c.lighting.MarkShared(int(binding.BufferFragmentUniforms))
		c.lighting.Release()
	}

	c.lighting = bind_group_provider.NewBindGroupProvider("Lighting",
		bind_group_provider.WithBuffer(int(binding.BufferFragmentUniforms), uniforms),
		bind_group_provider.WithSharedTextureView(int(binding.BufferShadowMap), shadow.TextureView(int(binding.BufferShadowMap))),
		bind_group_provider.WithSharedSampler(int(binding.BufferShadowSampler), shadow.Sampler(int(binding.BufferShadowSampler))),
	)

	return backend.InitBindGroup(c.lighting, c.pipeline().BindGroupLayoutDescriptors()[0], nil, map[int]uint64{
		int(binding.BufferFragmentUniforms): uint64(layout.FragmentUniforms{}.Size()),
	})
}

// fragmentUniforms returns the frame uniform buffer shared with the geometry pass.
func (c *compositePass) fragmentUniforms() *wgpu.Buffer {
	return c.lighting.Buffer(int(binding.BufferFragmentUniforms))
}

// bindGBuffer (re)creates group 1 over the current G-Buffer targets and switches to the matching variant.
//
// Parameters:
//   - backend: the backend creating the bind group
//   - targets: the provider owning the G-Buffer textures
//   - worldPosition: whether targets holds the world-position texture
//
// Returns:
//   - error: an error if the bind group could not be created
func (c *compositePass) bindGBuffer(backend RendererBackend, targets bind_group_provider.BindGroupProvider, worldPosition bool) error {
	if c.gbuffer != nil {
		c.gbuffer.Release()
	}
	c.worldPosition = worldPosition
	read := gbufferTargets
	if worldPosition {
		read = append(slices.Clone(gbufferTargets), binding.RenderTargetWorldPosition)
	}
	views := make([]bind_group_provider.BindGroupProviderOption, 0, len(read))
	for _, t := range read {
		views = append(views, bind_group_provider.WithSharedTextureView(int(t), targets.TextureView(int(t))))
	}
	c.gbuffer = bind_group_provider.NewBindGroupProvider("G-Buffer Read", views...)
	return backend.InitBindGroup(c.gbuffer, c.pipeline().BindGroupLayoutDescriptors()[1], nil, nil)
}

// record encodes the composite into the surface.
func (c *compositePass) record(backend RendererBackend) error {
	if err := backend.BeginRenderPass(PassDescriptor{
		Label:  "Composite Pass",
		Colors: []ColorAttachment{{Surface: true}},
	}); err != nil {
		return fmt.Errorf("composite pass: %w", err)
	}
	backend.SetPipeline(c.pipeline())
	backend.SetBindGroups(c.lighting, c.gbuffer)
	backend.SetVertexBuffers(c.quad)
	backend.Draw(uint32(len(layout.FullscreenQuad)), 1, 0, 0)
	backend.EndRenderPass()
	return nil
}

func (c *compositePass) release() {
	for _, p := range []bind_group_provider.BindGroupProvider{c.gbuffer, c.lighting, c.quad} {
		if p != nil {
			p.Release()
		}
	}
}

// GBufferSample is what the composite loads from the G-Buffer for one pixel.
type GBufferSample struct {
	// Albedo holds the base color in rgb and the specular intensity in a.
	Albedo common.Vec4
	// Normal holds the view-space normal in xyz and shininess / 256 in w.
	Normal common.Vec4
	// LinearDepth is the positive view depth, or 0 where no geometry was drawn.
	LinearDepth float32
	// LightClip is the surface position in light clip space.
	LightClip common.Vec4
	// WorldPosition is the world-space surface position with w = 1, or all zero when the
	// world-position target is not written.
	WorldPosition common.Vec4
}

// ShadowLookup performs one comparison sample of the shadow map: 1 where reference is nearer than
// the stored depth at (u, v), otherwise 0.
type ShadowLookup func(u, v, reference float32) float32

// ReconstructViewPosition recovers the view-space position of a pixel from its linear depth.
//
// Parameters:
//   - x, y: the pixel center in framebuffer coordinates, origin top left
//   - depth: the positive linear view depth
//   - u: the frame uniforms holding the inverse projection and viewport
//
// Returns:
//   - common.Vec3: the view-space position
func ReconstructViewPosition(x, y, depth float32, u layout.FragmentUniforms) common.Vec3 {
	ndc := common.Vec4{x*u.Viewport[2]*2 - 1, 1 - y*u.Viewport[3]*2, 1, 1}
	far := common.MulVec4(u.InverseProjection, ndc)
	ray := common.Vec3{far[0] / far[3], far[1] / far[3], far[2] / far[3]}
	return ray.Scale(depth / -ray[2])
}

// ShadowVisibility returns the lit fraction of a surface point. Shadows disabled, or a point outside
// the shadow map, count as fully lit. Otherwise a 3x3 grid of comparisons spaced params[2] apart is
// averaged; with PCF off the spacing is 0 and all nine samples agree.
//
// Parameters:
//   - lightClip: the point in light clip space
//   - params: enabled, bias, texel spacing
//   - lookup: the comparison sample
//
// Returns:
//   - float32: visibility in [0, 1]
func ShadowVisibility(lightClip, params common.Vec4, lookup ShadowLookup) float32 {
	if params[0] == 0 || lookup == nil {
		return 1
	}
	px, py, pz := lightClip[0]/lightClip[3], lightClip[1]/lightClip[3], lightClip[2]/lightClip[3]
	u, v := px*0.5+0.5, -py*0.5+0.5
	if u < 0 || v < 0 || u > 1 || v > 1 || pz > 1 {
		return 1
	}
	reference := pz - params[1]

	var lit float32
	for y := -1; y <= 1; y++ {
		for x := -1; x <= 1; x++ {
			lit += lookup(u+float32(x)*params[2], v+float32(y)*params[2], reference)
		}
	}
	return lit / 9
}

// ShadePixel computes the composite output of one pixel the way the lighting program does:
// background pixels keep the albedo clear color, lit pixels get ambient plus shadowed Blinn-Phong.
// A sample carrying a world position is lit at that position, as the world-position variant does;
// otherwise the position is rebuilt from linear depth.
//
// Parameters:
//   - x, y: the pixel center in framebuffer coordinates
//   - s: the G-Buffer contents at the pixel
//   - u: the frame uniforms
//   - lookup: the shadow map comparison, nil when no shadow map exists
//
// Returns:
//   - common.Vec4: the final color with a = 1
func ShadePixel(x, y float32, s GBufferSample, u layout.FragmentUniforms, lookup ShadowLookup) common.Vec4 {
	albedo := common.Vec3{s.Albedo[0], s.Albedo[1], s.Albedo[2]}
	if s.LinearDepth <= 0 {
		return common.Vec4{albedo[0], albedo[1], albedo[2], 1}
	}

	position := ReconstructViewPosition(x, y, s.LinearDepth, u)
	if s.WorldPosition[3] != 0 {
		position = common.TransformPoint(u.View, common.Vec3{s.WorldPosition[0], s.WorldPosition[1], s.WorldPosition[2]})
	}
	n := common.Vec3{s.Normal[0], s.Normal[1], s.Normal[2]}.Normalize()
	lv := common.Vec3{u.ViewLightPosition[0], u.ViewLightPosition[1], u.ViewLightPosition[2]}
	if u.ViewLightPosition[3] != 0 {
		lv = lv.Sub(position)
	}
	l := lv.Normalize()
	v := position.Scale(-1).Normalize()
	h := l.Add(v).Normalize()

	diffuse := math32.Max(n.Dot(l), 0)
	shininess := math32.Max(s.Normal[3]*256, 1)
	specular := math32.Pow(math32.Max(n.Dot(h), 0), shininess) * s.Albedo[3]
	visibility := ShadowVisibility(s.LightClip, u.ShadowParams, lookup)

	var out common.Vec4
	for i := range 3 {
		ambient := albedo[i] * u.AmbientColor[i]
		direct := visibility * (albedo[i]*diffuse + specular) * u.LightColor[i]
		out[i] = ambient + direct
	}
	out[3] = 1
	return out
}
