package bind_group_provider

import (
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// Resource is everything bound at one binding index. Only the field matching the layout entry is set,
// except for textures, where Texture backs View so the provider can free both.
type Resource struct {
	Buffer  *wgpu.Buffer
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler

	// Shared marks a resource owned by another provider. Release drops it without releasing it.
	Shared bool
}

func (r Resource) release() {
	if r.Shared {
		return
	}
	if r.View != nil {
		r.View.Release()
	}
	if r.Texture != nil {
		r.Texture.Release()
	}
	if r.Sampler != nil {
		r.Sampler.Release()
	}
	if r.Buffer != nil {
		r.Buffer.Release()
	}
}

// merge overlays the non-nil handles of o onto r. Shared sticks once set.
func (r Resource) merge(o Resource) Resource {
	if o.Buffer != nil {
		r.Buffer = o.Buffer
	}
	if o.Texture != nil {
		r.Texture = o.Texture
	}
	if o.View != nil {
		r.View = o.View
	}
	if o.Sampler != nil {
		r.Sampler = o.Sampler
	}
	r.Shared = r.Shared || o.Shared
	return r
}

// BindGroupProvider holds the GPU objects behind one bind group: the layout, the group itself, the
// resource at each binding, and optionally the vertex and index buffers drawn with it.
//
// Passes create providers with a label and the resources they borrow, the backend fills in the rest
// during InitBindGroup, and BufferWrite values name a provider and binding to route per-frame data.
type BindGroupProvider interface {
	// Label returns the debug label, also used as the prefix of GPU object labels.
	Label() string

	// Release frees every owned GPU object. Shared resources and borrowed geometry are only forgotten.
	Release()

	// BindGroup returns the bind group, or nil before InitBindGroup.
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout, or nil before InitBindGroup.
	BindGroupLayout() *wgpu.BindGroupLayout

	// SetBindGroup stores the bind group created by the backend.
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout stores the layout created by the backend.
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// Resource returns what is bound at binding. The zero Resource means nothing is.
	Resource(binding int) Resource

	// Attach overlays res onto the resource at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - res: the handles to set; nil handles leave the current ones in place
	Attach(binding int, res Resource)

	// Bindings returns the occupied binding indices in ascending order.
	Bindings() []int

	// Buffer returns the buffer at binding, or nil.
	Buffer(binding int) *wgpu.Buffer

	// Texture returns the texture backing the view at binding, or nil.
	Texture(binding int) *wgpu.Texture

	// TextureView returns the texture view at binding, or nil.
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at binding, or nil.
	Sampler(binding int) *wgpu.Sampler

	// Shared reports whether the resource at binding belongs to another provider.
	Shared(binding int) bool

	// MarkShared hands ownership of the resources at bindings to someone else, typically the provider
	// that replaces this one.
	MarkShared(bindings ...int)

	// VertexBuffer returns the vertex stream at slot, or nil.
	VertexBuffer(slot int) *wgpu.Buffer

	// VertexBuffers returns the vertex streams indexed by slot. Unset slots are nil.
	VertexBuffers() []*wgpu.Buffer

	// SetVertexBuffer stores the vertex stream for slot.
	SetVertexBuffer(slot int, buf *wgpu.Buffer)

	// IndexBuffer returns the index buffer, or nil for non-indexed geometry.
	IndexBuffer() *wgpu.Buffer

	// SetIndexBuffer stores the index buffer.
	SetIndexBuffer(buf *wgpu.Buffer)

	// ShareGeometry borrows the vertex streams and index buffer of owner as they are now.
	//
	// Parameters:
	//   - owner: the provider that created and releases the geometry
	ShareGeometry(owner BindGroupProvider)
}

var _ BindGroupProvider = &bindGroupProvider{}

type bindGroupProvider struct {
	label string

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	resources       map[int]Resource

	vertexBuffers  []*wgpu.Buffer
	indexBuffer    *wgpu.Buffer
	sharedGeometry bool
}

// NewBindGroupProvider creates an empty provider and applies options.
//
// Parameters:
//   - label: the debug label
//   - options: resources to attach up front
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:     label,
		resources: make(map[int]Resource),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) Resource(binding int) Resource {
	return p.resources[binding]
}

func (p *bindGroupProvider) Attach(binding int, res Resource) {
	p.resources[binding] = p.resources[binding].merge(res)
}

func (p *bindGroupProvider) Bindings() []int {
	out := make([]int, 0, len(p.resources))
	for b := range p.resources {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.resources[binding].Buffer
}

func (p *bindGroupProvider) Texture(binding int) *wgpu.Texture {
	return p.resources[binding].Texture
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.resources[binding].View
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.resources[binding].Sampler
}

func (p *bindGroupProvider) Shared(binding int) bool {
	return p.resources[binding].Shared
}

func (p *bindGroupProvider) MarkShared(bindings ...int) {
	for _, b := range bindings {
		p.Attach(b, Resource{Shared: true})
	}
}

func (p *bindGroupProvider) VertexBuffer(slot int) *wgpu.Buffer {
	if slot < 0 || slot >= len(p.vertexBuffers) {
		return nil
	}
	return p.vertexBuffers[slot]
}

func (p *bindGroupProvider) VertexBuffers() []*wgpu.Buffer {
	return p.vertexBuffers
}

func (p *bindGroupProvider) SetVertexBuffer(slot int, buf *wgpu.Buffer) {
	if slot >= len(p.vertexBuffers) {
		p.vertexBuffers = append(p.vertexBuffers, make([]*wgpu.Buffer, slot+1-len(p.vertexBuffers))...)
	}
	p.vertexBuffers[slot] = buf
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) ShareGeometry(owner BindGroupProvider) {
	p.vertexBuffers = slices.Clone(owner.VertexBuffers())
	p.indexBuffer = owner.IndexBuffer()
	p.sharedGeometry = true
}

func (p *bindGroupProvider) Release() {
	// the group references the resources, so it goes first
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	for b, res := range p.resources {
		res.release()
		delete(p.resources, b)
	}

	if !p.sharedGeometry {
		for _, buf := range p.vertexBuffers {
			if buf != nil {
				buf.Release()
			}
		}
		if p.indexBuffer != nil {
			p.indexBuffer.Release()
		}
	}
	p.vertexBuffers = nil
	p.indexBuffer = nil
}
