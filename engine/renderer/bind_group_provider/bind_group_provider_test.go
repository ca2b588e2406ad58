package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelIsKept(t *testing.T) {
	p := NewBindGroupProvider("Shadow Pass")
	assert.Equal(t, "Shadow Pass", p.Label())
}

func TestBuffersByBinding(t *testing.T) {
	a, b := new(wgpu.Buffer), new(wgpu.Buffer)
	p := NewBindGroupProvider("p", WithBuffer(11, a), WithSharedBuffer(15, b))

	assert.Same(t, a, p.Buffer(11))
	assert.Same(t, b, p.Buffer(15))
	assert.Nil(t, p.Buffer(12))
	assert.False(t, p.Shared(11))
	assert.True(t, p.Shared(15))
	assert.Equal(t, []int{11, 15}, p.Bindings())
}

func TestReleaseSkipsBorrowedResources(t *testing.T) {
	// Zero handles would crash if released, so every resource here is borrowed.
	buf, view, samp := new(wgpu.Buffer), new(wgpu.TextureView), new(wgpu.Sampler)
	owner := NewBindGroupProvider("scene geometry")
	owner.SetVertexBuffer(0, new(wgpu.Buffer))
	owner.SetVertexBuffer(1, new(wgpu.Buffer))
	owner.SetIndexBuffer(new(wgpu.Buffer))

	p := NewBindGroupProvider("composite",
		WithSharedBuffer(12, buf),
		WithSharedTextureView(21, view),
		WithSharedSampler(22, samp),
		WithSharedGeometry(owner),
	)
	require.Len(t, p.VertexBuffers(), 2)
	assert.Same(t, owner.VertexBuffer(1), p.VertexBuffer(1))
	assert.Same(t, owner.IndexBuffer(), p.IndexBuffer())

	p.Release()
	assert.Empty(t, p.Bindings())
	assert.Empty(t, p.VertexBuffers())
	assert.Nil(t, p.IndexBuffer())

	assert.Len(t, owner.VertexBuffers(), 2, "the owner keeps its geometry")
}

func TestShareGeometryCopiesSlots(t *testing.T) {
	owner := NewBindGroupProvider("owner")
	owner.SetVertexBuffer(0, new(wgpu.Buffer))
	p := NewBindGroupProvider("borrower")
	p.ShareGeometry(owner)

	owner.SetVertexBuffer(1, new(wgpu.Buffer))
	assert.Len(t, p.VertexBuffers(), 1, "later owner changes are not seen")
}

func TestBufferWriteResolvesTarget(t *testing.T) {
	uniforms, positions, indices := new(wgpu.Buffer), new(wgpu.Buffer), new(wgpu.Buffer)
	p := NewBindGroupProvider("p", WithBuffer(12, uniforms))
	p.SetVertexBuffer(0, positions)
	p.SetIndexBuffer(indices)

	assert.Same(t, uniforms, BufferWrite{Provider: p, Binding: 12}.Buffer())
	assert.Same(t, positions, BufferWrite{Provider: p, Binding: 0, Target: TargetVertex}.Buffer())
	assert.Same(t, indices, BufferWrite{Provider: p, Binding: 99, Target: TargetIndex}.Buffer())
	assert.Nil(t, BufferWrite{Provider: p, Binding: 1, Target: TargetVertex}.Buffer())
}

func TestWithBufferIgnoresNil(t *testing.T) {
	p := NewBindGroupProvider("Lighting", WithBuffer(12, nil))
	assert.Empty(t, p.Bindings(), "a first build has no buffer to adopt")
}

func TestAttachMergesHandles(t *testing.T) {
	tex, view := new(wgpu.Texture), new(wgpu.TextureView)
	p := NewBindGroupProvider("G-Buffer")
	p.Attach(2, Resource{Texture: tex})
	p.Attach(2, Resource{View: view})

	res := p.Resource(2)
	assert.Same(t, tex, res.Texture)
	assert.Same(t, view, res.View)
	assert.False(t, res.Shared)

	p.MarkShared(2)
	assert.True(t, p.Shared(2))
	p.Attach(2, Resource{View: new(wgpu.TextureView)})
	assert.True(t, p.Shared(2), "shared is not cleared by a later attach")
}

func TestVertexSlotsGrow(t *testing.T) {
	p := NewBindGroupProvider("geometry")
	normals := new(wgpu.Buffer)
	p.SetVertexBuffer(2, normals)

	require.Len(t, p.VertexBuffers(), 3)
	assert.Nil(t, p.VertexBuffer(0))
	assert.Same(t, normals, p.VertexBuffer(2))
	assert.Nil(t, p.VertexBuffer(7))
	assert.Nil(t, p.VertexBuffer(-1))
}
