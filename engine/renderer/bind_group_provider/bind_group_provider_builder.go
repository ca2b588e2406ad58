package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
//
// Passes rebuild their providers whenever an input changes (scene store, G-Buffer size, shadow map),
// so most options attach a resource that outlives the rebuilt provider.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer hands a buffer to the provider, which then owns and releases it.
// Used when a rebuilt provider takes over the buffer of the one it replaces.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the adopted buffer
//
// Returns:
//   - BindGroupProviderOption: a function that stores the buffer at binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		if buf != nil {
			p.Attach(binding, Resource{Buffer: buf})
		}
	}
}

// WithSharedBuffer attaches a buffer owned by another provider. The provider binds it but never releases it.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the borrowed buffer
//
// Returns:
//   - BindGroupProviderOption: a function that attaches the borrowed buffer
func WithSharedBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.Attach(binding, Resource{Buffer: buf, Shared: true})
	}
}

// WithSharedTextureView attaches a view of a texture another provider owns, such as a G-Buffer target
// or the shadow map.
func WithSharedTextureView(binding int, view *wgpu.TextureView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.Attach(binding, Resource{View: view, Shared: true})
	}
}

// WithSharedSampler attaches a sampler another provider owns.
func WithSharedSampler(binding int, s *wgpu.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.Attach(binding, Resource{Sampler: s, Shared: true})
	}
}

// WithSharedGeometry borrows the vertex streams and index buffer of owner.
//
// Parameters:
//   - owner: the provider holding the geometry buffers
//
// Returns:
//   - BindGroupProviderOption: a function that shares owner's geometry
func WithSharedGeometry(owner BindGroupProvider) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.ShareGeometry(owner)
	}
}
