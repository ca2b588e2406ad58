package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// WriteTarget selects which buffer of a provider a BufferWrite lands in.
type WriteTarget int

const (
	// TargetBinding writes the buffer bound at Binding.
	TargetBinding WriteTarget = iota

	// TargetVertex writes the vertex stream at slot Binding.
	TargetVertex

	// TargetIndex writes the index buffer. Binding is ignored.
	TargetIndex
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
	Target   WriteTarget
}

// Buffer resolves the buffer the write lands in, or nil when the provider has none there.
func (w BufferWrite) Buffer() *wgpu.Buffer {
	switch w.Target {
	case TargetVertex:
		return w.Provider.VertexBuffer(w.Binding)
	case TargetIndex:
		return w.Provider.IndexBuffer()
	default:
		return w.Provider.Buffer(w.Binding)
	}
}
