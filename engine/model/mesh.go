package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
)

// ErrInvalidMesh is returned for a mesh whose indices do not describe whole triangles over its vertices.
var ErrInvalidMesh = errors.New("model: invalid mesh")

// Mesh is one drawable piece of geometry in model space: indexed triangles over SceneVertex data.
type Mesh struct {
	Name     string
	Vertices []layout.SceneVertex
	Indices  []uint32
}

// Bounds returns the model-space bounding box of the vertices.
func (m *Mesh) Bounds() common.Bounds {
	b := common.EmptyBounds()
	for _, v := range m.Vertices {
		b = b.Extend(v.Position)
	}
	return b
}

// Validate checks the mesh can be drawn: whole triangles, every index in range.
// An empty mesh is valid and produces a no-op draw.
//
// Returns:
//   - error: ErrInvalidMesh naming the first problem
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %q has %d indices, not a multiple of 3", ErrInvalidMesh, m.Name, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("%w: %q index %d is %d, only %d vertices", ErrInvalidMesh, m.Name, i, idx, len(m.Vertices))
		}
	}
	return nil
}

// Range is where a mesh landed in the shared vertex and index buffers.
// Its fields go straight into layout.MeshDescriptor.
type Range struct {
	FirstIndex  uint32
	IndexCount  uint32
	BaseVertex  int32
	VertexCount uint32
}

// Descriptor fills the draw range fields of a mesh descriptor.
//
// Parameters:
//   - material: the material table index of the mesh
//   - flags: layout.MeshFlag bits
//   - bounds: world-space bounds used for culling
//
// Returns:
//   - layout.MeshDescriptor: the mesh table entry
func (r Range) Descriptor(material uint32, flags uint32, bounds common.Bounds) layout.MeshDescriptor {
	center, radius := bounds.Sphere()
	return layout.MeshDescriptor{
		IndexCount:    r.IndexCount,
		FirstIndex:    r.FirstIndex,
		BaseVertex:    r.BaseVertex,
		VertexCount:   r.VertexCount,
		MaterialIndex: material,
		Flags:         flags,
		BoundsCenter:  center,
		BoundsRadius:  radius,
	}
}
