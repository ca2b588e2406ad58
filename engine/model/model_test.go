package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faceNormal returns the unnormalized geometric normal of triangle i.
func faceNormal(m *Mesh, i int) common.Vec3 {
	a := m.Vertices[m.Indices[i*3]].Position
	b := m.Vertices[m.Indices[i*3+1]].Position
	c := m.Vertices[m.Indices[i*3+2]].Position
	return b.Sub(a).Cross(c.Sub(a))
}

func TestPrimitivesAreValid(t *testing.T) {
	for _, m := range []*Mesh{Cube(2), Plane(4), Sphere(1, 8, 6)} {
		t.Run(m.Name, func(t *testing.T) {
			require.NoError(t, m.Validate())
			assert.NotEmpty(t, m.Indices)
		})
	}
}

func TestCubeWindingFacesOutward(t *testing.T) {
	m := Cube(2)
	require.Len(t, m.Vertices, 24)
	require.Len(t, m.Indices, 36)
	for i := 0; i < len(m.Indices)/3; i++ {
		n := faceNormal(m, i)
		shading := m.Vertices[m.Indices[i*3]].Normal
		assert.Greater(t, n.Dot(shading), float32(0), "triangle %d", i)
	}
	assert.Equal(t, common.Bounds{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}}, m.Bounds())
}

func TestSphereNormalsMatchPositions(t *testing.T) {
	m := Sphere(2, 12, 8)
	for _, v := range m.Vertices {
		assert.InDelta(t, 2, v.Position.Length(), 1e-4)
		assert.InDelta(t, 1, v.Normal.Length(), 1e-4)
	}
	assert.Len(t, m.Vertices, 13*9)
	assert.Len(t, m.Indices, 12*8*6)
}

func TestValidateRejectsBadMeshes(t *testing.T) {
	partial := &Mesh{Vertices: make([]layout.SceneVertex, 3), Indices: []uint32{0, 1}}
	assert.ErrorIs(t, partial.Validate(), ErrInvalidMesh)

	outOfRange := &Mesh{Vertices: make([]layout.SceneVertex, 3), Indices: []uint32{0, 1, 3}}
	assert.ErrorIs(t, outOfRange.Validate(), ErrInvalidMesh)

	assert.NoError(t, (&Mesh{}).Validate(), "an empty mesh is a valid no-op")
}

func TestStoreAppendsRanges(t *testing.T) {
	s := NewStore()
	cube, plane := Cube(1), Plane(1)

	r0, err := s.Append(cube)
	require.NoError(t, err)
	r1, err := s.Append(plane)
	require.NoError(t, err)

	assert.Equal(t, Range{FirstIndex: 0, IndexCount: 36, BaseVertex: 0, VertexCount: 24}, r0)
	assert.Equal(t, Range{FirstIndex: 36, IndexCount: 6, BaseVertex: 24, VertexCount: 4}, r1)
	assert.Equal(t, []Range{r0, r1}, s.Ranges())

	assert.Len(t, s.PositionNormal(), 28*layout.PositionNormalStride)
	assert.Len(t, s.TexCoords(), 28*layout.TexCoordStride)
	assert.Len(t, s.Indices(), 42*layout.IndexSize)
	assert.Equal(t, uint64(2), s.Version())
}

func TestStoreCapacity(t *testing.T) {
	s := NewStore(WithVertexCapacity(30), WithIndexCapacity(40))
	_, err := s.Append(Cube(1))
	require.NoError(t, err)

	_, err = s.Append(Cube(1))
	assert.ErrorIs(t, err, ErrStoreFull)
	_, err = s.Append(Plane(1))
	assert.ErrorIs(t, err, ErrStoreFull, "6 more indices exceed 40")
	assert.Equal(t, 24, s.VertexCount())
	assert.Equal(t, uint64(1), s.Version())
}

func TestRangeDescriptor(t *testing.T) {
	r := Range{FirstIndex: 6, IndexCount: 36, BaseVertex: 4, VertexCount: 24}
	b := common.Bounds{Min: common.Vec3{0, 0, 0}, Max: common.Vec3{2, 0, 0}}
	d := r.Descriptor(3, layout.MeshFlagCastsShadow, b)

	assert.Equal(t, uint32(36), d.IndexCount)
	assert.Equal(t, uint32(6), d.FirstIndex)
	assert.Equal(t, int32(4), d.BaseVertex)
	assert.Equal(t, uint32(3), d.MaterialIndex)
	assert.True(t, d.CastsShadow())
	assert.Equal(t, common.Vec3{1, 0, 0}, d.BoundsCenter)
	assert.Equal(t, float32(1), d.BoundsRadius)
}

func TestModelParts(t *testing.T) {
	red := material.NewMaterial(material.WithName("red"))
	m := NewModel(WithName("pair"), WithPart(Cube(2), red), WithPart(Plane(10), nil))

	require.Len(t, m.Parts(), 2)
	assert.Equal(t, "red", m.Parts()[0].Material.Name())
	assert.NotNil(t, m.Parts()[1].Material, "nil material falls back to the default")
	assert.True(t, m.CastsShadows())

	b := m.Bounds()
	assert.Equal(t, common.Vec3{-5, -1, -5}, b.Min)
	assert.Equal(t, common.Vec3{5, 1, 5}, b.Max)
}
