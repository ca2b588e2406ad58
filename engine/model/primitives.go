package model

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/chewxy/math32"
)

// cubeFaces lists each face as its normal and the two in-plane axes, counter-clockwise seen from outside.
var cubeFaces = [6]struct {
	normal, u, v common.Vec3
}{
	{common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}, common.Vec3{0, 1, 0}},
	{common.Vec3{-1, 0, 0}, common.Vec3{0, 0, 1}, common.Vec3{0, 1, 0}},
	{common.Vec3{0, 1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}},
	{common.Vec3{0, -1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, 1}},
	{common.Vec3{0, 0, 1}, common.Vec3{1, 0, 0}, common.Vec3{0, 1, 0}},
	{common.Vec3{0, 0, -1}, common.Vec3{-1, 0, 0}, common.Vec3{0, 1, 0}},
}

// Cube builds an axis-aligned cube centered on the origin with flat per-face normals.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - *Mesh: 24 vertices, 36 indices
func Cube(size float32) *Mesh {
	h := size / 2
	m := &Mesh{
		Name:     "cube",
		Vertices: make([]layout.SceneVertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range cubeFaces {
		base := uint32(len(m.Vertices))
		for _, c := range corners {
			p := f.normal.Add(f.u.Scale(c[0])).Add(f.v.Scale(c[1])).Scale(h)
			m.Vertices = append(m.Vertices, layout.SceneVertex{
				Position:  p,
				Normal:    f.normal,
				TexCoords: [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2},
			})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// Plane builds a square in the XZ plane facing +Y, centered on the origin.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - *Mesh: 4 vertices, 6 indices
func Plane(size float32) *Mesh {
	h := size / 2
	up := common.Vec3{0, 1, 0}
	return &Mesh{
		Name: "plane",
		Vertices: []layout.SceneVertex{
			{Position: common.Vec3{-h, 0, h}, Normal: up, TexCoords: [2]float32{0, 1}},
			{Position: common.Vec3{h, 0, h}, Normal: up, TexCoords: [2]float32{1, 1}},
			{Position: common.Vec3{h, 0, -h}, Normal: up, TexCoords: [2]float32{1, 0}},
			{Position: common.Vec3{-h, 0, -h}, Normal: up, TexCoords: [2]float32{0, 0}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Sphere builds a UV sphere centered on the origin with smooth normals.
//
// Parameters:
//   - radius: the sphere radius
//   - segments: divisions around the Y axis, at least 3
//   - rings: divisions from pole to pole, at least 2
//
// Returns:
//   - *Mesh: (segments+1)*(rings+1) vertices
func Sphere(radius float32, segments, rings int) *Mesh {
	segments, rings = max(segments, 3), max(rings, 2)
	m := &Mesh{
		Name:     "sphere",
		Vertices: make([]layout.SceneVertex, 0, (segments+1)*(rings+1)),
		Indices:  make([]uint32, 0, segments*rings*6),
	}
	for r := 0; r <= rings; r++ {
		v := float32(r) / float32(rings)
		theta := v * math32.Pi
		for s := 0; s <= segments; s++ {
			u := float32(s) / float32(segments)
			phi := u * 2 * math32.Pi
			n := common.Vec3{
				math32.Sin(theta) * math32.Sin(phi),
				math32.Cos(theta),
				math32.Sin(theta) * math32.Cos(phi),
			}
			m.Vertices = append(m.Vertices, layout.SceneVertex{
				Position:  n.Scale(radius),
				Normal:    n,
				TexCoords: [2]float32{u, v},
			})
		}
	}
	stride := uint32(segments + 1)
	for r := uint32(0); r < uint32(rings); r++ {
		for s := uint32(0); s < uint32(segments); s++ {
			a := r*stride + s
			b := a + stride
			m.Indices = append(m.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return m
}
