package common

import "github.com/chewxy/math32"

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that the positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts frustum planes from a view-projection matrix using the Gribb/Hartmann method.
// Clip depth is assumed to be in the WebGPU range [0, 1], so the near plane is row 2 alone.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the combined projection * view (or projection * model-view) matrix
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj Mat4) Frustum {
	// M[row][col] is at col*4 + row.
	row := func(r int) Vec4 {
		return Vec4{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	var f Frustum
	f.setPlane(FrustumLeft, add4(r3, r0))
	f.setPlane(FrustumRight, sub4(r3, r0))
	f.setPlane(FrustumBottom, add4(r3, r1))
	f.setPlane(FrustumTop, sub4(r3, r1))
	f.setPlane(FrustumNear, r2)
	f.setPlane(FrustumFar, sub4(r3, r2))
	return f
}

// SphereVisible reports whether a sphere intersects or lies inside the frustum.
// A negative radius is treated as zero.
//
// Parameters:
//   - center: the sphere center in the frustum's source space
//   - radius: the sphere radius
//
// Returns:
//   - bool: false only if the sphere is entirely outside at least one plane
func (f Frustum) SphereVisible(center Vec3, radius float32) bool {
	radius = math32.Max(radius, 0)
	for _, p := range f.Planes {
		if p.Normal.Dot(center)+p.Distance < -radius {
			return false
		}
	}
	return true
}

// Packed returns the planes as (nx, ny, nz, d) vectors for upload to a uniform buffer.
func (f Frustum) Packed() [6]Vec4 {
	var out [6]Vec4
	for i, p := range f.Planes {
		out[i] = Vec4{p.Normal[0], p.Normal[1], p.Normal[2], p.Distance}
	}
	return out
}

func (f *Frustum) setPlane(index int, v Vec4) {
	p := &f.Planes[index]
	p.Normal = Vec3{v[0], v[1], v[2]}
	p.Distance = v[3]

	if length := p.Normal.Length(); length > 0 {
		inv := 1 / length
		p.Normal = p.Normal.Scale(inv)
		p.Distance *= inv
	}
}

func add4(a, b Vec4) Vec4 { return Vec4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]} }
func sub4(a, b Vec4) Vec4 { return Vec4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]} }
