package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-4

func assertMat4(t *testing.T, want, got Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "element %d", i)
	}
}

func TestMul4Identity(t *testing.T) {
	m := ModelMatrix(Vec3{1, 2, 3}, Vec3{0.3, 0.2, 0.1}, Vec3{2, 2, 2})
	assertMat4(t, m, Mul4(Identity4(), m))
	assertMat4(t, m, Mul4(m, Identity4()))
}

func TestInvert4(t *testing.T) {
	m := ModelMatrix(Vec3{-4, 1, 7}, Vec3{0.5, -1.2, 0.25}, Vec3{1, 3, 0.5})
	inv, ok := Invert4(m)
	require.True(t, ok)
	assertMat4(t, Identity4(), Mul4(m, inv))

	_, ok = Invert4(Mat4{})
	assert.False(t, ok)
}

func TestNormalMatrixOfRotationIsRotation(t *testing.T) {
	rot := ModelMatrix(Vec3{5, 5, 5}, Vec3{0.4, 0.9, -0.3}, Vec3{1, 1, 1})
	n := NormalMatrix(rot)
	upper := UpperLeft3(rot)
	for i := range n {
		assert.InDelta(t, upper[i], n[i], tol)
	}
}

func TestNormalMatrixUndoesNonUniformScale(t *testing.T) {
	m := ModelMatrix(Vec3{}, Vec3{}, Vec3{2, 1, 1})
	n := NormalMatrix(m)
	assert.InDelta(t, 0.5, n[0], tol)
	assert.InDelta(t, 1.0, n[4], tol)
	assert.InDelta(t, 1.0, n[8], tol)
}

func TestLookAtMapsEyeToOrigin(t *testing.T) {
	eye := Vec3{3, 4, 5}
	view := LookAt(eye, Vec3{}, Vec3{0, 1, 0})
	p := TransformPoint(view, eye)
	for i := range p {
		assert.InDelta(t, 0, p[i], tol)
	}
	// the target lies straight down -Z
	c := TransformPoint(view, Vec3{})
	assert.InDelta(t, 0, c[0], tol)
	assert.InDelta(t, 0, c[1], tol)
	assert.InDelta(t, -eye.Length(), c[2], tol)
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := Perspective(math32.Pi/3, 1, 0.1, 100)
	near := MulVec4(proj, Vec4{0, 0, -0.1, 1})
	far := MulVec4(proj, Vec4{0, 0, -100, 1})
	assert.InDelta(t, 0, near[2]/near[3], tol)
	assert.InDelta(t, 1, far[2]/far[3], tol)
}

func TestOrthoDepthRange(t *testing.T) {
	proj := Ortho(-10, 10, -10, 10, 1, 50)
	near := MulVec4(proj, Vec4{10, -10, -1, 1})
	far := MulVec4(proj, Vec4{0, 0, -50, 1})
	assert.InDelta(t, 0, near[2], tol)
	assert.InDelta(t, 1, near[0], tol)
	assert.InDelta(t, -1, near[1], tol)
	assert.InDelta(t, 1, far[2], tol)
}

func TestFrustumSphereVisible(t *testing.T) {
	view := LookAt(Vec3{0, 0, 10}, Vec3{}, Vec3{0, 1, 0})
	f := ExtractFrustum(Mul4(Perspective(math32.Pi/3, 1, 0.1, 100), view))

	assert.True(t, f.SphereVisible(Vec3{}, 1))
	assert.False(t, f.SphereVisible(Vec3{0, 0, 20}, 1), "behind the camera")
	assert.False(t, f.SphereVisible(Vec3{500, 0, 0}, 1), "far to the side")
	assert.False(t, f.SphereVisible(Vec3{0, 0, -200}, 1), "beyond the far plane")
	assert.True(t, f.SphereVisible(Vec3{0, 0, -95}, 10), "straddles the far plane")
}

func TestBounds(t *testing.T) {
	b := EmptyBounds()
	assert.True(t, b.IsEmpty())

	b = b.Extend(Vec3{-1, 0, 2}).Extend(Vec3{3, 4, -2})
	assert.False(t, b.IsEmpty())
	assert.Equal(t, Vec3{1, 2, 0}, b.Center())
	assert.Equal(t, Vec3{4, 4, 4}, b.Extent())

	c, r := b.Sphere()
	assert.Equal(t, Vec3{1, 2, 0}, c)
	assert.InDelta(t, math32.Sqrt(48)/2, r, tol)

	moved := b.Transform(Translation(10, 0, 0))
	assert.InDelta(t, 9, moved.Min[0], tol)
	assert.InDelta(t, 13, moved.Max[0], tol)
}
