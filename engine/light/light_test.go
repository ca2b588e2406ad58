package light

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func unitBounds() common.Bounds {
	return common.Bounds{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}}
}

// clip projects p and returns the post-divide coordinates.
func clip(vp common.Mat4, p common.Vec3) common.Vec3 {
	c := common.MulVec4(vp, common.Vec4{p[0], p[1], p[2], 1})
	return common.Vec3{c[0] / c[3], c[1] / c[3], c[2] / c[3]}
}

func assertInsideClip(t *testing.T, p common.Vec3) {
	t.Helper()
	assert.InDelta(t, 0, p[0], 1.0001)
	assert.InDelta(t, 0, p[1], 1.0001)
	assert.GreaterOrEqual(t, p[2], float32(0))
	assert.LessOrEqual(t, p[2], float32(1))
}

func TestDefaultLightSitsOffsetFromBounds(t *testing.T) {
	l := NewDefaultLight(unitBounds())
	assert.Equal(t, LightTypePoint, l.Type())
	assert.Equal(t, common.Vec3{31, 31, 21}, l.Position())
	assert.True(t, l.CastsShadows())

	empty := NewDefaultLight(common.EmptyBounds())
	assert.Equal(t, DefaultLightOffset, empty.Position())
}

func TestPointViewProjectionCentersBounds(t *testing.T) {
	l := NewDefaultLight(unitBounds())
	vp := l.ViewProjection(unitBounds())

	center := clip(vp, common.Vec3{})
	assert.InDelta(t, 0, center[0], 1e-4)
	assert.InDelta(t, 0, center[1], 1e-4)
	for _, corner := range []common.Vec3{{-1, -1, -1}, {1, 1, 1}, {1, -1, 1}, {-1, 1, -1}} {
		assertInsideClip(t, clip(vp, corner))
	}
}

func TestDirectionalViewProjectionFitsBounds(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithDirection(1, -2, 0.5))
	b := common.Bounds{Min: common.Vec3{-5, 0, -5}, Max: common.Vec3{5, 3, 5}}
	vp := l.ViewProjection(b)

	for i := 0; i < 8; i++ {
		corner := b.Min
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		assertInsideClip(t, clip(vp, corner))
	}

	// Nearer to the light means smaller depth.
	near := clip(vp, b.Center().Sub(l.Direction()))
	far := clip(vp, b.Center().Add(l.Direction()))
	assert.Less(t, near[2], far[2])
}

func TestDirectionalStraightDown(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithDirection(0, -1, 0))
	vp := l.ViewProjection(unitBounds())
	for _, v := range vp {
		assert.False(t, math32.IsNaN(v))
	}
	assertInsideClip(t, clip(vp, common.Vec3{1, 1, 1}))
}

func TestViewSpace(t *testing.T) {
	view := common.Translation(0, 0, -5)

	point := NewLight(LightTypePoint, WithPosition(1, 2, 3))
	assert.Equal(t, common.Vec4{1, 2, -2, 1}, point.ViewSpace(view))

	dir := NewLight(LightTypeDirectional, WithDirection(0, 0, -1))
	assert.Equal(t, common.Vec4{0, 0, 1, 0}, dir.ViewSpace(view), "points back toward the light")
}

func TestRadiance(t *testing.T) {
	l := NewLight(LightTypePoint, WithColor(1, 0.5, 0), WithIntensity(2))
	assert.Equal(t, common.Vec4{2, 1, 0, 1}, l.Radiance())

	l.SetEnabled(false)
	assert.Equal(t, common.Vec4{0, 0, 0, 1}, l.Radiance())
}

func TestShadowParams(t *testing.T) {
	s := DefaultShadowSettings()
	assert.Equal(t, common.Vec4{1, DefaultShadowBias, 1.0 / ShadowMapResolution, 0}, s.Params(true))
	assert.Equal(t, common.Vec4{}, s.Params(false))

	s.PCF = false
	assert.Equal(t, float32(0), s.Params(true)[2])
}

func TestShadowPerspectiveOption(t *testing.T) {
	l := NewLight(LightTypePoint, WithShadowPerspective(0, 5, 1))
	assert.Equal(t, DefaultShadowFrustum(), l.Shadow(), "near past far is rejected")

	l = NewLight(LightTypePoint, WithShadowPerspective(1, 1, 50), WithShadowHalfExtent(-3))
	assert.Equal(t, ShadowFrustum{FovY: 1, Near: 1, Far: 50}, l.Shadow())
}

func TestEmissionRoundTrip(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithEmission(Emission{Color: common.Vec3{0, 1, 0}, Intensity: 3}))
	assert.False(t, l.Enabled())
	assert.Equal(t, common.Vec4{0, 0, 0, 1}, l.Radiance())

	l.SetEnabled(true)
	assert.Equal(t, common.Vec4{0, 3, 0, 1}, l.Radiance())
	assert.Equal(t, common.Vec3{0, 1, 0}, l.Emission().Color, "enabling keeps the color")
}

func TestConcurrentMoveAndRead(t *testing.T) {
	l := NewDefaultLight(unitBounds())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			l.SetPosition(float32(i), 10, 0)
		}
	}()
	for i := 0; i < 200; i++ {
		_ = l.ViewProjection(unitBounds())
		_ = l.ViewSpace(common.Identity4())
	}
	<-done
	assert.Equal(t, common.Vec3{199, 10, 0}, l.Position())
}

func TestAimAtUsesEarlierPosition(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithPosition(0, 10, 0), WithAimAt(0, 0, 0))
	assert.Equal(t, common.Vec3{0, -1, 0}, l.Direction())

	l = NewLight(LightTypeDirectional, WithDirection(1, 0, 0), WithAimAt(0, 0, 0))
	assert.Equal(t, common.Vec3{1, 0, 0}, l.Direction(), "aiming at the position keeps the direction")
}
