package light

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/chewxy/math32"
)

// ShadowMapResolution is the default width and height in texels of the shadow
// depth texture. The shadow map size is independent of the viewport.
const ShadowMapResolution = 2048

// DefaultShadowFovY is the vertical field of view of a point light's shadow frustum, 45 degrees.
const DefaultShadowFovY float32 = math32.Pi / 4

// DefaultShadowNear is the default near plane of the shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane of a point light's shadow projection.
const DefaultShadowFar float32 = 10000.0

// DefaultShadowBias is the constant depth bias applied to shadow comparisons
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001

// DefaultLightOffset is added to the scene bounds maximum to place the default light.
var DefaultLightOffset = common.Vec3{30, 30, 20}

// ShadowFrustum shapes the projection a light renders its shadow map with. FovY, Near and Far
// apply to point lights. HalfExtent applies to directional lights, with zero meaning fit the bounds.
type ShadowFrustum struct {
	FovY       float32
	Near       float32
	Far        float32
	HalfExtent float32
}

// DefaultShadowFrustum returns a 45 degree frustum from DefaultShadowNear to DefaultShadowFar that
// fits directional shadows to the bounds.
func DefaultShadowFrustum() ShadowFrustum {
	return ShadowFrustum{FovY: DefaultShadowFovY, Near: DefaultShadowNear, Far: DefaultShadowFar}
}

// perspective looks from eye at center through a square frustum.
func (f ShadowFrustum) perspective(eye, center common.Vec3) common.Mat4 {
	view := common.LookAt(eye, center, stableUp(center.Sub(eye)))
	return common.Mul4(common.Perspective(f.FovY, 1, f.Near, f.Far), view)
}

// orthographic looks along dir at center. The eye sits one unit outside the bounds sphere and
// the far plane one unit past its other side.
func (f ShadowFrustum) orthographic(dir, center common.Vec3, radius float32) common.Mat4 {
	half := f.HalfExtent
	if half <= 0 {
		half = radius
	}
	distance := radius + 1
	view := common.LookAt(center.Sub(dir.Scale(distance)), center, stableUp(dir))
	return common.Mul4(common.Ortho(-half, half, -half, half, f.Near, distance+radius+1), view)
}

// stableUp returns +Y, or +X when dir is within a degree or so of vertical.
func stableUp(dir common.Vec3) common.Vec3 {
	if math32.Abs(dir.Normalize()[1]) > 0.99 {
		return common.Vec3{1, 0, 0}
	}
	return common.Vec3{0, 1, 0}
}

// ShadowSettings are the shadow map parameters shared by the shadow pass and the composite.
type ShadowSettings struct {
	Resolution uint32
	Bias       float32
	PCF        bool
}

// DefaultShadowSettings returns a 2048 texel map with the default bias and PCF filtering.
func DefaultShadowSettings() ShadowSettings {
	return ShadowSettings{
		Resolution: ShadowMapResolution,
		Bias:       DefaultShadowBias,
		PCF:        true,
	}
}

// Params packs the settings into FragmentUniforms.ShadowParams.
//
// x is 1 when shadows are tested, y is the depth bias, z is the PCF tap spacing in uv units
// (one texel, or 0 to collapse the 3x3 kernel onto a single tap).
//
// Parameters:
//   - enabled: whether a shadow map was rendered this frame
//
// Returns:
//   - common.Vec4: the packed parameters, all zero when disabled
func (s ShadowSettings) Params(enabled bool) common.Vec4 {
	if !enabled || s.Resolution == 0 {
		return common.Vec4{}
	}
	texel := float32(0)
	if s.PCF {
		texel = 1 / float32(s.Resolution)
	}
	return common.Vec4{1, s.Bias, texel, 0}
}
