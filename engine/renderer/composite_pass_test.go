package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFragmentUniforms(t *testing.T, shadowParams common.Vec4) layout.FragmentUniforms {
	t.Helper()
	proj := common.Perspective(math32.Pi/3, 320.0/240.0, 0.1, 100)
	inv, ok := common.Invert4(proj)
	require.True(t, ok)
	return layout.FragmentUniforms{
		ViewLightPosition: common.Vec4{0, 5, 0, 1},
		LightColor:        common.Vec4{1, 1, 1, 1},
		AmbientColor:      common.Vec4{0.1, 0.1, 0.1, 1},
		InverseProjection: inv,
		InverseView:       common.Identity4(),
		ShadowParams:      shadowParams,
		Viewport:          common.Vec4{320, 240, 1.0 / 320, 1.0 / 240},
	}
}

func testSample() GBufferSample {
	return GBufferSample{
		Albedo:      common.Vec4{0.8, 0.4, 0.2, 0.5},
		Normal:      common.Vec4{0, 0, 1, 32.0 / 256},
		LinearDepth: 5,
		LightClip:   common.Vec4{0.1, -0.2, 0.5, 1},
	}
}

func occluded(u, v, reference float32) float32 { return 0 }
func unoccluded(u, v, reference float32) float32 { return 1 }

func TestShadePixelWithoutShadowsMatchesUnoccludedShadowMap(t *testing.T) {
	enabled := testFragmentUniforms(t, common.Vec4{1, 0.001, 1.0 / 2048, 0})
	disabled := testFragmentUniforms(t, common.Vec4{})
	s := testSample()

	lit := ShadePixel(160, 120, s, enabled, unoccluded)
	assert.Equal(t, lit, ShadePixel(160, 120, s, disabled, occluded), "disabled shadows ignore the map")
	assert.Equal(t, lit, ShadePixel(160, 120, s, disabled, nil), "no shadow map at all")
}

func TestShadePixelFullyShadowedKeepsAmbient(t *testing.T) {
	u := testFragmentUniforms(t, common.Vec4{1, 0.001, 1.0 / 2048, 0})
	s := testSample()

	out := ShadePixel(160, 120, s, u, occluded)
	for i := range 3 {
		assert.InDelta(t, s.Albedo[i]*u.AmbientColor[i], out[i], 1e-6)
	}
	assert.Equal(t, float32(1), out[3])

	lit := ShadePixel(160, 120, s, u, unoccluded)
	for i := range 3 {
		assert.Greater(t, lit[i], out[i])
	}
}

func TestShadePixelBackgroundKeepsClearColor(t *testing.T) {
	u := testFragmentUniforms(t, common.Vec4{})
	s := GBufferSample{Albedo: common.Vec4{0.05, 0.06, 0.09, 1}}
	assert.Equal(t, common.Vec4{0.05, 0.06, 0.09, 1}, ShadePixel(3, 4, s, u, nil))
}

func TestShadePixelIsDeterministic(t *testing.T) {
	u := testFragmentUniforms(t, common.Vec4{1, 0.001, 1.0 / 2048, 0})
	s := testSample()
	assert.Equal(t, ShadePixel(10, 20, s, u, unoccluded), ShadePixel(10, 20, s, u, unoccluded))
}

func TestShadowVisibility(t *testing.T) {
	params := common.Vec4{1, 0.001, 0.01, 0}
	center := common.Vec4{0, 0, 0.5, 1}

	leftLit := func(u, v, reference float32) float32 {
		if u < 0.5 {
			return 1
		}
		return 0
	}
	assert.InDelta(t, 3.0/9.0, ShadowVisibility(center, params, leftLit), 1e-6, "one column of the 3x3 kernel is lit")

	var refs []float32
	ShadowVisibility(center, params, func(u, v, reference float32) float32 {
		refs = append(refs, reference)
		return 1
	})
	require.Len(t, refs, 9)
	assert.InDelta(t, 0.499, refs[0], 1e-6, "the bias moves the reference toward the light")

	assert.Equal(t, float32(1), ShadowVisibility(common.Vec4{2, 0, 0.5, 1}, params, occluded), "outside the map is lit")
	assert.Equal(t, float32(1), ShadowVisibility(common.Vec4{0, 0, 1.5, 1}, params, occluded), "beyond the far plane is lit")
	assert.Equal(t, float32(1), ShadowVisibility(center, common.Vec4{}, occluded), "disabled")
}

func TestReconstructViewPositionAtCenter(t *testing.T) {
	u := testFragmentUniforms(t, common.Vec4{})
	p := ReconstructViewPosition(160, 120, 5, u)
	assert.InDelta(t, 0, p[0], 1e-4)
	assert.InDelta(t, 0, p[1], 1e-4)
	assert.InDelta(t, -5, p[2], 1e-4)
}

func TestShadePixelUsesStoredWorldPosition(t *testing.T) {
	u := testFragmentUniforms(t, common.Vec4{})
	u.View = common.Translation(0, 0, -5)
	inv, ok := common.Invert4(u.View)
	require.True(t, ok)
	u.InverseView = inv

	s := testSample()
	rebuilt := ShadePixel(160, 120, s, u, nil)

	// the reconstructed center pixel sits at view (0, 0, -5), which is the world origin under u.View
	s.WorldPosition = common.Vec4{0, 0, 0, 1}
	stored := ShadePixel(160, 120, s, u, nil)
	for i := range 4 {
		assert.InDelta(t, rebuilt[i], stored[i], 1e-4)
	}

	s.WorldPosition = common.Vec4{3, 0, 0, 1}
	moved := ShadePixel(160, 120, s, u, nil)
	assert.NotEqual(t, stored, moved, "a stored position overrides the depth reconstruction")
}
