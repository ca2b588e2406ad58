package light

import "github.com/Carmen-Shannon/oxy-deferred/common"

// LightBuilderOption configures a light in NewLight. Options run in order, so WithAimAt sees the
// position set by an earlier WithPosition.
type LightBuilderOption func(*lightImpl)

// WithPosition places the light in world space.
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.s.position = common.Vec3{x, y, z}
	}
}

// WithDirection sets the direction light travels. It is normalized.
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.s.direction = common.Vec3{x, y, z}.Normalize()
	}
}

// WithAimAt points the light from its current position at a world-space target.
// A target equal to the position leaves the direction unchanged.
//
// Parameters:
//   - x, y, z: the target point
//
// Returns:
//   - LightBuilderOption: the option
func WithAimAt(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		if d := (common.Vec3{x, y, z}).Sub(l.s.position); d.Length() > 0 {
			l.s.direction = d.Normalize()
		}
	}
}

// WithColor sets the linear RGB color.
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.s.emission.Color = common.Vec3{r, g, b}
	}
}

// WithIntensity sets the factor the color is scaled by.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.s.emission.Intensity = intensity
	}
}

// WithEmission replaces color, intensity and on/off state at once.
func WithEmission(e Emission) LightBuilderOption {
	return func(l *lightImpl) {
		l.s.emission = e
	}
}

// WithEnabled switches the light on or off. A disabled light leaves only ambient.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.s.emission.Enabled = enabled
	}
}

// WithCastsShadows marks whether the shadow pass renders for this light.
func WithCastsShadows(castsShadows bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.s.castsShadows = castsShadows
	}
}

// WithShadowPerspective overrides the point light shadow frustum. A non-positive fov keeps the default,
// and the planes are only applied when 0 < near < far.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - LightBuilderOption: the option
func WithShadowPerspective(fovY, near, far float32) LightBuilderOption {
	return func(l *lightImpl) {
		if fovY > 0 {
			l.s.shadow.FovY = fovY
		}
		if near > 0 && far > near {
			l.s.shadow.Near, l.s.shadow.Far = near, far
		}
	}
}

// WithShadowHalfExtent sets the orthographic half-extent of a directional shadow. Zero fits the bounds.
func WithShadowHalfExtent(halfExtent float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.s.shadow.HalfExtent = max(halfExtent, 0)
	}
}
