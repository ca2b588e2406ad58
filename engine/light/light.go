package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// LightType is the kind of light source. It decides how the light is shaded and which
// projection its shadow map uses.
type LightType int

const (
	// LightTypeDirectional shines along a direction from infinitely far away, with an orthographic shadow frustum.
	LightTypeDirectional LightType = iota
	// LightTypePoint shines from a position, with a perspective shadow frustum aimed at the scene center.
	LightTypePoint
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	default:
		return "unknown"
	}
}

// Emission is what a light adds to the composite: a linear color scaled by intensity.
type Emission struct {
	Color     common.Vec3
	Intensity float32
	Enabled   bool
}

// Radiance returns Color * Intensity with a = 1, black when disabled.
func (e Emission) Radiance() common.Vec4 {
	if !e.Enabled {
		return common.Vec4{0, 0, 0, 1}
	}
	c := e.Color.Scale(e.Intensity)
	return common.Vec4{c[0], c[1], c[2], 1}
}

// Light is the single scene light shaded by the composite pass. It may be moved from any goroutine
// while a frame reads it.
type Light interface {
	// Type returns the kind of light source.
	Type() LightType

	// Position returns the world-space position. Directional lights only use it for WithAimAt.
	Position() common.Vec3

	// Direction returns the normalized direction light travels, from the light toward the scene.
	Direction() common.Vec3

	// Emission returns the color, intensity and on/off state.
	Emission() Emission

	// Enabled reports whether the light contributes anything beyond ambient.
	Enabled() bool

	// CastsShadows reports whether the shadow pass renders a depth map for this light.
	CastsShadows() bool

	// Shadow returns the frustum parameters of the shadow projection.
	Shadow() ShadowFrustum

	// ViewProjection returns the matrix the shadow pass renders depth with.
	//
	// Point lights look from their position at the bounds center. Directional lights look along
	// their direction at the bounds center from just outside the bounds sphere.
	//
	// Parameters:
	//   - bounds: world-space bounds of the shadow casters
	//
	// Returns:
	//   - common.Mat4: projection * view
	ViewProjection(bounds common.Bounds) common.Mat4

	// ViewSpace returns the light as the composite reads it: the view-space position with w = 1 for
	// point lights, the view-space direction toward the light with w = 0 for directional lights.
	ViewSpace(view common.Mat4) common.Vec4

	// Radiance returns Emission().Radiance().
	Radiance() common.Vec4

	// SetPosition moves the light.
	SetPosition(x, y, z float32)

	// SetDirection sets the direction light travels. It is normalized.
	SetDirection(x, y, z float32)

	// SetEmission replaces the color, intensity and on/off state.
	SetEmission(e Emission)

	// SetEnabled switches the light on or off, keeping its color.
	SetEnabled(enabled bool)

	// SetCastsShadows sets whether the shadow pass runs for this light.
	SetCastsShadows(castsShadows bool)
}

var _ Light = &lightImpl{}

// lightState is everything a frame reads from a light, copied out in one piece.
type lightState struct {
	kind      LightType
	position  common.Vec3
	direction common.Vec3
	emission  Emission

	castsShadows bool
	shadow       ShadowFrustum
}

type lightImpl struct {
	mu sync.RWMutex
	s  lightState
}

// NewLight creates a white, enabled, shadow casting light pointing down, then applies opts in order.
//
// Parameters:
//   - lightType: directional or point
//   - opts: builder options
//
// Returns:
//   - Light: the light
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{s: lightState{
		kind:         lightType,
		direction:    common.Vec3{0, -1, 0},
		emission:     Emission{Color: common.Vec3{1, 1, 1}, Intensity: 1, Enabled: true},
		castsShadows: true,
		shadow:       DefaultShadowFrustum(),
	}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewDefaultLight places a shadow casting point light at bounds.Max + DefaultLightOffset,
// or at DefaultLightOffset when the bounds are empty.
func NewDefaultLight(bounds common.Bounds) Light {
	pos := DefaultLightOffset
	if !bounds.IsEmpty() {
		pos = bounds.Max.Add(DefaultLightOffset)
	}
	return NewLight(LightTypePoint, WithPosition(pos[0], pos[1], pos[2]))
}

func (l *lightImpl) snapshot() lightState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.s
}

func (l *lightImpl) set(fn func(s *lightState)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.s)
}

func (l *lightImpl) Type() LightType {
	return l.s.kind
}

func (l *lightImpl) Position() common.Vec3 {
	return l.snapshot().position
}

func (l *lightImpl) Direction() common.Vec3 {
	return l.snapshot().direction
}

func (l *lightImpl) Emission() Emission {
	return l.snapshot().emission
}

func (l *lightImpl) Enabled() bool {
	return l.snapshot().emission.Enabled
}

func (l *lightImpl) CastsShadows() bool {
	return l.snapshot().castsShadows
}

func (l *lightImpl) Shadow() ShadowFrustum {
	return l.snapshot().shadow
}

func (l *lightImpl) Radiance() common.Vec4 {
	return l.Emission().Radiance()
}

func (l *lightImpl) ViewProjection(bounds common.Bounds) common.Mat4 {
	s := l.snapshot()
	center, radius := common.Vec3{}, float32(1)
	if !bounds.IsEmpty() {
		center, radius = bounds.Sphere()
		radius = max(radius, 1e-3)
	}
	if s.kind == LightTypePoint {
		return s.shadow.perspective(s.position, center)
	}
	return s.shadow.orthographic(s.direction, center, radius)
}

func (l *lightImpl) ViewSpace(view common.Mat4) common.Vec4 {
	s := l.snapshot()
	if s.kind == LightTypePoint {
		p := common.TransformPoint(view, s.position)
		return common.Vec4{p[0], p[1], p[2], 1}
	}
	toLight := s.direction.Scale(-1)
	d := common.MulVec4(view, common.Vec4{toLight[0], toLight[1], toLight[2], 0})
	n := common.Vec3{d[0], d[1], d[2]}.Normalize()
	return common.Vec4{n[0], n[1], n[2], 0}
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.set(func(s *lightState) { s.position = common.Vec3{x, y, z} })
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.set(func(s *lightState) { s.direction = common.Vec3{x, y, z}.Normalize() })
}

func (l *lightImpl) SetEmission(e Emission) {
	l.set(func(s *lightState) { s.emission = e })
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.set(func(s *lightState) { s.emission.Enabled = enabled })
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.set(func(s *lightState) { s.castsShadows = castsShadows })
}
