package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/chewxy/math32"
)

// Pose places the eye on a sphere around Target. Azimuth turns around +Y with 0 on +Z,
// Elevation is measured from the horizontal plane. Both are radians.
type Pose struct {
	Target    common.Vec3
	Radius    float32
	Azimuth   float32
	Elevation float32
}

// Eye returns the world-space eye position.
func (p Pose) Eye() common.Vec3 {
	cosElev, sinElev := math32.Cos(p.Elevation), math32.Sin(p.Elevation)
	return p.Target.Add(common.Vec3{
		p.Radius * cosElev * math32.Sin(p.Azimuth),
		p.Radius * sinElev,
		p.Radius * cosElev * math32.Cos(p.Azimuth),
	})
}

// axes returns the right, up and forward axes consistent with LookAt and a +Y world up.
// All three are zero when the eye sits on the target or straight above it.
func (p Pose) axes() (right, up, forward common.Vec3) {
	back := p.Eye().Sub(p.Target).Normalize()
	right = common.Vec3{0, 1, 0}.Cross(back).Normalize()
	if back == (common.Vec3{}) || right == (common.Vec3{}) {
		return common.Vec3{}, common.Vec3{}, common.Vec3{}
	}
	return right, back.Cross(right), back.Scale(-1)
}

// Limits bound zoom and vertical orbit.
type Limits struct {
	MinRadius    float32
	MaxRadius    float32
	MinElevation float32
	MaxElevation float32
}

// DefaultLimits allows 0.5 to 1000 units of zoom and stops just short of either pole.
func DefaultLimits() Limits {
	return Limits{
		MinRadius:    0.5,
		MaxRadius:    1000,
		MinElevation: -math32.Pi/2 + 0.05,
		MaxElevation: math32.Pi/2 - 0.05,
	}
}

// clamp pulls the radius and elevation of p inside the limits.
func (l Limits) clamp(p Pose) Pose {
	p.Radius = common.Clamp(p.Radius, l.MinRadius, l.MaxRadius)
	p.Elevation = common.Clamp(p.Elevation, l.MinElevation, l.MaxElevation)
	return p
}

type orbitController struct {
	mu     sync.RWMutex
	pose   Pose
	limits Limits

	orbitSpeed      float32
	zoomSpeed       float32
	panSpeed        float32
	dragSensitivity float32
	invertDrag      bool
}

var _ CameraController = &orbitController{}

// NewOrbitController creates a controller 10 units from the origin, 30 degrees up, with the
// controls of the default configuration.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the controller, its pose clamped to its limits
func NewOrbitController(options ...CameraControllerOption) CameraController {
	cc := &orbitController{
		pose:      Pose{Radius: 10, Elevation: math32.Pi / 6},
		limits:    DefaultLimits(),
		zoomSpeed: 0.5,
		panSpeed:  1,
	}
	WithControls(config.Default().Camera)(cc)
	for _, option := range options {
		option(cc)
	}
	cc.pose = cc.limits.clamp(cc.pose)
	return cc
}

// NewBoundsController targets the bounds center with a radius that keeps the bounds in view.
// Zoom and pan speeds scale with the bounds.
//
// Parameters:
//   - bounds: world-space scene bounds
//   - options: further options, applied after the bounds-derived ones
//
// Returns:
//   - CameraController: the controller
func NewBoundsController(bounds common.Bounds, options ...CameraControllerOption) CameraController {
	center, radius := bounds.Sphere()
	base := []CameraControllerOption{
		WithTarget(center[0], center[1], center[2]),
		WithRadius(DefaultDistance + radius*2),
		WithZoomSpeed(max(radius*0.1, 0.1)),
		WithPanSpeed(max(radius*0.05, 0.05)),
	}
	return NewOrbitController(append(base, options...)...)
}

func (cc *orbitController) Pose() Pose {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return cc.pose
}

// move edits the pose under the lock and clamps the result.
func (cc *orbitController) move(fn func(p *Pose)) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	fn(&cc.pose)
	cc.pose = cc.limits.clamp(cc.pose)
}

func (cc *orbitController) SetPose(p Pose) {
	cc.move(func(cur *Pose) { *cur = p })
}

func (cc *orbitController) Position() common.Vec3 {
	return cc.Pose().Eye()
}

func (cc *orbitController) Target() common.Vec3 {
	return cc.Pose().Target
}

func (cc *orbitController) Radius() float32 {
	return cc.Pose().Radius
}

func (cc *orbitController) Azimuth() float32 {
	return cc.Pose().Azimuth
}

func (cc *orbitController) Elevation() float32 {
	return cc.Pose().Elevation
}

func (cc *orbitController) SetTarget(target common.Vec3) {
	cc.move(func(p *Pose) { p.Target = target })
}

func (cc *orbitController) SetRadius(radius float32) {
	cc.move(func(p *Pose) { p.Radius = radius })
}

func (cc *orbitController) SetAzimuth(azimuth float32) {
	cc.move(func(p *Pose) { p.Azimuth = azimuth })
}

func (cc *orbitController) SetElevation(elevation float32) {
	cc.move(func(p *Pose) { p.Elevation = elevation })
}

func (cc *orbitController) Zoom(delta float32) {
	cc.move(func(p *Pose) { p.Radius -= delta * cc.zoomSpeed })
}

func (cc *orbitController) Orbit(dAzimuth, dElevation float32) {
	cc.move(func(p *Pose) {
		p.Azimuth += dAzimuth
		p.Elevation += dElevation
	})
}

func (cc *orbitController) OrbitLeft() {
	cc.Orbit(-cc.orbitSpeed, 0)
}

func (cc *orbitController) OrbitRight() {
	cc.Orbit(cc.orbitSpeed, 0)
}

func (cc *orbitController) OrbitUp() {
	cc.Orbit(0, cc.orbitSpeed)
}

func (cc *orbitController) OrbitDown() {
	cc.Orbit(0, -cc.orbitSpeed)
}

func (cc *orbitController) Drag(dx, dy float32) {
	if cc.invertDrag {
		dy = -dy
	}
	cc.Orbit(-dx*cc.dragSensitivity, -dy*cc.dragSensitivity)
}

func (cc *orbitController) Pan(right, up, forward float32) {
	cc.move(func(p *Pose) {
		r, u, f := p.axes()
		s := cc.panSpeed
		p.Target = p.Target.Add(r.Scale(right * s)).Add(u.Scale(up * s)).Add(f.Scale(forward * s))
	})
}
