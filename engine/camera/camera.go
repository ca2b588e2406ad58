package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/chewxy/math32"
)

const (
	// DefaultFov is the default vertical field of view, 60 degrees.
	DefaultFov float32 = math32.Pi / 3

	// DefaultNear is the default near plane distance.
	DefaultNear float32 = 0.1

	// DefaultFar is the default far plane distance.
	DefaultFar float32 = 100.0

	// DefaultDistance is how far in front of the scene bounds the default camera stands.
	DefaultDistance float32 = 2.0
)

// Lens holds the projection parameters. Fov is vertical, in radians.
type Lens struct {
	Fov    float32
	Aspect float32
	Near   float32
	Far    float32
}

// DefaultLens returns the lens a new camera starts with.
func DefaultLens() Lens {
	return Lens{Fov: DefaultFov, Aspect: 1, Near: DefaultNear, Far: DefaultFar}
}

// Projection returns the view to clip matrix, depth in [0, 1].
func (l Lens) Projection() common.Mat4 {
	return common.Perspective(l.Fov, l.Aspect, l.Near, l.Far)
}

// Matrices is one consistent set of camera transforms. A frame reads all of them through
// Camera.Matrices so a concurrent camera edit cannot mix two states.
type Matrices struct {
	View              common.Mat4
	Projection        common.Mat4
	ViewProjection    common.Mat4
	InverseProjection common.Mat4
}

// Frustum returns the world-space frustum planes of ViewProjection.
func (m Matrices) Frustum() common.Frustum {
	return common.ExtractFrustum(m.ViewProjection)
}

// Camera holds the view and projection the scene is rendered with.
//
// Without a controller the view matrix is whatever SetView last stored. With a controller,
// Update rebuilds the view from the controller's position and target.
type Camera interface {
	// Matrices returns the current transforms.
	Matrices() Matrices

	// Lens returns the projection parameters.
	Lens() Lens

	// SetLens replaces the projection parameters. A non-positive aspect keeps the current one.
	SetLens(l Lens)

	// SetAspect changes only the aspect ratio, as on a window resize. Non-positive values are ignored.
	SetAspect(aspect float32)

	// Aspect returns the viewport aspect ratio.
	Aspect() float32

	// View returns the world to view matrix.
	View() common.Mat4

	// Projection returns the view to clip matrix.
	Projection() common.Mat4

	// ViewProjection returns Projection * View.
	ViewProjection() common.Mat4

	// InverseProjection returns the inverse of Projection. The composite pass uses it to rebuild
	// view-space positions from depth.
	InverseProjection() common.Mat4

	// Frustum returns the world-space frustum planes the command generator culls against.
	Frustum() common.Frustum

	// Up returns the world up vector used when a controller drives the view.
	Up() common.Vec3

	// SetUp sets the world up vector.
	SetUp(x, y, z float32)

	// SetView stores a fixed view matrix. A controller, if set, overwrites it on the next Update.
	SetView(view common.Mat4)

	// Controller returns the controller driving the view, or nil.
	Controller() CameraController

	// SetController attaches a controller and rebuilds the view from it.
	SetController(ctrl CameraController)

	// Update rebuilds the view from the controller. It is a no-op without one.
	Update()
}

var _ Camera = &cameraImpl{}

type cameraImpl struct {
	mu sync.RWMutex

	up         common.Vec3
	lens       Lens
	view       common.Mat4
	controller CameraController

	m Matrices
}

// NewCamera creates a camera with the default lens and an identity view.
//
// Parameters:
//   - options: builder options for the lens, the view and the controller
//
// Returns:
//   - Camera: the camera, with matrices computed
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		up:   common.Vec3{0, 1, 0},
		lens: DefaultLens(),
		view: common.Identity4(),
	}
	for _, option := range options {
		option(c)
	}
	c.recompute()
	return c
}

// NewDefaultCamera frames the scene bounds the way the stock scenes expect: the bounds center is moved
// to the origin and the camera stands DefaultDistance in front of the bounds' near face, looking down -Z.
// The far plane is pushed out when the bounds reach past it.
//
// Parameters:
//   - bounds: world-space scene bounds
//   - aspect: viewport aspect ratio
//
// Returns:
//   - Camera: the camera with a fixed view
func NewDefaultCamera(bounds common.Bounds, aspect float32) Camera {
	if bounds.IsEmpty() {
		return NewCamera(WithAspect(aspect), WithView(common.Translation(0, 0, -DefaultDistance)))
	}

	center, extent := bounds.Center(), bounds.Extent()
	lens := DefaultLens()
	lens.Aspect = aspect
	lens.Far = max(lens.Far, DefaultDistance+extent.Length()*1.5)

	return NewCamera(WithLens(lens), WithView(common.Mul4(
		common.Translation(0, 0, -(DefaultDistance+extent[2])),
		common.Translation(-center[0], -center[1], -center[2]),
	)))
}

// read returns a field under the read lock.
func read[T any](c *cameraImpl, get func() T) T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return get()
}

// edit applies fn under the write lock and recomputes the matrices.
func (c *cameraImpl) edit(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	c.recompute()
}

// recompute derives the matrices from the lens and the view. Caller must hold the write lock.
func (c *cameraImpl) recompute() {
	if c.controller != nil {
		c.view = common.LookAt(c.controller.Position(), c.controller.Target(), c.up)
	}
	proj := c.lens.Projection()
	inv, _ := common.Invert4(proj)
	c.m = Matrices{
		View:              c.view,
		Projection:        proj,
		ViewProjection:    common.Mul4(proj, c.view),
		InverseProjection: inv,
	}
}

func (c *cameraImpl) Matrices() Matrices {
	return read(c, func() Matrices { return c.m })
}

func (c *cameraImpl) Lens() Lens {
	return read(c, func() Lens { return c.lens })
}

func (c *cameraImpl) Aspect() float32 {
	return read(c, func() float32 { return c.lens.Aspect })
}

func (c *cameraImpl) View() common.Mat4 {
	return c.Matrices().View
}

func (c *cameraImpl) Projection() common.Mat4 {
	return c.Matrices().Projection
}

func (c *cameraImpl) ViewProjection() common.Mat4 {
	return c.Matrices().ViewProjection
}

func (c *cameraImpl) InverseProjection() common.Mat4 {
	return c.Matrices().InverseProjection
}

func (c *cameraImpl) Frustum() common.Frustum {
	return c.Matrices().Frustum()
}

func (c *cameraImpl) Up() common.Vec3 {
	return read(c, func() common.Vec3 { return c.up })
}

func (c *cameraImpl) Controller() CameraController {
	return read(c, func() CameraController { return c.controller })
}

func (c *cameraImpl) SetLens(l Lens) {
	c.edit(func() {
		if l.Aspect <= 0 {
			l.Aspect = c.lens.Aspect
		}
		c.lens = l
	})
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.edit(func() {
		if aspect > 0 {
			c.lens.Aspect = aspect
		}
	})
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.edit(func() { c.up = common.Vec3{x, y, z} })
}

func (c *cameraImpl) SetView(view common.Mat4) {
	c.edit(func() { c.view = view })
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.edit(func() { c.controller = ctrl })
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		c.recompute()
	}
}
