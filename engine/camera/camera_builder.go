package camera

import "github.com/Carmen-Shannon/oxy-deferred/common"

// CameraBuilderOption configures a camera during NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithLens replaces the whole lens. A non-positive aspect keeps the default.
func WithLens(l Lens) CameraBuilderOption {
	return func(c *cameraImpl) {
		if l.Aspect <= 0 {
			l.Aspect = c.lens.Aspect
		}
		c.lens = l
	}
}

// WithFov sets the vertical field of view in radians.
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.Fov = fov
	}
}

// WithAspect sets the aspect ratio. Non-positive values are ignored.
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.lens.Aspect = aspect
		}
	}
}

// WithClipPlanes sets the near and far plane distances.
//
// Parameters:
//   - near: near plane distance, positive
//   - far: far plane distance, greater than near
//
// Returns:
//   - CameraBuilderOption: the option
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.Near, c.lens.Far = near, far
	}
}

// WithUp sets the world up vector a controller looks with.
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = common.Vec3{x, y, z}
	}
}

// WithView sets a fixed view matrix.
func WithView(view common.Mat4) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.view = view
	}
}

// WithController sets the controller that drives the view. It takes precedence over WithView.
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
