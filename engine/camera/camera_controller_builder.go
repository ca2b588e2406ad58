package camera

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
)

// CameraControllerOption configures a controller in NewOrbitController. Angles are radians.
// The starting pose is clamped to the limits after every option has run.
type CameraControllerOption func(*orbitController)

// WithControls applies the camera section of an engine configuration. Zero speeds keep the current values.
//
// Parameters:
//   - cfg: the camera section
//
// Returns:
//   - CameraControllerOption: the option
func WithControls(cfg config.CameraConfig) CameraControllerOption {
	return func(cc *orbitController) {
		cc.orbitSpeed = common.Coalesce(cfg.OrbitSpeed, cc.orbitSpeed)
		cc.dragSensitivity = common.Coalesce(cfg.DragSensitivity, cc.dragSensitivity)
		cc.invertDrag = cfg.InvertDrag
	}
}

// WithPose sets the whole starting pose.
func WithPose(p Pose) CameraControllerOption {
	return func(cc *orbitController) {
		cc.pose = p
	}
}

func WithRadius(radius float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.pose.Radius = radius
	}
}

// WithAzimuth sets the starting angle around the Y axis, 0 looking down -Z from +Z.
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.pose.Azimuth = azimuth
	}
}

func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.pose.Elevation = elevation
	}
}

// WithTarget sets the point the camera orbits and looks at.
func WithTarget(x, y, z float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.pose.Target = common.Vec3{x, y, z}
	}
}

// WithLimits replaces the zoom and elevation limits. Inverted ranges are ignored.
//
// Parameters:
//   - l: the limits; keeping both elevations inside (-pi/2, pi/2) stops the view flipping over a pole
//
// Returns:
//   - CameraControllerOption: the option
func WithLimits(l Limits) CameraControllerOption {
	return func(cc *orbitController) {
		if l.MinRadius <= l.MaxRadius {
			cc.limits.MinRadius, cc.limits.MaxRadius = l.MinRadius, l.MaxRadius
		}
		if l.MinElevation <= l.MaxElevation {
			cc.limits.MinElevation, cc.limits.MaxElevation = l.MinElevation, l.MaxElevation
		}
	}
}

// WithRadiusBounds limits zoom, keeping the elevation limits.
func WithRadiusBounds(lo, hi float32) CameraControllerOption {
	return func(cc *orbitController) {
		l := cc.limits
		l.MinRadius, l.MaxRadius = lo, hi
		WithLimits(l)(cc)
	}
}

// WithElevationBounds limits vertical orbit, keeping the radius limits.
func WithElevationBounds(lo, hi float32) CameraControllerOption {
	return func(cc *orbitController) {
		l := cc.limits
		l.MinElevation, l.MaxElevation = lo, hi
		WithLimits(l)(cc)
	}
}

// WithOrbitSpeed sets the angle each OrbitLeft/Right/Up/Down call turns.
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.orbitSpeed = speed
	}
}

// WithZoomSpeed sets the distance one scroll unit moves.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.zoomSpeed = speed
	}
}

// WithPanSpeed sets the distance one Pan unit moves.
func WithPanSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.panSpeed = speed
	}
}

// WithDragSensitivity sets the radians of orbit per pixel of drag.
func WithDragSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.dragSensitivity = sensitivity
	}
}
