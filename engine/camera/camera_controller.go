package camera

import "github.com/Carmen-Shannon/oxy-deferred/common"

// CameraController moves the camera's eye around a target.
//
// The eye is kept on a sphere around the target described by radius, azimuth and elevation.
// Orbit methods change the angles, Zoom changes the radius, and Pan moves the target and the eye together.
type CameraController interface {
	// Pose returns the target and spherical coordinates of the eye.
	Pose() Pose

	// SetPose replaces the pose, clamped to the controller's limits.
	SetPose(p Pose)

	// Position returns the world-space eye position.
	Position() common.Vec3

	// Target returns the world-space point the eye looks at.
	Target() common.Vec3

	// SetTarget moves the pivot and recomputes the eye from the current angles.
	SetTarget(target common.Vec3)

	// Zoom moves the eye toward the target by delta * zoom speed, clamped to the radius bounds.
	//
	// Parameters:
	//   - delta: positive to move closer, negative to move away
	Zoom(delta float32)

	// Orbit rotates the eye around the target. Elevation is clamped to its bounds.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians
	Orbit(dAzimuth, dElevation float32)

	// OrbitLeft, OrbitRight, OrbitUp and OrbitDown step the orbit by the orbit speed.
	OrbitLeft()
	OrbitRight()
	OrbitUp()
	OrbitDown()

	// Drag orbits by a cursor movement in pixels, scaled by the drag sensitivity. Dragging right
	// swings the eye left around the target, dragging down lowers it.
	//
	// Parameters:
	//   - dx: horizontal cursor movement
	//   - dy: vertical cursor movement, positive downward
	Drag(dx, dy float32)

	// Pan translates the target and the eye along the camera's local axes, scaled by the pan speed.
	//
	// Parameters:
	//   - right: distance along the camera right axis
	//   - up: distance along the camera up axis
	//   - forward: distance along the view direction
	Pan(right, up, forward float32)

	Radius() float32
	SetRadius(radius float32)
	Azimuth() float32
	SetAzimuth(azimuth float32)
	Elevation() float32
	SetElevation(elevation float32)
}
