package scene

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
)

// DefaultAmbientColor is the ambient term of a new scene.
var DefaultAmbientColor = common.Vec3{0.1, 0.1, 0.1}

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithCamera sets the scene camera. Without it the scene gets a default camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cam = cam
	}
}

// WithLight sets the shading light.
func WithLight(l light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lgt = l
	}
}

// WithAmbientColor sets the ambient term.
func WithAmbientColor(color common.Vec3) SceneBuilderOption {
	return func(s *scene) {
		s.ambientColor = color
	}
}

// WithCullingDisabled switches frustum culling off.
func WithCullingDisabled(disabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingDisabled = disabled
	}
}

// WithStore sets the mesh store, for capacities other than the defaults.
func WithStore(store model.Store) SceneBuilderOption {
	return func(s *scene) {
		s.store = store
	}
}

// WithMaterialTable sets the material table, for capacities other than the defaults.
func WithMaterialTable(table material.Table) SceneBuilderOption {
	return func(s *scene) {
		s.materials = table
	}
}

// WithComputeWorkers sets the number of worker goroutines used for per-object uniform
// preparation. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.computeWorkers = max(n, 1)
	}
}
