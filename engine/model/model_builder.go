package model

import "github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"

// ModelBuilderOption is a function that configures a Model instance during construction.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the model's name.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithPart is an option builder that appends a submesh drawn with mat.
// A nil material is replaced by the default material.
//
// Parameters:
//   - mesh: the geometry
//   - mat: the material
//
// Returns:
//   - ModelBuilderOption: a function that appends the part to a model
func WithPart(mesh *Mesh, mat material.Material) ModelBuilderOption {
	return func(m *model) {
		m.AddPart(mesh, mat)
	}
}

// WithCastsShadows is an option builder that sets whether the model is drawn into the shadow map.
func WithCastsShadows(castsShadows bool) ModelBuilderOption {
	return func(m *model) {
		m.castsShadows = castsShadows
	}
}
