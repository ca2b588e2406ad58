package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the RGBA albedo of the material.
//
// Parameters:
//   - color: the base color as RGBA values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color common.Vec4) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithSpecularColor is an option builder that sets the RGBA specular color of the material.
//
// Parameters:
//   - color: the specular color as RGBA values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the specular color option to a material
func WithSpecularColor(color common.Vec4) MaterialBuilderOption {
	return func(m *material) {
		m.specularColor = color
	}
}

// WithShininess sets the Blinn-Phong exponent. Values below 1 are clamped to 1.
func WithShininess(shininess float32) MaterialBuilderOption {
	return func(m *material) {
		m.shininess = max(shininess, 1)
	}
}

// WithBaseColorTexture is an option builder that sets the base color texture.
//
// Parameters:
//   - tex: a single RGBA8 layer matching the table's layer size
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithBaseColorTexture(tex *common.TextureStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.baseColorTexture = tex
	}
}

// WithSpecularTexture is an option builder that sets the specular texture.
//
// Parameters:
//   - tex: a single RGBA8 layer matching the table's layer size
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithSpecularTexture(tex *common.TextureStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.specularTexture = tex
	}
}
