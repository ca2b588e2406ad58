package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// DefaultShininess is the specular exponent of a material built without WithShininess.
const DefaultShininess float32 = 32

// material is the implementation of the Material interface.
type material struct {
	name             string
	baseColor        common.Vec4
	specularColor    common.Vec4
	shininess        float32
	baseColorTexture *common.TextureStagingData
	specularTexture  *common.TextureStagingData
}

// Material describes the surface parameters of one entry in the material table.
// Textures are optional raw RGBA8 layers; a material without them uses its flat colors.
//
// Materials are immutable once built. The table copies what it needs on Append.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the RGBA albedo of the material.
	// The texture, when present, is multiplied by it.
	//
	// Returns:
	//   - common.Vec4: the base color
	BaseColor() common.Vec4

	// SpecularColor retrieves the RGBA specular color. Its red channel is stored as the specular intensity.
	//
	// Returns:
	//   - common.Vec4: the specular color
	SpecularColor() common.Vec4

	// Shininess retrieves the Blinn-Phong specular exponent.
	Shininess() float32

	// BaseColorTexture retrieves the base color texture, or nil if none is set.
	//
	// Returns:
	//   - *common.TextureStagingData: a single RGBA8 layer, or nil
	BaseColorTexture() *common.TextureStagingData

	// SpecularTexture retrieves the specular texture, or nil if none is set.
	//
	// Returns:
	//   - *common.TextureStagingData: a single RGBA8 layer, or nil
	SpecularTexture() *common.TextureStagingData
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// The defaults are an opaque white base color, a white specular color and DefaultShininess.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor:     common.Vec4{1, 1, 1, 1},
		specularColor: common.Vec4{1, 1, 1, 1},
		shininess:     DefaultShininess,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() common.Vec4 {
	return m.baseColor
}

func (m *material) SpecularColor() common.Vec4 {
	return m.specularColor
}

func (m *material) Shininess() float32 {
	return m.shininess
}

func (m *material) BaseColorTexture() *common.TextureStagingData {
	return m.baseColorTexture
}

func (m *material) SpecularTexture() *common.TextureStagingData {
	return m.specularTexture
}
