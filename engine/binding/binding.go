// Package binding enumerates the stable integer identifiers shared between host code and WGSL programs:
// render target slots, buffer binding slots, vertex buffer slots, vertex attribute locations and material parameters.
//
// Each category is its own Go type so an index from one category cannot be passed where another is expected.
// Values are assigned once and only ever appended; see Registry.
package binding

import "fmt"

// RenderTargetIndex identifies a G-Buffer attachment. Values start at 1.
// The color attachment location a pass writes is Location(), the texture binding the composite reads is the raw value.
type RenderTargetIndex uint32

const (
	RenderTargetAlbedo        RenderTargetIndex = 1
	RenderTargetNormal        RenderTargetIndex = 2
	RenderTargetDepth         RenderTargetIndex = 3
	RenderTargetShadow        RenderTargetIndex = 4
	RenderTargetWorldPosition RenderTargetIndex = 5
)

// BufferIndex identifies a resource binding slot (the @binding number inside a pass's bind group).
type BufferIndex uint32

const (
	BufferMeshPositions         BufferIndex = 10
	BufferVertexUniforms        BufferIndex = 11
	BufferFragmentUniforms      BufferIndex = 12
	BufferIndirectCommandBuffer BufferIndex = 13
	BufferMeshes                BufferIndex = 14
	BufferDrawArguments         BufferIndex = 15
	BufferShadowArguments       BufferIndex = 16
	BufferMaterialTable         BufferIndex = 17
	BufferCullUniforms          BufferIndex = 18
	BufferMaterialTextures      BufferIndex = 19
	BufferMaterialSampler       BufferIndex = 20
	BufferShadowMap             BufferIndex = 21
	BufferShadowSampler         BufferIndex = 22
)

// VertexBufferIndex identifies a vertex stream slot passed to SetVertexBuffer.
type VertexBufferIndex uint32

const (
	VertexBufferVertex             VertexBufferIndex = 0
	VertexBufferTextureCoordinates VertexBufferIndex = 1
	VertexBufferIndices            VertexBufferIndex = 2
	VertexBufferMaterialArgument   VertexBufferIndex = 3
)

// AttributeIndex identifies a vertex attribute @location.
type AttributeIndex uint32

const (
	AttributePosition  AttributeIndex = 0
	AttributeNormal    AttributeIndex = 1
	AttributeTexCoords AttributeIndex = 2
)

// MaterialParameter identifies a field of the bindless material record.
type MaterialParameter uint32

const (
	MaterialBaseColor        MaterialParameter = 0
	MaterialBaseColorTexture MaterialParameter = 1
	MaterialSpecularColor    MaterialParameter = 2
	MaterialSpecularTexture  MaterialParameter = 3
)

// Category names one enumeration.
type Category string

const (
	CategoryRenderTarget      Category = "RENDER_TARGET"
	CategoryBuffer            Category = "BUFFER"
	CategoryVertexBuffer      Category = "VERTEX_BUFFER"
	CategoryAttribute         Category = "ATTRIBUTE"
	CategoryMaterialParameter Category = "MATERIAL"
)

var renderTargetNames = map[RenderTargetIndex]string{
	RenderTargetAlbedo:        "ALBEDO",
	RenderTargetNormal:        "NORMAL",
	RenderTargetDepth:         "DEPTH",
	RenderTargetShadow:        "SHADOW",
	RenderTargetWorldPosition: "WORLD_POSITION",
}

var bufferNames = map[BufferIndex]string{
	BufferMeshPositions:         "MESH_POSITIONS",
	BufferVertexUniforms:        "VERTEX_UNIFORMS",
	BufferFragmentUniforms:      "FRAGMENT_UNIFORMS",
	BufferIndirectCommandBuffer: "INDIRECT_COMMAND_BUFFER",
	BufferMeshes:                "MESHES",
	BufferDrawArguments:         "DRAW_ARGUMENTS",
	BufferShadowArguments:       "SHADOW_ARGUMENTS",
	BufferMaterialTable:         "MATERIAL_TABLE",
	BufferCullUniforms:          "CULL_UNIFORMS",
	BufferMaterialTextures:      "MATERIAL_TEXTURES",
	BufferMaterialSampler:       "MATERIAL_SAMPLER",
	BufferShadowMap:             "SHADOW_MAP",
	BufferShadowSampler:         "SHADOW_SAMPLER",
}

var vertexBufferNames = map[VertexBufferIndex]string{
	VertexBufferVertex:             "VERTEX",
	VertexBufferTextureCoordinates: "TEXTURE_COORDINATES",
	VertexBufferIndices:            "INDICES",
	VertexBufferMaterialArgument:   "MATERIAL_ARGUMENT",
}

var attributeNames = map[AttributeIndex]string{
	AttributePosition:  "POSITION",
	AttributeNormal:    "NORMAL",
	AttributeTexCoords: "TEX_COORDS",
}

var materialParameterNames = map[MaterialParameter]string{
	MaterialBaseColor:        "BASE_COLOR",
	MaterialBaseColorTexture: "BASE_COLOR_TEXTURE",
	MaterialSpecularColor:    "SPECULAR_COLOR",
	MaterialSpecularTexture:  "SPECULAR_TEXTURE",
}

// Location returns the color attachment location a fragment program writes this target to.
func (i RenderTargetIndex) Location() uint32 { return uint32(i) - 1 }

// String returns the enumeration name, or a numeric placeholder for unknown values.
func (i RenderTargetIndex) String() string { return nameOf(renderTargetNames, i, CategoryRenderTarget) }

// Token returns the WGSL placeholder name for this index, without the leading '$'.
func (i RenderTargetIndex) Token() string { return token(CategoryRenderTarget, i.String()) }

// String returns the enumeration name, or a numeric placeholder for unknown values.
func (i BufferIndex) String() string { return nameOf(bufferNames, i, CategoryBuffer) }

// Token returns the WGSL placeholder name for this index, without the leading '$'.
func (i BufferIndex) Token() string { return token(CategoryBuffer, i.String()) }

// String returns the enumeration name, or a numeric placeholder for unknown values.
func (i VertexBufferIndex) String() string { return nameOf(vertexBufferNames, i, CategoryVertexBuffer) }

// Token returns the WGSL placeholder name for this index, without the leading '$'.
func (i VertexBufferIndex) Token() string { return token(CategoryVertexBuffer, i.String()) }

// String returns the enumeration name, or a numeric placeholder for unknown values.
func (i AttributeIndex) String() string { return nameOf(attributeNames, i, CategoryAttribute) }

// Token returns the WGSL placeholder name for this index, without the leading '$'.
func (i AttributeIndex) Token() string { return token(CategoryAttribute, i.String()) }

// String returns the enumeration name, or a numeric placeholder for unknown values.
func (i MaterialParameter) String() string {
	return nameOf(materialParameterNames, i, CategoryMaterialParameter)
}

// Token returns the WGSL placeholder name for this index, without the leading '$'.
func (i MaterialParameter) Token() string { return token(CategoryMaterialParameter, i.String()) }

func nameOf[K ~uint32](names map[K]string, k K, c Category) string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("%s(%d)", c, uint32(k))
}

func token(c Category, name string) string {
	return string(c) + "_" + name
}
