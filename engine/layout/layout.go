// Package layout defines the fixed-layout records shared byte for byte between host code and WGSL programs:
// vertex formats, per-object and per-frame uniform blocks, the mesh table, generated draw commands and material records.
//
// Every record has a canonical WGSL definition embedded from assets/ and a Go struct whose field offsets match it.
// The two are compared at startup by the shader package; a mismatch is a contract failure, never a draw-time error.
package layout

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// PositionNormalStride is the byte stride of the interleaved position + normal stream.
	PositionNormalStride = 24
	// TexCoordStride is the byte stride of the texture coordinate stream.
	TexCoordStride = 8
	// QuadVertexStride is the byte stride of full-screen quad vertices.
	QuadVertexStride = 8
	// IndexSize is the byte size of one index (uint32 indices).
	IndexSize = 4
	// PositionNormalFloats is the float count of one position + normal element, used by vertex pulling.
	PositionNormalFloats = PositionNormalStride / 4
)

// SceneVertexSource is the canonical WGSL vertex input struct for scene geometry.
// Attribute locations are binding placeholders expanded by the shader pre-processor.
//
//go:embed assets/scene_vertex.wgsl
var SceneVertexSource string

// QuadVertexSource is the canonical WGSL vertex input struct for the full-screen quad.
//
//go:embed assets/quad_vertex.wgsl
var QuadVertexSource string

// SceneVertex is one vertex of scene geometry on the host side.
// On the GPU it is split into two streams: position + normal at binding.VertexBufferVertex and texture
// coordinates at binding.VertexBufferTextureCoordinates.
type SceneVertex struct {
	Position  common.Vec3
	Normal    common.Vec3
	TexCoords [2]float32
}

// QuadVertex is one full-screen quad corner in normalized device coordinates.
type QuadVertex struct {
	Position [2]float32
}

// FullscreenQuad is the 4 vertex triangle strip covering clip space.
var FullscreenQuad = [4]QuadVertex{
	{Position: [2]float32{-1, -1}},
	{Position: [2]float32{1, -1}},
	{Position: [2]float32{-1, 1}},
	{Position: [2]float32{1, 1}},
}

// SceneVertexLayouts returns the vertex buffer layouts of scene geometry, indexed by vertex buffer slot.
//
// Returns:
//   - []wgpu.VertexBufferLayout: slot 0 position + normal, slot 1 texture coordinates
func SceneVertexLayouts() []wgpu.VertexBufferLayout {
	layouts := make([]wgpu.VertexBufferLayout, 2)
	layouts[binding.VertexBufferVertex] = wgpu.VertexBufferLayout{
		ArrayStride: PositionNormalStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: uint32(binding.AttributePosition)},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: uint32(binding.AttributeNormal)},
		},
	}
	layouts[binding.VertexBufferTextureCoordinates] = wgpu.VertexBufferLayout{
		ArrayStride: TexCoordStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: uint32(binding.AttributeTexCoords)},
		},
	}
	return layouts
}

// QuadVertexLayouts returns the vertex buffer layout of the full-screen quad.
func QuadVertexLayouts() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{{
		ArrayStride: QuadVertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: uint32(binding.AttributePosition)},
		},
	}}
}

// SplitStreams serializes scene vertices into the two GPU streams.
//
// Parameters:
//   - vertices: host-side vertices
//
// Returns:
//   - positionNormal: PositionNormalStride bytes per vertex
//   - texCoords: TexCoordStride bytes per vertex
func SplitStreams(vertices []SceneVertex) (positionNormal, texCoords []byte) {
	positionNormal = make([]byte, len(vertices)*PositionNormalStride)
	texCoords = make([]byte, len(vertices)*TexCoordStride)
	for i, v := range vertices {
		pn := positionNormal[i*PositionNormalStride:]
		putFloats(pn, v.Position[0], v.Position[1], v.Position[2], v.Normal[0], v.Normal[1], v.Normal[2])
		putFloats(texCoords[i*TexCoordStride:], v.TexCoords[0], v.TexCoords[1])
	}
	return positionNormal, texCoords
}

// MarshalQuad serializes the full-screen quad vertices.
func MarshalQuad() []byte {
	out := make([]byte, len(FullscreenQuad)*QuadVertexStride)
	for i, v := range FullscreenQuad {
		putFloats(out[i*QuadVertexStride:], v.Position[0], v.Position[1])
	}
	return out
}

// MarshalIndices serializes uint32 indices.
func MarshalIndices(indices []uint32) []byte {
	out := make([]byte, len(indices)*IndexSize)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*IndexSize:], idx)
	}
	return out
}

func putFloats(dst []byte, vs ...float32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}
