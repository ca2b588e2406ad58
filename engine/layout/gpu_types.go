package layout

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// VertexUniformsSource is the canonical WGSL definition of the VertexUniforms struct.
//
//go:embed assets/vertex_uniforms.wgsl
var VertexUniformsSource string

// VertexUniforms is the per-object transform block, one entry per mesh in the vertex uniform storage array.
// Size: 240 bytes (WGSL aligned).
//
// Layout:
//
//	mat4x4<f32> model_view                     (offset   0)
//	mat3x3<f32> model_view_inverse_transpose   (offset  64, 3 columns padded to 16 bytes)
//	mat4x4<f32> model_view_projection          (offset 112)
//	mat4x4<f32> shadow_model_view_projection   (offset 176)
//
// New fields are appended after shadow_model_view_projection, never inserted.
type VertexUniforms struct {
	ModelView                 common.Mat4 `wgsl:"model_view"`
	ModelViewInverseTranspose [12]float32 `wgsl:"model_view_inverse_transpose"`
	ModelViewProjection       common.Mat4 `wgsl:"model_view_projection"`
	ShadowModelViewProjection common.Mat4 `wgsl:"shadow_model_view_projection"`
}

// SetNormalMatrix stores a 3x3 matrix into the padded mat3x3 column layout.
func (u *VertexUniforms) SetNormalMatrix(m common.Mat3) {
	for col := 0; col < 3; col++ {
		copy(u.ModelViewInverseTranspose[col*4:col*4+3], m[col*3:col*3+3])
		u.ModelViewInverseTranspose[col*4+3] = 0
	}
}

// NormalMatrix returns the unpadded 3x3 normal matrix.
func (u VertexUniforms) NormalMatrix() common.Mat3 {
	var m common.Mat3
	for col := 0; col < 3; col++ {
		copy(m[col*3:col*3+3], u.ModelViewInverseTranspose[col*4:col*4+3])
	}
	return m
}

// Size returns the size of the VertexUniforms struct in bytes.
func (u VertexUniforms) Size() int {
	return int(unsafe.Sizeof(u))
}

// Marshal serializes the block into a little-endian byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 240-byte buffer
func (u VertexUniforms) Marshal() []byte {
	e := newEncoder(u.Size())
	e.f32(u.ModelView[:]...)
	e.f32(u.ModelViewInverseTranspose[:]...)
	e.f32(u.ModelViewProjection[:]...)
	e.f32(u.ShadowModelViewProjection[:]...)
	return e.bytes()
}

// Unmarshal reads a block previously produced by Marshal or written by a GPU program.
//
// Parameters:
//   - data: at least Size() bytes
//
// Returns:
//   - error: ErrShortBuffer if data is too small
func (u *VertexUniforms) Unmarshal(data []byte) error {
	d, err := newDecoder(data, u.Size(), "VertexUniforms")
	if err != nil {
		return err
	}
	d.f32(u.ModelView[:])
	d.f32(u.ModelViewInverseTranspose[:])
	d.f32(u.ModelViewProjection[:])
	d.f32(u.ShadowModelViewProjection[:])
	return nil
}

// FragmentUniformsSource is the canonical WGSL definition of the FragmentUniforms struct.
//
//go:embed assets/fragment_uniforms.wgsl
var FragmentUniformsSource string

// FragmentUniforms is the per-frame lighting block read by the composite pass.
// The geometry pass also reads InverseView to write the world-position target, and the composite reads View
// to bring that target back into view space. View is appended last so earlier offsets never move.
// Size: 272 bytes.
//
// ViewLightPosition has w = 1 for a point light position, or w = 0 for the direction toward a directional light.
// ShadowParams packs (enabled, depth bias, PCF tap spacing in uv, unused). Enabled is 0 when no light casts shadows,
// in which case every pixel is treated as fully lit.
type FragmentUniforms struct {
	ViewLightPosition common.Vec4 `wgsl:"view_light_position"`
	LightColor        common.Vec4 `wgsl:"light_color"`
	AmbientColor      common.Vec4 `wgsl:"ambient_color"`
	InverseProjection common.Mat4 `wgsl:"inverse_projection"`
	InverseView       common.Mat4 `wgsl:"inverse_view"`
	ShadowParams      common.Vec4 `wgsl:"shadow_params"`
	Viewport          common.Vec4 `wgsl:"viewport"`
	View              common.Mat4 `wgsl:"view"`
}

// ShadowsEnabled reports whether the shadow test is active.
func (u FragmentUniforms) ShadowsEnabled() bool {
	return u.ShadowParams[0] != 0
}

// Size returns the size of the FragmentUniforms struct in bytes.
func (u FragmentUniforms) Size() int {
	return int(unsafe.Sizeof(u))
}

// Marshal serializes the block into a little-endian byte buffer suitable for GPU upload.
func (u FragmentUniforms) Marshal() []byte {
	e := newEncoder(u.Size())
	e.f32(u.ViewLightPosition[:]...)
	e.f32(u.LightColor[:]...)
	e.f32(u.AmbientColor[:]...)
	e.f32(u.InverseProjection[:]...)
	e.f32(u.InverseView[:]...)
	e.f32(u.ShadowParams[:]...)
	e.f32(u.Viewport[:]...)
	e.f32(u.View[:]...)
	return e.bytes()
}

// Unmarshal reads a block previously produced by Marshal.
func (u *FragmentUniforms) Unmarshal(data []byte) error {
	d, err := newDecoder(data, u.Size(), "FragmentUniforms")
	if err != nil {
		return err
	}
	d.f32(u.ViewLightPosition[:])
	d.f32(u.LightColor[:])
	d.f32(u.AmbientColor[:])
	d.f32(u.InverseProjection[:])
	d.f32(u.InverseView[:])
	d.f32(u.ShadowParams[:])
	d.f32(u.Viewport[:])
	d.f32(u.View[:])
	return nil
}

// MeshFlagCastsShadow marks a mesh as a shadow caster.
const MeshFlagCastsShadow uint32 = 1 << 0

// MeshDescriptorSource is the canonical WGSL definition of the MeshDescriptor struct.
//
//go:embed assets/mesh_descriptor.wgsl
var MeshDescriptorSource string

// MeshDescriptor identifies one drawable range of the shared vertex and index buffers.
// Bounds are a world-space sphere refreshed whenever the mesh transform changes.
// Size: 48 bytes.
type MeshDescriptor struct {
	IndexCount    uint32      `wgsl:"index_count"`
	FirstIndex    uint32      `wgsl:"first_index"`
	BaseVertex    int32       `wgsl:"base_vertex"`
	VertexCount   uint32      `wgsl:"vertex_count"`
	MaterialIndex uint32      `wgsl:"material_index"`
	Flags         uint32      `wgsl:"flags"`
	_             uint32      `wgsl:"_pad0"`
	_             uint32      `wgsl:"_pad1"`
	BoundsCenter  common.Vec3 `wgsl:"bounds_center"`
	BoundsRadius  float32     `wgsl:"bounds_radius"`
}

// CastsShadow reports whether MeshFlagCastsShadow is set.
func (m MeshDescriptor) CastsShadow() bool {
	return m.Flags&MeshFlagCastsShadow != 0
}

// Size returns the size of the MeshDescriptor struct in bytes.
func (m MeshDescriptor) Size() int {
	return int(unsafe.Sizeof(m))
}

// Marshal serializes the descriptor into a little-endian byte buffer suitable for GPU upload.
func (m MeshDescriptor) Marshal() []byte {
	e := newEncoder(m.Size())
	e.u32(m.IndexCount)
	e.u32(m.FirstIndex)
	e.i32(m.BaseVertex)
	e.u32(m.VertexCount)
	e.u32(m.MaterialIndex)
	e.u32(m.Flags)
	e.u32(0)
	e.u32(0)
	e.f32(m.BoundsCenter[:]...)
	e.f32(m.BoundsRadius)
	return e.bytes()
}

// Unmarshal reads a descriptor previously produced by Marshal.
func (m *MeshDescriptor) Unmarshal(data []byte) error {
	d, err := newDecoder(data, m.Size(), "MeshDescriptor")
	if err != nil {
		return err
	}
	m.IndexCount = d.u32()
	m.FirstIndex = d.u32()
	m.BaseVertex = d.i32()
	m.VertexCount = d.u32()
	m.MaterialIndex = d.u32()
	m.Flags = d.u32()
	d.skip(8)
	d.f32(m.BoundsCenter[:])
	var r [1]float32
	d.f32(r[:])
	m.BoundsRadius = r[0]
	return nil
}

// IndirectArgsSource is the canonical WGSL definition of the IndirectArgs struct.
//
//go:embed assets/indirect_args.wgsl
var IndirectArgsSource string

// IndirectArgs is one drawIndexedIndirect command as WebGPU consumes it.
// Size: 20 bytes, array stride 20.
type IndirectArgs struct {
	IndexCount    uint32 `wgsl:"index_count"`
	InstanceCount uint32 `wgsl:"instance_count"`
	FirstIndex    uint32 `wgsl:"first_index"`
	BaseVertex    int32  `wgsl:"base_vertex"`
	FirstInstance uint32 `wgsl:"first_instance"`
}

// IsNoop reports whether the command draws nothing.
func (a IndirectArgs) IsNoop() bool {
	return a.IndexCount == 0 || a.InstanceCount == 0
}

// Size returns the size of the IndirectArgs struct in bytes.
func (a IndirectArgs) Size() int {
	return int(unsafe.Sizeof(a))
}

// Marshal serializes the command into a little-endian byte buffer suitable for GPU upload.
func (a IndirectArgs) Marshal() []byte {
	e := newEncoder(a.Size())
	e.u32(a.IndexCount)
	e.u32(a.InstanceCount)
	e.u32(a.FirstIndex)
	e.i32(a.BaseVertex)
	e.u32(a.FirstInstance)
	return e.bytes()
}

// Unmarshal reads a command previously produced by Marshal or by the command generator.
func (a *IndirectArgs) Unmarshal(data []byte) error {
	d, err := newDecoder(data, a.Size(), "IndirectArgs")
	if err != nil {
		return err
	}
	a.IndexCount = d.u32()
	a.InstanceCount = d.u32()
	a.FirstIndex = d.u32()
	a.BaseVertex = d.i32()
	a.FirstInstance = d.u32()
	return nil
}

// DrawArgumentSource is the canonical WGSL definition of the DrawArgument struct.
//
//go:embed assets/draw_argument.wgsl
var DrawArgumentSource string

// DrawArgument is the argument slot paired with each generated command.
// The geometry pass reads it through instance_index to find the bindless material.
// Size: 16 bytes.
type DrawArgument struct {
	MaterialIndex uint32 `wgsl:"material_index"`
	MeshIndex     uint32 `wgsl:"mesh_index"`
	Visible       uint32 `wgsl:"visible"`
	_             uint32 `wgsl:"_pad0"`
}

// Size returns the size of the DrawArgument struct in bytes.
func (a DrawArgument) Size() int {
	return int(unsafe.Sizeof(a))
}

// Marshal serializes the argument into a little-endian byte buffer suitable for GPU upload.
func (a DrawArgument) Marshal() []byte {
	e := newEncoder(a.Size())
	e.u32(a.MaterialIndex)
	e.u32(a.MeshIndex)
	e.u32(a.Visible)
	e.u32(0)
	return e.bytes()
}

// Unmarshal reads an argument previously produced by Marshal or by the command generator.
func (a *DrawArgument) Unmarshal(data []byte) error {
	d, err := newDecoder(data, a.Size(), "DrawArgument")
	if err != nil {
		return err
	}
	a.MaterialIndex = d.u32()
	a.MeshIndex = d.u32()
	a.Visible = d.u32()
	return nil
}

// NoTexture marks an absent texture layer in a MaterialRecord.
const NoTexture int32 = -1

// MaterialRecordSource is the canonical WGSL definition of the MaterialRecord struct.
//
//go:embed assets/material_record.wgsl
var MaterialRecordSource string

// MaterialRecord is one entry of the bindless material table.
// Texture layers index the material texture array, NoTexture selects the flat color.
// Size: 48 bytes.
type MaterialRecord struct {
	BaseColor      common.Vec4 `wgsl:"base_color"`
	SpecularColor  common.Vec4 `wgsl:"specular_color"`
	BaseColorLayer int32       `wgsl:"base_color_layer"`
	SpecularLayer  int32       `wgsl:"specular_layer"`
	Shininess      float32     `wgsl:"shininess"`
	_              uint32      `wgsl:"_pad0"`
}

// Size returns the size of the MaterialRecord struct in bytes.
func (m MaterialRecord) Size() int {
	return int(unsafe.Sizeof(m))
}

// Marshal serializes the record into a little-endian byte buffer suitable for GPU upload.
func (m MaterialRecord) Marshal() []byte {
	e := newEncoder(m.Size())
	e.f32(m.BaseColor[:]...)
	e.f32(m.SpecularColor[:]...)
	e.i32(m.BaseColorLayer)
	e.i32(m.SpecularLayer)
	e.f32(m.Shininess)
	e.u32(0)
	return e.bytes()
}

// Unmarshal reads a record previously produced by Marshal.
func (m *MaterialRecord) Unmarshal(data []byte) error {
	d, err := newDecoder(data, m.Size(), "MaterialRecord")
	if err != nil {
		return err
	}
	d.f32(m.BaseColor[:])
	d.f32(m.SpecularColor[:])
	m.BaseColorLayer = d.i32()
	m.SpecularLayer = d.i32()
	var s [1]float32
	d.f32(s[:])
	m.Shininess = s[0]
	return nil
}

// CullUniformsSource is the canonical WGSL definition of the CullUniforms struct.
//
//go:embed assets/cull_uniforms.wgsl
var CullUniformsSource string

// CullUniforms carries the camera frustum and mesh count to the command generator.
// Size: 112 bytes.
type CullUniforms struct {
	Planes         [6]common.Vec4 `wgsl:"planes"`
	MeshCount      uint32         `wgsl:"mesh_count"`
	CullingEnabled uint32         `wgsl:"culling_enabled"`
	_              uint32         `wgsl:"_pad0"`
	_              uint32         `wgsl:"_pad1"`
}

// Size returns the size of the CullUniforms struct in bytes.
func (c CullUniforms) Size() int {
	return int(unsafe.Sizeof(c))
}

// Marshal serializes the block into a little-endian byte buffer suitable for GPU upload.
func (c CullUniforms) Marshal() []byte {
	e := newEncoder(c.Size())
	for _, p := range c.Planes {
		e.f32(p[:]...)
	}
	e.u32(c.MeshCount)
	e.u32(c.CullingEnabled)
	e.u32(0)
	e.u32(0)
	return e.bytes()
}

// Unmarshal reads a block previously produced by Marshal.
func (c *CullUniforms) Unmarshal(data []byte) error {
	d, err := newDecoder(data, c.Size(), "CullUniforms")
	if err != nil {
		return err
	}
	for i := range c.Planes {
		d.f32(c.Planes[i][:])
	}
	c.MeshCount = d.u32()
	c.CullingEnabled = d.u32()
	return nil
}

// Record is implemented by every fixed-layout type in this package.
type Record interface {
	Size() int
	Marshal() []byte
}

// MarshalAll concatenates the marshaled form of every record, producing a storage array upload.
//
// Parameters:
//   - records: the array elements in slot order
//
// Returns:
//   - []byte: len(records) * record size bytes, or nil for an empty slice
func MarshalAll[T Record](records []T) []byte {
	if len(records) == 0 {
		return nil
	}
	size := records[0].Size()
	out := make([]byte, 0, size*len(records))
	for _, r := range records {
		out = append(out, r.Marshal()...)
	}
	return out
}
