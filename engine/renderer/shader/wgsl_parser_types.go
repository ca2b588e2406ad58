package shader

import "github.com/cogentcore/webgpu/wgpu"

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing.
// alignAttr and sizeAttr hold explicit @align(N) / @size(N) overrides, zero when absent.
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
	alignAttr uint64
	sizeAttr  uint64
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// MemberLayout is the computed placement of one WGSL struct member.
type MemberLayout struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// StructLayout is the computed host-shareable layout of one WGSL struct.
type StructLayout struct {
	Name    string
	Size    uint64
	Align   uint64
	Members []MemberLayout
}

// reflection is what one WGSL source declares: structs, resource bindings, entry points and the
// compute workgroup size. The source is scanned once, with comments removed.
type reflection struct {
	structs   []parsedStruct
	resources []resourceDecl
	entries   map[ShaderType]string
	workgroup [3]uint32
}

// resourceDecl is one `@group(g) @binding(b) var<space> name: type;` declaration.
type resourceDecl struct {
	group        int
	binding      int
	addressSpace string
	name         string
	typeName     string
}
