package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// scalarSizes holds the byte size of each host-shareable scalar. Size equals alignment for scalars.
var scalarSizes = map[string]uint64{
	"f32":  4,
	"i32":  4,
	"u32":  4,
	"f16":  2,
	"bool": 4,
}

// shorthandScalars maps the one-letter suffix of vec3f, mat4x4h and friends to the scalar type.
var shorthandScalars = map[byte]string{
	'f': "f32",
	'i': "i32",
	'u': "u32",
	'h': "f16",
}

// vertexFormats lists the vertex format of a 1 to 4 component attribute per scalar type.
// Undefined entries cannot be fed from a vertex buffer.
var vertexFormats = map[string][4]wgpu.VertexFormat{
	"f32": {wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4},
	"i32": {wgpu.VertexFormatSint32, wgpu.VertexFormatSint32x2, wgpu.VertexFormatSint32x3, wgpu.VertexFormatSint32x4},
	"u32": {wgpu.VertexFormatUint32, wgpu.VertexFormatUint32x2, wgpu.VertexFormatUint32x3, wgpu.VertexFormatUint32x4},
	"f16": {wgpu.VertexFormatUndefined, wgpu.VertexFormatFloat16x2, wgpu.VertexFormatUndefined, wgpu.VertexFormatFloat16x4},
}

// numericType is a scalar, vector or matrix type: cols columns of rows components each.
// Scalars are 1x1 and vectors have one column.
type numericType struct {
	scalar     string
	cols, rows int
}

// parseNumericType recognizes f32, vec3f, vec3<f32>, mat4x4f, mat4x4<f32> and atomic<u32> style names.
//
// Parameters:
//   - typeName: a WGSL type name without surrounding whitespace
//
// Returns:
//   - numericType: the decomposed type
//   - bool: false if typeName is not a numeric type
func parseNumericType(typeName string) (numericType, bool) {
	if _, ok := scalarSizes[typeName]; ok {
		return numericType{scalar: typeName, cols: 1, rows: 1}, true
	}
	if inner, ok := strings.CutPrefix(typeName, "atomic<"); ok {
		scalar := strings.TrimSpace(strings.TrimSuffix(inner, ">"))
		return numericType{scalar: scalar, cols: 1, rows: 1}, scalar == "i32" || scalar == "u32"
	}

	var cols, rows int
	var rest string
	switch {
	case strings.HasPrefix(typeName, "vec") && len(typeName) > 4:
		cols, rows, rest = 1, dimension(typeName[3]), typeName[4:]
	case strings.HasPrefix(typeName, "mat") && len(typeName) > 6 && typeName[4] == 'x':
		cols, rows, rest = dimension(typeName[3]), dimension(typeName[5]), typeName[6:]
	default:
		return numericType{}, false
	}
	if cols == 0 || rows == 0 {
		return numericType{}, false
	}

	scalar := ""
	if len(rest) == 1 {
		scalar = shorthandScalars[rest[0]]
	} else if strings.HasPrefix(rest, "<") && strings.HasSuffix(rest, ">") {
		scalar = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	if _, ok := scalarSizes[scalar]; !ok {
		return numericType{}, false
	}
	// matrices are float only
	if cols > 1 && scalar != "f32" && scalar != "f16" {
		return numericType{}, false
	}
	return numericType{scalar: scalar, cols: cols, rows: rows}, true
}

// dimension reads a vector or matrix dimension digit, 0 if it is not 2, 3 or 4.
func dimension(c byte) int {
	if c < '2' || c > '4' {
		return 0
	}
	return int(c - '0')
}

// layout returns the host-shareable size and alignment. A vec3 aligns like a vec4, and a matrix is
// an array of column vectors.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
func (t numericType) layout() wgslTypeLayout {
	s := scalarSizes[t.scalar]
	if t.rows == 1 {
		return wgslTypeLayout{size: s, align: s}
	}
	align := uint64(t.rows) * s
	if t.rows == 3 {
		align = 4 * s
	}
	if t.cols == 1 {
		return wgslTypeLayout{size: uint64(t.rows) * s, align: align}
	}
	return wgslTypeLayout{size: uint64(t.cols) * align, align: align}
}

// vertexFormat returns the vertex attribute format and its byte size in a tightly packed buffer.
func (t numericType) vertexFormat() (wgpu.VertexFormat, uint64, bool) {
	formats, ok := vertexFormats[t.scalar]
	if !ok || t.cols != 1 {
		return wgpu.VertexFormatUndefined, 0, false
	}
	f := formats[t.rows-1]
	if f == wgpu.VertexFormatUndefined {
		return f, 0, false
	}
	return f, uint64(t.rows) * scalarSizes[t.scalar], true
}

// roundUpAlign rounds value up to the next multiple of a power-of-two alignment.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves a WGSL type name against the numeric types and the struct layouts
// computed so far. array<T, N> has N element strides; a runtime-sized array<T> reports one stride,
// the smallest binding that holds an element.
//
// Parameters:
//   - typeName: the WGSL type name to resolve, e.g. "f32", "FragmentUniforms", "array<MeshDescriptor>"
//   - knownTypes: already-resolved struct layouts keyed by name
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false for unknown types
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if nt, ok := parseNumericType(typeName); ok {
		return nt.layout(), true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	base, params := splitTypeParams(typeName)
	if base != "array" || params == "" {
		return wgslTypeLayout{}, false
	}
	parts := splitAtTopLevelCommas(params)
	elem, ok := resolveTypeLayout(strings.TrimSpace(parts[0]), knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elem.align, elem.size)
	if len(parts) == 1 {
		return wgslTypeLayout{size: stride, align: elem.align}, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{size: count * stride, align: elem.align}, true
}

// isRuntimeArray reports whether typeName is an array without an element count.
func isRuntimeArray(typeName string) bool {
	base, params := splitTypeParams(typeName)
	return base == "array" && len(splitAtTopLevelCommas(params)) == 1
}
