// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL pre-processor. Annotations are single-line WGSL comments prefixed with @oxy:
// that inject canonical record structs, generate bind group declarations, and tag
// hand-written bindings with the provider that owns them.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the canonical WGSL source of a shared record at the annotation site.
	// It produces no declaration.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include vertex_uniforms
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration for a
	// shared record type, optionally wrapped in array<>, and records it in the declarations list.
	// Binding numbers are usually written as registry tokens, which are expanded before annotations are parsed.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 $BUFFER_VERTEX_UNIFORMS storage_read vertex_uniforms array<vertex_uniforms>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider tags the hand-written binding declared below it with the provider that owns it.
	// It generates no WGSL. Textures tagged gbuffer are read with textureLoad and are laid out as unfilterable.
	//
	// Syntax: //@oxy:provider <group> <binding> <provider_identity>
	//
	// Example: //@oxy:provider 1 $RENDER_TARGET_NORMAL gbuffer
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @oxy: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key
	//   - group:    [0] = address space, [1] = var name, [2] = type key
	//   - provider: [0] = provider identity
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// Struct type arguments. Each maps to a record in the layout package.
const (
	AnnotationArgVertexUniforms   AnnotationArg = "vertex_uniforms"
	AnnotationArgFragmentUniforms AnnotationArg = "fragment_uniforms"
	AnnotationArgMeshDescriptor   AnnotationArg = "mesh_descriptor"
	AnnotationArgIndirectArgs     AnnotationArg = "indirect_args"
	AnnotationArgDrawArgument     AnnotationArg = "draw_argument"
	AnnotationArgMaterialRecord   AnnotationArg = "material_record"
	AnnotationArgCullUniforms     AnnotationArg = "cull_uniforms"
	annotationArgSceneVertex      AnnotationArg = "scene_vertex"
	annotationArgQuadVertex       AnnotationArg = "quad_vertex"
)

// Address space arguments, mapped to WGSL var<> declarations.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// Provider identity arguments.
const (
	// AnnotationArgGBuffer identifies a G-Buffer render target read by the composite pass.
	AnnotationArgGBuffer AnnotationArg = "gbuffer"

	// AnnotationArgShadow identifies the shadow map and its comparison sampler.
	AnnotationArgShadow AnnotationArg = "shadow"

	// AnnotationArgMaterial identifies the material texture array and its sampler.
	AnnotationArgMaterial AnnotationArg = "material"
)

// argKind is what one annotation argument must be.
type argKind int

const (
	argGroup argKind = iota
	argBinding
	argAddressSpace
	argVarName
	argStruct      // a struct key
	argStructArray // a struct key, optionally wrapped in array<>
	argProvider
)

// annotationGrammar lists the arguments each annotation type takes, in order.
var annotationGrammar = map[AnnotationType][]argKind{
	annotationTypeInclude:      {argStruct},
	AnnotationTypeBindingGroup: {argGroup, argBinding, argAddressSpace, argVarName, argStructArray},
	AnnotationTypeProvider:     {argGroup, argBinding, argProvider},
}

var argNames = map[argKind]string{
	argGroup:        "group",
	argBinding:      "binding",
	argAddressSpace: "address space",
	argVarName:      "var name",
	argStruct:       "struct type",
	argStructArray:  "struct type",
	argProvider:     "provider identity",
}

// allowedArgs holds the closed value sets. Kinds missing here accept any word.
var allowedArgs = map[argKind][]AnnotationArg{
	argStruct: {
		AnnotationArgVertexUniforms, AnnotationArgFragmentUniforms, AnnotationArgMeshDescriptor,
		AnnotationArgIndirectArgs, AnnotationArgDrawArgument, AnnotationArgMaterialRecord,
		AnnotationArgCullUniforms, annotationArgSceneVertex, annotationArgQuadVertex,
	},
	argAddressSpace: {annotationArgStorageTypeUniform, annotationArgStorageTypeRead, annotationArgStorageTypeReadWrite},
	argProvider:     {AnnotationArgGBuffer, AnnotationArgShadow, AnnotationArgMaterial},
}

// parseAnnotation parses one WGSL source line as an @oxy: annotation. Lines that are not comments, or
// comments without the prefix, yield nil and no error.
//
// Parameters:
//   - line: the WGSL source line, with registry tokens already expanded
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	words := strings.Fields(after)
	if len(words) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}
	typ := AnnotationType(words[0])
	grammar, ok := annotationGrammar[typ]
	if !ok {
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, words[0])
	}
	if got := len(words) - 1; got != len(grammar) {
		names := make([]string, len(grammar))
		for i, k := range grammar {
			names[i] = argNames[k]
		}
		return nil, fmt.Errorf("line %d: @oxy %s takes %d arguments (%s), got %d",
			lineNum, typ, len(grammar), strings.Join(names, ", "), got)
	}

	a := &Annotation{Type: typ, Line: lineNum}
	for i, kind := range grammar {
		word := words[i+1]
		switch kind {
		case argGroup, argBinding:
			n, err := strconv.Atoi(word)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s number %q: %w", lineNum, argNames[kind], word, err)
			}
			if kind == argGroup {
				a.Group = &n
			} else {
				a.Binding = &n
			}
			continue
		case argStructArray:
			elem, _ := cutArray(word)
			if !slices.Contains(allowedArgs[argStruct], AnnotationArg(elem)) {
				return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy %s annotation", lineNum, elem, typ)
			}
		default:
			if allowed, closed := allowedArgs[kind]; closed && !slices.Contains(allowed, AnnotationArg(word)) {
				return nil, fmt.Errorf("line %d: unknown %s %q in @oxy %s annotation", lineNum, argNames[kind], word, typ)
			}
		}
		a.Args = append(a.Args, AnnotationArg(word))
	}
	return a, nil
}

// cutArray unwraps array<T> and reports whether the type was an array.
func cutArray(typeArg string) (string, bool) {
	inner, ok := strings.CutPrefix(typeArg, "array<")
	if !ok {
		return typeArg, false
	}
	return strings.TrimSuffix(inner, ">"), true
}
