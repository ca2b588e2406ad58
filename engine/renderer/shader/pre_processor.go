// pre_processor.go turns annotated WGSL into plain WGSL. Registry placeholders
// ($BUFFER_VERTEX_UNIFORMS, $RENDER_TARGET_ALBEDO_LOCATION, ...) are expanded first, so annotations
// always see literal numbers. Each @oxy: line is then rewritten in place.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
)

// record is a shared WGSL struct the pre-processor can inject, and the name declarations refer to it by.
type record struct {
	name   string
	source string
}

var records = map[AnnotationArg]record{
	AnnotationArgVertexUniforms:   {"VertexUniforms", layout.VertexUniformsSource},
	AnnotationArgFragmentUniforms: {"FragmentUniforms", layout.FragmentUniformsSource},
	AnnotationArgMeshDescriptor:   {"MeshDescriptor", layout.MeshDescriptorSource},
	AnnotationArgIndirectArgs:     {"IndirectArgs", layout.IndirectArgsSource},
	AnnotationArgDrawArgument:     {"DrawArgument", layout.DrawArgumentSource},
	AnnotationArgMaterialRecord:   {"MaterialRecord", layout.MaterialRecordSource},
	AnnotationArgCullUniforms:     {"CullUniforms", layout.CullUniformsSource},
	annotationArgSceneVertex:      {"SceneVertex", layout.SceneVertexSource},
	annotationArgQuadVertex:       {"QuadVertex", layout.QuadVertexSource},
}

// varQualifier maps an address space argument to the var<> qualifier it declares.
func varQualifier(space AnnotationArg) string {
	switch space {
	case annotationArgStorageTypeRead:
		return "var<storage, read>"
	case annotationArgStorageTypeReadWrite:
		return "var<storage, read_write>"
	default:
		return "var<uniform>"
	}
}

// declaration renders the @group/@binding line of a group annotation.
func declaration(a *Annotation) string {
	elem, isArray := cutArray(string(a.Args[2]))
	typ := records[AnnotationArg(elem)].name
	if isArray {
		typ = "array<" + typ + ">"
	}
	return fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
		*a.Group, *a.Binding, varQualifier(a.Args[0]), a.Args[1], typ)
}

// PreProcessor turns annotated WGSL into plain WGSL.
type PreProcessor interface {
	// Process expands binding placeholders and rewrites @oxy: annotations. A record included twice
	// is injected once.
	//
	// Parameters:
	//   - source: the annotated WGSL source
	//
	// Returns:
	//   - string: plain WGSL
	//   - error: binding.ErrUnknownToken for an unregistered placeholder, or an annotation error
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations of the last Process call, in source order.
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

type preProcessor struct {
	bindings     binding.Registry
	declarations []Annotation
}

// NewPreProcessor creates a PreProcessor expanding placeholders against bindings, binding.Default() when nil.
func NewPreProcessor(bindings binding.Registry) PreProcessor {
	if bindings == nil {
		bindings = binding.Default()
	}
	return &preProcessor{bindings: bindings}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil

	expanded, err := p.bindings.Expand(source)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	included := make(map[AnnotationArg]bool)
	for i, line := range strings.Split(expanded, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			b.WriteString(line)
			continue
		}
		text, err := p.rewrite(a, included)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// rewrite returns the WGSL that replaces one annotation line. Provider tags and repeated includes
// leave an empty line.
func (p *preProcessor) rewrite(a *Annotation, included map[AnnotationArg]bool) (string, error) {
	switch a.Type {
	case annotationTypeInclude:
		key := a.Args[0]
		if included[key] {
			return "", nil
		}
		included[key] = true
		// record sources carry placeholders of their own
		src, err := p.bindings.Expand(records[key].source)
		if err != nil {
			return "", fmt.Errorf("line %d: include %s: %w", a.Line, key, err)
		}
		return src, nil
	case AnnotationTypeBindingGroup:
		p.declarations = append(p.declarations, *a)
		return declaration(a), nil
	case AnnotationTypeProvider:
		p.declarations = append(p.declarations, *a)
		return "", nil
	}
	return "", fmt.Errorf("line %d: unknown annotation type %q", a.Line, a.Type)
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
