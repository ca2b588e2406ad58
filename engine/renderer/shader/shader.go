package shader

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType is the pipeline stage a shader is built for. One WGSL file may hold several stages;
// a Shader is created per stage.
type ShaderType int

const (
	ShaderTypeCompute ShaderType = iota
	ShaderTypeVertex
	ShaderTypeFragment
)

// Visibility returns the stage flag bind group layout entries of this stage carry.
func (t ShaderType) Visibility() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	}
	return wgpu.ShaderStageNone
}

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	case ShaderTypeCompute:
		return "compute"
	}
	return fmt.Sprintf("ShaderType(%d)", int(t))
}

// Shader is a processed WGSL program for one stage, with the layout metadata pipeline creation needs.
type Shader interface {
	// Key returns the identifier the shader was created with. It labels the GPU module.
	Key() string

	// ShaderType returns the stage of the shader.
	ShaderType() ShaderType

	// Source returns the WGSL after placeholder expansion and struct injection.
	Source() string

	// Module returns the shader module descriptor built from Source.
	Module() *wgpu.ShaderModuleDescriptor

	// EntryPoint returns the entry point of the stage.
	EntryPoint() string

	// WorkgroupSize returns the workgroup size of compute shaders, [0, 0, 0] for render stages.
	WorkgroupSize() [3]uint32

	// BindGroupLayoutDescriptor returns the layout of one group, empty if the stage declares nothing there.
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every declared group's layout keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindingName returns the variable declared at group and binding, or "".
	BindingName(group, binding int) string

	// BindingOf finds the binding of a variable in a group.
	//
	// Parameters:
	//   - group: the group index
	//   - name: the WGSL variable name
	//
	// Returns:
	//   - int: the binding index, -1 if not found
	//   - bool: whether the variable is declared in group
	BindingOf(group int, name string) (int, bool)

	// VertexLayout returns the vertex buffer layouts stored under key.
	VertexLayout(key int) []wgpu.VertexBufferLayout

	// VertexLayouts returns every vertex buffer layout of a vertex shader.
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// Declarations returns the group and provider annotations found in the source, in source order.
	Declarations() []Annotation
}

var _ Shader = &shader{}

type shader struct {
	key   string
	stage ShaderType

	source       string
	module       *wgpu.ShaderModuleDescriptor
	declarations []Annotation

	entry     string
	workgroup [3]uint32
	groups    map[int]wgpu.BindGroupLayoutDescriptor
	names     map[int]map[int]string
	vertex    map[int][]wgpu.VertexBufferLayout

	bindings       binding.Registry
	validate       bool
	vertexOverride []wgpu.VertexBufferLayout
}

// ShaderOption configures a Shader during NewShader.
type ShaderOption func(*shader)

// WithBindings expands placeholders against a registry other than binding.Default().
func WithBindings(r binding.Registry) ShaderOption {
	return func(s *shader) {
		s.bindings = r
	}
}

// WithValidation compiles the processed source offline and fails NewShader when it does not compile.
func WithValidation(enabled bool) ShaderOption {
	return func(s *shader) {
		s.validate = enabled
	}
}

// WithVertexLayouts replaces the vertex layouts parsed from the source.
// Needed whenever the vertex input is split across several buffers, since parsing yields one interleaved layout per struct.
//
// Parameters:
//   - layouts: vertex buffer layouts in slot order
//
// Returns:
//   - ShaderOption: a function that sets the vertex layouts of the shader
func WithVertexLayouts(layouts []wgpu.VertexBufferLayout) ShaderOption {
	return func(s *shader) {
		s.vertexOverride = layouts
	}
}

// NewShader processes a WGSL source for one stage and extracts its entry point, bind group layouts,
// vertex layouts and workgroup size.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - stage: the stage this shader is used for
//   - source: the annotated WGSL source
//   - opts: optional configuration
//
// Returns:
//   - Shader: the processed shader
//   - error: a pre-processing error, ErrInvalidWGSL when validation is enabled, or a missing entry point
func NewShader(key string, stage ShaderType, source string, opts ...ShaderOption) (Shader, error) {
	s := &shader{key: key, stage: stage}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.build(source); err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return s, nil
}

// NewShaderFromPath reads a WGSL file and passes it to NewShader.
func NewShaderFromPath(key string, stage ShaderType, path string, opts ...ShaderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %s: read %q: %w", key, path, err)
	}
	return NewShader(key, stage, string(data), opts...)
}

// build pre-processes the source, then reflects the stage's layouts from the result.
func (s *shader) build(raw string) error {
	pp := NewPreProcessor(s.bindings)
	source, err := pp.Process(raw)
	if err != nil {
		return err
	}
	if s.validate {
		if err := Validate(source); err != nil {
			return err
		}
	}
	s.source = source
	s.declarations = append([]Annotation(nil), pp.Declarations()...)
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:          s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	}

	refl := reflectSource(source)
	if s.entry = refl.entryPoint(s.stage); s.entry == "" {
		return fmt.Errorf("no %s entry point", s.stage)
	}
	switch {
	case s.stage == ShaderTypeCompute:
		s.workgroup = refl.workgroup
	case s.stage == ShaderTypeVertex && s.vertexOverride != nil:
		s.vertex = map[int][]wgpu.VertexBufferLayout{0: s.vertexOverride}
	case s.stage == ShaderTypeVertex:
		s.vertex = refl.vertexLayouts()
	}
	s.groups, s.names = refl.bindGroupLayouts(s.stage.Visibility())
	s.markUnfilterable()
	return nil
}

// markUnfilterable switches float textures owned by the gbuffer provider to unfilterable sampling,
// so 32-bit float targets can be bound. G-Buffer reads use textureLoad only.
func (s *shader) markUnfilterable() {
	for _, d := range s.declarations {
		if d.Type != AnnotationTypeProvider || d.Args[0] != AnnotationArgGBuffer {
			continue
		}
		desc, ok := s.groups[*d.Group]
		if !ok {
			continue
		}
		for i := range desc.Entries {
			e := &desc.Entries[i]
			if int(e.Binding) == *d.Binding && e.Texture.SampleType == wgpu.TextureSampleTypeFloat {
				e.Texture.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
			}
		}
	}
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) ShaderType() ShaderType {
	return s.stage
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) EntryPoint() string {
	return s.entry
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workgroup
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertex
}

func (s *shader) VertexLayout(key int) []wgpu.VertexBufferLayout {
	return s.vertex[key]
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.groups[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.groups
}

func (s *shader) BindingName(group, binding int) string {
	return s.names[group][binding]
}

func (s *shader) BindingOf(group int, name string) (int, bool) {
	for b, n := range s.names[group] {
		if n == name {
			return b, true
		}
	}
	return -1, false
}
