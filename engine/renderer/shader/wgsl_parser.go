package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslSampledTextureMap maps sampled and depth texture base names to their view dimension and multisampled flag.
var wgslSampledTextureMap = map[string]sampledTextureInfo{
	"texture_1d":                    {wgpu.TextureViewDimension1D, false},
	"texture_2d":                    {wgpu.TextureViewDimension2D, false},
	"texture_2d_array":              {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":                    {wgpu.TextureViewDimension3D, false},
	"texture_cube":                  {wgpu.TextureViewDimensionCube, false},
	"texture_cube_array":            {wgpu.TextureViewDimensionCubeArray, false},
	"texture_multisampled_2d":       {wgpu.TextureViewDimension2D, true},
	"texture_depth_2d":              {wgpu.TextureViewDimension2D, false},
	"texture_depth_2d_array":        {wgpu.TextureViewDimension2DArray, false},
	"texture_depth_cube":            {wgpu.TextureViewDimensionCube, false},
	"texture_depth_multisampled_2d": {wgpu.TextureViewDimension2D, true},
}

// wgslSampleTypeMap maps the texel type parameter of a sampled texture to its sample type.
var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var (
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex  = regexp.MustCompile(`@builtin\(\w+\)`)
	alignRegex    = regexp.MustCompile(`@align\((\d+)\)`)
	sizeRegex     = regexp.MustCompile(`@size\((\d+)\)`)

	// fieldRegex matches a member after its attributes. The type capture is greedy for array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	entryPointRegexes = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
		ShaderTypeCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`),
	}

	// workgroupSizeRegex captures 1 to 3 dimensions of @workgroup_size(x[, y[, z]]).
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// resourceRegex captures group, binding, optional address space, name and type of a declaration such as
	// @group(0) @binding(12) var<uniform> frame: FragmentUniforms; or @group(1) @binding(1) var albedo: texture_2d<f32>;
	resourceRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// reflectSource scans a WGSL source.
//
// Parameters:
//   - source: WGSL source, comments allowed
//
// Returns:
//   - reflection: the declarations found; omitted workgroup dimensions are 1
func reflectSource(source string) reflection {
	cleaned := stripComments(source)
	r := reflection{
		structs:   parseStructBlocks(cleaned),
		entries:   make(map[ShaderType]string, len(entryPointRegexes)),
		workgroup: [3]uint32{1, 1, 1},
	}

	for stage, re := range entryPointRegexes {
		if m := re.FindStringSubmatch(cleaned); m != nil {
			r.entries[stage] = m[1]
		}
	}

	if m := workgroupSizeRegex.FindStringSubmatch(cleaned); m != nil {
		for i, dim := range m[1:] {
			if v, err := strconv.ParseUint(dim, 10, 32); err == nil {
				r.workgroup[i] = uint32(v)
			}
		}
	}

	for _, m := range resourceRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		r.resources = append(r.resources, resourceDecl{
			group:        group,
			binding:      binding,
			addressSpace: strings.TrimSpace(m[3]),
			name:         strings.TrimSpace(m[4]),
			typeName:     strings.TrimSpace(m[5]),
		})
	}
	return r
}

// entryPoint returns the entry point of a stage, or "" if the source declares none.
func (r reflection) entryPoint(stage ShaderType) string {
	return r.entries[stage]
}

// vertexLayouts builds one vertex buffer layout per pure vertex input struct, in declaration order.
// Output structs (which carry @builtin(position)) and structs with types a vertex buffer cannot hold are skipped.
func (r reflection) vertexLayouts() map[int][]wgpu.VertexBufferLayout {
	result := make(map[int][]wgpu.VertexBufferLayout)
	for _, ps := range r.structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		if layout, ok := buildVertexBufferLayout(ps); ok {
			result[len(result)] = []wgpu.VertexBufferLayout{layout}
		}
	}
	return result
}

// bindGroupLayouts builds the bind group layouts of the declared resources, entries sorted by binding.
// Buffer entries get a MinBindingSize from the bound struct so bind group init can size the buffer.
//
// Parameters:
//   - visibility: the stage that declared the resources
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layouts keyed by group
//   - map[int]map[int]string: variable names keyed by group and binding
func (r reflection) bindGroupLayouts(visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	sizes := computeStructSizes(r.structs)
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)

	for _, res := range r.resources {
		entry := classifyResource(uint32(res.binding), visibility, res.addressSpace, res.typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(res.typeName, sizes); ok && layout.size > 0 {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[res.group] = append(groups[res.group], entry)

		if names[res.group] == nil {
			names[res.group] = make(map[int]string)
		}
		names[res.group][res.binding] = res.name
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, names
}

// ParseStructLayouts computes the host-shareable layout of every struct declared in a WGSL source.
// Structs whose member types cannot be resolved are omitted.
//
// Parameters:
//   - source: WGSL source, comments allowed
//
// Returns:
//   - map[string]StructLayout: layouts keyed by struct name
func ParseStructLayouts(source string) map[string]StructLayout {
	return computeStructLayouts(reflectSource(source).structs)
}

// parseStructBlocks finds every struct block of a comment-free source.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseStructFields(m[2])})
	}
	return structs
}

// parseStructFields splits a struct body into members with their location, builtin, align and size attributes.
func parseStructFields(body string) []parsedField {
	members := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(members))

	for _, member := range members {
		member = strings.TrimSpace(member)
		fm := fieldRegex.FindStringSubmatch(member)
		if member == "" || fm == nil {
			continue
		}

		field := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(member),
		}
		if m := locationRegex.FindStringSubmatch(member); m != nil {
			field.location, _ = strconv.Atoi(m[1])
		}
		if m := alignRegex.FindStringSubmatch(member); m != nil {
			field.alignAttr, _ = strconv.ParseUint(m[1], 10, 64)
		}
		if m := sizeRegex.FindStringSubmatch(member); m != nil {
			field.sizeAttr, _ = strconv.ParseUint(m[1], 10, 64)
		}
		fields = append(fields, field)
	}
	return fields
}

// isVertexInputStruct reports whether a struct feeds a vertex buffer: it has @location members and
// no @builtin member. Vertex output structs always carry @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	located := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		located = located || f.location >= 0
	}
	return located
}

// buildVertexBufferLayout packs the members of a vertex input struct back to back in declaration order.
//
// Parameters:
//   - ps: a struct accepted by isVertexInputStruct
//
// Returns:
//   - wgpu.VertexBufferLayout: per-vertex layout with one attribute per member
//   - bool: false if a member type has no vertex format
func buildVertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, bool) {
	layout := wgpu.VertexBufferLayout{
		StepMode:   wgpu.VertexStepModeVertex,
		Attributes: make([]wgpu.VertexAttribute, 0, len(ps.fields)),
	}
	for _, f := range ps.fields {
		nt, ok := parseNumericType(f.typeName)
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		format, size, ok := nt.vertexFormat()
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(f.location),
		})
		layout.ArrayStride += size
	}
	return layout, true
}

// classifyResource builds the layout entry of one resource declaration. Buffers are told apart by
// address space; handle types (textures and samplers) by type name.
//
// Parameters:
//   - binding: the @binding index
//   - visibility: the declaring stage
//   - addressSpace: "uniform", "storage", "storage, read_write", or empty for handle types
//   - typeName: the declared type, e.g. "FragmentUniforms", "texture_depth_2d", "sampler_comparison"
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the entry; unknown handle types leave every layout unset
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch space, access, _ := strings.Cut(addressSpace, ","); strings.TrimSpace(space) {
	case "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry
	case "storage":
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.TrimSpace(access) == "read_write" {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
		return entry
	}

	base, param := splitTypeParams(typeName)
	switch {
	case base == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case base == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(base, "texture_"):
		info, ok := wgslSampledTextureMap[base]
		if !ok {
			break
		}
		entry.Texture.ViewDimension = info.viewDimension
		entry.Texture.Multisampled = info.multisampled
		if strings.HasPrefix(base, "texture_depth_") {
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		} else {
			entry.Texture.SampleType = wgslSampleTypeMap[param]
		}
	}
	return entry
}
