package binding

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrDuplicateIndex is returned when two names in one category share a value.
	ErrDuplicateIndex = errors.New("binding: duplicate index value")
	// ErrRenumbered is returned when a later generation redefines an existing name.
	ErrRenumbered = errors.New("binding: existing index redefined")
	// ErrVersionOrder is returned when generation versions do not strictly increase.
	ErrVersionOrder = errors.New("binding: generation versions must strictly increase")
	// ErrUnknownToken is returned by Expand for a placeholder no generation defines.
	ErrUnknownToken = errors.New("binding: unknown placeholder")
)

// locationSuffix is appended to render target tokens to address the attachment location rather than the raw index.
const locationSuffix = "_LOCATION"

var placeholderPattern = regexp.MustCompile(`\$([A-Z][A-Z0-9_]*)`)

// Entry is one named value of one category.
type Entry struct {
	Category Category
	Name     string
	Value    uint32
}

// Token returns the WGSL placeholder name for the entry.
func (e Entry) Token() string { return token(e.Category, e.Name) }

// Generation is a versioned set of entries appended to a registry.
type Generation struct {
	Version string
	Entries []Entry
}

// Registry is an append-only, versioned table of binding indices.
// Generations only add entries; a value, once published, keeps its meaning in every later generation.
type Registry interface {
	// Generations returns the generations in version order.
	//
	// Returns:
	//   - []Generation: a copy of the registered generations
	Generations() []Generation

	// Latest returns the version of the newest generation.
	//
	// Returns:
	//   - *semver.Version: the newest version
	Latest() *semver.Version

	// Append validates and adds a generation, returning a new Registry. The receiver is not modified.
	//
	// Parameters:
	//   - gen: the generation to append
	//
	// Returns:
	//   - Registry: the extended registry
	//   - error: ErrVersionOrder, ErrRenumbered or ErrDuplicateIndex if gen breaks the append-only contract
	Append(gen Generation) (Registry, error)

	// Lookup resolves a placeholder token (without '$').
	//
	// Parameters:
	//   - tok: the token, e.g. "BUFFER_VERTEX_UNIFORMS" or "RENDER_TARGET_ALBEDO_LOCATION"
	//
	// Returns:
	//   - uint32: the resolved value
	//   - bool: false if no entry defines tok
	Lookup(tok string) (uint32, bool)

	// Entries returns every entry of a category sorted by value.
	Entries(c Category) []Entry

	// Expand replaces every $TOKEN placeholder in a WGSL source with its numeric value.
	//
	// Parameters:
	//   - src: the WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: wraps ErrUnknownToken naming the first unresolved placeholder
	Expand(src string) (string, error)
}

type registry struct {
	generations []Generation
	versions    []*semver.Version
	tokens      map[string]uint32
}

var _ Registry = &registry{}

// NewRegistry validates generations in order and builds a Registry from them.
//
// Parameters:
//   - gens: generations in ascending version order
//
// Returns:
//   - Registry: the validated registry
//   - error: the first contract violation found
func NewRegistry(gens ...Generation) (Registry, error) {
	var r Registry = &registry{tokens: make(map[string]uint32)}
	for _, g := range gens {
		next, err := r.Append(g)
		if err != nil {
			return nil, err
		}
		r = next
	}
	return r, nil
}

var defaultRegistry = func() Registry {
	r, err := NewRegistry(defaultGenerations()...)
	if err != nil {
		panic(fmt.Sprintf("binding: built-in registry is invalid: %v", err))
	}
	return r
}()

// Default returns the built-in registry covering every constant in this package.
//
// Returns:
//   - Registry: the shared registry
func Default() Registry {
	return defaultRegistry
}

// Expand replaces placeholders in src using the built-in registry.
//
// Parameters:
//   - src: the WGSL source
//
// Returns:
//   - string: the expanded source
//   - error: wraps ErrUnknownToken for an unresolved placeholder
func Expand(src string) (string, error) {
	return defaultRegistry.Expand(src)
}

func defaultGenerations() []Generation {
	return []Generation{
		{
			Version: "1.0.0",
			Entries: []Entry{
				RenderTargetEntry(RenderTargetAlbedo),
				RenderTargetEntry(RenderTargetNormal),
				RenderTargetEntry(RenderTargetDepth),
				RenderTargetEntry(RenderTargetShadow),
				BufferEntry(BufferMeshPositions),
				BufferEntry(BufferVertexUniforms),
				BufferEntry(BufferFragmentUniforms),
				BufferEntry(BufferIndirectCommandBuffer),
				BufferEntry(BufferMeshes),
				BufferEntry(BufferDrawArguments),
				BufferEntry(BufferShadowArguments),
				VertexBufferEntry(VertexBufferVertex),
				VertexBufferEntry(VertexBufferTextureCoordinates),
				VertexBufferEntry(VertexBufferIndices),
				VertexBufferEntry(VertexBufferMaterialArgument),
				AttributeEntry(AttributePosition),
				AttributeEntry(AttributeNormal),
				AttributeEntry(AttributeTexCoords),
				MaterialParameterEntry(MaterialBaseColor),
				MaterialParameterEntry(MaterialBaseColorTexture),
				MaterialParameterEntry(MaterialSpecularColor),
				MaterialParameterEntry(MaterialSpecularTexture),
			},
		},
		{
			Version: "1.1.0",
			Entries: []Entry{
				RenderTargetEntry(RenderTargetWorldPosition),
				BufferEntry(BufferMaterialTable),
				BufferEntry(BufferCullUniforms),
				BufferEntry(BufferMaterialTextures),
				BufferEntry(BufferMaterialSampler),
				BufferEntry(BufferShadowMap),
				BufferEntry(BufferShadowSampler),
			},
		},
	}
}

// RenderTargetEntry builds the registry entry of a render target index.
func RenderTargetEntry(i RenderTargetIndex) Entry {
	return Entry{Category: CategoryRenderTarget, Name: i.String(), Value: uint32(i)}
}

// BufferEntry builds the registry entry of a buffer index.
func BufferEntry(i BufferIndex) Entry {
	return Entry{Category: CategoryBuffer, Name: i.String(), Value: uint32(i)}
}

// VertexBufferEntry builds the registry entry of a vertex buffer index.
func VertexBufferEntry(i VertexBufferIndex) Entry {
	return Entry{Category: CategoryVertexBuffer, Name: i.String(), Value: uint32(i)}
}

// AttributeEntry builds the registry entry of an attribute index.
func AttributeEntry(i AttributeIndex) Entry {
	return Entry{Category: CategoryAttribute, Name: i.String(), Value: uint32(i)}
}

// MaterialParameterEntry builds the registry entry of a material parameter.
func MaterialParameterEntry(i MaterialParameter) Entry {
	return Entry{Category: CategoryMaterialParameter, Name: i.String(), Value: uint32(i)}
}

func (r *registry) Generations() []Generation {
	out := make([]Generation, len(r.generations))
	for i, g := range r.generations {
		out[i] = Generation{Version: g.Version, Entries: append([]Entry(nil), g.Entries...)}
	}
	return out
}

func (r *registry) Latest() *semver.Version {
	if len(r.versions) == 0 {
		return nil
	}
	return r.versions[len(r.versions)-1]
}

func (r *registry) Append(gen Generation) (Registry, error) {
	v, err := semver.NewVersion(gen.Version)
	if err != nil {
		return nil, fmt.Errorf("binding: generation %q: %w", gen.Version, err)
	}
	if latest := r.Latest(); latest != nil && !latest.LessThan(v) {
		return nil, fmt.Errorf("%w: %s after %s", ErrVersionOrder, v, latest)
	}

	tokens := make(map[string]uint32, len(r.tokens)+len(gen.Entries))
	for k, val := range r.tokens {
		tokens[k] = val
	}
	used := make(map[Category]map[uint32]string)
	for _, g := range r.generations {
		for _, e := range g.Entries {
			markUsed(used, e)
		}
	}

	for _, e := range gen.Entries {
		tok := e.Token()
		if e.Category == CategoryRenderTarget && e.Value == 0 {
			return nil, fmt.Errorf("binding: %s: render target indices start at 1", tok)
		}
		if prev, ok := tokens[tok]; ok {
			return nil, fmt.Errorf("%w: %s was %d in an earlier generation, %s redefines it as %d", ErrRenumbered, tok, prev, v, e.Value)
		}
		if owner, ok := used[e.Category][e.Value]; ok {
			return nil, fmt.Errorf("%w: %s and %s_%s both use %d", ErrDuplicateIndex, owner, e.Category, e.Name, e.Value)
		}
		markUsed(used, e)
		tokens[tok] = e.Value
		if e.Category == CategoryRenderTarget {
			tokens[tok+locationSuffix] = e.Value - 1
		}
	}

	return &registry{
		generations: append(append([]Generation(nil), r.generations...), gen),
		versions:    append(append([]*semver.Version(nil), r.versions...), v),
		tokens:      tokens,
	}, nil
}

func markUsed(used map[Category]map[uint32]string, e Entry) {
	if used[e.Category] == nil {
		used[e.Category] = make(map[uint32]string)
	}
	used[e.Category][e.Value] = e.Token()
}

func (r *registry) Lookup(tok string) (uint32, bool) {
	v, ok := r.tokens[tok]
	return v, ok
}

func (r *registry) Entries(c Category) []Entry {
	var out []Entry
	for _, g := range r.generations {
		for _, e := range g.Entries {
			if e.Category == c {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func (r *registry) Expand(src string) (string, error) {
	var unknown string
	out := placeholderPattern.ReplaceAllStringFunc(src, func(m string) string {
		tok := strings.TrimPrefix(m, "$")
		v, ok := r.tokens[tok]
		if !ok {
			if unknown == "" {
				unknown = tok
			}
			return m
		}
		return strconv.FormatUint(uint64(v), 10)
	})
	if unknown != "" {
		return "", fmt.Errorf("%w: $%s", ErrUnknownToken, unknown)
	}
	return out, nil
}
