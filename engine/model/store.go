package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
)

// ErrStoreFull is returned when a mesh does not fit the remaining vertex or index capacity.
var ErrStoreFull = errors.New("model: mesh store full")

const (
	// DefaultVertexCapacity is the number of vertices a store holds by default.
	DefaultVertexCapacity = 1 << 20

	// DefaultIndexCapacity is the number of indices a store holds by default.
	DefaultIndexCapacity = 3 << 20
)

// store is the implementation of Store.
type store struct {
	mu *sync.RWMutex

	vertexCapacity int
	indexCapacity  int

	positionNormal []byte
	texCoords      []byte
	indices        []byte

	vertexCount int
	indexCount  int
	ranges      []Range

	// version increments on every append, so uploaders can tell when the streams changed.
	version uint64
}

// Store packs every mesh of a scene into shared vertex and index streams, so one set of buffers
// serves every draw and a mesh is addressed only by its Range.
//
// Streams are append-only. A mesh's Range never changes once returned.
type Store interface {
	// Append validates m and copies it to the end of the streams.
	//
	// Parameters:
	//   - m: the mesh to add
	//
	// Returns:
	//   - Range: where the mesh landed
	//   - error: ErrInvalidMesh for a malformed mesh, ErrStoreFull past capacity
	Append(m *Mesh) (Range, error)

	// Ranges returns every appended range in append order.
	Ranges() []Range

	// PositionNormal returns the interleaved position + normal stream, PositionNormalStride bytes per vertex.
	PositionNormal() []byte

	// TexCoords returns the texture coordinate stream, TexCoordStride bytes per vertex.
	TexCoords() []byte

	// Indices returns the uint32 index stream.
	Indices() []byte

	// VertexCount returns the number of vertices appended.
	VertexCount() int

	// IndexCount returns the number of indices appended.
	IndexCount() int

	// VertexCapacity returns the vertex capacity the GPU buffers are sized for.
	VertexCapacity() int

	// IndexCapacity returns the index capacity the GPU buffer is sized for.
	IndexCapacity() int

	// Version returns a counter that changes whenever the streams change.
	Version() uint64
}

var _ Store = &store{}

// NewStore creates an empty mesh store.
//
// Parameters:
//   - options: builder options for capacity
//
// Returns:
//   - Store: the store
func NewStore(options ...StoreBuilderOption) Store {
	s := &store{
		mu:             &sync.RWMutex{},
		vertexCapacity: DefaultVertexCapacity,
		indexCapacity:  DefaultIndexCapacity,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *store) Append(m *Mesh) (Range, error) {
	if err := m.Validate(); err != nil {
		return Range{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vertexCount+len(m.Vertices) > s.vertexCapacity {
		return Range{}, fmt.Errorf("%w: %d + %d vertices over %d", ErrStoreFull, s.vertexCount, len(m.Vertices), s.vertexCapacity)
	}
	if s.indexCount+len(m.Indices) > s.indexCapacity {
		return Range{}, fmt.Errorf("%w: %d + %d indices over %d", ErrStoreFull, s.indexCount, len(m.Indices), s.indexCapacity)
	}

	r := Range{
		FirstIndex:  uint32(s.indexCount),
		IndexCount:  uint32(len(m.Indices)),
		BaseVertex:  int32(s.vertexCount),
		VertexCount: uint32(len(m.Vertices)),
	}

	pn, tc := layout.SplitStreams(m.Vertices)
	s.positionNormal = append(s.positionNormal, pn...)
	s.texCoords = append(s.texCoords, tc...)
	s.indices = append(s.indices, layout.MarshalIndices(m.Indices)...)
	s.vertexCount += len(m.Vertices)
	s.indexCount += len(m.Indices)
	s.ranges = append(s.ranges, r)
	s.version++
	return r, nil
}

func (s *store) Ranges() []Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Range(nil), s.ranges...)
}

func (s *store) PositionNormal() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positionNormal[:len(s.positionNormal):len(s.positionNormal)]
}

func (s *store) TexCoords() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.texCoords[:len(s.texCoords):len(s.texCoords)]
}

func (s *store) Indices() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indices[:len(s.indices):len(s.indices)]
}

func (s *store) VertexCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vertexCount
}

func (s *store) IndexCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexCount
}

func (s *store) VertexCapacity() int {
	return s.vertexCapacity
}

func (s *store) IndexCapacity() int {
	return s.indexCapacity
}

func (s *store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// StoreBuilderOption is a function that configures a store during construction.
type StoreBuilderOption func(*store)

// WithVertexCapacity sets the maximum number of vertices. Values below 1 are ignored.
func WithVertexCapacity(capacity int) StoreBuilderOption {
	return func(s *store) {
		if capacity > 0 {
			s.vertexCapacity = capacity
		}
	}
}

// WithIndexCapacity sets the maximum number of indices. Values below 1 are ignored.
func WithIndexCapacity(capacity int) StoreBuilderOption {
	return func(s *store) {
		if capacity > 0 {
			s.indexCapacity = capacity
		}
	}
}
