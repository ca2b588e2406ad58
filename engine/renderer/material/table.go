package material

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
)

var (
	// ErrTableFull is returned when an Append would exceed the record or texture layer capacity.
	ErrTableFull = errors.New("material: table full")

	// ErrNotResident is returned when a material is looked up by a frame that began before it was committed.
	ErrNotResident = errors.New("material: not resident")

	// ErrOutOfRange is returned for an index that was never appended.
	ErrOutOfRange = errors.New("material: index out of range")

	// ErrTextureSize is returned when a texture does not match the table's layer size.
	ErrTextureSize = errors.New("material: texture does not match layer size")
)

// Index addresses a material in the table. It is the value stored in MeshDescriptor.MaterialIndex.
type Index uint32

// pendingFrame marks an entry that has been appended but not yet committed.
const pendingFrame = ^uint64(0)

// entry is one appended material, with the frame after which it is resident.
type entry struct {
	name          string
	record        layout.MaterialRecord
	residentAfter uint64
}

// table is the implementation of Table.
type table struct {
	mu *sync.RWMutex

	capacity      int
	layerCapacity int
	layerWidth    uint32
	layerHeight   uint32

	entries []entry
	layers  []common.TextureStagingData
}

// Table is the bindless material table: a flat, append-only array of MaterialRecord
// addressed by Index, plus the texture array layers the records point into.
//
// Residency: an appended material is pending until Commit. Commit(f) is called between frames
// after frame f, and makes every pending material resident for frames after f. An index is only
// valid for frames that begin after its material became resident.
type Table interface {
	// Append adds a material, copying its textures into new layers.
	//
	// Parameters:
	//   - m: the material to add
	//
	// Returns:
	//   - Index: the index of the new record
	//   - error: ErrTableFull past capacity, ErrTextureSize for a texture of the wrong size
	Append(m Material) (Index, error)

	// Lookup returns the record at index as seen by frame.
	//
	// Parameters:
	//   - index: the material index
	//   - frame: the frame reading the table
	//
	// Returns:
	//   - layout.MaterialRecord: the record
	//   - error: ErrOutOfRange for an unknown index, ErrNotResident if the material is not resident for frame
	Lookup(index Index, frame uint64) (layout.MaterialRecord, error)

	// Commit makes every pending material resident for frames after frame.
	//
	// Returns:
	//   - int: the number of materials committed
	Commit(frame uint64) int

	// Resident reports how many leading records are resident for frame.
	// Records are committed in append order, so residency is always a prefix of the table.
	Resident(frame uint64) int

	// Records returns a copy of every record in index order, pending ones included.
	Records() []layout.MaterialRecord

	// Layers returns the texture layers in layer order. Layer i backs texture index i of the records.
	Layers() []common.TextureStagingData

	// IndexOf returns the index of the first material appended under name.
	IndexOf(name string) (Index, bool)

	// Len returns the number of appended materials.
	Len() int

	// Capacity returns the maximum number of materials.
	Capacity() int

	// LayerCapacity returns the maximum number of texture layers.
	LayerCapacity() int

	// LayerSize returns the width and height every texture layer must have.
	LayerSize() (uint32, uint32)
}

var _ Table = &table{}

// NewTable creates an empty material table.
//
// Parameters:
//   - options: builder options for capacity and layer size
//
// Returns:
//   - Table: the table
func NewTable(options ...TableBuilderOption) Table {
	t := &table{
		mu:            &sync.RWMutex{},
		capacity:      DefaultCapacity,
		layerCapacity: DefaultLayerCapacity,
		layerWidth:    DefaultLayerSize,
		layerHeight:   DefaultLayerSize,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *table) Append(m Material) (Index, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) >= t.capacity {
		return 0, fmt.Errorf("%w: %d of %d materials", ErrTableFull, len(t.entries), t.capacity)
	}

	textures := []*common.TextureStagingData{m.BaseColorTexture(), m.SpecularTexture()}
	needed := 0
	for _, tex := range textures {
		if tex == nil {
			continue
		}
		if err := t.checkTexture(tex); err != nil {
			return 0, fmt.Errorf("material %q: %w", m.Name(), err)
		}
		needed++
	}
	if len(t.layers)+needed > t.layerCapacity {
		return 0, fmt.Errorf("%w: %d of %d texture layers", ErrTableFull, len(t.layers)+needed, t.layerCapacity)
	}

	record := layout.MaterialRecord{
		BaseColor:      m.BaseColor(),
		SpecularColor:  m.SpecularColor(),
		BaseColorLayer: t.addLayer(m.BaseColorTexture()),
		SpecularLayer:  t.addLayer(m.SpecularTexture()),
		Shininess:      m.Shininess(),
	}
	t.entries = append(t.entries, entry{name: m.Name(), record: record, residentAfter: pendingFrame})
	return Index(len(t.entries) - 1), nil
}

func (t *table) Lookup(index Index, frame uint64) (layout.MaterialRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(index) >= len(t.entries) {
		return layout.MaterialRecord{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, len(t.entries))
	}
	e := t.entries[index]
	if e.residentAfter == pendingFrame || frame <= e.residentAfter {
		return layout.MaterialRecord{}, fmt.Errorf("%w: material %d for frame %d", ErrNotResident, index, frame)
	}
	return e.record, nil
}

func (t *table) Commit(frame uint64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	committed := 0
	for i := len(t.entries) - 1; i >= 0 && t.entries[i].residentAfter == pendingFrame; i-- {
		t.entries[i].residentAfter = frame
		committed++
	}
	return committed
}

func (t *table) Resident(frame uint64) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, e := range t.entries {
		if e.residentAfter == pendingFrame || frame <= e.residentAfter {
			break
		}
		n++
	}
	return n
}

func (t *table) Records() []layout.MaterialRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]layout.MaterialRecord, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.record
	}
	return out
}

func (t *table) Layers() []common.TextureStagingData {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.layers[:len(t.layers):len(t.layers)]
}

func (t *table) IndexOf(name string) (Index, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.name == name {
			return Index(i), true
		}
	}
	return 0, false
}

func (t *table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *table) Capacity() int {
	return t.capacity
}

func (t *table) LayerCapacity() int {
	return t.layerCapacity
}

func (t *table) LayerSize() (uint32, uint32) {
	return t.layerWidth, t.layerHeight
}

func (t *table) checkTexture(tex *common.TextureStagingData) error {
	if tex.Width != t.layerWidth || tex.Height != t.layerHeight || max(tex.Layers, 1) != 1 {
		return fmt.Errorf("%w: got %dx%dx%d, want %dx%dx1", ErrTextureSize, tex.Width, tex.Height, max(tex.Layers, 1), t.layerWidth, t.layerHeight)
	}
	if want := int(t.layerWidth * t.layerHeight * 4); len(tex.Pixels) != want {
		return fmt.Errorf("%w: %d bytes of pixels, want %d", ErrTextureSize, len(tex.Pixels), want)
	}
	return nil
}

// addLayer copies tex into a new layer and returns its index, or layout.NoTexture for nil.
func (t *table) addLayer(tex *common.TextureStagingData) int32 {
	if tex == nil {
		return layout.NoTexture
	}
	layer := *tex
	layer.Pixels = append([]byte(nil), tex.Pixels...)
	layer.Layers = 1
	t.layers = append(t.layers, layer)
	return int32(len(t.layers) - 1)
}
