package material

const (
	// DefaultCapacity is the number of material records a table holds by default.
	DefaultCapacity = 256

	// DefaultLayerCapacity is the number of texture layers a table holds by default.
	DefaultLayerCapacity = 16

	// DefaultLayerSize is the default width and height of a texture layer.
	DefaultLayerSize = 256
)

// TableBuilderOption is a function that configures a table during construction.
type TableBuilderOption func(*table)

// WithCapacity sets the maximum number of material records. Values below 1 are ignored.
//
// Parameters:
//   - capacity: the record capacity, which sizes the GPU material buffer
//
// Returns:
//   - TableBuilderOption: a function that applies the capacity option to a table
func WithCapacity(capacity int) TableBuilderOption {
	return func(t *table) {
		if capacity > 0 {
			t.capacity = capacity
		}
	}
}

// WithLayerCapacity sets the maximum number of texture layers. Values below 1 are ignored.
//
// Parameters:
//   - layers: the layer capacity, which sizes the GPU texture array
//
// Returns:
//   - TableBuilderOption: a function that applies the layer capacity option to a table
func WithLayerCapacity(layers int) TableBuilderOption {
	return func(t *table) {
		if layers > 0 {
			t.layerCapacity = layers
		}
	}
}

// WithLayerSize sets the size every texture layer must have.
func WithLayerSize(width, height uint32) TableBuilderOption {
	return func(t *table) {
		if width > 0 && height > 0 {
			t.layerWidth, t.layerHeight = width, height
		}
	}
}
