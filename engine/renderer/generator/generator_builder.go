package generator

import "github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"

// GeneratorBuilderOption is a functional option used to configure a Generator during construction.
type GeneratorBuilderOption func(*generator)

// WithPipelineKey sets the key of the compute pipeline the generator dispatches.
//
// Parameters:
//   - key: the pipeline key
//
// Returns:
//   - GeneratorBuilderOption: a function that sets the pipeline key
func WithPipelineKey(key string) GeneratorBuilderOption {
	return func(g *generator) {
		g.pipelineKey = key
	}
}

// WithWorkgroupSize sets the workgroup width used to compute dispatch sizes.
// It must match the compute program's @workgroup_size; values below 1 are ignored.
//
// Parameters:
//   - size: threads per workgroup
//
// Returns:
//   - GeneratorBuilderOption: a function that sets the workgroup size
func WithWorkgroupSize(size uint32) GeneratorBuilderOption {
	return func(g *generator) {
		if size > 0 {
			g.workgroupSize = size
		}
	}
}

// WithBindGroupProvider sets the provider owning the generator buffers.
//
// Parameters:
//   - provider: the provider to use instead of a fresh one
//
// Returns:
//   - GeneratorBuilderOption: a function that sets the provider
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) GeneratorBuilderOption {
	return func(g *generator) {
		g.provider = provider
	}
}
