package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
)

// RendererBuilderOption configures a renderer in NewRenderer.
type RendererBuilderOption func(*renderer)

// setup holds what NewRenderer needs before the backend exists. Explicit options win over the
// configuration.
type setup struct {
	presentMode   *PresentMode
	forceSoftware bool
	overrides     map[string]pipeline.Pipeline
}

func (s setup) presentModeFor(cfg *config.Config) PresentMode {
	if s.presentMode != nil {
		return *s.presentMode
	}
	return PresentModeOf(cfg)
}

func (s setup) softwareAdapter(cfg *config.Config) bool {
	return s.forceSoftware || cfg.Renderer.SoftwareAdapter
}

// WithConfig sets the configuration the renderer starts with. The renderer keeps a copy and
// NewRenderer validates it.
func WithConfig(cfg *config.Config) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg = cfg.Clone()
	}
}

// WithBackend records frames against backend instead of creating one, for headless runs and tests.
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}

// WithPipeline replaces the built-in pipeline with the same key. The replacement must keep the
// bind group layouts of the pipeline it replaces.
//
// Parameters:
//   - p: the replacement, matched by PipelineKey
//
// Returns:
//   - RendererBuilderOption: the option
func WithPipeline(p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.setup.overrides[p.PipelineKey()] = p
	}
}

// WithPresentMode fixes the present mode, ignoring renderer.vsync in the configuration and its reloads.
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.setup.presentMode = &mode
	}
}

// WithForceSoftwareRenderer asks for the CPU fallback adapter, as renderer.software_adapter does.
// A software Vulkan driver such as lavapipe or SwiftShader must be installed.
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.setup.forceSoftware = force
	}
}
