// Package config holds the file-backed engine settings: renderer, shadow, G-Buffer,
// frame pacing, command generation, window and camera sections, loaded from YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/generator"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// GeneratorMode selects where draw commands are generated.
type GeneratorMode string

const (
	// GeneratorGPU dispatches the generate_commands compute program every frame.
	GeneratorGPU GeneratorMode = "gpu"

	// GeneratorCPU generates commands on the worker pool and uploads them.
	GeneratorCPU GeneratorMode = "cpu"
)

// DefaultFenceTimeout bounds how long a frame waits for its slot to come back from the GPU.
const DefaultFenceTimeout = 2 * time.Second

// DefaultGeneratorCapacity is the default number of command slots.
const DefaultGeneratorCapacity = 4096

// Duration is a time.Duration that reads and writes as a string like "250ms" in both formats.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the full engine configuration.
type Config struct {
	Renderer  RendererConfig  `yaml:"renderer" toml:"renderer"`
	Shadow    ShadowConfig    `yaml:"shadow" toml:"shadow"`
	GBuffer   GBufferConfig   `yaml:"gbuffer" toml:"gbuffer"`
	Frame     FrameConfig     `yaml:"frame" toml:"frame"`
	Generator GeneratorConfig `yaml:"generator" toml:"generator"`
	Window    WindowConfig    `yaml:"window" toml:"window"`
	Camera    CameraConfig    `yaml:"camera" toml:"camera"`
}

// RendererConfig holds general rendering settings.
type RendererConfig struct {
	ClearColor     [4]float64 `yaml:"clear_color" toml:"clear_color"`
	Culling        bool       `yaml:"culling" toml:"culling"`
	ComputeWorkers int        `yaml:"compute_workers" toml:"compute_workers"`
	Profiling      bool       `yaml:"profiling" toml:"profiling"`

	// VSync presents on vertical blank instead of immediately.
	VSync bool `yaml:"vsync" toml:"vsync"`
	// SoftwareAdapter requests the CPU fallback adapter. Read once when the renderer starts.
	SoftwareAdapter bool `yaml:"software_adapter" toml:"software_adapter"`
}

// ShadowConfig holds the shadow map settings.
type ShadowConfig struct {
	Enabled    bool    `yaml:"enabled" toml:"enabled"`
	Resolution uint32  `yaml:"resolution" toml:"resolution"`
	Bias       float32 `yaml:"bias" toml:"bias"`
	PCF        bool    `yaml:"pcf" toml:"pcf"`
}

// GBufferConfig holds the optional G-Buffer targets.
type GBufferConfig struct {
	WorldPosition bool `yaml:"world_position" toml:"world_position"`
}

// FrameConfig holds the frame ring settings.
type FrameConfig struct {
	Slots        int      `yaml:"slots" toml:"slots"`
	FenceTimeout Duration `yaml:"fence_timeout" toml:"fence_timeout"`
}

// GeneratorConfig holds the command generation settings.
type GeneratorConfig struct {
	Mode      GeneratorMode `yaml:"mode" toml:"mode"`
	Capacity  int           `yaml:"capacity" toml:"capacity"`
	Workgroup uint32        `yaml:"workgroup" toml:"workgroup"`
	Validate  bool          `yaml:"validate" toml:"validate"`
}

// WindowConfig holds the demo window settings.
type WindowConfig struct {
	Title  string `yaml:"title" toml:"title"`
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
}

// CameraConfig holds the orbit controls of the demo camera.
type CameraConfig struct {
	OrbitSpeed      float32 `yaml:"orbit_speed" toml:"orbit_speed"`
	DragSensitivity float32 `yaml:"drag_sensitivity" toml:"drag_sensitivity"`
	InvertDrag      bool    `yaml:"invert_drag" toml:"invert_drag"`
}

// Default returns the configuration used when no file is given.
// Missing keys in a loaded file keep these values.
//
// Returns:
//   - *Config: a new default configuration
func Default() *Config {
	return &Config{
		Renderer: RendererConfig{
			ClearColor: [4]float64{0, 0, 0, 1},
			Culling:    true,
		},
		Shadow: ShadowConfig{
			Enabled:    true,
			Resolution: light.ShadowMapResolution,
			Bias:       light.DefaultShadowBias,
			PCF:        true,
		},
		Frame: FrameConfig{
			Slots:        frame.DefaultSlots,
			FenceTimeout: Duration(DefaultFenceTimeout),
		},
		Generator: GeneratorConfig{
			Mode:      GeneratorGPU,
			Capacity:  DefaultGeneratorCapacity,
			Workgroup: generator.DefaultWorkgroupSize,
		},
		Window: WindowConfig{
			Title:  "oxy deferred",
			Width:  1280,
			Height: 720,
		},
		Camera: CameraConfig{
			OrbitSpeed:      0.03,
			DragSensitivity: 0.005,
		},
	}
}

// Validate checks every section and returns all problems joined.
//
// Returns:
//   - error: nil, or an error wrapping ErrInvalid for each problem
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			bad("renderer.clear_color[%d] = %g outside [0, 1]", i, v)
		}
	}
	if c.Renderer.ComputeWorkers < 0 {
		bad("renderer.compute_workers = %d is negative", c.Renderer.ComputeWorkers)
	}

	if r := c.Shadow.Resolution; r == 0 || r&(r-1) != 0 {
		bad("shadow.resolution = %d is not a power of two", r)
	}
	if c.Shadow.Bias < 0 {
		bad("shadow.bias = %g is negative", c.Shadow.Bias)
	}

	if c.Frame.Slots < 1 {
		bad("frame.slots = %d, need at least 1", c.Frame.Slots)
	}
	if c.Frame.FenceTimeout <= 0 {
		bad("frame.fence_timeout must be positive")
	}

	switch c.Generator.Mode {
	case GeneratorGPU, GeneratorCPU:
	default:
		bad("generator.mode = %q, want %q or %q", c.Generator.Mode, GeneratorGPU, GeneratorCPU)
	}
	if c.Generator.Capacity < 1 {
		bad("generator.capacity = %d, need at least 1", c.Generator.Capacity)
	}
	if c.Generator.Workgroup < 1 || c.Generator.Workgroup > 256 {
		bad("generator.workgroup = %d outside [1, 256]", c.Generator.Workgroup)
	}

	if c.Window.Width < 1 || c.Window.Height < 1 {
		bad("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Camera.OrbitSpeed <= 0 || c.Camera.DragSensitivity <= 0 {
		bad("camera speeds must be positive")
	}
	return errors.Join(errs...)
}

// ShadowSettings converts the shadow section into light.ShadowSettings.
func (c *Config) ShadowSettings() light.ShadowSettings {
	return light.ShadowSettings{
		Resolution: c.Shadow.Resolution,
		Bias:       c.Shadow.Bias,
		PCF:        c.Shadow.PCF,
	}
}
