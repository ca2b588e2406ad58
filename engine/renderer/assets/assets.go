// Package assets embeds the WGSL programs of the deferred pipeline.
package assets

import (
	"embed"
	"fmt"
)

//go:embed *.wgsl
var files embed.FS

const (
	// GenerateCommands is the compute program that fills the indirect command buffers.
	GenerateCommands = "generate_commands.wgsl"
	// Shadow is the depth-only pass rendered from the light.
	Shadow = "shadow.wgsl"
	// GBuffer is the geometry pass writing the G-Buffer targets.
	GBuffer = "gbuffer.wgsl"
	// Composite is the full-screen lighting pass.
	Composite = "composite.wgsl"
	// CompositeWorld extends Composite to read positions from the world-position target.
	CompositeWorld = "composite_world.wgsl"
)

// Source returns the annotated WGSL source of an embedded program.
//
// Parameters:
//   - name: one of the program file names above
//
// Returns:
//   - string: the source
//   - error: an error if no such program is embedded
func Source(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("assets: %w", err)
	}
	return string(data), nil
}
