package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// ErrInvalidWGSL is returned when a processed shader fails offline compilation.
var ErrInvalidWGSL = errors.New("shader: invalid WGSL")

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// CompileSPIRV compiles processed WGSL to SPIR-V words offline.
// The renderer still hands WGSL to the device; the SPIR-V is only used to reject broken
// programs before pipeline creation, with a readable error instead of a device validation failure.
//
// Parameters:
//   - source: plain WGSL, placeholders and annotations already processed
//
// Returns:
//   - []uint32: little-endian SPIR-V words
//   - error: ErrInvalidWGSL wrapping the compiler error
func CompileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V output is %d bytes", ErrInvalidWGSL, len(spirvBytes))
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: bad SPIR-V magic 0x%08X", ErrInvalidWGSL, words[0])
	}
	return words, nil
}

// Validate reports whether source compiles.
func Validate(source string) error {
	_, err := CompileSPIRV(source)
	return err
}
