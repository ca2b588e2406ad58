package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for a file extension that is neither YAML nor TOML.
var ErrUnknownFormat = errors.New("config: unknown format")

// Format is a configuration file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

// String returns the conventional extension of the format without the dot.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatOf picks the format from a file extension.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Format: the encoding
//   - error: ErrUnknownFormat if the extension is not .yaml, .yml or .toml
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Parse decodes data over the defaults and validates the result.
//
// Parameters:
//   - data: the encoded configuration
//   - format: the encoding of data
//
// Returns:
//   - *Config: the configuration
//   - error: a decode error or the Validate error
func Parse(data []byte, format Format) (*Config, error) {
	c := Default()
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, c)
	case FormatTOML:
		err = toml.Unmarshal(data, c)
	default:
		err = fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("config: decode %v: %w", format, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses a configuration file, choosing the format by extension.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - *Config: the configuration
//   - error: a read, format, decode or validation error
func Load(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Marshal encodes the configuration.
//
// Parameters:
//   - format: the encoding
//
// Returns:
//   - []byte: the encoded configuration
//   - error: an encode error or ErrUnknownFormat
func (c *Config) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(c)
	case FormatTOML:
		return toml.Marshal(c)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
}

// Save writes the configuration to path in the format its extension names.
func (c *Config) Save(path string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := c.Marshal(format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
