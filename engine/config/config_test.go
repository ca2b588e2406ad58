package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, GeneratorGPU, c.Generator.Mode)
	assert.Equal(t, uint32(2048), c.Shadow.Resolution)
	assert.Equal(t, 3, c.Frame.Slots)
	assert.Equal(t, Duration(2*time.Second), c.Frame.FenceTimeout)
}

func TestParseYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	data := []byte(`
shadow:
  resolution: 1024
  pcf: false
frame:
  fence_timeout: 250ms
generator:
  mode: cpu
gbuffer:
  world_position: true
`)
	c, err := Parse(data, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), c.Shadow.Resolution)
	assert.False(t, c.Shadow.PCF)
	assert.Equal(t, Duration(250*time.Millisecond), c.Frame.FenceTimeout)
	assert.Equal(t, GeneratorCPU, c.Generator.Mode)
	assert.True(t, c.GBuffer.WorldPosition)

	assert.Equal(t, Default().Shadow.Bias, c.Shadow.Bias)
	assert.Equal(t, Default().Window, c.Window)
}

func TestParsePresentationKeys(t *testing.T) {
	assert.False(t, Default().Renderer.VSync)
	assert.False(t, Default().Renderer.SoftwareAdapter)

	c, err := Parse([]byte("renderer:\n  vsync: true\n  software_adapter: true\n"), FormatYAML)
	require.NoError(t, err)
	assert.True(t, c.Renderer.VSync)
	assert.True(t, c.Renderer.SoftwareAdapter)
	assert.True(t, c.Renderer.Culling, "unset keys keep their defaults")

	c, err = Parse([]byte("[renderer]\nvsync = true\n"), FormatTOML)
	require.NoError(t, err)
	assert.True(t, c.Renderer.VSync)
	assert.False(t, c.Renderer.SoftwareAdapter)
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
[renderer]
clear_color = [0.1, 0.2, 0.3, 1.0]
culling = false

[frame]
slots = 2
fence_timeout = "1s"

[window]
title = "shadows"

[camera]
invert_drag = true
`)
	c, err := Parse(data, FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.3, 1.0}, c.Renderer.ClearColor)
	assert.False(t, c.Renderer.Culling)
	assert.Equal(t, 2, c.Frame.Slots)
	assert.Equal(t, Duration(time.Second), c.Frame.FenceTimeout)
	assert.Equal(t, "shadows", c.Window.Title)
	assert.True(t, c.Camera.InvertDrag)
	assert.Equal(t, Default().Camera.OrbitSpeed, c.Camera.OrbitSpeed)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"mode", func(c *Config) { c.Generator.Mode = "fpga" }},
		{"resolution", func(c *Config) { c.Shadow.Resolution = 1000 }},
		{"zero resolution", func(c *Config) { c.Shadow.Resolution = 0 }},
		{"bias", func(c *Config) { c.Shadow.Bias = -1 }},
		{"slots", func(c *Config) { c.Frame.Slots = 0 }},
		{"timeout", func(c *Config) { c.Frame.FenceTimeout = 0 }},
		{"capacity", func(c *Config) { c.Generator.Capacity = 0 }},
		{"workgroup", func(c *Config) { c.Generator.Workgroup = 512 }},
		{"clear color", func(c *Config) { c.Renderer.ClearColor[2] = 2 }},
		{"window", func(c *Config) { c.Window.Height = 0 }},
		{"drag", func(c *Config) { c.Camera.DragSensitivity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}

func TestParseReportsDecodeAndValidationErrors(t *testing.T) {
	_, err := Parse([]byte("frame:\n  fence_timeout: soon\n"), FormatYAML)
	assert.Error(t, err)

	_, err = Parse([]byte("[generator]\nmode = \"quantum\"\n"), FormatTOML)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("engine.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = FormatOf("/etc/engine.toml")
	require.NoError(t, err)
	assert.Equal(t, FormatTOML, f)

	_, err = FormatOf("engine.json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSaveLoadBothFormats(t *testing.T) {
	dir := t.TempDir()
	want := Default()
	want.Generator.Mode = GeneratorCPU
	want.Frame.FenceTimeout = Duration(750 * time.Millisecond)

	for _, name := range []string{"engine.yaml", "engine.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, want.Save(path))
			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := Default()
	clone := c.Clone()
	clone.Renderer.ClearColor[0] = 0.5
	clone.Window.Title = "other"

	assert.Equal(t, float64(0), c.Renderer.ClearColor[0])
	assert.Equal(t, "oxy deferred", c.Window.Title)
}

func TestWatcherPublishesReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shadow:\n  resolution: 1024\n"), 0o644))
	initial, err := Load(path)
	require.NoError(t, err)

	w, err := Watch(path, initial)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("shadow:\n  resolution: 512\n"), 0o644))
	deadline := time.After(5 * time.Second)
	for got := false; !got; {
		select {
		case c := <-w.Updates():
			got = c.Shadow.Resolution == 512
		case <-deadline:
			t.Fatal("no reload published")
		}
	}
	assert.Equal(t, uint32(512), w.Snapshot().Shadow.Resolution)

	require.NoError(t, os.WriteFile(path, []byte("shadow:\n  resolution: 300\n"), 0o644))
	select {
	case err := <-w.Errors():
		assert.ErrorIs(t, err, ErrInvalid)
		assert.Equal(t, uint32(512), w.Snapshot().Shadow.Resolution, "a rejected file keeps the last good snapshot")
	case <-time.After(5 * time.Second):
		t.Fatal("no reload error published")
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
