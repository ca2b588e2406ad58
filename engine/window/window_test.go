package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithConfig(t *testing.T) {
	w := &engineWindow{title: "x", width: 1, height: 1}
	WithConfig(config.WindowConfig{Title: "demo", Width: 800, Height: 600})(w)
	assert.Equal(t, "demo", w.title)
	assert.Equal(t, 800, w.width)
	assert.Equal(t, 600, w.height)

	WithConfig(config.WindowConfig{})(w)
	assert.Equal(t, "demo", w.title, "empty fields keep the current values")
	assert.Equal(t, 800, w.width)
}

func TestKeyDispatch(t *testing.T) {
	var got []Key
	w := &engineWindow{closeOnEscape: true}
	w.SetKeyCallback(func(k Key, pressed bool) {
		if pressed {
			got = append(got, k)
		}
	})

	w.key(KeyL, true)
	w.key(KeyL, false)
	w.key(KeyUnknown, true)
	w.key(KeyEscape, true)
	assert.Equal(t, []Key{KeyL}, got, "escape closes instead of dispatching")

	w.closeOnEscape = false
	w.key(KeyEscape, true)
	assert.Equal(t, []Key{KeyL, KeyEscape}, got)
}

func TestResizeForwardsFramebufferSize(t *testing.T) {
	w := &engineWindow{}
	var size [2]int
	w.SetResizeCallback(func(width, height int) { size = [2]int{width, height} })
	w.resize(2560, 1440)
	assert.Equal(t, [2]int{2560, 1440}, size)
	assert.Equal(t, 2560, w.Width())
	assert.Equal(t, 1440, w.Height())
}

func TestWindowWithoutPlatformIsStopped(t *testing.T) {
	w := &engineWindow{}
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.ErrorIs(t, w.Close(), ErrNoPlatformWindow)
	w.RequestClose()
	w.ProcessMessages()
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "Left", KeyLeft.String())
	assert.Equal(t, "Unknown", Key(999).String())
}

// fakePlatform runs for a fixed number of polls.
type fakePlatform struct {
	polls     int
	closed    bool
	destroyed bool
	title     string
}

func (f *fakePlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return &wgpu.SurfaceDescriptor{}
}

func (f *fakePlatform) setTitle(title string) {
	f.title = title
}

func (f *fakePlatform) running() bool {
	return !f.closed && f.polls > 0
}

func (f *fakePlatform) requestClose() {
	f.closed = true
}

func (f *fakePlatform) destroy() {
	f.destroyed = true
}

func (f *fakePlatform) poll() bool {
	f.polls--
	return f.running()
}

func TestProcessMessagesPumpsUntilStopped(t *testing.T) {
	plat := &fakePlatform{polls: 4}
	w := &engineWindow{plat: plat}
	updates := 0
	w.SetUpdateCallback(func() { updates++ })
	w.ProcessMessages()
	assert.Equal(t, 3, updates)

	w.SetTitle("paused")
	assert.Equal(t, "paused", plat.title)
	assert.NotNil(t, w.SurfaceDescriptor())

	require.NoError(t, w.Close())
	assert.True(t, plat.destroyed)
	assert.False(t, w.IsRunning())
}

func TestEscapeRequestsClose(t *testing.T) {
	plat := &fakePlatform{polls: 10}
	w := &engineWindow{plat: plat, closeOnEscape: true}
	w.key(KeyEscape, true)
	assert.True(t, plat.closed)
	assert.False(t, w.IsRunning())
}

func TestSizeLimitsOption(t *testing.T) {
	w := &engineWindow{}
	WithSizeLimits(640, 480, 0, 1080)(w)
	assert.Equal(t, sizeLimits{minWidth: 640, minHeight: 480, maxHeight: 1080}, w.limits)
}
