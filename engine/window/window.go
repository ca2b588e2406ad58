// Package window provides the platform window that hosts the renderer's WebGPU surface.
package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoPlatformWindow is returned by Close when the platform window was never created or is already gone.
var ErrNoPlatformWindow = errors.New("window: no platform window")

// Window is a desktop window with a WebGPU surface. Sizes are framebuffer pixels, which is what the
// swap chain and the G-Buffer targets are allocated in; on high-DPI displays they exceed the window size.
//
// Callbacks run on the thread that pumps ProcessMessages.
type Window interface {
	// SetUpdateCallback sets the function called once per pumped batch of platform events.
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer size changes.
	// A minimized window reports 0x0.
	SetResizeCallback(callback func(width, height int))

	SetScrollCallback(callback func(delta float32))

	// SetKeyCallback sets the function called on key transitions. Held keys repeat as presses.
	SetKeyCallback(callback func(key Key, pressed bool))

	// SetDragCallback sets the function called while the cursor moves with the primary button held.
	//
	// Parameters:
	//   - callback: receives the cursor movement since the last call, in framebuffer pixels
	SetDragCallback(callback func(dx, dy float32))

	SetTitle(title string)

	// SurfaceDescriptor returns the descriptor the renderer creates its surface from, or nil without a platform window.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open and no close was requested.
	IsRunning() bool

	// RequestClose asks the window to close. ProcessMessages returns on its next iteration.
	// Safe to call from any goroutine.
	RequestClose()

	// Close destroys the window. It must run on the thread that created the window.
	Close() error

	// ProcessMessages pumps platform events until the window stops running. It must run on the
	// thread that created the window.
	ProcessMessages()

	Width() int
	Height() int
}

// platform is the windowing library behind an engineWindow.
type platform interface {
	surfaceDescriptor() *wgpu.SurfaceDescriptor
	setTitle(title string)
	running() bool
	requestClose()
	// poll drains pending events and reports whether the window is still running.
	poll() bool
	destroy()
}

// sizeLimits bound user resizing. A zero maximum leaves that axis unbounded.
type sizeLimits struct {
	minWidth, minHeight int
	maxWidth, maxHeight int
}

type callbacks struct {
	update func()
	resize func(width, height int)
	scroll func(delta float32)
	key    func(key Key, pressed bool)
	drag   func(dx, dy float32)
}

type engineWindow struct {
	title         string
	width, height int
	limits        sizeLimits
	closeOnEscape bool

	plat platform
	on   callbacks
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window. It locks the calling goroutine to its OS thread, which
// must then also call ProcessMessages and Close.
//
// Parameters:
//   - options: variadic list of WindowBuilderOption functions to configure the window
//
// Returns:
//   - Window: the created window
//   - error: the windowing library failed to start or to open the window
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	defaults := config.Default().Window
	w := &engineWindow{
		title:         defaults.Title,
		width:         defaults.Width,
		height:        defaults.Height,
		limits:        sizeLimits{minWidth: 320, minHeight: 240},
		closeOnEscape: true,
	}
	for _, opt := range options {
		opt(w)
	}
	plat, err := newGLFWPlatform(w)
	if err != nil {
		return nil, fmt.Errorf("window %q: %w", w.title, err)
	}
	w.plat = plat
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.on.update = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.on.resize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.on.scroll = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key Key, pressed bool)) {
	w.on.key = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.on.drag = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	if w.plat != nil {
		w.plat.setTitle(title)
	}
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.plat == nil {
		return nil
	}
	return w.plat.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.plat != nil && w.plat.running()
}

func (w *engineWindow) RequestClose() {
	if w.plat != nil {
		w.plat.requestClose()
	}
}

func (w *engineWindow) Close() error {
	if w.plat == nil {
		return ErrNoPlatformWindow
	}
	w.plat.destroy()
	w.plat = nil
	return nil
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() && w.plat.poll() {
		if w.on.update != nil {
			w.on.update()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// key dispatches a key transition, handling the close shortcut first.
func (w *engineWindow) key(k Key, pressed bool) {
	if k == KeyEscape && pressed && w.closeOnEscape {
		w.RequestClose()
		return
	}
	if k != KeyUnknown && w.on.key != nil {
		w.on.key(k, pressed)
	}
}

func (w *engineWindow) scroll(delta float32) {
	if w.on.scroll != nil {
		w.on.scroll(delta)
	}
}

func (w *engineWindow) drag(dx, dy float32) {
	if w.on.drag != nil {
		w.on.drag(dx, dy)
	}
}

// resize records the new framebuffer size and forwards it.
func (w *engineWindow) resize(width, height int) {
	w.width, w.height = width, height
	if w.on.resize != nil {
		w.on.resize(width, height)
	}
}
