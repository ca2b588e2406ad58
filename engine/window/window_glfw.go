package window

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var glfwKeys = map[glfw.Key]Key{
	glfw.KeyEscape: KeyEscape,
	glfw.KeySpace:  KeySpace,
	glfw.KeyLeft:   KeyLeft,
	glfw.KeyRight:  KeyRight,
	glfw.KeyUp:     KeyUp,
	glfw.KeyDown:   KeyDown,
	glfw.KeyW:      KeyW,
	glfw.KeyA:      KeyA,
	glfw.KeyS:      KeyS,
	glfw.KeyD:      KeyD,
	glfw.KeyC:      KeyC,
	glfw.KeyL:      KeyL,
	glfw.KeyP:      KeyP,
	glfw.KeyR:      KeyR,
}

// glfwPlatform drives one GLFW window. Everything except requestClose must run on the locked thread.
type glfwPlatform struct {
	win *glfw.Window

	closeRequested atomic.Bool

	dragging     bool
	lastX, lastY float64
	scaleX       float32
	scaleY       float32
}

var _ platform = &glfwPlatform{}

// dontCare maps an unbounded (zero) limit to GLFW's sentinel.
func dontCare(v int) int {
	if v <= 0 {
		return glfw.DontCare
	}
	return v
}

// newGLFWPlatform opens the GLFW window for w and routes its input into w.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newGLFWPlatform(w *engineWindow) (*glfwPlatform, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init GLFW: %w", err)
	}
	// WebGPU owns the swap chain, so no OpenGL context is created.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create GLFW window: %w", err)
	}
	l := w.limits
	win.SetSizeLimits(l.minWidth, l.minHeight, dontCare(l.maxWidth), dontCare(l.maxHeight))

	p := &glfwPlatform{win: win}
	p.scaleX, p.scaleY = win.GetContentScale()
	p.route(w)

	// The surface and the G-Buffer are sized in framebuffer pixels, not screen coordinates.
	w.width, w.height = win.GetFramebufferSize()
	return p, nil
}

func (p *glfwPlatform) route(w *engineWindow) {
	p.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Release {
			w.key(glfwKeys[key], false)
			return
		}
		w.key(glfwKeys[key], true)
	})
	p.win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.scroll(float32(yoff))
	})
	p.win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft {
			p.dragging = action == glfw.Press
			p.lastX, p.lastY = p.win.GetCursorPos()
		}
	})
	p.win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if !p.dragging {
			return
		}
		dx, dy := float32(x-p.lastX)*p.scaleX, float32(y-p.lastY)*p.scaleY
		p.lastX, p.lastY = x, y
		w.drag(dx, dy)
	})
	p.win.SetContentScaleCallback(func(_ *glfw.Window, x, y float32) {
		p.scaleX, p.scaleY = x, y
	})
	p.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resize(width, height)
	})
}

func (p *glfwPlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(p.win)
}

func (p *glfwPlatform) setTitle(title string) {
	p.win.SetTitle(title)
}

func (p *glfwPlatform) running() bool {
	return !p.closeRequested.Load() && !p.win.ShouldClose()
}

// requestClose flags the window and wakes the event loop so it notices.
func (p *glfwPlatform) requestClose() {
	p.closeRequested.Store(true)
	glfw.PostEmptyEvent()
}

func (p *glfwPlatform) poll() bool {
	glfw.PollEvents()
	return p.running()
}

func (p *glfwPlatform) destroy() {
	p.closeRequested.Store(true)
	p.win.Destroy()
	glfw.Terminate()
}
