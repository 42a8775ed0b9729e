package frostvale

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowState owns the single GLFW window. Callbacks write into it on the
// main thread during PollEvents; systems drain the accumulated values once
// per frame.
type WindowState struct {
	windowGlfw   *glfw.Window
	WindowWidth  int
	WindowHeight int
	windowTitle  string

	scrollY       float64
	resized       bool
	resizedWidth  int
	resizedHeight int
}

// takeScroll drains the wheel movement accumulated since the last call.
func (s *WindowState) takeScroll() float64 {
	v := s.scrollY
	s.scrollY = 0
	return v
}

// takeResize drains a pending framebuffer resize, if any.
func (s *WindowState) takeResize() (int, int, bool) {
	if !s.resized {
		return 0, 0, false
	}
	s.resized = false
	return s.resizedWidth, s.resizedHeight, true
}

func createWindowState(windowWidth, windowHeight int, windowTitle string) *WindowState {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	// No OpenGL context: the surface goes straight to wgpu.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		panic(err)
	}

	s := &WindowState{
		windowGlfw:   win,
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
		windowTitle:  windowTitle,
	}

	win.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		s.scrollY += yoff
	})
	win.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if width > 0 && height > 0 {
			s.WindowWidth = width
			s.WindowHeight = height
			s.resizedWidth = width
			s.resizedHeight = height
			s.resized = true
		}
	})

	return s
}

// WindowModule provides the shared WindowState resource. Idempotent: an
// existing WindowState (created by another module or by user code) is kept.
// When CloseState is set, closing the window requests that state.
type WindowModule struct {
	Width      int
	Height     int
	Title      string
	CloseState State
}

func (m WindowModule) Install(app *App, cmd *Commands) {
	if m.Width <= 0 {
		m.Width = 1280
	}
	if m.Height <= 0 {
		m.Height = 720
	}
	if m.Title == "" {
		m.Title = "Frostvale"
	}

	if resourceOf[WindowState](app) == nil {
		cmd.AddResources(createWindowState(m.Width, m.Height, m.Title))
	}

	closeState := m.CloseState
	app.UseSystem(
		System(func(s *WindowState, cmd *Commands) {
			if s.windowGlfw.ShouldClose() {
				cmd.ChangeState(closeState)
			}
		}).InStage(Finale).RunAlways(),
	)
}
