package frostvale

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

type Key int

const (
	KeyA Key = iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeySpace
	KeyEnter
	KeyEscape
	KeyTab
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyMinus
	KeyEqual
	KeyShift
	KeyControl
	KeyLeftAlt
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle
	keyCount
)

var keyToGlfw = map[Key]glfw.Key{
	KeySpace:   glfw.KeySpace,
	KeyEnter:   glfw.KeyEnter,
	KeyEscape:  glfw.KeyEscape,
	KeyTab:     glfw.KeyTab,
	KeyRight:   glfw.KeyRight,
	KeyLeft:    glfw.KeyLeft,
	KeyDown:    glfw.KeyDown,
	KeyUp:      glfw.KeyUp,
	KeyMinus:   glfw.KeyMinus,
	KeyEqual:   glfw.KeyEqual,
	KeyShift:   glfw.KeyLeftShift,
	KeyControl: glfw.KeyLeftControl,
	KeyLeftAlt: glfw.KeyLeftAlt,
}

// GLFW keeps letters and digits contiguous, so those rows are generated.
func init() {
	for i := 0; i < 26; i++ {
		keyToGlfw[KeyA+Key(i)] = glfw.KeyA + glfw.Key(i)
	}
	for i := 0; i < 10; i++ {
		keyToGlfw[Key0+Key(i)] = glfw.Key0 + glfw.Key(i)
	}
}

// Input is the per-frame input snapshot. The polling system fills it from
// GLFW; headless setups write the fields directly.
type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	ScrollY                  float64

	WindowWidth, WindowHeight int

	mouseSeen bool
}

// InputModule provides the Input resource and, unless Headless, the GLFW
// polling system. Requires WindowModule first when polling.
type InputModule struct {
	Headless bool
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{})
	if mod.Headless {
		return
	}
	app.UseSystem(
		System(inputSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

func inputSystem(s *WindowState, input *Input) {
	glfw.PollEvents()

	for key, glfwKey := range keyToGlfw {
		applyKeyAction(input, key, s.windowGlfw.GetKey(glfwKey))
	}
	applyKeyAction(input, MouseButtonLeft, s.windowGlfw.GetMouseButton(glfw.MouseButtonLeft))
	applyKeyAction(input, MouseButtonRight, s.windowGlfw.GetMouseButton(glfw.MouseButtonRight))
	applyKeyAction(input, MouseButtonMiddle, s.windowGlfw.GetMouseButton(glfw.MouseButtonMiddle))

	mx, my := s.windowGlfw.GetCursorPos()
	if input.mouseSeen {
		input.MouseDeltaX = mx - input.MouseX
		input.MouseDeltaY = my - input.MouseY
	}
	input.MouseX = mx
	input.MouseY = my
	input.mouseSeen = true

	input.ScrollY = s.takeScroll()
	input.WindowWidth, input.WindowHeight = s.WindowWidth, s.WindowHeight
}

// applyKeyAction does press/release edge detection for one key or button.
func applyKeyAction(input *Input, key Key, action glfw.Action) {
	input.JustPressed[key] = false
	input.JustReleased[key] = false

	if action == glfw.Press {
		if !input.Pressed[key] {
			input.JustPressed[key] = true
		}
		input.Pressed[key] = true
	} else if action == glfw.Release {
		if input.Pressed[key] {
			input.JustReleased[key] = true
		}
		input.Pressed[key] = false
	}
}
