package lightwave

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// Key indexes the Input button arrays. Mouse buttons share the space.
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
	KeyBackspace
	KeyInsert
	KeyDelete
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyMinus
	KeyEqual
	KeyKPPlus
	KeyKPMinus
	KeyShift
	KeyControl
	KeyLeftAlt
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle
)

const keyCount = int(MouseButtonMiddle) + 1

type InputModule struct{}

type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	MouseCaptured            bool
	ScrollY                  float64

	WindowWidth, WindowHeight int
	CharBuffer                []rune

	scroll float64
	chars  []rune
}

// MouseDelta returns the cursor movement of the last frame while captured.
func (in *Input) MouseDelta() mgl32.Vec2 {
	return mgl32.Vec2{float32(in.MouseDeltaX), float32(in.MouseDeltaY)}
}

// setKey records the state of k for this frame.
func (in *Input) setKey(k Key, down bool) {
	in.JustPressed[k] = down && !in.Pressed[k]
	in.JustReleased[k] = !down && in.Pressed[k]
	in.Pressed[k] = down
}

// moveMouse records the cursor position. Deltas only accumulate while the
// cursor is captured.
func (in *Input) moveMouse(x, y float64) {
	if in.MouseCaptured {
		in.MouseDeltaX = x - in.MouseX
		in.MouseDeltaY = y - in.MouseY
	} else {
		in.MouseDeltaX = 0
		in.MouseDeltaY = 0
	}
	in.MouseX = x
	in.MouseY = y
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	ws := ensureWindowResource(app, 0, 0, "")
	input := &Input{}
	if w := ws.Window(); w != nil {
		w.SetCharCallback(func(_ *glfw.Window, char rune) {
			input.chars = append(input.chars, char)
		})
		w.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
			input.scroll += yoff
		})
	}
	cmd.AddResources(input)
	app.UseSystem(
		System(inputSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

var mouseToGlfw = map[Key]glfw.MouseButton{
	MouseButtonLeft:   glfw.MouseButtonLeft,
	MouseButtonRight:  glfw.MouseButtonRight,
	MouseButtonMiddle: glfw.MouseButtonMiddle,
}

func inputSystem(s *WindowState, input *Input) {
	w := s.Window()
	if w == nil {
		return
	}
	input.CharBuffer = input.CharBuffer[:0]
	input.chars = input.chars[:0]
	input.scroll = 0

	glfw.PollEvents()

	input.CharBuffer = append(input.CharBuffer, input.chars...)
	input.ScrollY = input.scroll

	for key, glfwKey := range keyToGlfw {
		input.setKey(key, w.GetKey(glfwKey) == glfw.Press)
	}
	for btn, glfwBtn := range mouseToGlfw {
		input.setKey(btn, w.GetMouseButton(glfwBtn) == glfw.Press)
	}

	input.moveMouse(w.GetCursorPos())
	input.WindowWidth, input.WindowHeight = w.GetFramebufferSize()
	s.WindowWidth, s.WindowHeight = input.WindowWidth, input.WindowHeight

	if input.MouseCaptured {
		w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

var keyToGlfw = map[Key]glfw.Key{
	KeyA:         glfw.KeyA,
	KeyB:         glfw.KeyB,
	KeyC:         glfw.KeyC,
	KeyD:         glfw.KeyD,
	KeyE:         glfw.KeyE,
	KeyF:         glfw.KeyF,
	KeyG:         glfw.KeyG,
	KeyH:         glfw.KeyH,
	KeyI:         glfw.KeyI,
	KeyJ:         glfw.KeyJ,
	KeyK:         glfw.KeyK,
	KeyL:         glfw.KeyL,
	KeyM:         glfw.KeyM,
	KeyN:         glfw.KeyN,
	KeyO:         glfw.KeyO,
	KeyP:         glfw.KeyP,
	KeyQ:         glfw.KeyQ,
	KeyR:         glfw.KeyR,
	KeyS:         glfw.KeyS,
	KeyT:         glfw.KeyT,
	KeyU:         glfw.KeyU,
	KeyV:         glfw.KeyV,
	KeyW:         glfw.KeyW,
	KeyX:         glfw.KeyX,
	KeyY:         glfw.KeyY,
	KeyZ:         glfw.KeyZ,
	Key0:         glfw.Key0,
	Key1:         glfw.Key1,
	Key2:         glfw.Key2,
	Key3:         glfw.Key3,
	Key4:         glfw.Key4,
	Key5:         glfw.Key5,
	Key6:         glfw.Key6,
	Key7:         glfw.Key7,
	Key8:         glfw.Key8,
	Key9:         glfw.Key9,
	KeySpace:     glfw.KeySpace,
	KeyEnter:     glfw.KeyEnter,
	KeyEscape:    glfw.KeyEscape,
	KeyTab:       glfw.KeyTab,
	KeyBackspace: glfw.KeyBackspace,
	KeyInsert:    glfw.KeyInsert,
	KeyDelete:    glfw.KeyDelete,
	KeyRight:     glfw.KeyRight,
	KeyLeft:      glfw.KeyLeft,
	KeyDown:      glfw.KeyDown,
	KeyUp:        glfw.KeyUp,
	KeyF1:        glfw.KeyF1,
	KeyF2:        glfw.KeyF2,
	KeyF3:        glfw.KeyF3,
	KeyF4:        glfw.KeyF4,
	KeyF5:        glfw.KeyF5,
	KeyF6:        glfw.KeyF6,
	KeyF7:        glfw.KeyF7,
	KeyF8:        glfw.KeyF8,
	KeyF9:        glfw.KeyF9,
	KeyF10:       glfw.KeyF10,
	KeyF11:       glfw.KeyF11,
	KeyF12:       glfw.KeyF12,
	KeyMinus:     glfw.KeyMinus,
	KeyEqual:     glfw.KeyEqual,
	KeyKPPlus:    glfw.KeyKPAdd,
	KeyKPMinus:   glfw.KeyKPSubtract,
	KeyShift:     glfw.KeyLeftShift,
	KeyControl:   glfw.KeyLeftControl,
	KeyLeftAlt:   glfw.KeyLeftAlt,
}
