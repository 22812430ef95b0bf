package core

// Key code definitions
type KeyCode uint16

const (
	KeyUnknown   KeyCode = 0x00
	KeyBackspace KeyCode = 0x08
	KeyTab       KeyCode = 0x09
	KeyEnter     KeyCode = 0x0D
	KeyEscape    KeyCode = 0x1B
	KeySpace     KeyCode = 0x20
	KeyLeft      KeyCode = 0x25
	KeyUp        KeyCode = 0x26
	KeyRight     KeyCode = 0x27
	KeyDown      KeyCode = 0x28
)

// Letters match their upper case ASCII code.
const (
	KeyA KeyCode = 0x41 + iota
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
)

const KeysMaxKeys = 256

// Keyboard state structure
type KeyboardState struct {
	Keys [KeysMaxKeys]bool
}

// Input holds the current and previous keyboard state. Key changes are fired on the bus.
type Input struct {
	bus      *EventBus
	current  KeyboardState
	previous KeyboardState
}

func NewInput(bus *EventBus) *Input {
	return &Input{bus: bus}
}

// Update copies the current state to the previous one. Call it once per tick, after every
// input of the tick was processed.
func (in *Input) Update() {
	in.previous = in.current
}

func (in *Input) IsKeyDown(key KeyCode) bool {
	return in.current.Keys[key%KeysMaxKeys]
}

func (in *Input) IsKeyUp(key KeyCode) bool {
	return !in.IsKeyDown(key)
}

func (in *Input) WasKeyDown(key KeyCode) bool {
	return in.previous.Keys[key%KeysMaxKeys]
}

// ProcessKey records a key transition. Repeats of the same state are ignored.
func (in *Input) ProcessKey(key KeyCode, pressed bool) {
	if key == KeyUnknown || key >= KeysMaxKeys {
		return
	}
	if in.current.Keys[key] == pressed {
		return
	}
	in.current.Keys[key] = pressed

	code := EventCodeKeyReleased
	if pressed {
		code = EventCodeKeyPressed
	}
	// Fire off an event for immediate processing.
	in.bus.Fire(EventContext{Code: code, Sender: in, Data: KeyEvent{KeyCode: key}})
}
