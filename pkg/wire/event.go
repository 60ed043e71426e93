package wire

// EventKind tags an event record.
type EventKind uint32

const (
	KindKey    EventKind = 1
	KindText   EventKind = 2
	KindMouse  EventKind = 3
	KindResize EventKind = 4
	KindTick   EventKind = 5
	KindPaste  EventKind = 6
	KindUser   EventKind = 7
)

func (k EventKind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindText:
		return "text"
	case KindMouse:
		return "mouse"
	case KindResize:
		return "resize"
	case KindTick:
		return "tick"
	case KindPaste:
		return "paste"
	case KindUser:
		return "user"
	}
	return "unknown"
}

// KeyCode identifies a key. Printable keys use their Unicode codepoint;
// functional keys live in the private range from 0xE000.
type KeyCode uint32

const (
	KeyUp KeyCode = 0xE000 + iota
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyEnter
	KeyTab
	KeyBackspace
	KeyEscape
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
)

// Mod is a bitmask of key modifiers.
type Mod uint32

const (
	Shift Mod = 1 << iota
	Alt
	Ctrl
)

// KeyAction distinguishes press, repeat and release.
type KeyAction uint32

const (
	KeyPress KeyAction = iota
	KeyRepeat
	KeyRelease
)

// MouseAction distinguishes mouse record subtypes.
type MouseAction uint32

const (
	MouseDown MouseAction = iota
	MouseUp
	MouseMove
	MouseWheel
)

// Event is a decoded input event. The set of implementations is closed:
// KeyEvent, TextEvent, MouseEvent, ResizeEvent, TickEvent, PasteEvent
// and UserEvent.
type Event interface {
	// When returns the event timestamp in engine milliseconds.
	When() uint32
	event()
}

// KeyEvent is a key press, repeat or release.
type KeyEvent struct {
	Time   uint32
	Code   KeyCode
	Mods   Mod
	Action KeyAction
}

// TextEvent is a typed character.
type TextEvent struct {
	Time uint32
	Rune rune
}

// MouseEvent is a pointer action in cell coordinates.
type MouseEvent struct {
	Time    uint32
	X, Y    int32
	Buttons uint32
	Action  MouseAction
	Mods    Mod
}

// ResizeEvent reports the new viewport size.
type ResizeEvent struct {
	Time uint32
	Cols uint32
	Rows uint32
}

// TickEvent is a frame-pacing tick.
type TickEvent struct {
	Time uint32
}

// PasteEvent is a bracketed paste payload.
type PasteEvent struct {
	Time uint32
	Data []byte
}

// UserEvent is an application-defined event posted through the engine.
type UserEvent struct {
	Time    uint32
	Tag     uint32
	Payload []byte
}

func (e KeyEvent) When() uint32    { return e.Time }
func (e TextEvent) When() uint32   { return e.Time }
func (e MouseEvent) When() uint32  { return e.Time }
func (e ResizeEvent) When() uint32 { return e.Time }
func (e TickEvent) When() uint32   { return e.Time }
func (e PasteEvent) When() uint32  { return e.Time }
func (e UserEvent) When() uint32   { return e.Time }

func (KeyEvent) event()    {}
func (TextEvent) event()   {}
func (MouseEvent) event()  {}
func (ResizeEvent) event() {}
func (TickEvent) event()   {}
func (PasteEvent) event()  {}
func (UserEvent) event()   {}
