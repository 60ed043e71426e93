package app

import (
	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

// Notice is a notification delivered to the application's listener.
// The set of implementations is closed: FatalNotice, ActionNotice,
// KeyNotice, TickNotice, UserNotice, ResizeNotice and DecodeNotice.
// Notices are delivered from the loop goroutine; the listener must not
// block.
type Notice interface{ notice() }

// FatalNotice reports a structural misuse that aborted a commit. The
// previously committed frame stays on screen.
type FatalNotice struct {
	Err *widget.FatalError
}

// ActionNotice carries an application action emitted through Emit.
type ActionNotice struct {
	Action string
}

// KeyNotice carries a key event that nothing in the tree or the focus
// router consumed.
type KeyNotice struct {
	Event wire.KeyEvent
}

// TickNotice carries an engine tick.
type TickNotice struct {
	TimeMs uint32
}

// UserNotice carries a user event posted through the engine.
type UserNotice struct {
	Tag     uint32
	Payload []byte
}

// ResizeNotice reports a viewport change, after relayout.
type ResizeNotice struct {
	Cols, Rows int
}

// DecodeNotice reports an event batch that failed to decode. The batch
// is dropped; the runtime keeps running.
type DecodeNotice struct {
	Err *wire.DecodeError
}

func (FatalNotice) notice()  {}
func (ActionNotice) notice() {}
func (KeyNotice) notice()    {}
func (TickNotice) notice()   {}
func (UserNotice) notice()   {}
func (ResizeNotice) notice() {}
func (DecodeNotice) notice() {}
