package app

import (
	"strings"
	"unicode/utf8"

	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

// handleBatch routes every event of one batch and reports whether focus
// moved (which alone only needs a render-only pass).
func (a *app) handleBatch(b *wire.Batch) bool {
	focusDirty := false
	for _, ev := range b.Events {
		if a.handleEvent(ev) {
			focusDirty = true
		}
	}
	return focusDirty
}

// handleEvent routes one event. Keyboard input goes, in order, to the
// focused instance's OnKey, to the focused input's editing, to the
// focus router, and only then to the listener.
func (a *app) handleEvent(ev wire.Event) (focusDirty bool) {
	switch e := ev.(type) {
	case wire.ResizeEvent:
		a.cols, a.rows = int(e.Cols), int(e.Rows)
		a.forced = true
		a.listener(ResizeNotice{Cols: a.cols, Rows: a.rows})
	case wire.KeyEvent:
		return a.handleKey(e)
	case wire.TextEvent:
		if in := a.focusedInstance(); in != nil && in.Node().Kind == widget.KindInput {
			a.editInsert(in.Node().Props, string(e.Rune))
		}
	case wire.MouseEvent:
		return a.handleMouse(e)
	case wire.PasteEvent:
		if in := a.focusedInstance(); in != nil && in.Node().Kind == widget.KindInput {
			a.editInsert(in.Node().Props, sanitizePaste(e.Data))
		}
	case wire.TickEvent:
		a.listener(TickNotice{TimeMs: e.Time})
	case wire.UserEvent:
		a.listener(UserNotice{Tag: e.Tag, Payload: e.Payload})
	}
	return false
}

func (a *app) handleKey(e wire.KeyEvent) (focusDirty bool) {
	in := a.focusedInstance()
	if in != nil {
		if onKey := in.Node().Props.OnKey; onKey != nil && onKey(e) {
			return false
		}
		if in.Node().Kind == widget.KindInput && e.Action != wire.KeyRelease {
			if a.editKey(in.Node().Props, e) {
				return false
			}
		}
	}
	if a.fm.HandleKey(e) {
		return true
	}
	a.listener(KeyNotice{Event: e})
	return false
}

func (a *app) handleMouse(e wire.MouseEvent) (focusDirty bool) {
	if e.Action != wire.MouseDown || a.lastLayout == nil {
		return false
	}
	in := a.lastLayout.HitTest(int(e.X), int(e.Y))
	for ; in != nil; in = in.Parent() {
		p := in.Node().Props
		if p.Focusable && !p.Disabled && p.ID != "" {
			if a.fm.Focus(p.ID) {
				focusDirty = true
			}
			if p.OnClick != nil {
				p.OnClick()
			}
			return focusDirty
		}
	}
	return false
}

// focusedInstance finds the committed instance declaring the focused
// id, first occurrence in tree order.
func (a *app) focusedInstance() *widget.Instance {
	id := a.fm.Focused()
	if id == "" {
		return nil
	}
	var found *widget.Instance
	a.tree.Root().Walk(func(in *widget.Instance) bool {
		if in.Node().Props.ID == id {
			found = in
		}
		return found == nil
	})
	return found
}

// Input editing. Inputs are controlled: edits are proposed through
// OnChange(value, cursor) and take effect only when the application
// feeds them back as props.

// currentEdit returns the value and cursor the next edit starts from:
// the committed props, or the shadow of edits already proposed since
// the last commit. Without the shadow, two keystrokes in one batch
// would both edit the stale committed value and the first would be
// lost.
func (a *app) currentEdit(p widget.Props) (string, int) {
	if a.editLive && a.editID == p.ID {
		return a.editValue, a.editCursor
	}
	return p.Value, clampCursor(p.Value, p.Cursor)
}

func (a *app) editKey(p widget.Props, e wire.KeyEvent) bool {
	value, cursor := a.currentEdit(p)
	switch e.Code {
	case wire.KeyEnter:
		if p.OnSubmit != nil {
			p.OnSubmit(value)
			return true
		}
		return false
	case wire.KeyBackspace:
		if cursor == 0 {
			return true
		}
		a.change(p, removeRune(value, cursor-1), cursor-1)
		return true
	case wire.KeyDelete:
		if cursor >= utf8.RuneCountInString(value) {
			return true
		}
		a.change(p, removeRune(value, cursor), cursor)
		return true
	case wire.KeyLeft:
		if cursor > 0 {
			a.change(p, value, cursor-1)
		}
		return true
	case wire.KeyRight:
		if cursor < utf8.RuneCountInString(value) {
			a.change(p, value, cursor+1)
		}
		return true
	case wire.KeyHome:
		a.change(p, value, 0)
		return true
	case wire.KeyEnd:
		a.change(p, value, utf8.RuneCountInString(value))
		return true
	}
	return false
}

func (a *app) editInsert(p widget.Props, s string) {
	if s == "" {
		return
	}
	value, cursor := a.currentEdit(p)
	i := runeOffset(value, cursor)
	a.change(p, value[:i]+s+value[i:], cursor+utf8.RuneCountInString(s))
}

func (a *app) change(p widget.Props, value string, cursor int) {
	a.editLive = true
	a.editID = p.ID
	a.editValue = value
	a.editCursor = cursor
	if p.OnChange != nil {
		p.OnChange(value, cursor)
	}
}

func clampCursor(value string, cursor int) int {
	if cursor < 0 {
		return 0
	}
	if n := utf8.RuneCountInString(value); cursor > n {
		return n
	}
	return cursor
}

// runeOffset returns the byte offset of the nth rune.
func runeOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}

func removeRune(s string, at int) string {
	i := runeOffset(s, at)
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[:i] + s[i+size:]
}

// sanitizePaste strips control characters, keeping tabs and newlines
// out of single-line inputs.
func sanitizePaste(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r < ' ' || r == 0x7F {
			return -1
		}
		return r
	}, string(data))
}
