// Package render walks a committed instance tree with its layout
// rectangles and emits the drawlist commands for one frame. Rendering
// is a pure function of (tree, rects, focus, theme); the renderer keeps
// no state across frames except content-keyed memo caches.
package render

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"src.zr.sh/pkg/focus"
	"src.zr.sh/pkg/layout"
	"src.zr.sh/pkg/theme"
	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

const tabWidth = 4

// Renderer emits drawlists. The zero value is not usable; call New.
type Renderer struct {
	// spaces memoizes the space runs used for tab expansion. The cache
	// is keyed purely by content, so reuse across frames cannot change
	// any frame's output.
	spaces map[int]string
}

// New returns a Renderer.
func New() *Renderer {
	return &Renderer{spaces: make(map[int]string)}
}

// Render walks the tree and appends one frame's commands to b. At most
// one cursor command is emitted, for the focused input.
func (r *Renderer) Render(root *widget.Instance, lay *layout.Result, fs focus.Snapshot, th *theme.Theme, b *wire.DrawlistBuilder) {
	w := walker{r: r, lay: lay, fs: fs, th: th, b: b}
	w.visit(root)
}

type walker struct {
	r   *Renderer
	lay *layout.Result
	fs  focus.Snapshot
	th  *theme.Theme
	b   *wire.DrawlistBuilder

	cursorDone bool
}

func (w *walker) visit(in *widget.Instance) {
	if in == nil {
		return
	}
	rect, ok := w.lay.Of(in.ID())
	if !ok || rect.Empty() {
		return
	}
	n := in.Node()
	p := n.Props
	focused := p.ID != "" && p.ID == w.fs.Focused

	switch n.Kind {
	case widget.KindComp:
		for _, c := range in.Children() {
			w.visit(c)
		}
	case widget.KindBox, widget.KindScreen:
		style := w.th.Resolve(p.Style)
		if focused && p.Focusable {
			style = w.th.Focus()
		}
		if style.BG != wire.ColorDefault || style.Attrs != 0 {
			w.b.Fill(rect.X, rect.Y, rect.W, rect.H, ' ', style)
		}
		w.b.PushClip(rect.X, rect.Y, rect.W, rect.H)
		for _, c := range in.Children() {
			w.visit(c)
		}
		w.b.PopClip()
	case widget.KindText:
		style := w.th.Resolve(p.Style)
		if focused && p.Focusable {
			style = w.th.Focus()
		}
		w.text(rect, p.Text, style)
	case widget.KindDivider:
		line := '─'
		if rect.H > rect.W {
			line = '│'
		}
		w.b.Fill(rect.X, rect.Y, rect.W, rect.H, line,
			wire.Style{FG: w.th.Color(theme.TokenDivider)})
	case widget.KindInput:
		w.input(rect, p, focused)
	}
}

// text emits one text command per line, tab-expanded and truncated to
// the rectangle.
func (w *walker) text(rect layout.Rect, s string, style wire.Style) {
	y := rect.Y
	for _, line := range strings.Split(s, "\n") {
		if y >= rect.Y+rect.H {
			break
		}
		line = w.expandTabs(line)
		if runewidth.StringWidth(line) > rect.W {
			line = runewidth.Truncate(line, rect.W, "")
		}
		w.b.TextRun(rect.X, y, line, style)
		y++
	}
}

func (w *walker) input(rect layout.Rect, p widget.Props, focused bool) {
	style := w.th.Resolve(p.Style)
	if focused {
		style.Attrs |= wire.AttrUnderline
	}
	value := p.Value
	if value == "" && p.Placeholder != "" && !focused {
		w.text(rect, p.Placeholder, w.th.Placeholder())
	} else {
		shown := value
		// Keep the cursor in view by scrolling the value left.
		cursorCol := runewidth.StringWidth(clampRunes(value, p.Cursor))
		drop := 0
		for cursorCol-drop >= rect.W && shown != "" {
			_, size := utf8.DecodeRuneInString(shown)
			drop += runewidth.StringWidth(shown[:size])
			shown = shown[size:]
		}
		if runewidth.StringWidth(shown) > rect.W {
			shown = runewidth.Truncate(shown, rect.W, "")
		}
		w.text(rect, shown, style)
		if focused && !w.cursorDone {
			x := rect.X + cursorCol - drop
			if x >= rect.X+rect.W {
				x = rect.X + rect.W - 1
			}
			w.b.Cursor(x, rect.Y, w.th.CursorShape(), w.th.Cursor.Blink, true)
			w.cursorDone = true
		}
	}
}

// clampRunes returns the prefix of s holding at most n runes.
func clampRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// expandTabs replaces tabs with space runs aligned to tab stops.
func (w *walker) expandTabs(line string) string {
	if !strings.Contains(line, "\t") {
		return line
	}
	var sb strings.Builder
	col := 0
	for _, r := range line {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			sb.WriteString(w.spaceRun(n))
			col += n
			continue
		}
		sb.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return sb.String()
}

func (w *walker) spaceRun(n int) string {
	if s, ok := w.r.spaces[n]; ok {
		return s
	}
	s := strings.Repeat(" ", n)
	w.r.spaces[n] = s
	return s
}
