package backend

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"src.zr.sh/pkg/wire"
)

// Cell is one screen cell. A wide rune occupies its leading cell; the
// continuation cells hold empty text.
type Cell struct {
	Text  string
	Style wire.Style
}

// Screen is the cell grid a stub engine draws into. It mirrors what a
// real terminal would show after presenting a drawlist.
type Screen struct {
	Cols, Rows int
	cells      [][]Cell

	CursorX, CursorY int
	CursorShape      wire.CursorShape
	CursorBlink      bool
	CursorVisible    bool
}

// NewScreen returns a cleared screen.
func NewScreen(cols, rows int) *Screen {
	s := &Screen{Cols: cols, Rows: rows}
	s.Clear()
	return s
}

// Clear blanks every cell and hides the cursor.
func (s *Screen) Clear() {
	s.cells = make([][]Cell, s.Rows)
	for y := range s.cells {
		row := make([]Cell, s.Cols)
		for x := range row {
			row[x] = Cell{Text: " "}
		}
		s.cells[y] = row
	}
	s.CursorVisible = false
}

// Resize changes the grid size, clearing the content.
func (s *Screen) Resize(cols, rows int) {
	s.Cols, s.Rows = cols, rows
	s.Clear()
}

// Cell returns the cell at (x, y); out-of-range positions return a
// blank.
func (s *Screen) Cell(x, y int) Cell {
	if y < 0 || y >= s.Rows || x < 0 || x >= s.Cols {
		return Cell{Text: " "}
	}
	return s.cells[y][x]
}

type clipRect struct{ x, y, w, h int }

func (c clipRect) contains(x, y int) bool {
	return x >= c.x && x < c.x+c.w && y >= c.y && y < c.y+c.h
}

func intersect(a, b clipRect) clipRect {
	x1, y1 := max(a.x, b.x), max(a.y, b.y)
	x2, y2 := min(a.x+a.w, b.x+b.w), min(a.y+a.h, b.y+b.h)
	return clipRect{x1, y1, max(x2-x1, 0), max(y2-y1, 0)}
}

// Apply presents one decoded drawlist onto the screen, honoring the
// clip stack of the command stream.
func (s *Screen) Apply(dl *wire.Drawlist) {
	clip := clipRect{0, 0, s.Cols, s.Rows}
	stack := []clipRect{clip}
	for _, c := range dl.Cmds {
		switch c.Op {
		case wire.OpClipPush:
			clip = intersect(clip, clipRect{int(c.X), int(c.Y), int(c.W), int(c.H)})
			stack = append(stack, clip)
		case wire.OpClipPop:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
				clip = stack[len(stack)-1]
			}
		case wire.OpFill:
			s.fill(clip, c)
		case wire.OpText:
			s.text(clip, int(c.X), int(c.Y), dl.Text(c), c.Style)
		case wire.OpCursor:
			s.CursorX, s.CursorY = int(c.X), int(c.Y)
			s.CursorShape = c.Shape
			s.CursorBlink = c.Blink
			s.CursorVisible = c.Visible
		}
	}
}

func (s *Screen) fill(clip clipRect, c wire.Cmd) {
	text := string(c.Rune)
	for y := int(c.Y); y < int(c.Y+c.H); y++ {
		for x := int(c.X); x < int(c.X+c.W); x++ {
			s.set(clip, x, y, Cell{Text: text, Style: c.Style})
		}
	}
}

func (s *Screen) text(clip clipRect, x, y int, text string, style wire.Style) {
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		s.set(clip, x, y, Cell{Text: string(r), Style: style})
		// A wide rune's continuation cells carry empty text so the row
		// still sums to Cols columns.
		for i := 1; i < w; i++ {
			s.set(clip, x+i, y, Cell{Style: style})
		}
		x += w
	}
}

func (s *Screen) set(clip clipRect, x, y int, c Cell) {
	if !clip.contains(x, y) {
		return
	}
	if y < 0 || y >= s.Rows || x < 0 || x >= s.Cols {
		return
	}
	s.cells[y][x] = c
}

// String renders the screen as text framed in box-drawing characters,
// one terminal row per line. Styles are not represented.
func (s *Screen) String() string {
	var sb strings.Builder
	sb.WriteString("┌" + strings.Repeat("─", s.Cols) + "┐\n")
	for y := 0; y < s.Rows; y++ {
		sb.WriteRune('│')
		for x := 0; x < s.Cols; x++ {
			sb.WriteString(s.cells[y][x].Text)
		}
		sb.WriteString("│\n")
	}
	sb.WriteString("└" + strings.Repeat("─", s.Cols) + "┘\n")
	return sb.String()
}

// Row returns the text content of one row with trailing spaces
// trimmed.
func (s *Screen) Row(y int) string {
	if y < 0 || y >= s.Rows {
		return ""
	}
	var sb strings.Builder
	for x := 0; x < s.Cols; x++ {
		sb.WriteString(s.cells[y][x].Text)
	}
	return strings.TrimRight(sb.String(), " ")
}
