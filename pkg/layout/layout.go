// Package layout computes a rectangle for every mounted instance from
// the declared sizing, spacing and alignment props, following a simple
// box model: boxes lay children along a main axis, fixed sizes win,
// leftover main-axis space is split among growing children, and the
// cross axis stretches unless the box aligns otherwise.
package layout

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"src.zr.sh/pkg/widget"
)

// Rect is a rectangle in cell coordinates. The zero Rect is degenerate;
// render culls instances arranged into one.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle covers no cells.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether the cell (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Result holds the rectangles of one layout pass, indexed by instance
// id and, for externally named nodes, by their declared string id.
type Result struct {
	rects []entry
	of    map[widget.ID]Rect
	byID  map[string]Rect
}

type entry struct {
	inst *widget.Instance
	rect Rect
}

// Of returns the rectangle of an instance.
func (r *Result) Of(id widget.ID) (Rect, bool) {
	rect, ok := r.of[id]
	return rect, ok
}

// ByID returns the rectangle of the first instance, in tree order, that
// declared the given string id.
func (r *Result) ByID(declared string) (Rect, bool) {
	rect, ok := r.byID[declared]
	return rect, ok
}

// HitTest returns the topmost instance whose rectangle contains the
// cell (x, y), or nil. Topmost means latest in tree order, matching the
// paint order of the renderer.
func (r *Result) HitTest(x, y int) *widget.Instance {
	for i := len(r.rects) - 1; i >= 0; i-- {
		if r.rects[i].rect.Contains(x, y) {
			return r.rects[i].inst
		}
	}
	return nil
}

// Compute runs a full layout pass over the instance tree for the given
// viewport and returns the rectangle of every instance. It reads the
// tree but never mutates it.
func Compute(root *widget.Instance, width, height int) *Result {
	res := &Result{
		of:   make(map[widget.ID]Rect),
		byID: make(map[string]Rect),
	}
	if root == nil {
		return res
	}
	arrange(root, Rect{0, 0, width, height}, res)
	return res
}

// arrange assigns rect to the instance and lays out its subtree inside
// it. A degenerate rect zeroes out the whole subtree.
func arrange(in *widget.Instance, rect Rect, res *Result) {
	if rect.Empty() {
		rect = Rect{}
	}
	res.record(in, rect)
	p := in.Node().Props

	switch in.Node().Kind {
	case widget.KindComp:
		// Components are layout pass-throughs: the single rendered
		// child takes the component's own rectangle.
		for _, c := range in.Children() {
			arrange(c, rect, res)
		}
		return
	case widget.KindText, widget.KindInput, widget.KindDivider:
		return
	}
	if rect.Empty() {
		zeroSubtree(in, res)
		return
	}

	inner := pad(rect, p.Pad)
	kids := in.Children()
	if len(kids) == 0 {
		return
	}

	main, cross := inner.W, inner.H
	if p.Dir == widget.Column {
		main, cross = inner.H, inner.W
	}

	// Fixed and measured main sizes first; what remains is split among
	// growing children in proportion, with the remainder spread one
	// cell at a time from the first growing child.
	sizes := make([]int, len(kids))
	grows := make([]int, len(kids))
	used := p.Gap * (len(kids) - 1)
	totalGrow := 0
	for i, c := range kids {
		g := c.Node().Props.Grow
		if g > 0 {
			grows[i] = g
			totalGrow += g
			continue
		}
		sizes[i] = measureMain(c, p.Dir, cross)
		used += sizes[i]
	}
	if totalGrow > 0 {
		left := main - used
		if left < 0 {
			left = 0
		}
		given := 0
		for i, g := range grows {
			if g > 0 {
				sizes[i] = left * g / totalGrow
				given += sizes[i]
			}
		}
		for rem := left - given; rem > 0; {
			for i, g := range grows {
				if g > 0 && rem > 0 {
					sizes[i]++
					rem--
				}
			}
		}
	}

	pos := 0
	for i, c := range kids {
		sz := sizes[i]
		if pos >= main {
			sz = 0
		} else if pos+sz > main {
			sz = main - pos
		}
		crossSz, crossOff := crossPlace(c, p, cross)
		var r Rect
		if p.Dir == widget.Column {
			r = Rect{inner.X + crossOff, inner.Y + pos, crossSz, sz}
		} else {
			r = Rect{inner.X + pos, inner.Y + crossOff, sz, crossSz}
		}
		arrange(c, r, res)
		pos += sz + p.Gap
	}
}

// crossPlace returns the cross-axis size and offset of a child per the
// parent's alignment: stretch fills, the others use the child's
// measured size.
func crossPlace(c *widget.Instance, parent widget.Props, cross int) (size, off int) {
	if parent.Align == widget.AlignStretch {
		return cross, 0
	}
	size = measureCross(c, parent.Dir, cross)
	if size > cross {
		size = cross
	}
	switch parent.Align {
	case widget.AlignCenter:
		off = (cross - size) / 2
	case widget.AlignEnd:
		off = cross - size
	}
	return size, off
}

func zeroSubtree(in *widget.Instance, res *Result) {
	for _, c := range in.Children() {
		res.record(c, Rect{})
		zeroSubtree(c, res)
	}
}

func (r *Result) record(in *widget.Instance, rect Rect) {
	r.rects = append(r.rects, entry{in, rect})
	r.of[in.ID()] = rect
	if id := in.Node().Props.ID; id != "" {
		// First occurrence in tree order wins.
		if _, seen := r.byID[id]; !seen {
			r.byID[id] = rect
		}
	}
}

// measureMain returns the preferred main-axis size of an instance in a
// parent laid out along dir.
func measureMain(in *widget.Instance, dir widget.Direction, cross int) int {
	w, h := measure(in, cross)
	if dir == widget.Column {
		return h
	}
	return w
}

func measureCross(in *widget.Instance, dir widget.Direction, avail int) int {
	w, h := measure(in, avail)
	if dir == widget.Column {
		return w
	}
	return h
}

const defaultInputWidth = 20

// measure returns the preferred (width, height) of an instance. Fixed
// W and H props always win; avail bounds the width used when wrapping
// is irrelevant (this model truncates rather than wraps, so avail only
// clamps).
func measure(in *widget.Instance, avail int) (w, h int) {
	p := in.Node().Props
	switch in.Node().Kind {
	case widget.KindText:
		w, h = textSize(p.Text)
	case widget.KindInput:
		w, h = defaultInputWidth, 1
	case widget.KindDivider:
		w, h = 1, 1
	case widget.KindComp:
		for _, c := range in.Children() {
			return measure(c, avail)
		}
	default: // Box, Screen
		w, h = boxSize(in, avail)
	}
	if p.W > 0 {
		w = p.W
	}
	if p.H > 0 {
		h = p.H
	}
	return w, h
}

func textSize(s string) (w, h int) {
	if s == "" {
		return 0, 1
	}
	lines := strings.Split(s, "\n")
	for _, line := range lines {
		if lw := runewidth.StringWidth(line); lw > w {
			w = lw
		}
	}
	return w, len(lines)
}

func boxSize(in *widget.Instance, avail int) (w, h int) {
	p := in.Node().Props
	kids := in.Children()
	var main, cross int
	for i, c := range kids {
		cm := measureMain(c, p.Dir, avail)
		cc := measureCross(c, p.Dir, avail)
		main += cm
		if i > 0 {
			main += p.Gap
		}
		if cc > cross {
			cross = cc
		}
	}
	if p.Dir == widget.Column {
		w, h = cross, main
	} else {
		w, h = main, cross
	}
	return w + p.Pad.Left + p.Pad.Right, h + p.Pad.Top + p.Pad.Bottom
}

func pad(r Rect, in widget.Insets) Rect {
	r.X += in.Left
	r.Y += in.Top
	r.W -= in.Left + in.Right
	r.H -= in.Top + in.Bottom
	if r.W < 0 {
		r.W = 0
	}
	if r.H < 0 {
		r.H = 0
	}
	return r
}
