package render_test

import (
	"testing"

	"src.zr.sh/pkg/focus"
	"src.zr.sh/pkg/layout"
	"src.zr.sh/pkg/render"
	"src.zr.sh/pkg/theme"
	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

// frame mounts the node, lays it out and renders one frame, returning
// the decoded drawlist.
func frame(t *testing.T, fs focus.Snapshot, cols, rows int, f func() widget.Node) *wire.Drawlist {
	t.Helper()
	tr := widget.NewTree(nil)
	if err := tr.Reconcile(func(c widget.Ctx) widget.Node { return f() }); err != nil {
		t.Fatalf("Reconcile -> %v", err)
	}
	tr.FlushEffects()
	lay := layout.Compute(tr.Root(), cols, rows)

	var b wire.DrawlistBuilder
	render.New().Render(tr.Root(), lay, fs, theme.Default(), &b)
	dl, err := wire.ParseDrawlist(b.Bytes())
	if err != nil {
		t.Fatalf("ParseDrawlist -> %v", err)
	}
	return dl
}

func textCmds(dl *wire.Drawlist) []wire.Cmd {
	var out []wire.Cmd
	for _, c := range dl.Cmds {
		if c.Op == wire.OpText {
			out = append(out, c)
		}
	}
	return out
}

func cursorCmds(dl *wire.Drawlist) []wire.Cmd {
	var out []wire.Cmd
	for _, c := range dl.Cmds {
		if c.Op == wire.OpCursor {
			out = append(out, c)
		}
	}
	return out
}

func TestRender_TextTruncatedToRect(t *testing.T) {
	dl := frame(t, focus.Snapshot{}, 5, 1, func() widget.Node {
		return widget.Box(widget.Props{Dir: widget.Column},
			widget.Text("truncate me"),
		)
	})
	texts := textCmds(dl)
	if len(texts) != 1 {
		t.Fatalf("got %d text commands, want 1", len(texts))
	}
	if got := dl.Text(texts[0]); got != "trunc" {
		t.Errorf("text = %q, want %q", got, "trunc")
	}
}

func TestRender_MultilineTextClipsRows(t *testing.T) {
	dl := frame(t, focus.Snapshot{}, 10, 2, func() widget.Node {
		return widget.Box(widget.Props{Dir: widget.Column},
			widget.Text("one\ntwo\nthree", widget.Props{H: 2}),
		)
	})
	texts := textCmds(dl)
	if len(texts) != 2 {
		t.Fatalf("got %d text commands, want 2 (third line clipped)", len(texts))
	}
	if dl.Text(texts[0]) != "one" || dl.Text(texts[1]) != "two" {
		t.Errorf("lines = %q, %q, want one, two", dl.Text(texts[0]), dl.Text(texts[1]))
	}
	if texts[1].Y != 1 {
		t.Errorf("second line at Y=%d, want 1", texts[1].Y)
	}
}

func TestRender_EqualStringsShareOneSpan(t *testing.T) {
	dl := frame(t, focus.Snapshot{}, 10, 3, func() widget.Node {
		return widget.Box(widget.Props{Dir: widget.Column},
			widget.Text("same"),
			widget.Text("same"),
			widget.Text("other"),
		)
	})
	if len(dl.Strings) != 2 {
		t.Fatalf("string table has %d entries, want 2: %q", len(dl.Strings), dl.Strings)
	}
	texts := textCmds(dl)
	if texts[0].Span != texts[1].Span {
		t.Errorf("equal strings got spans %d and %d, want shared", texts[0].Span, texts[1].Span)
	}
}

func TestRender_CursorOnlyForFocusedInput(t *testing.T) {
	app := func() widget.Node {
		return widget.Box(widget.Props{Dir: widget.Column},
			widget.Input(widget.Props{ID: "name", Focusable: true, Value: "ab", Cursor: 2}),
			widget.Input(widget.Props{ID: "mail", Focusable: true, Value: "x", Cursor: 1}),
		)
	}

	dl := frame(t, focus.Snapshot{Focused: "name"}, 20, 2, app)
	cursors := cursorCmds(dl)
	if len(cursors) != 1 {
		t.Fatalf("got %d cursor commands, want 1", len(cursors))
	}
	if cursors[0].X != 2 || cursors[0].Y != 0 {
		t.Errorf("cursor at (%d, %d), want (2, 0)", cursors[0].X, cursors[0].Y)
	}
	if !cursors[0].Visible {
		t.Error("cursor not visible")
	}

	if n := len(cursorCmds(frame(t, focus.Snapshot{}, 20, 2, app))); n != 0 {
		t.Errorf("unfocused frame has %d cursor commands, want 0", n)
	}
}

func TestRender_PlaceholderOnlyWhenBlurred(t *testing.T) {
	app := func() widget.Node {
		return widget.Box(widget.Props{Dir: widget.Column},
			widget.Input(widget.Props{ID: "q", Focusable: true, Placeholder: "type here"}),
		)
	}
	dl := frame(t, focus.Snapshot{}, 20, 1, app)
	texts := textCmds(dl)
	if len(texts) != 1 || dl.Text(texts[0]) != "type here" {
		t.Fatalf("blurred input: texts = %v, want the placeholder", texts)
	}
	if texts[0].Style.Attrs&wire.AttrDim == 0 {
		t.Error("placeholder not dimmed")
	}
	if n := len(textCmds(frame(t, focus.Snapshot{Focused: "q"}, 20, 1, app))); n != 0 {
		t.Errorf("focused empty input has %d text commands, want 0", n)
	}
}

func TestRender_ZeroAreaCulled(t *testing.T) {
	dl := frame(t, focus.Snapshot{}, 10, 1, func() widget.Node {
		return widget.Box(widget.Props{Dir: widget.Column},
			widget.Box(widget.Props{H: 1},
				widget.Text("shown"),
			),
			widget.Box(widget.Props{H: 5},
				widget.Text("culled"),
			),
		)
	})
	for _, c := range textCmds(dl) {
		if dl.Text(c) == "culled" {
			t.Error("zero-area subtree rendered")
		}
	}
}

func TestRender_FocusedTextUsesFocusStyle(t *testing.T) {
	th := theme.Default()
	dl := frame(t, focus.Snapshot{Focused: "item"}, 10, 1, func() widget.Node {
		return widget.Box(widget.Props{Dir: widget.Column},
			widget.Text("pick me", widget.Props{ID: "item", Focusable: true}),
		)
	})
	texts := textCmds(dl)
	if len(texts) != 1 {
		t.Fatalf("got %d text commands, want 1", len(texts))
	}
	if texts[0].Style != th.Focus() {
		t.Errorf("style = %+v, want the focus style %+v", texts[0].Style, th.Focus())
	}
}

func TestRender_ClipPairsBalance(t *testing.T) {
	dl := frame(t, focus.Snapshot{}, 20, 5, func() widget.Node {
		return widget.Box(widget.Props{Dir: widget.Column},
			widget.Box(widget.Props{Grow: 1},
				widget.Text("inner"),
			),
		)
	})
	depth := 0
	for _, c := range dl.Cmds {
		switch c.Op {
		case wire.OpClipPush:
			depth++
		case wire.OpClipPop:
			depth--
		}
		if depth < 0 {
			t.Fatal("clip pop without push")
		}
	}
	if depth != 0 {
		t.Errorf("unbalanced clip stack: depth %d at end of frame", depth)
	}
}
