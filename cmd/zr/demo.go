package main

import (
	"strconv"

	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

// The demo is a small two-pane app: a list zone on the left, a note
// form on the right, a help trap on F1, and a second route with a grid
// zone. Keys nothing consumes (q, g, b) reach the listener in main.

var demoItems = []string{"alpha", "bravo", "charlie", "delta"}

func demoRoutes() map[string]widget.Comp {
	return map[string]widget.Comp{
		"browse": browsePage,
		"grid":   gridPage,
	}
}

func browsePage(c widget.Ctx) widget.Node {
	selected, setSelected := widget.State(c, demoItems[0])
	note, setNote := widget.State(c, "")
	noteCur, setNoteCur := widget.State(c, 0)
	help, setHelp := widget.State(c, false)

	helpKey := func(ev wire.KeyEvent) bool {
		if ev.Code == wire.KeyF1 {
			setHelp.Set(true)
			return true
		}
		return false
	}

	items := make([]widget.Node, len(demoItems))
	for i, it := range demoItems {
		it := it
		marker := "  "
		if it == selected {
			marker = "> "
		}
		items[i] = widget.Text(marker+it, widget.Props{
			ID: "item-" + it, Focusable: true,
			OnClick: func() { setSelected.Set(it) },
			OnKey: func(ev wire.KeyEvent) bool {
				if ev.Code == wire.KeyEnter {
					setSelected.Set(it)
					return true
				}
				return helpKey(ev)
			},
		})
	}

	list := widget.Box(widget.Props{
		ID: "list", Dir: widget.Column, W: 16, Pad: widget.Even(1),
		Zone: &widget.ZoneProps{TabIndex: 0, Nav: widget.NavLinear, Wrap: true},
	}, items...)

	form := widget.Box(widget.Props{
		ID: "form", Dir: widget.Column, Grow: 1, Pad: widget.Even(1), Gap: 1,
		Zone: &widget.ZoneProps{TabIndex: 1, Nav: widget.NavLinear},
	},
		widget.Text("note for "+selected, widget.Props{Style: widget.Style{Bold: true}}),
		widget.Input(widget.Props{
			ID: "note", Focusable: true,
			Value: note, Cursor: noteCur,
			Placeholder: "type a note",
			OnChange: func(v string, cur int) {
				setNote.Set(v)
				setNoteCur.Set(cur)
			},
			OnKey: helpKey,
		}),
		widget.Text("F1 help  g grid  q quit", widget.Props{
			Style: widget.Style{FG: "muted"},
		}),
	)

	children := []widget.Node{
		widget.Box(widget.Props{Dir: widget.Row, Grow: 1}, list, form),
	}
	if help {
		children = append(children, helpPane(func() { setHelp.Set(false) }))
	}
	return widget.Screen(widget.Props{Dir: widget.Column}, children...)
}

// helpPane traps focus until dismissed with Escape, Enter or a click.
func helpPane(dismiss func()) widget.Node {
	return widget.Box(widget.Props{
		ID: "help", Dir: widget.Column, H: 5, Pad: widget.Even(1),
		Trap:  &widget.TrapProps{Active: true, InitialFocus: "help-close"},
		Style: widget.Style{BG: "focus-bg", FG: "focus-fg"},
	},
		widget.Text("help", widget.Props{Style: widget.Style{Bold: true}}),
		widget.Text("tab cycles zones, arrows move inside a zone"),
		widget.Text("[close]", widget.Props{
			ID: "help-close", Focusable: true,
			OnClick: dismiss,
			OnKey: func(ev wire.KeyEvent) bool {
				if ev.Code == wire.KeyEscape || ev.Code == wire.KeyEnter {
					dismiss()
					return true
				}
				return false
			},
		}),
	)
}

func gridPage(c widget.Ctx) widget.Node {
	row := func(from int) widget.Node {
		cells := make([]widget.Node, 3)
		for i := range cells {
			n := from + i
			cells[i] = widget.Text("["+strconv.Itoa(n)+"]", widget.Props{
				ID: "cell-" + strconv.Itoa(n), Focusable: true,
			})
		}
		return widget.Box(widget.Props{Dir: widget.Row, Gap: 1}, cells...)
	}
	return widget.Screen(widget.Props{Dir: widget.Column, Pad: widget.Even(1), Gap: 1},
		widget.Text("grid movement", widget.Props{Style: widget.Style{Bold: true}}),
		widget.Box(widget.Props{
			ID: "grid", Dir: widget.Column,
			Zone: &widget.ZoneProps{Nav: widget.NavGrid, Columns: 3, Wrap: true},
		}, row(0), row(3), row(6)),
		widget.Text("arrows move, b goes back", widget.Props{
			Style: widget.Style{FG: "muted"},
		}),
	)
}
