package focus_test

import (
	"fmt"
	"testing"

	"src.zr.sh/pkg/focus"
	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

func buildTree(t *testing.T, root widget.Comp) *widget.Tree {
	t.Helper()
	tr := widget.NewTree(nil)
	if err := tr.Reconcile(root); err != nil {
		t.Fatalf("Reconcile -> %v", err)
	}
	tr.FlushEffects()
	return tr
}

func item(id string) widget.Node {
	return widget.Box(widget.Props{ID: id, Focusable: true})
}

func key(code wire.KeyCode, mods ...wire.Mod) wire.KeyEvent {
	ev := wire.KeyEvent{Code: code}
	for _, m := range mods {
		ev.Mods |= m
	}
	return ev
}

func gridRoot(wrap bool) widget.Comp {
	return func(c widget.Ctx) widget.Node {
		items := make([]widget.Node, 9)
		for i := range items {
			items[i] = item(fmt.Sprintf("g%d", i))
		}
		grid := widget.Box(widget.Props{
			ID:   "grid",
			Zone: &widget.ZoneProps{Nav: widget.NavGrid, Columns: 3, Wrap: wrap},
		}, items...)
		return widget.Box(widget.Props{}, grid)
	}
}

func TestGridMovement(t *testing.T) {
	tests := []struct {
		name string
		from string
		code wire.KeyCode
		wrap bool
		want string // where focus ends up
	}{
		{"right interior", "g4", wire.KeyRight, false, "g5"},
		{"right across row boundary", "g2", wire.KeyRight, false, "g3"},
		{"right from last wraps", "g8", wire.KeyRight, true, "g0"},
		{"right from last no wrap", "g8", wire.KeyRight, false, "g8"},
		{"left from first wraps", "g0", wire.KeyLeft, true, "g8"},
		{"left from first no wrap", "g0", wire.KeyLeft, false, "g0"},
		{"down interior", "g4", wire.KeyDown, false, "g7"},
		{"down from 7 wraps to same column", "g7", wire.KeyDown, true, "g1"},
		{"down from 7 no wrap", "g7", wire.KeyDown, false, "g7"},
		{"up from 1 wraps to bottom of column", "g1", wire.KeyUp, true, "g7"},
		{"up from 1 no wrap", "g1", wire.KeyUp, false, "g1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tr := buildTree(t, gridRoot(test.wrap))
			m := focus.NewManager()
			m.Rebuild(tr.Root())
			if !m.Focus(test.from) {
				t.Fatalf("Focus(%q) -> false", test.from)
			}
			if !m.HandleKey(key(test.code)) {
				t.Fatal("grid zone did not consume the arrow key")
			}
			if got := m.Focused(); got != test.want {
				t.Errorf("focus = %q, want %q", got, test.want)
			}
		})
	}
}

func TestZoneMoveDefaultsToFirst(t *testing.T) {
	tr := buildTree(t, gridRoot(true))
	m := focus.NewManager()
	m.Rebuild(tr.Root())
	z := m.Zones()[0]
	got, ok := z.Move("not-a-member", wire.KeyDown)
	if !ok || got != "g0" {
		t.Errorf("Move from unknown id = %q, %v; want g0, true", got, ok)
	}
}

func twoZones() widget.Comp {
	return func(c widget.Ctx) widget.Node {
		z1 := widget.Box(widget.Props{
			ID:   "z1",
			Zone: &widget.ZoneProps{TabIndex: 0, Nav: widget.NavLinear},
		}, item("a1"), item("a2"))
		z2 := widget.Box(widget.Props{
			ID:   "z2",
			Zone: &widget.ZoneProps{TabIndex: 1, Nav: widget.NavLinear},
		}, item("b1"), item("b2"))
		return widget.Box(widget.Props{}, z1, z2)
	}
}

func TestZoneTraversal(t *testing.T) {
	tr := buildTree(t, twoZones())
	m := focus.NewManager()
	m.Rebuild(tr.Root())

	// Initial focus lands on the first zone's first item.
	if got := m.Focused(); got != "a1" {
		t.Fatalf("initial focus = %q, want a1", got)
	}

	// Forward tab from zone 1's last item enters zone 2 at its first.
	m.Focus("a2")
	m.HandleKey(key(wire.KeyTab))
	if got := m.Focused(); got != "b1" {
		t.Fatalf("after tab, focus = %q, want b1", got)
	}
	if got := m.ActiveZone(); got != "z2" {
		t.Errorf("active zone = %q, want z2", got)
	}

	// Backward from zone 2's first item re-enters zone 1 at its
	// remembered last item.
	m.HandleKey(key(wire.KeyTab, wire.Shift))
	if got := m.Focused(); got != "a2" {
		t.Fatalf("after shift-tab, focus = %q, want a2", got)
	}

	// Tab from the last zone wraps to the first.
	m.Focus("b2")
	m.HandleKey(key(wire.KeyTab))
	if got := m.Focused(); got != "a2" {
		t.Errorf("after wrapping tab, focus = %q, want a2 (zone memory)", got)
	}
}

func TestTabIndexOrdersZones(t *testing.T) {
	root := func(c widget.Ctx) widget.Node {
		// Declared out of order: the ring must sort by tab index.
		zb := widget.Box(widget.Props{
			ID:   "zb",
			Zone: &widget.ZoneProps{TabIndex: 1},
		}, item("b"))
		za := widget.Box(widget.Props{
			ID:   "za",
			Zone: &widget.ZoneProps{TabIndex: 0},
		}, item("a"))
		return widget.Box(widget.Props{}, zb, za)
	}
	tr := buildTree(t, root)
	m := focus.NewManager()
	m.Rebuild(tr.Root())
	if got := m.Focused(); got != "a" {
		t.Errorf("initial focus = %q, want a (tabIndex 0 first)", got)
	}
	m.Next()
	if got := m.Focused(); got != "b" {
		t.Errorf("after tab, focus = %q, want b", got)
	}
}

func TestMixedFlatAndZoneTraversal(t *testing.T) {
	root := func(c widget.Ctx) widget.Node {
		z := widget.Box(widget.Props{
			ID:   "z",
			Zone: &widget.ZoneProps{Nav: widget.NavLinear},
		}, item("in1"), item("in2"))
		return widget.Box(widget.Props{}, item("flat1"), z, item("flat2"))
	}
	tr := buildTree(t, root)
	m := focus.NewManager()
	m.Rebuild(tr.Root())

	want := []string{"flat1", "in1", "flat2", "flat1"}
	got := []string{m.Focused()}
	for i := 0; i < 3; i++ {
		m.HandleKey(key(wire.KeyTab))
		got = append(got, m.Focused())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("traversal = %v, want %v", got, want)
		}
	}
}

func TestExternalLastFocused(t *testing.T) {
	tr := buildTree(t, twoZones())
	m := focus.NewManager()
	m.SetLastFocused(map[string]string{"z1": "a2"})
	m.Rebuild(tr.Root())

	// The external map wins on first entry.
	if got := m.Focused(); got != "a2" {
		t.Fatalf("initial focus = %q, want a2 (external map)", got)
	}

	// Actively focusing consumes the entry; the manager's own memory
	// takes over.
	m.Focus("a1")
	m.Focus("b1")
	m.HandleKey(key(wire.KeyTab, wire.Shift))
	if got := m.Focused(); got != "a1" {
		t.Errorf("re-entry focus = %q, want a1 (own memory)", got)
	}
}

func trapRoot(active bool) widget.Comp {
	return func(c widget.Ctx) widget.Node {
		modal := widget.Box(widget.Props{
			ID:   "modal",
			Trap: &widget.TrapProps{Active: active, InitialFocus: "t2"},
		}, item("t1"), item("t2"))
		return widget.Box(widget.Props{}, item("o1"), item("o2"), modal)
	}
}

func TestTrapCapturesAndRestores(t *testing.T) {
	active := false
	root := func(c widget.Ctx) widget.Node { return trapRoot(active)(c) }

	tr := buildTree(t, root)
	m := focus.NewManager()
	m.Rebuild(tr.Root())
	if got := m.Focused(); got != "o1" {
		t.Fatalf("initial focus = %q, want o1", got)
	}

	// Activation moves focus to the declared initial id.
	active = true
	mustRecommit(t, tr, root)
	m.Rebuild(tr.Root())
	if got := m.Focused(); got != "t2" {
		t.Fatalf("after trap activation, focus = %q, want t2", got)
	}

	// Tab cycles strictly within the trap.
	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		m.HandleKey(key(wire.KeyTab))
		seen[m.Focused()] = true
	}
	if seen["o1"] || seen["o2"] {
		t.Errorf("tab escaped the trap: visited %v", seen)
	}

	// Deactivation restores the captured focus.
	active = false
	mustRecommit(t, tr, root)
	m.Rebuild(tr.Root())
	if got := m.Focused(); got != "o1" {
		t.Errorf("after trap release, focus = %q, want o1", got)
	}
}

func TestNestedTrapInnermostWins(t *testing.T) {
	root := func(c widget.Ctx) widget.Node {
		inner := widget.Box(widget.Props{
			ID:   "inner",
			Trap: &widget.TrapProps{Active: true},
		}, item("u1"), item("u2"))
		outer := widget.Box(widget.Props{
			ID:   "outer",
			Trap: &widget.TrapProps{Active: true},
		}, item("t1"), inner)
		return widget.Box(widget.Props{}, item("o1"), outer)
	}
	tr := buildTree(t, root)
	m := focus.NewManager()
	m.Rebuild(tr.Root())

	for i := 0; i < 3; i++ {
		m.HandleKey(key(wire.KeyTab))
		if got := m.Focused(); got != "u1" && got != "u2" {
			t.Fatalf("tab left the innermost trap: focus = %q", got)
		}
	}
}

func TestTrapFlattensZones(t *testing.T) {
	root := func(c widget.Ctx) widget.Node {
		z := widget.Box(widget.Props{
			ID:   "tz",
			Zone: &widget.ZoneProps{Nav: widget.NavLinear},
		}, item("za"), item("zb"))
		modal := widget.Box(widget.Props{
			ID:   "modal",
			Trap: &widget.TrapProps{Active: true},
		}, item("t1"), z)
		return widget.Box(widget.Props{}, item("o1"), modal)
	}
	tr := buildTree(t, root)
	m := focus.NewManager()
	m.Rebuild(tr.Root())

	want := []string{"t1", "za", "zb", "t1"}
	m.Focus("t1")
	for _, w := range want[1:] {
		m.HandleKey(key(wire.KeyTab))
		if got := m.Focused(); got != w {
			t.Fatalf("trap tab order: focus = %q, want %q", got, w)
		}
	}
}

func TestZoneCallbacks(t *testing.T) {
	var log []string
	root := func(c widget.Ctx) widget.Node {
		z1 := widget.Box(widget.Props{
			ID: "z1",
			Zone: &widget.ZoneProps{
				OnEnter: func(id string) { log = append(log, "enter z1 "+id) },
				OnExit:  func(id string) { log = append(log, "exit z1 "+id) },
			},
		}, item("a"))
		z2 := widget.Box(widget.Props{
			ID: "z2",
			Zone: &widget.ZoneProps{
				OnEnter: func(id string) { panic("listener bug") },
			},
		}, item("b"))
		return widget.Box(widget.Props{}, z1, z2)
	}
	tr := buildTree(t, root)
	m := focus.NewManager()
	m.Rebuild(tr.Root())

	// Crossing into z2 fires exit(a) and a panicking enter, which must
	// be contained.
	m.HandleKey(key(wire.KeyTab))
	if got := m.Focused(); got != "b" {
		t.Fatalf("focus = %q, want b", got)
	}

	want := []string{"enter z1 a", "exit z1 a"}
	if fmt.Sprint(log) != fmt.Sprint(want) {
		t.Errorf("callback log = %v, want %v", log, want)
	}
}

func TestVanishedFocusFallsBack(t *testing.T) {
	n := 3
	root := func(c widget.Ctx) widget.Node {
		kids := make([]widget.Node, n)
		for i := range kids {
			kids[i] = item(fmt.Sprintf("f%d", i))
		}
		return widget.Box(widget.Props{}, kids...)
	}
	tr := buildTree(t, root)
	m := focus.NewManager()
	m.Rebuild(tr.Root())
	m.Focus("f2")

	n = 1
	mustRecommit(t, tr, root)
	m.Rebuild(tr.Root())
	if got := m.Focused(); got != "f0" {
		t.Errorf("focus = %q after f2 vanished, want f0", got)
	}
}

func TestNavNoneLeavesArrows(t *testing.T) {
	root := func(c widget.Ctx) widget.Node {
		z := widget.Box(widget.Props{
			ID:   "z",
			Zone: &widget.ZoneProps{Nav: widget.NavNone},
		}, item("a"), item("b"))
		return widget.Box(widget.Props{}, z)
	}
	tr := buildTree(t, root)
	m := focus.NewManager()
	m.Rebuild(tr.Root())

	if m.HandleKey(key(wire.KeyDown)) {
		t.Error("NavNone zone consumed an arrow key")
	}
	if got := m.Focused(); got != "a" {
		t.Errorf("focus = %q, want a", got)
	}
}

func TestLinearEdgeWithoutWrapConsumes(t *testing.T) {
	root := func(c widget.Ctx) widget.Node {
		z := widget.Box(widget.Props{
			ID:   "z",
			Zone: &widget.ZoneProps{Nav: widget.NavLinear},
		}, item("a"), item("b"))
		return widget.Box(widget.Props{}, z)
	}
	tr := buildTree(t, root)
	m := focus.NewManager()
	m.Rebuild(tr.Root())

	if !m.HandleKey(key(wire.KeyUp)) {
		t.Error("linear zone did not consume the edge arrow")
	}
	if got := m.Focused(); got != "a" {
		t.Errorf("focus = %q, want a (no movement at edge)", got)
	}
}

func mustRecommit(t *testing.T, tr *widget.Tree, root widget.Comp) {
	t.Helper()
	if err := tr.Reconcile(root); err != nil {
		t.Fatalf("Reconcile -> %v", err)
	}
	tr.FlushEffects()
}
