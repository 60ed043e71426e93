// Package widget provides the retained widget tree that the zr runtime
// renders: the vnode model, the reconciler that maps vnode trees onto
// stable instances, and the per-instance state and effect slots available
// to component render functions.
//
// Nodes form a closed union over Kind; there is no open widget registry.
// Rendering code dispatches on Kind exhaustively and treats an unknown
// value as a bug.
package widget

import "src.zr.sh/pkg/wire"

// Kind enumerates the widget kinds. The set is closed; the zero value is
// KindBox so that a zero Node renders as an empty box.
type Kind uint8

const (
	KindBox Kind = iota
	KindText
	KindInput
	KindDivider
	KindScreen
	KindComp
)

// String returns the descriptor name of the kind, used in error messages
// and instance descriptors.
func (k Kind) String() string {
	switch k {
	case KindBox:
		return "Box"
	case KindText:
		return "Text"
	case KindInput:
		return "Input"
	case KindDivider:
		return "Divider"
	case KindScreen:
		return "Screen"
	case KindComp:
		return "Comp"
	}
	return "Unknown"
}

// Direction is the main axis of a box.
type Direction uint8

const (
	Column Direction = iota
	Row
)

// Align positions children along the cross axis of a box.
type Align uint8

const (
	AlignStretch Align = iota
	AlignStart
	AlignCenter
	AlignEnd
)

// Navigation selects how arrow keys move focus inside a zone.
type Navigation uint8

const (
	NavLinear Navigation = iota
	NavGrid
	NavNone
)

// Insets is padding inside a box, in cells.
type Insets struct {
	Top, Right, Bottom, Left int
}

// Even returns uniform insets of n cells on every side.
func Even(n int) Insets {
	return Insets{n, n, n, n}
}

// Style is a token-based style reference. FG and BG name theme colors
// ("fg", "accent", ...) or literal "#rrggbb" values; empty means inherit
// the default. The attribute flags map directly onto drawlist attr bits.
type Style struct {
	FG, BG    string
	Bold      bool
	Dim       bool
	Italic    bool
	Underline bool
	Inverse   bool
}

// ZoneProps declares the node's subtree as a focus zone. The zone is
// named by the node's Props.ID and owns every focusable id in the
// subtree, minus those claimed by nested zones.
type ZoneProps struct {
	// TabIndex orders the zone in the tab ring; lower comes first, ties
	// break by tree order.
	TabIndex int
	// Nav selects the arrow-key movement model.
	Nav Navigation
	// Columns is the grid width; only meaningful with NavGrid.
	Columns int
	// Wrap enables wraparound at the edges of the zone.
	Wrap bool
	// LastFocused seeds the id focus returns to when the zone is
	// re-entered and no fresher record exists.
	LastFocused string
	// OnEnter and OnExit are notified with the id gaining or losing
	// focus when traversal crosses the zone boundary. Panics do not
	// escape the focus router.
	OnEnter func(id string)
	OnExit  func(id string)
}

// TrapProps declares a focus trap on the node's subtree. While the
// innermost active trap exists, tab traversal cycles strictly within
// the trapped focusables.
type TrapProps struct {
	Active bool
	// InitialFocus receives focus when the trap activates; empty means
	// the first focusable in the trap.
	InitialFocus string
	// ReturnTo receives focus when the trap deactivates; empty means
	// whatever was focused at activation.
	ReturnTo string
}

// Comp is a component render function. It is invoked during
// reconciliation with a context bound to the component's instance, and
// must acquire state and effect slots in the same order on every call.
type Comp func(c Ctx) Node

// Props is the property bag of a node. It is one flat struct; each kind
// reads the fields meaningful to it and ignores the rest.
type Props struct {
	// ID is the declared identity used by focus and the layout index.
	ID string
	// Focusable marks the node as a tab stop. Disabled excludes it
	// without removing it from the tree.
	Focusable bool
	Disabled  bool

	// Layout.
	Dir  Direction
	W, H int // fixed size in cells; 0 means measure
	Grow int // share of leftover main-axis space
	Gap  int
	Pad  Insets
	Align Align

	// Content.
	Text        string // KindText
	Value       string // KindInput, controlled
	Cursor      int    // rune offset into Value
	Placeholder string

	Style Style

	// Behavior.
	Render   Comp // KindComp
	OnKey    func(ev wire.KeyEvent) bool
	OnChange func(value string, cursor int)
	OnSubmit func(value string)
	OnClick  func()

	Zone *ZoneProps
	Trap *TrapProps
}

// Node is one vnode. Node values are plain data; a render output is a
// Node tree that the reconciler maps onto instances.
type Node struct {
	Kind     Kind
	Key      string // sibling-scoped identity; empty means positional
	Props    Props
	Children []Node
}

// desc returns the deterministic descriptor of the node used in error
// messages: the kind name, plus the declared id or key when present.
func (n Node) desc() string {
	switch {
	case n.Props.ID != "":
		return n.Kind.String() + "[" + n.Props.ID + "]"
	case n.Key != "":
		return n.Kind.String() + "#" + n.Key
	}
	return n.Kind.String()
}

// Box builds a box node with the given children.
func Box(p Props, children ...Node) Node {
	return Node{Kind: KindBox, Key: p.key(), Props: p, Children: children}
}

// Screen builds a screen node, a box that always fills the viewport.
func Screen(p Props, children ...Node) Node {
	return Node{Kind: KindScreen, Key: p.key(), Props: p, Children: children}
}

// Text builds a text node. Extra props beyond the content are optional.
func Text(s string, props ...Props) Node {
	var p Props
	if len(props) > 0 {
		p = props[0]
	}
	p.Text = s
	return Node{Kind: KindText, Key: p.key(), Props: p}
}

// Input builds an input node. Inputs are controlled: the value and
// cursor live in the props, and edits arrive through OnChange.
func Input(p Props) Node {
	return Node{Kind: KindInput, Key: p.key(), Props: p}
}

// Divider builds a divider node, a one-cell rule across the parent's
// axis.
func Divider() Node {
	return Node{Kind: KindDivider}
}

// C builds a component node from a render function. An optional key
// gives the component list identity.
func C(comp Comp, key ...string) Node {
	n := Node{Kind: KindComp, Props: Props{Render: comp}}
	if len(key) > 0 {
		n.Key = key[0]
	}
	return n
}

// Keyed returns a copy of the node carrying an explicit key.
func Keyed(key string, n Node) Node {
	n.Key = key
	return n
}

// key lets constructors reuse a declared id as the default list key, so
// that focusable nodes keep identity when siblings reorder.
func (p Props) key() string {
	return p.ID
}
