package layout

import (
	"hash/fnv"

	"src.zr.sh/pkg/widget"
)

// Cache decides whether a commit may skip the full layout pass. It
// records, per instance, an order-sensitive hash over the widget kind,
// the layout-relevant props of that kind, and the child instance id
// order; a commit skips layout only when the viewport, the instance
// set and every hash match the prior commit exactly. A kind without a
// hash rule forces a recompute.
type Cache struct {
	width, height int
	sigs          map[widget.ID]uint64
}

// NewCache returns an empty cache. An empty cache never permits a skip.
func NewCache() *Cache {
	return &Cache{}
}

// Check hashes the tree and reports whether the full layout pass may be
// skipped for this commit. The cache always replaces its record with
// the new hashes, so a miss this commit can become a hit the next.
func (c *Cache) Check(root *widget.Instance, width, height int) bool {
	next := make(map[widget.ID]uint64)
	hashable := sigTree(root, next)

	skip := hashable &&
		width == c.width && height == c.height &&
		len(next) == len(c.sigs)
	if skip {
		for id, sig := range next {
			if old, ok := c.sigs[id]; !ok || old != sig {
				skip = false
				break
			}
		}
	}
	c.width, c.height = width, height
	c.sigs = next
	return skip
}

// Invalidate empties the cache, forcing the next Check to miss.
func (c *Cache) Invalidate() {
	c.sigs = nil
}

// sigTree computes signatures for the whole subtree into out, returning
// whether every instance produced one.
func sigTree(in *widget.Instance, out map[widget.ID]uint64) bool {
	if in == nil {
		return false
	}
	ok := true
	in.Walk(func(n *widget.Instance) bool {
		sig, has := signature(n)
		if !has {
			ok = false
			return false
		}
		out[n.ID()] = sig
		return true
	})
	return ok
}

// signature hashes the layout-relevant props of one instance with
// FNV-1a 64. Only props on the per-kind allowlist participate, so
// content-free changes (styles, callbacks) keep the hash stable.
func signature(in *widget.Instance) (uint64, bool) {
	n := in.Node()
	p := n.Props
	h := fnv.New64a()
	u8 := func(v uint8) { h.Write([]byte{v}) }
	num := func(v int) {
		var b [8]byte
		uv := uint64(v)
		for i := range b {
			b[i] = byte(uv >> (8 * i))
		}
		h.Write(b[:])
	}
	str := func(s string) {
		num(len(s))
		h.Write([]byte(s))
	}

	u8(uint8(n.Kind))
	switch n.Kind {
	case widget.KindBox, widget.KindScreen:
		u8(uint8(p.Dir))
		num(p.W)
		num(p.H)
		num(p.Grow)
		num(p.Gap)
		num(p.Pad.Top)
		num(p.Pad.Right)
		num(p.Pad.Bottom)
		num(p.Pad.Left)
		u8(uint8(p.Align))
	case widget.KindText:
		str(p.Text)
		num(p.W)
		num(p.H)
		num(p.Grow)
	case widget.KindInput:
		num(p.W)
		num(p.Grow)
	case widget.KindDivider:
		num(p.Grow)
	case widget.KindComp:
		// Pass-through; the rendered child carries the layout props.
		num(p.Grow)
	default:
		return 0, false
	}

	// Child identity order is part of the signature: a reorder or a
	// remount (new instance id) must invalidate even when every child
	// hashes the same individually.
	for _, c := range in.Children() {
		num(int(c.ID()))
	}
	return h.Sum64(), true
}
