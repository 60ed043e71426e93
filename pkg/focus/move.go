package focus

import (
	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

// HandleKey routes a key event through the focus machinery. It returns
// whether the event was consumed: tab and shift-tab always are, arrows
// only while the active zone's navigation model claims them.
func (m *Manager) HandleKey(ev wire.KeyEvent) bool {
	if ev.Action == wire.KeyRelease {
		return false
	}
	switch ev.Code {
	case wire.KeyTab:
		if ev.Mods&wire.Shift != 0 {
			m.Prev()
		} else {
			m.Next()
		}
		return true
	case wire.KeyUp, wire.KeyDown, wire.KeyLeft, wire.KeyRight:
		return m.arrow(ev.Code)
	}
	return false
}

// Next moves focus forward in the tab ring, or within the innermost
// trap while one is active.
func (m *Manager) Next() { m.step(1) }

// Prev moves focus backward.
func (m *Manager) Prev() { m.step(-1) }

func (m *Manager) step(dir int) {
	if tr := m.liveTrap(); tr != nil {
		// A trap flattens its subtree: tab cycles the trapped ids,
		// ignoring zones and the outside world.
		if len(tr.ids) == 0 {
			return
		}
		i := indexOf(tr.ids, m.focused)
		if i < 0 {
			if dir > 0 {
				i = -1
			} else {
				i = 0
			}
		}
		m.focusTo(tr.ids[mod(i+dir, len(tr.ids))])
		return
	}

	if len(m.stops) == 0 {
		return
	}
	cur := m.currentStop()
	var next stop
	if cur < 0 {
		if dir > 0 {
			next = m.stops[0]
		} else {
			next = m.stops[len(m.stops)-1]
		}
	} else {
		next = m.stops[mod(cur+dir, len(m.stops))]
	}
	if id := m.landing(next, dir); id != "" {
		m.focusTo(id)
	}
}

// currentStop locates the ring stop owning the focused id: the active
// zone's stop, or the plain stop with that id.
func (m *Manager) currentStop() int {
	for i, s := range m.stops {
		if s.zone != nil {
			if s.zone.ID == m.activeZone {
				return i
			}
			continue
		}
		if s.id == m.focused {
			return i
		}
	}
	return -1
}

// arrow applies zone movement. The zone consumes arrows whenever its
// navigation model is linear or grid, even when the move hits a
// non-wrapping edge; NavNone leaves arrows for the application.
func (m *Manager) arrow(code wire.KeyCode) bool {
	z := m.zoneByID(m.activeZone)
	if z == nil || z.Nav == widget.NavNone {
		return false
	}
	if to, ok := z.Move(m.focused, code); ok {
		m.focusTo(to)
	}
	return true
}

// Move computes arrow movement within the zone starting from the given
// id and returns the destination. A from id not present in the zone
// defaults to the zone's first focusable; hitting a non-wrapping edge
// moves nowhere.
func (z *Zone) Move(from string, code wire.KeyCode) (string, bool) {
	if z.Nav == widget.NavNone || len(z.IDs) == 0 {
		return "", false
	}
	i := indexOf(z.IDs, from)
	if i < 0 {
		return z.IDs[0], true
	}
	var j int
	var moved bool
	if z.Nav == widget.NavGrid {
		j, moved = gridMove(len(z.IDs), z.Columns, z.Wrap, i, code)
	} else {
		j, moved = linearMove(len(z.IDs), z.Wrap, i, code)
	}
	if !moved {
		return "", false
	}
	return z.IDs[j], true
}

func (m *Manager) zoneByID(id string) *Zone {
	if id == "" {
		return nil
	}
	for _, z := range m.zones {
		if z.ID == id {
			return z
		}
	}
	return nil
}

// linearMove treats the zone as a single run: up/left step back,
// down/right step forward, wrapping at the ends when enabled.
func linearMove(n int, wrap bool, i int, code wire.KeyCode) (int, bool) {
	switch code {
	case wire.KeyUp, wire.KeyLeft:
		if i > 0 {
			return i - 1, true
		}
		if wrap {
			return n - 1, true
		}
	case wire.KeyDown, wire.KeyRight:
		if i < n-1 {
			return i + 1, true
		}
		if wrap {
			return 0, true
		}
	}
	return i, false
}

// gridMove moves in a cols-wide row-major grid. Vertical wrap stays in
// the same column, jumping to the opposite edge row; horizontal moves
// run across row boundaries and wrap at the ends of the whole list.
func gridMove(n, cols int, wrap bool, i int, code wire.KeyCode) (int, bool) {
	if cols <= 0 {
		cols = 1
	}
	switch code {
	case wire.KeyRight:
		if i < n-1 {
			return i + 1, true
		}
		if wrap {
			return 0, true
		}
	case wire.KeyLeft:
		if i > 0 {
			return i - 1, true
		}
		if wrap {
			return n - 1, true
		}
	case wire.KeyDown:
		if i+cols < n {
			return i + cols, true
		}
		if wrap {
			return i % cols, true
		}
	case wire.KeyUp:
		if i-cols >= 0 {
			return i - cols, true
		}
		if wrap {
			col := i % cols
			return col + (n-1-col)/cols*cols, true
		}
	}
	return i, false
}

func mod(i, n int) int {
	return ((i % n) + n) % n
}
