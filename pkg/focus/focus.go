// Package focus tracks which widget owns keyboard focus and routes tab
// and arrow traversal across focus zones and traps.
//
// Zones and traps are declared on nodes ([widget.ZoneProps],
// [widget.TrapProps]) and re-collected from the instance tree on every
// commit; the manager itself only persists the focused id and its
// per-zone memory across commits.
package focus

import (
	"sort"

	"src.zr.sh/pkg/logutil"
	"src.zr.sh/pkg/widget"
)

var logger = logutil.GetLogger("[focus] ")

// Zone is one collected focus zone.
type Zone struct {
	ID       string
	TabIndex int
	Nav      widget.Navigation
	Columns  int
	Wrap     bool
	// IDs are the focusable ids the zone owns, in tree order. Nested
	// zones claim their own subtrees.
	IDs []string

	lastFocused string
	onEnter     func(string)
	onExit      func(string)
}

type trap struct {
	instID  widget.ID
	ids     []string
	initial string
	// returnFocus is where focus goes when the trap deactivates:
	// the declared ReturnTo, or whatever was focused at activation.
	returnFocus string
	isNew       bool
}

// stop is one entry in the tab ring: a plain focusable id with no
// ancestor zone, or a whole zone.
type stop struct {
	zone     *Zone
	id       string
	tabIndex int
}

// Snapshot is the focus state a renderer needs.
type Snapshot struct {
	Focused    string
	ActiveZone string
}

// Manager owns focus state. It is driven from the app loop goroutine
// and is not safe for concurrent use.
type Manager struct {
	focused    string
	activeZone string

	// external is the caller-supplied last-focused-per-zone map; an
	// entry is consumed (deleted) once focus actively lands in its
	// zone.
	external map[string]string
	// memory is the manager's own last-focused-per-zone record,
	// surviving rebuilds.
	memory map[string]string

	zones      []*Zone
	zoneOf     map[string]*Zone
	stops      []stop
	traps      []*trap
	focusables map[string]bool
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{
		external: make(map[string]string),
		memory:   make(map[string]string),
	}
}

// SetLastFocused supplies an external last-focused-per-zone map, for
// example restored session state. It takes precedence over the
// manager's own memory when a zone is next entered.
func (m *Manager) SetLastFocused(byZone map[string]string) {
	for zone, id := range byZone {
		m.external[zone] = id
	}
}

// LastFocused returns a copy of the manager's per-zone focus memory,
// suitable for persisting.
func (m *Manager) LastFocused() map[string]string {
	out := make(map[string]string, len(m.memory))
	for zone, id := range m.memory {
		out[zone] = id
	}
	return out
}

// Focused returns the focused id, or "".
func (m *Manager) Focused() string { return m.focused }

// ActiveZone returns the id of the zone owning the focused id, or "".
func (m *Manager) ActiveZone() string { return m.activeZone }

// Snapshot returns the state a renderer needs.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{Focused: m.focused, ActiveZone: m.activeZone}
}

// Zones returns the zones collected by the last Rebuild, in discovery
// order.
func (m *Manager) Zones() []*Zone { return m.zones }

// Rebuild re-collects zones, traps and the tab ring from the committed
// instance tree, then finalizes focus: newly activated traps capture
// and take focus, a deactivated trap restores it, and a focused id that
// vanished falls back to the first reachable stop.
func (m *Manager) Rebuild(root *widget.Instance) {
	prevTraps := m.traps
	var prevLive *trap
	if len(prevTraps) > 0 {
		prevLive = prevTraps[len(prevTraps)-1]
	}
	prevByInst := make(map[widget.ID]*trap, len(prevTraps))
	for _, tr := range prevTraps {
		prevByInst[tr.instID] = tr
	}

	m.zones = nil
	m.stops = nil
	m.traps = nil
	m.zoneOf = make(map[string]*Zone)
	m.focusables = make(map[string]bool)
	m.collect(root, nil, nil)

	// Zones with focusables become ring stops at their discovery
	// position; the ring orders by (tabIndex, discovery), with plain
	// ids at tabIndex 0.
	stops := m.stops[:0]
	for _, s := range m.stops {
		if s.zone == nil || len(s.zone.IDs) > 0 {
			stops = append(stops, s)
		}
	}
	m.stops = stops
	sort.SliceStable(m.stops, func(i, j int) bool {
		return m.stops[i].tabIndex < m.stops[j].tabIndex
	})

	// Carry trap activation state across commits by instance identity.
	var newest *trap
	for _, tr := range m.traps {
		if prev, ok := prevByInst[tr.instID]; ok {
			if tr.returnFocus == "" {
				tr.returnFocus = prev.returnFocus
			}
		} else {
			tr.isNew = true
			newest = tr
		}
	}

	switch {
	case newest != nil:
		// Activation: capture the return target before moving focus.
		for _, tr := range m.traps {
			if tr.isNew && tr.returnFocus == "" {
				tr.returnFocus = m.focused
			}
		}
		m.focusTo(m.trapEntry(newest))
	case prevLive != nil && m.trapByInst(prevLive.instID) == nil:
		// The innermost trap deactivated; restore focus if it is gone
		// or still parked inside the popped trap.
		if !m.valid(m.focused) || contains(prevLive.ids, m.focused) {
			target := prevLive.returnFocus
			if !m.valid(target) {
				target = m.firstLanding()
			}
			m.focusTo(target)
		}
	case !m.valid(m.focused):
		if tr := m.liveTrap(); tr != nil {
			m.focusTo(m.trapEntry(tr))
		} else {
			m.focusTo(m.firstLanding())
		}
	}

	m.activeZone = ""
	if z := m.zoneOf[m.focused]; z != nil {
		m.activeZone = z.ID
	}
}

// collect walks the subtree gathering focusables into zone, every trap
// on the stack, and the stop list.
func (m *Manager) collect(in *widget.Instance, zone *Zone, trapStack []*trap) {
	if in == nil {
		return
	}
	p := in.Node().Props

	if p.Trap != nil && p.Trap.Active {
		tr := &trap{
			instID:      in.ID(),
			initial:     p.Trap.InitialFocus,
			returnFocus: p.Trap.ReturnTo,
		}
		m.traps = append(m.traps, tr)
		trapStack = append(trapStack, tr)
	}

	if p.Zone != nil && p.ID != "" {
		z := &Zone{
			ID:          p.ID,
			TabIndex:    p.Zone.TabIndex,
			Nav:         p.Zone.Nav,
			Columns:     p.Zone.Columns,
			Wrap:        p.Zone.Wrap,
			lastFocused: p.Zone.LastFocused,
			onEnter:     p.Zone.OnEnter,
			onExit:      p.Zone.OnExit,
		}
		if remembered, ok := m.memory[z.ID]; ok {
			z.lastFocused = remembered
		}
		m.zones = append(m.zones, z)
		m.stops = append(m.stops, stop{zone: z, tabIndex: z.TabIndex})
		zone = z
	} else if p.Focusable && !p.Disabled && p.ID != "" {
		m.focusables[p.ID] = true
		if zone != nil {
			zone.IDs = append(zone.IDs, p.ID)
			m.zoneOf[p.ID] = zone
		} else {
			m.stops = append(m.stops, stop{id: p.ID})
		}
		for _, tr := range trapStack {
			tr.ids = append(tr.ids, p.ID)
		}
	}

	for _, c := range in.Children() {
		m.collect(c, zone, trapStack)
	}
}

func (m *Manager) valid(id string) bool {
	return id != "" && m.focusables[id]
}

func (m *Manager) trapByInst(id widget.ID) *trap {
	for _, tr := range m.traps {
		if tr.instID == id {
			return tr
		}
	}
	return nil
}

// liveTrap returns the innermost active trap, which is the only one
// constraining traversal.
func (m *Manager) liveTrap() *trap {
	if len(m.traps) == 0 {
		return nil
	}
	return m.traps[len(m.traps)-1]
}

func (m *Manager) trapEntry(tr *trap) string {
	if tr.initial != "" && contains(tr.ids, tr.initial) {
		return tr.initial
	}
	if len(tr.ids) > 0 {
		return tr.ids[0]
	}
	return ""
}

// firstLanding resolves the first ring stop to a concrete id.
func (m *Manager) firstLanding() string {
	if len(m.stops) == 0 {
		return ""
	}
	return m.landing(m.stops[0], 1)
}

// landing resolves a stop to the id focus should land on when entering
// it while moving in dir: the external map first, then the zone's own
// memory, then the boundary element.
func (m *Manager) landing(s stop, dir int) string {
	if s.zone == nil {
		return s.id
	}
	z := s.zone
	if ext, ok := m.external[z.ID]; ok && contains(z.IDs, ext) {
		return ext
	}
	if z.lastFocused != "" && contains(z.IDs, z.lastFocused) {
		return z.lastFocused
	}
	if len(z.IDs) == 0 {
		return ""
	}
	if dir < 0 {
		return z.IDs[len(z.IDs)-1]
	}
	return z.IDs[0]
}

// Focus moves focus to id if it is currently focusable.
func (m *Manager) Focus(id string) bool {
	if !m.valid(id) {
		return false
	}
	m.focusTo(id)
	return true
}

// focusTo moves focus, maintains per-zone memory and fires zone
// enter/exit callbacks. Callback panics are contained.
func (m *Manager) focusTo(id string) {
	if id == m.focused {
		return
	}
	oldZone := m.zoneOf[m.focused]
	newZone := m.zoneOf[id]
	if oldZone != nil && oldZone != newZone && oldZone.onExit != nil {
		contained(oldZone.onExit, m.focused)
	}
	m.focused = id
	m.activeZone = ""
	if newZone != nil {
		m.activeZone = newZone.ID
		newZone.lastFocused = id
		m.memory[newZone.ID] = id
		delete(m.external, newZone.ID)
		if oldZone != newZone && newZone.onEnter != nil {
			contained(newZone.onEnter, id)
		}
	}
}

func contained(f func(string), arg string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("panic in zone callback: %v", r)
		}
	}()
	f(arg)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
