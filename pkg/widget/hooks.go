package widget

import (
	"fmt"
	"math"
	"reflect"
)

// slot is one hook cell on an instance. The concrete kinds are state and
// effect; acquiring a different kind at a recorded index is a slot-order
// fatal.
type slot interface {
	slotKind() string
}

type stateSlot struct {
	val any
}

func (*stateSlot) slotKind() string { return "state" }

type effectSlot struct {
	deps    []any
	cleanup func()
}

func (*effectSlot) slotKind() string { return "effect" }

// Ctx is the hook context passed to a component render function. It is
// only valid for the duration of that call.
type Ctx struct {
	t    *Tree
	inst *Instance
	st   *stage
}

// nextSlot advances the slot cursor and returns the recorded slot at the
// new index, if any. Acquiring past the recorded sequence after the
// first render is a slot-order fatal, raised as a panic so it unwinds
// through user render frames; Reconcile converts it to an error.
func (c Ctx) nextSlot() (int, slot, bool) {
	if c.inst == nil {
		panic("widget: hook used outside a component render")
	}
	i := c.inst.slotCursor
	c.inst.slotCursor++
	if i < len(c.inst.slots) {
		return i, c.inst.slots[i], true
	}
	if c.inst.rendered {
		panic(slotOrderError(fmt.Sprintf(
			"hook slot %d: acquired beyond the %d slots recorded at mount",
			i, len(c.inst.slots))))
	}
	return i, nil, false
}

// State acquires a state slot holding init on first render. It returns
// the current value and a setter that schedules a new commit.
func State[T any](c Ctx, init T) (T, Setter[T]) {
	return StateLazy(c, func() T { return init })
}

// StateLazy is State with a lazy initializer: init runs only when the
// slot is created, never on re-renders.
func StateLazy[T any](c Ctx, init func() T) (T, Setter[T]) {
	i, s, existing := c.nextSlot()
	var ss *stateSlot
	if existing {
		var ok bool
		ss, ok = s.(*stateSlot)
		if !ok {
			panic(slotOrderError(fmt.Sprintf(
				"hook slot %d: state requested, %s recorded", i, s.slotKind())))
		}
	} else {
		ss = &stateSlot{val: init()}
		c.inst.slots = append(c.inst.slots, ss)
	}
	v, _ := ss.val.(T)
	return v, Setter[T]{t: c.t, inst: c.inst, slot: i, gen: c.inst.renderGen}
}

// Effect acquires an effect slot. body runs after the commit that mounts
// the instance and returns an optional cleanup. With non-nil deps the
// effect re-runs (cleanup first) whenever any dep changes by sameValue;
// nil deps means mount and unmount only. The cleanup also runs when the
// instance is destroyed.
func Effect(c Ctx, deps []any, body func() func()) {
	i, s, existing := c.nextSlot()
	if !existing {
		es := &effectSlot{}
		c.inst.slots = append(c.inst.slots, es)
		c.st.effects = append(c.st.effects, effectRun{slot: es, body: body, deps: deps})
		return
	}
	es, ok := s.(*effectSlot)
	if !ok {
		panic(slotOrderError(fmt.Sprintf(
			"hook slot %d: effect requested, %s recorded", i, s.slotKind())))
	}
	if depsChanged(es.deps, deps) {
		c.st.effects = append(c.st.effects, effectRun{slot: es, body: body, deps: deps, rerun: true})
	}
}

func depsChanged(old, next []any) bool {
	if next == nil {
		return false
	}
	if len(old) != len(next) {
		return true
	}
	for i := range next {
		if !sameValue(old[i], next[i]) {
			return true
		}
	}
	return false
}

// Setter schedules updates to a state slot. The zero Setter is inert.
// Setters may be called from any goroutine; calls queued within one
// commit apply in call order at the start of the next commit, each
// seeing the previous call's result. A setter whose instance has been
// unmounted, or whose render generation has been passed by a newer
// render, is a no-op and never evaluates its updater.
type Setter[T any] struct {
	t    *Tree
	inst *Instance
	slot int
	gen  uint32
}

// Set schedules the slot to take the value v.
func (s Setter[T]) Set(v T) {
	if s.t == nil {
		return
	}
	s.t.enqueue(pendingOp{inst: s.inst, slot: s.slot, gen: s.gen, val: v})
}

// Update schedules f to transform the slot value.
func (s Setter[T]) Update(f func(T) T) {
	if s.t == nil || f == nil {
		return
	}
	s.t.enqueue(pendingOp{inst: s.inst, slot: s.slot, gen: s.gen,
		update: func(prev any) any {
			p, _ := prev.(T)
			return f(p)
		}})
}

type pendingOp struct {
	inst   *Instance
	slot   int
	gen    uint32
	val    any
	update func(any) any
}

func (t *Tree) enqueue(op pendingOp) {
	t.mu.Lock()
	t.pending = append(t.pending, op)
	t.mu.Unlock()
	t.wake()
}

// ApplyPending drains the setter queue in call order and returns whether
// any slot value changed by sameValue. No change means the commit may
// skip re-rendering entirely.
func (t *Tree) ApplyPending() bool {
	t.mu.Lock()
	ops := t.pending
	t.pending = nil
	t.mu.Unlock()

	changed := false
	for _, op := range ops {
		if !op.inst.mounted || op.inst.renderGen != op.gen {
			continue
		}
		ss, ok := stateSlotAt(op.inst, op.slot)
		if !ok {
			continue
		}
		next := op.val
		if op.update != nil {
			next = op.update(ss.val)
		}
		if !sameValue(ss.val, next) {
			ss.val = next
			changed = true
		}
	}
	return changed
}

func stateSlotAt(in *Instance, i int) (*stateSlot, bool) {
	if i < 0 || i >= len(in.slots) {
		return nil, false
	}
	ss, ok := in.slots[i].(*stateSlot)
	return ss, ok
}

// FlushEffects finishes a successful commit: destroyed subtrees run
// their cleanups children-first, then newly mounted and deps-changed
// effects run in tree order.
func (t *Tree) FlushEffects() {
	st := t.staged
	t.staged = nil
	if st == nil {
		return
	}
	for _, d := range st.destroys {
		t.destroy(d)
	}
	for _, er := range st.effects {
		if er.rerun && er.slot.cleanup != nil {
			runContained(er.slot.cleanup)
			er.slot.cleanup = nil
		}
		er.slot.deps = er.deps
		if er.body != nil {
			er.slot.cleanup = er.body()
		}
	}
}

// sameValue reports value identity with JS Object.is semantics: NaN is
// the same as NaN, positive and negative zero differ, comparable values
// compare by ==, and non-comparable values (slices, maps, funcs) compare
// by reference, never deeply.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && sameFloat(x, y)
	case float32:
		y, ok := b.(float32)
		return ok && sameFloat(float64(x), float64(y))
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Slice:
		return va.Len() == vb.Len() && va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Map, reflect.Func:
		return va.UnsafePointer() == vb.UnsafePointer()
	}
	// Non-comparable composites (structs or arrays containing slices,
	// maps or funcs) have no usable identity; treat them as always
	// changed rather than comparing deeply.
	return false
}

func sameFloat(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}
	if x == 0 && y == 0 {
		return math.Signbit(x) == math.Signbit(y)
	}
	return x == y
}
