package widget

// stage accumulates the mutations of one reconcile pass. Nothing in it is
// applied until the whole pass has succeeded, so a fatal error leaves the
// previously committed tree intact; the only side effect of an aborted
// pass is consumed instance ids.
type stage struct {
	updates  []instUpdate
	created  []*Instance
	destroys []*Instance
	effects  []effectRun
}

type instUpdate struct {
	inst     *Instance
	node     Node
	children []*Instance
}

type effectRun struct {
	slot  *effectSlot
	body  func() func()
	deps  []any
	rerun bool // deps changed: cleanup before running
}

// Reconcile maps the output of root onto the instance tree. On success
// the tree structure is updated in place and effect work is staged for
// FlushEffects. A *FatalError return means structural misuse (duplicate
// keys, slot-order violations); any other panic out of a component
// render function is left to the caller's recover, with the tree
// untouched.
func (t *Tree) Reconcile(root Comp) error {
	rootNode := Node{Kind: KindComp, Props: Props{Render: root}}
	st := &stage{}
	newRoot, err := t.reconcilePass(st, rootNode)
	if err != nil {
		return err
	}
	for _, u := range st.updates {
		u.inst.node = u.node
		u.inst.children = u.children
	}
	for _, in := range st.created {
		in.mounted = true
	}
	t.root = newRoot
	t.staged = st
	t.commitSeq++
	return nil
}

// reconcilePass runs the pass under a recover that converts *FatalError
// panics (raised by slot acquisition inside user render code) into error
// returns. All other panics propagate.
func (t *Tree) reconcilePass(st *stage, rootNode Node) (inst *Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*FatalError); ok {
				err = fe
				return
			}
			panic(r)
		}
	}()
	return t.reconcileNode(t.root, rootNode, nil, st)
}

// reconcileNode matches one prev instance (possibly nil) against the next
// vnode. The caller has already established identity; this only checks
// kind compatibility.
func (t *Tree) reconcileNode(prev *Instance, next Node, parent *Instance, st *stage) (*Instance, error) {
	if prev != nil && prev.node.Kind == next.Kind {
		kids, err := t.childNodes(prev, next, st)
		if err != nil {
			return nil, err
		}
		children, err := t.reconcileChildren(prev.children, kids, next.desc(), prev, st)
		if err != nil {
			return nil, err
		}
		st.updates = append(st.updates, instUpdate{prev, next, children})
		return prev, nil
	}
	inst := t.newInstance(next, parent)
	st.created = append(st.created, inst)
	kids, err := t.childNodes(inst, next, st)
	if err != nil {
		return nil, err
	}
	children, err := t.reconcileChildren(nil, kids, next.desc(), inst, st)
	if err != nil {
		return nil, err
	}
	// New instances are not reachable from the committed tree, so they
	// may be linked up directly instead of being staged.
	inst.node = next
	inst.children = children
	return inst, nil
}

// childNodes returns the vnode children to reconcile under next: the
// declared children for container kinds, or the render output for a
// component.
func (t *Tree) childNodes(inst *Instance, next Node, st *stage) ([]Node, error) {
	if next.Kind != KindComp {
		return next.Children, nil
	}
	child, err := t.runRender(inst, next, st)
	if err != nil {
		return nil, err
	}
	return []Node{child}, nil
}

// reconcileChildren matches prev child instances against next child
// nodes by identity: the explicit key when present, the positional index
// otherwise. Identity is sibling-scoped.
func (t *Tree) reconcileChildren(prevKids []*Instance, nextKids []Node, parentDesc string, parent *Instance, st *stage) ([]*Instance, error) {
	// Duplicate explicit keys are detected up front so the fatal fires
	// before any matching work.
	var seen map[string]int
	for j, n := range nextKids {
		if n.Key == "" {
			continue
		}
		if seen == nil {
			seen = make(map[string]int)
		}
		if i, dup := seen[n.Key]; dup {
			return nil, dupKeyError(n.Key, parentDesc, i, j)
		}
		seen[n.Key] = j
	}

	prevByIdent := make(map[string]*Instance, len(prevKids))
	for i, p := range prevKids {
		prevByIdent[identOf(p.node.Key, i)] = p
	}
	matched := make(map[*Instance]bool, len(prevKids))

	out := make([]*Instance, 0, len(nextKids))
	for j, n := range nextKids {
		p := prevByIdent[identOf(n.Key, j)]
		if p != nil && p.node.Kind == n.Kind {
			matched[p] = true
		} else {
			// Kind mismatch at the same identity destroys the old
			// instance; it stays unmatched and is collected below.
			p = nil
		}
		inst, err := t.reconcileNode(p, n, parent, st)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}

	for _, p := range prevKids {
		if !matched[p] {
			st.destroys = append(st.destroys, p)
		}
	}
	return out, nil
}

func identOf(key string, index int) string {
	if key != "" {
		return "k:" + key
	}
	return "i:" + itoa(index)
}

// itoa avoids pulling strconv into the hot matching path for small
// indices.
func itoa(i int) string {
	if i < 10 {
		return string([]byte{byte('0' + i)})
	}
	var b [20]byte
	pos := len(b)
	for i > 0 {
		pos--
		b[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(b[pos:])
}

// runRender invokes a component's render function with a context bound
// to inst. Slot acquisitions past the recorded sequence, or short of it,
// are slot-order fatals.
func (t *Tree) runRender(inst *Instance, next Node, st *stage) (Node, error) {
	render := next.Props.Render
	if render == nil {
		return Node{Kind: KindBox}, nil
	}
	inst.slotCursor = 0
	inst.renderGen++
	child := render(Ctx{t: t, inst: inst, st: st})
	if inst.rendered && inst.slotCursor != len(inst.slots) {
		return Node{}, slotOrderError(sprintfSlots(inst))
	}
	inst.rendered = true
	return child, nil
}

func sprintfSlots(inst *Instance) string {
	return "hook slots: render acquired " + itoa(inst.slotCursor) +
		" of " + itoa(len(inst.slots)) + " recorded slots"
}
