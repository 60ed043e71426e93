package widget

import (
	"sync"

	"src.zr.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[widget] ")

// ID identifies a mounted instance. Ids are allocated monotonically per
// Tree and never reused; 0 is never allocated.
type ID uint32

// Instance is one mounted widget. Instances carry the identity that
// survives re-renders: hook slots stay attached to the instance while
// the vnode it holds is replaced on every commit.
type Instance struct {
	id       ID
	node     Node
	parent   *Instance
	children []*Instance

	// Hook slot store. slots is append-only during the instance's first
	// render; afterwards the acquisition sequence must match exactly.
	slots      []slot
	slotCursor int
	rendered   bool

	mounted bool
	// renderGen counts the instance's renders. Setters carry the
	// generation that created them and go inert once it is passed.
	renderGen uint32
}

// ID returns the instance id.
func (in *Instance) ID() ID { return in.id }

// Node returns the vnode committed to this instance.
func (in *Instance) Node() Node { return in.node }

// Children returns the child instances in tree order. The slice is owned
// by the reconciler and must not be mutated.
func (in *Instance) Children() []*Instance { return in.children }

// Parent returns the parent instance, or nil for the root.
func (in *Instance) Parent() *Instance { return in.parent }

// Walk visits the instance and its subtree in tree order. If f returns
// false the subtree below the visited instance is skipped.
func (in *Instance) Walk(f func(*Instance) bool) {
	if in == nil {
		return
	}
	if !f(in) {
		return
	}
	for _, c := range in.children {
		c.Walk(f)
	}
}

// Tree owns all runtime tree state: the mounted instances, the pending
// setter queue, and the staged effect work. A single goroutine (the app
// loop) drives commits; setters may be called from any goroutine and
// only touch the pending queue under the mutex.
type Tree struct {
	mu      sync.Mutex
	pending []pendingOp
	wake    func()

	nextID    ID
	root      *Instance
	commitSeq uint64

	// Work staged by the last successful Reconcile, consumed by
	// FlushEffects.
	staged *stage
}

// NewTree returns an empty tree. wake is called (possibly from any
// goroutine) whenever queued state changes require a new commit; it must
// not block.
func NewTree(wake func()) *Tree {
	if wake == nil {
		wake = func() {}
	}
	return &Tree{wake: wake}
}

// Root returns the root instance of the last successful commit, or nil
// before the first one.
func (t *Tree) Root() *Instance { return t.root }

// CommitSeq returns the number of successful commits.
func (t *Tree) CommitSeq() uint64 { return t.commitSeq }

// newInstance allocates an instance. It is not yet mounted: the mounted
// flag flips only when the reconcile pass that created it commits, so
// that setters captured during an aborted pass stay inert.
func (t *Tree) newInstance(n Node, parent *Instance) *Instance {
	t.nextID++
	return &Instance{
		id:     t.nextID,
		node:   n,
		parent: parent,
	}
}

// destroy unmounts the instance subtree. Cleanups run children first, so
// that an inner widget's teardown observes its ancestors still mounted.
func (t *Tree) destroy(in *Instance) {
	for _, c := range in.children {
		t.destroy(c)
	}
	for _, s := range in.slots {
		if es, ok := s.(*effectSlot); ok && es.cleanup != nil {
			runContained(es.cleanup)
			es.cleanup = nil
		}
	}
	in.mounted = false
}

// Unmount destroys the whole tree, running every effect cleanup. It is
// the teardown step of the driver loop.
func (t *Tree) Unmount() {
	if t.root == nil {
		return
	}
	t.destroy(t.root)
	t.root = nil
}

// runContained runs f and swallows a panic, logging it. Used for effect
// cleanups and focus callbacks, which must not take down the runtime.
func runContained(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("panic in contained callback: %v", r)
		}
	}()
	f()
}
