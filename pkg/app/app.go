// Package app is the runtime driver: it owns the instance tree, runs
// the commit pipeline (apply state, reconcile, layout, focus, render)
// and exchanges frames and event batches with a rendering engine.
//
// The driver is single-threaded and cooperative: one goroutine owns all
// tree, hook and focus state, and application callbacks never run in
// parallel. Engine interaction is asynchronous at the boundary only.
package app

import (
	"context"
	"errors"
	"fmt"

	"src.zr.sh/pkg/backend"
	"src.zr.sh/pkg/focus"
	"src.zr.sh/pkg/layout"
	"src.zr.sh/pkg/logutil"
	"src.zr.sh/pkg/render"
	"src.zr.sh/pkg/theme"
	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

var logger = logutil.GetLogger("[app] ")

// Buffer size of the loop's channels. The value is chosen for no
// particular reason.
const chanSize = 128

// AppSpec specifies an App. Exactly one of Root and Routes must be set;
// setting both (or neither) is the mixed-modes structural fatal.
type AppSpec struct {
	// Engine renders frames and produces events. Required.
	Engine backend.Engine
	// Root is the render function in single-component mode.
	Root widget.Comp
	// Routes maps route names to render functions; InitialRoute selects
	// the first one.
	Routes       map[string]widget.Comp
	InitialRoute string
	// Theme resolves style tokens; nil means the built-in default.
	Theme *theme.Theme
	// Listener receives notices. Nil listeners are allowed.
	Listener func(Notice)
	// LastFocused seeds the focus manager's per-zone memory.
	LastFocused map[string]string
}

// App is a running zr application.
type App interface {
	// Run starts the engine and runs the event loop until Stop is
	// called or ctx is cancelled. It is not re-entrant.
	Run(ctx context.Context) error
	// Stop makes Run return. It never blocks.
	Stop()
	// Schedule runs f on the loop goroutine and commits afterwards. It
	// may be called from any goroutine.
	Schedule(f func())
	// Navigate switches to a route. Unknown routes show the built-in
	// error screen.
	Navigate(route string)
	// SetRoot swaps the render function at runtime. Mounted instances
	// whose identity survives keep their state; a prior render error
	// is cleared unconditionally.
	SetRoot(c widget.Comp)
	// SetRoutes swaps the route table at runtime, clearing any render
	// error.
	SetRoutes(m map[string]widget.Comp, initial string)
	// Emit delivers an ActionNotice to the listener via the loop.
	Emit(action string)
	// FocusManager exposes the focus state. It must only be used from
	// the loop goroutine (Schedule).
	FocusManager() *focus.Manager
}

type app struct {
	engine   backend.Engine
	listener func(Notice)
	theme    *theme.Theme

	tree     *widget.Tree
	fm       *focus.Manager
	cache    *layout.Cache
	renderer *render.Renderer
	builder  wire.DrawlistBuilder

	// Render-mode state, owned by the loop goroutine.
	root   widget.Comp
	routes map[string]widget.Comp
	route  string
	// renderErr holds the recovered render panic shown by the error
	// screen; empty means healthy.
	renderErr string

	cols, rows int
	lastLayout *layout.Result
	// forced requests a full commit regardless of pending state, for
	// example after a resize.
	forced bool

	// Edit shadow: the value and cursor of edits proposed against the
	// focused input since the last commit. See currentEdit.
	editLive   bool
	editID     string
	editValue  string
	editCursor int

	events  chan *wire.Batch
	fns     chan func()
	wakeCh  chan struct{}
	stopCh  chan struct{}
	pending chan []byte
}

// NewApp creates an App. Run starts it.
func NewApp(spec AppSpec) App {
	a := &app{
		engine:   spec.Engine,
		listener: spec.Listener,
		theme:    spec.Theme,
		fm:       focus.NewManager(),
		cache:    layout.NewCache(),
		renderer: render.New(),
		root:     spec.Root,
		routes:   spec.Routes,
		route:    spec.InitialRoute,
		events:   make(chan *wire.Batch, chanSize),
		fns:      make(chan func(), chanSize),
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		pending:  make(chan []byte, 1),
	}
	if a.listener == nil {
		a.listener = func(Notice) {}
	}
	if a.theme == nil {
		a.theme = theme.Default()
	}
	a.tree = widget.NewTree(a.wake)
	if spec.LastFocused != nil {
		a.fm.SetLastFocused(spec.LastFocused)
	}
	return a
}

// wake nudges the loop to run a commit. It never blocks.
func (a *app) wake() {
	select {
	case a.wakeCh <- struct{}{}:
	default:
	}
}

func (a *app) Stop() {
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
}

func (a *app) Schedule(f func()) {
	select {
	case a.fns <- f:
		a.wake()
	case <-a.stopCh:
	}
}

func (a *app) Navigate(route string) {
	a.Schedule(func() {
		a.renderErr = ""
		a.route = route
	})
}

func (a *app) SetRoot(c widget.Comp) {
	a.Schedule(func() {
		a.renderErr = ""
		if a.routes != nil {
			a.fatal(&widget.FatalError{
				Code:   widget.CodeMixedModes,
				Detail: "SetRoot called on an app in route table mode",
			})
			return
		}
		a.root = c
	})
}

func (a *app) SetRoutes(m map[string]widget.Comp, initial string) {
	a.Schedule(func() {
		a.renderErr = ""
		if a.root != nil {
			a.fatal(&widget.FatalError{
				Code:   widget.CodeMixedModes,
				Detail: "SetRoutes called on an app in single render function mode",
			})
			return
		}
		a.routes = m
		a.route = initial
	})
}

func (a *app) Emit(action string) {
	a.Schedule(func() { a.listener(ActionNotice{Action: action}) })
}

func (a *app) FocusManager() *focus.Manager { return a.fm }

func (a *app) fatal(fe *widget.FatalError) {
	logger.Printf("fatal: %v", fe)
	a.listener(FatalNotice{Err: fe})
}

// Run implements the loop described in the package comment. On return
// every mounted effect cleanup has run and the engine is stopped.
func (a *app) Run(ctx context.Context) error {
	if (a.root == nil) == (a.routes == nil) {
		fe := &widget.FatalError{
			Code:   widget.CodeMixedModes,
			Detail: "exactly one of Root and Routes must be configured",
		}
		a.fatal(fe)
		return fe
	}
	if err := a.engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	caps, err := a.engine.Caps()
	if err != nil {
		return fmt.Errorf("engine caps: %w", err)
	}
	a.cols, a.rows = caps.Cols, caps.Rows

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	go a.pollLoop(pollCtx)
	go a.submitLoop(pollCtx)

	// First frame.
	a.commit()

	for {
		select {
		case <-ctx.Done():
			a.teardown(ctx)
			return ctx.Err()
		case <-a.stopCh:
			a.teardown(ctx)
			return nil
		case batch := <-a.events:
			focusDirty := a.handleBatch(batch)
			// Drain whatever queued up behind this batch before
			// committing, so one commit covers them all.
			focusDirty = a.drain(focusDirty)
			a.maybeCommit(focusDirty)
		case f := <-a.fns:
			f()
			a.forced = true
			a.maybeCommit(a.drain(false))
		case <-a.wakeCh:
			focusDirty := a.drain(false)
			a.maybeCommit(focusDirty)
		}
	}
}

// drain consumes queued batches and closures without blocking.
func (a *app) drain(focusDirty bool) bool {
	for {
		select {
		case batch := <-a.events:
			if a.handleBatch(batch) {
				focusDirty = true
			}
		case f := <-a.fns:
			f()
			a.forced = true
		default:
			return focusDirty
		}
	}
}

// maybeCommit runs the cheapest pipeline covering what changed: a full
// commit when state changed, a render-only pass when only focus moved,
// nothing otherwise.
func (a *app) maybeCommit(focusDirty bool) {
	changed := a.tree.ApplyPending()
	if changed || a.forced {
		a.forced = false
		a.commit()
		return
	}
	if focusDirty {
		a.renderOnly()
	}
}

// pollLoop feeds decoded event batches into the loop. It exits when the
// engine stops or the context is cancelled.
func (a *app) pollLoop(ctx context.Context) {
	for {
		blob, err := a.engine.PollEvents(ctx)
		if err != nil {
			if !errors.Is(err, backend.ErrStopped) && ctx.Err() == nil {
				logger.Printf("poll: %v", err)
			}
			return
		}
		batch, err := wire.DecodeBatch(blob)
		if err != nil {
			var de *wire.DecodeError
			if errors.As(err, &de) {
				a.Schedule(func() { a.listener(DecodeNotice{Err: de}) })
			}
			continue
		}
		select {
		case a.events <- batch:
		case <-ctx.Done():
			return
		}
	}
}

// submitLoop owns RequestFrame, keeping at most one frame in flight.
// While a frame awaits its ack, newer frames coalesce in the pending
// slot; only the latest is submitted next.
func (a *app) submitLoop(ctx context.Context) {
	for {
		select {
		case frame := <-a.pending:
			if err := a.engine.RequestFrame(ctx, frame); err != nil {
				if ctx.Err() == nil && !errors.Is(err, backend.ErrStopped) {
					logger.Printf("submit: %v", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// submit queues a frame for the submit loop, replacing any not yet
// submitted frame.
func (a *app) submit(frame []byte) {
	for {
		select {
		case a.pending <- frame:
			return
		default:
			select {
			case <-a.pending:
			default:
			}
		}
	}
}

// teardown unmounts the tree (running all effect cleanups) and stops
// the engine.
func (a *app) teardown(ctx context.Context) {
	a.tree.Unmount()
	if err := a.engine.Stop(ctx); err != nil && !errors.Is(err, backend.ErrDisposed) {
		logger.Printf("stop engine: %v", err)
	}
}
