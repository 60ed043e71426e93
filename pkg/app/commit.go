package app

import (
	"fmt"

	"src.zr.sh/pkg/layout"
	"src.zr.sh/pkg/widget"
)

// commit runs one full cycle: reconcile, layout (unless the stability
// cache rules it out), focus finalize, render, submit. A commit always
// runs to completion once started; only a fatal reconcile aborts it,
// leaving the previous frame on screen.
func (a *app) commit() {
	a.tree.ApplyPending()
	a.editLive = false
	comp := a.currentComp()
	if err := a.reconcile(comp); err != nil {
		if fe, ok := err.(*widget.FatalError); ok {
			a.fatal(fe)
			return
		}
		// A render function panicked. Swap in the error screen and
		// run the commit with it; the error screen itself cannot
		// panic.
		a.renderErr = err.Error()
		logger.Printf("render error: %v", err)
		if err := a.reconcile(a.currentComp()); err != nil {
			a.fatal(&widget.FatalError{Code: "error-screen", Detail: err.Error()})
			return
		}
	}

	if !a.cache.Check(a.tree.Root(), a.cols, a.rows) || a.lastLayout == nil {
		a.lastLayout = layout.Compute(a.tree.Root(), a.cols, a.rows)
	}
	a.fm.Rebuild(a.tree.Root())
	a.renderFrame()
	a.tree.FlushEffects()
}

// renderOnly re-emits the frame without touching the tree: no render
// functions run and no layout is computed. Used when only focus moved.
func (a *app) renderOnly() {
	if a.lastLayout == nil {
		a.commit()
		return
	}
	a.renderFrame()
}

func (a *app) renderFrame() {
	a.builder.Reset()
	a.renderer.Render(a.tree.Root(), a.lastLayout, a.fm.Snapshot(), a.theme, &a.builder)
	a.submit(a.builder.Bytes())
}

// renderPanicError wraps a panic recovered from a component render
// function. It is recoverable: the error screen replaces the tree until
// the render function or route table is swapped.
type renderPanicError struct {
	val any
}

func (e renderPanicError) Error() string {
	return fmt.Sprintf("render function panicked: %v", e.val)
}

// reconcile runs the reconciler under a recover converting render
// panics into renderPanicError. Fatal errors pass through as
// *widget.FatalError.
func (a *app) reconcile(comp widget.Comp) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = renderPanicError{r}
		}
	}()
	return a.tree.Reconcile(comp)
}

// currentComp resolves the render function for this commit: the error
// screen while a render error is pending, the configured root, or the
// current route.
func (a *app) currentComp() widget.Comp {
	if a.renderErr != "" {
		return errorScreen(a.renderErr)
	}
	if a.root != nil {
		return a.root
	}
	comp, ok := a.routes[a.route]
	if !ok {
		return errorScreen(fmt.Sprintf("no such route: %q", a.route))
	}
	return comp
}

// errorScreen is the built-in screen shown for recoverable render
// errors. Swapping the render function or route table clears it.
func errorScreen(msg string) widget.Comp {
	return func(c widget.Ctx) widget.Node {
		return widget.Screen(widget.Props{Dir: widget.Column, Pad: widget.Even(1), Gap: 1},
			widget.Text("render error", widget.Props{
				Style: widget.Style{FG: "error", Bold: true},
			}),
			widget.Text(msg, widget.Props{
				Grow:  1,
				Style: widget.Style{FG: "error", Dim: true},
			}),
			widget.Text("swap in a new render function or route table to retry", widget.Props{
				Style: widget.Style{FG: "muted"},
			}),
		)
	}
}
