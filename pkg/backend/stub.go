package backend

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"src.zr.sh/pkg/logutil"
	"src.zr.sh/pkg/testutil"
	"src.zr.sh/pkg/wire"
)

var logger = logutil.GetLogger("[backend] ")

// Buffer sizes of the stub's injection channel. Batches injected beyond
// the buffer are dropped and counted, like a saturated engine.
const stubEventBatches = 4096

type engineState int

const (
	engineCreated engineState = iota
	engineStarted
	engineStopped
	engineDisposed
)

// Stub is an in-memory engine. It applies submitted drawlists to a
// cell-grid screen and yields injected event batches, making the whole
// runtime testable without a terminal.
type Stub struct {
	limits Limits

	mu      sync.RWMutex
	state   engineState
	screen  *Screen
	frames  [][]byte
	metrics Metrics
	dropped uint32
	ackGate chan struct{} // non-nil while acks are held
	stop    chan struct{}

	eventCh chan []byte
	frameCh chan struct{}
	start   time.Time
}

// StubCtrl is the test-facing control handle of a Stub.
type StubCtrl struct {
	s *Stub
}

// NewStub returns a stub engine with the given screen size and the
// default limits, plus its control handle.
func NewStub(cols, rows int) (*Stub, StubCtrl) {
	s := &Stub{
		limits:  DefaultLimits(),
		screen:  NewScreen(cols, rows),
		stop:    make(chan struct{}),
		eventCh: make(chan []byte, stubEventBatches),
		frameCh: make(chan struct{}, 1),
		start:   time.Now(),
	}
	return s, StubCtrl{s}
}

func (s *Stub) check() error {
	switch s.state {
	case engineDisposed:
		return ErrDisposed
	case engineCreated, engineStopped:
		return ErrNotStarted
	}
	return nil
}

// Start brings the stub up. A stopped stub restarts.
func (s *Stub) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == engineDisposed {
		return ErrDisposed
	}
	if s.state == engineStarted {
		return nil
	}
	s.state = engineStarted
	s.stop = make(chan struct{})
	return nil
}

// Stop shuts the stub down, interrupting a blocked PollEvents.
func (s *Stub) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == engineDisposed {
		return ErrDisposed
	}
	if s.state != engineStarted {
		return nil
	}
	s.state = engineStopped
	close(s.stop)
	return nil
}

// Dispose releases the stub permanently.
func (s *Stub) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == engineDisposed {
		return ErrDisposed
	}
	if s.state == engineStarted {
		close(s.stop)
	}
	s.state = engineDisposed
	return nil
}

// RequestFrame validates the drawlist against the limits, applies it to
// the screen and returns once the frame is acknowledged. Acks are
// immediate unless the control handle holds them.
func (s *Stub) RequestFrame(ctx context.Context, drawlist []byte) error {
	s.mu.Lock()
	if err := s.check(); err != nil {
		s.mu.Unlock()
		return err
	}
	dl, err := s.validate(drawlist)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.screen.Apply(dl)
	frame := make([]byte, len(drawlist))
	copy(frame, drawlist)
	s.frames = append(s.frames, frame)
	s.metrics.FramesPresented++
	s.metrics.BytesSubmitted += uint64(len(drawlist))
	gate := s.ackGate
	stop := s.stop
	s.mu.Unlock()

	select {
	case s.frameCh <- struct{}{}:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-stop:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// validate decodes a submitted drawlist and enforces the limits on it.
func (s *Stub) validate(drawlist []byte) (*wire.Drawlist, error) {
	l := s.limits
	if len(drawlist) > l.MaxTotalBytes {
		return nil, &LimitError{"total bytes", l.MaxTotalBytes, len(drawlist)}
	}
	dl, err := wire.ParseDrawlist(drawlist)
	if err != nil {
		return nil, err
	}
	if len(dl.Cmds) > l.MaxCmds {
		return nil, &LimitError{"command count", l.MaxCmds, len(dl.Cmds)}
	}
	if len(dl.Strings) > l.MaxStrings {
		return nil, &LimitError{"string count", l.MaxStrings, len(dl.Strings)}
	}
	blob := 0
	for _, str := range dl.Strings {
		blob += len(str)
	}
	if blob > l.MaxBlobBytes {
		return nil, &LimitError{"string bytes", l.MaxBlobBytes, blob}
	}
	depth, maxDepth := 0, 0
	for _, c := range dl.Cmds {
		switch c.Op {
		case wire.OpClipPush:
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case wire.OpClipPop:
			depth--
		}
	}
	if maxDepth > l.MaxClipDepth {
		return nil, &LimitError{"clip depth", l.MaxClipDepth, maxDepth}
	}
	return dl, nil
}

// PollEvents blocks for the next injected event batch.
func (s *Stub) PollEvents(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	if err := s.check(); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	stop := s.stop
	s.mu.RUnlock()

	select {
	case batch := <-s.eventCh:
		s.mu.Lock()
		s.metrics.EventsPolled++
		s.mu.Unlock()
		return batch, nil
	case <-stop:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PostUserEvent queues a user event, which the runtime receives from
// PollEvents like any input.
func (s *Stub) PostUserEvent(tag uint32, payload []byte) error {
	s.mu.RLock()
	err := s.check()
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	data := make([]byte, len(payload))
	copy(data, payload)
	s.inject(wire.UserEvent{Time: s.now(), Tag: tag, Payload: data})
	return nil
}

// Caps describes the stub: an RGB-capable terminal of the configured
// size.
func (s *Stub) Caps() (Caps, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == engineDisposed {
		return Caps{}, ErrDisposed
	}
	return Caps{
		ColorMode: ColorRGB,
		Cols:      s.screen.Cols,
		Rows:      s.screen.Rows,
		Mouse:     true,
		Paste:     true,
		Title:     true,
	}, nil
}

func (s *Stub) now() uint32 {
	return uint32(time.Since(s.start).Milliseconds())
}

// inject encodes the events as one batch and queues it. A full queue
// drops the batch and bumps the dropped counter.
func (s *Stub) inject(events ...wire.Event) {
	s.mu.Lock()
	dropped := s.dropped
	s.mu.Unlock()
	select {
	case s.eventCh <- wire.EncodeBatch(events, 0, dropped):
	default:
		s.mu.Lock()
		s.dropped += uint32(len(events))
		s.metrics.EventsDropped += uint64(len(events))
		s.mu.Unlock()
		logger.Printf("event queue full, dropped %d events", len(events))
	}
}

// Inject queues arbitrary events as one batch.
func (c StubCtrl) Inject(events ...wire.Event) {
	c.s.inject(events...)
}

// InjectKey queues a key press.
func (c StubCtrl) InjectKey(code wire.KeyCode, mods wire.Mod) {
	c.s.inject(wire.KeyEvent{Time: c.s.now(), Code: code, Mods: mods, Action: wire.KeyPress})
}

// InjectText queues one text event per rune of s.
func (c StubCtrl) InjectText(s string) {
	var events []wire.Event
	for _, r := range s {
		events = append(events, wire.TextEvent{Time: c.s.now(), Rune: r})
	}
	c.s.inject(events...)
}

// InjectPaste queues a bracketed paste.
func (c StubCtrl) InjectPaste(data []byte) {
	c.s.inject(wire.PasteEvent{Time: c.s.now(), Data: data})
}

// InjectClick queues a mouse down/up pair at the cell (x, y).
func (c StubCtrl) InjectClick(x, y int) {
	t := c.s.now()
	c.s.inject(
		wire.MouseEvent{Time: t, X: int32(x), Y: int32(y), Buttons: 1, Action: wire.MouseDown},
		wire.MouseEvent{Time: t, X: int32(x), Y: int32(y), Action: wire.MouseUp},
	)
}

// Resize changes the screen size and queues a resize event.
func (c StubCtrl) Resize(cols, rows int) {
	c.s.mu.Lock()
	c.s.screen.Resize(cols, rows)
	c.s.mu.Unlock()
	c.s.inject(wire.ResizeEvent{Time: c.s.now(), Cols: uint32(cols), Rows: uint32(rows)})
}

// HoldAcks makes RequestFrame block after applying a frame, until
// ReleaseAcks. It models a slow engine for backpressure tests.
func (c StubCtrl) HoldAcks() {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.ackGate == nil {
		c.s.ackGate = make(chan struct{})
	}
}

// ReleaseAcks releases every held and future ack.
func (c StubCtrl) ReleaseAcks() {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.ackGate != nil {
		close(c.s.ackGate)
		c.s.ackGate = nil
	}
}

// Screen returns the box-framed text dump of the current screen.
func (c StubCtrl) Screen() string {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.s.screen.String()
}

// Row returns one screen row, trailing spaces trimmed.
func (c StubCtrl) Row(y int) string {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.s.screen.Row(y)
}

// FrameHistory returns the submitted drawlist blobs in order.
func (c StubCtrl) FrameHistory() [][]byte {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	frames := make([][]byte, len(c.s.frames))
	copy(frames, c.s.frames)
	return frames
}

// Metrics returns a snapshot of the stub's counters.
func (c StubCtrl) Metrics() Metrics {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.s.metrics
}

// TestScreen fails the test unless a screen containing want as a
// substring of its dump appears within a (scaled) 100 ms deadline.
func (c StubCtrl) TestScreen(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(testutil.Scaled(100 * time.Millisecond))
	for {
		if got := c.Screen(); strings.Contains(got, want) {
			return
		}
		select {
		case <-c.s.frameCh:
		case <-deadline:
			t.Fatalf("wanted screen content not shown: %q\nlast screen:\n%s", want, c.Screen())
		}
	}
}
