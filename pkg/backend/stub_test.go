package backend_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"src.zr.sh/pkg/backend"
	"src.zr.sh/pkg/testutil"
	"src.zr.sh/pkg/wire"
)

func startedStub(t *testing.T, cols, rows int) (*backend.Stub, backend.StubCtrl) {
	t.Helper()
	s, ctrl := backend.NewStub(cols, rows)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start -> %v", err)
	}
	t.Cleanup(func() { s.Dispose() })
	return s, ctrl
}

func encodeFrame(f func(b *wire.DrawlistBuilder)) []byte {
	var b wire.DrawlistBuilder
	f(&b)
	return b.Bytes()
}

func TestStub_FrameAppliesToScreen(t *testing.T) {
	s, ctrl := startedStub(t, 10, 2)
	frame := encodeFrame(func(b *wire.DrawlistBuilder) {
		b.TextRun(0, 0, "hello", wire.Style{})
		b.TextRun(0, 1, "world", wire.Style{})
	})
	if err := s.RequestFrame(context.Background(), frame); err != nil {
		t.Fatalf("RequestFrame -> %v", err)
	}
	if got := ctrl.Row(0); got != "hello" {
		t.Errorf("row 0 = %q, want hello", got)
	}
	if got := ctrl.Row(1); got != "world" {
		t.Errorf("row 1 = %q, want world", got)
	}
	if m := ctrl.Metrics(); m.FramesPresented != 1 || m.BytesSubmitted != uint64(len(frame)) {
		t.Errorf("metrics = %+v, want one presented frame of %d bytes", m, len(frame))
	}
}

func TestStub_ClipConfinesDrawing(t *testing.T) {
	s, ctrl := startedStub(t, 10, 1)
	frame := encodeFrame(func(b *wire.DrawlistBuilder) {
		b.PushClip(0, 0, 3, 1)
		b.TextRun(0, 0, "clipped", wire.Style{})
		b.PopClip()
	})
	if err := s.RequestFrame(context.Background(), frame); err != nil {
		t.Fatalf("RequestFrame -> %v", err)
	}
	if got := ctrl.Row(0); got != "cli" {
		t.Errorf("row 0 = %q, want cli", got)
	}
}

func TestStub_RejectsMalformedFrame(t *testing.T) {
	s, _ := startedStub(t, 10, 2)
	err := s.RequestFrame(context.Background(), []byte("not a drawlist"))
	var de *wire.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("RequestFrame -> %v, want DecodeError", err)
	}
}

func TestStub_EnforcesLimits(t *testing.T) {
	s, _ := startedStub(t, 10, 2)
	deep := encodeFrame(func(b *wire.DrawlistBuilder) {
		for i := 0; i < backend.DefaultLimits().MaxClipDepth+1; i++ {
			b.PushClip(0, 0, 10, 2)
		}
		for i := 0; i < backend.DefaultLimits().MaxClipDepth+1; i++ {
			b.PopClip()
		}
	})
	err := s.RequestFrame(context.Background(), deep)
	var le *backend.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("RequestFrame -> %v, want LimitError", err)
	}
	if le.Limit != "clip depth" {
		t.Errorf("limit = %q, want clip depth", le.Limit)
	}
}

func TestStub_InjectAndPoll(t *testing.T) {
	s, ctrl := startedStub(t, 10, 2)
	ctrl.InjectKey(wire.KeyEnter, wire.Ctrl)
	ctrl.InjectText("hi")

	batch1, err := s.PollEvents(context.Background())
	if err != nil {
		t.Fatalf("PollEvents -> %v", err)
	}
	b1, err := wire.DecodeBatch(batch1)
	if err != nil {
		t.Fatalf("DecodeBatch -> %v", err)
	}
	if len(b1.Events) != 1 {
		t.Fatalf("first batch has %d events, want 1", len(b1.Events))
	}
	key, ok := b1.Events[0].(wire.KeyEvent)
	if !ok || key.Code != wire.KeyEnter || key.Mods != wire.Ctrl {
		t.Errorf("event = %#v, want ctrl-enter", b1.Events[0])
	}

	batch2, _ := s.PollEvents(context.Background())
	b2, err := wire.DecodeBatch(batch2)
	if err != nil {
		t.Fatalf("DecodeBatch -> %v", err)
	}
	if len(b2.Events) != 2 {
		t.Fatalf("second batch has %d events, want 2", len(b2.Events))
	}
}

func TestStub_PostUserEvent(t *testing.T) {
	s, _ := startedStub(t, 10, 2)
	if err := s.PostUserEvent(7, []byte("ping")); err != nil {
		t.Fatalf("PostUserEvent -> %v", err)
	}
	batch, _ := s.PollEvents(context.Background())
	b, err := wire.DecodeBatch(batch)
	if err != nil {
		t.Fatalf("DecodeBatch -> %v", err)
	}
	ue, ok := b.Events[0].(wire.UserEvent)
	if !ok || ue.Tag != 7 || string(ue.Payload) != "ping" {
		t.Errorf("event = %#v, want user tag 7 payload ping", b.Events[0])
	}
}

func TestStub_StopInterruptsPoll(t *testing.T) {
	s, _ := startedStub(t, 10, 2)
	polled := make(chan error, 1)
	go func() {
		_, err := s.PollEvents(context.Background())
		polled <- err
	}()
	// Give the poll a moment to block before stopping.
	time.Sleep(testutil.Scaled(time.Millisecond))
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop -> %v", err)
	}
	select {
	case err := <-polled:
		if !errors.Is(err, backend.ErrStopped) {
			t.Errorf("PollEvents -> %v, want ErrStopped", err)
		}
	case <-time.After(testutil.Scaled(time.Second)):
		t.Fatal("PollEvents not interrupted by Stop")
	}
}

func TestStub_Lifecycle(t *testing.T) {
	s, _ := backend.NewStub(10, 2)
	ctx := context.Background()
	if _, err := s.PollEvents(ctx); !errors.Is(err, backend.ErrNotStarted) {
		t.Errorf("PollEvents before Start -> %v, want ErrNotStarted", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start -> %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop -> %v", err)
	}
	// Start after Stop restarts.
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart -> %v", err)
	}
	if err := s.Dispose(); err != nil {
		t.Fatalf("Dispose -> %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, backend.ErrDisposed) {
		t.Errorf("Start after Dispose -> %v, want ErrDisposed", err)
	}
	if _, err := s.Caps(); !errors.Is(err, backend.ErrDisposed) {
		t.Errorf("Caps after Dispose -> %v, want ErrDisposed", err)
	}
}

func TestScreen_WideRunes(t *testing.T) {
	s, ctrl := startedStub(t, 6, 1)
	frame := encodeFrame(func(b *wire.DrawlistBuilder) {
		b.TextRun(0, 0, "你好", wire.Style{})
	})
	if err := s.RequestFrame(context.Background(), frame); err != nil {
		t.Fatalf("RequestFrame -> %v", err)
	}
	// Each wide rune occupies two columns; the dump still frames a
	// 6-column row.
	if got := ctrl.Row(0); got != "你好" {
		t.Errorf("row 0 = %q, want 你好", got)
	}
	if !strings.Contains(ctrl.Screen(), "┌──────┐") {
		t.Errorf("screen dump lost its frame:\n%s", ctrl.Screen())
	}
}
