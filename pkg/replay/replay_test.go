package replay_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.zr.sh/pkg/backend"
	"src.zr.sh/pkg/replay"
	"src.zr.sh/pkg/wire"
)

func TestRecorder_RoundTrip(t *testing.T) {
	db := replay.MustTempDB(t)
	stub, ctrl := backend.NewStub(20, 5)
	ctx := context.Background()
	if err := stub.Start(ctx); err != nil {
		t.Fatalf("Start -> %v", err)
	}
	defer stub.Dispose()

	rec, err := replay.NewRecorder(stub, db, "round trip")
	if err != nil {
		t.Fatalf("NewRecorder -> %v", err)
	}

	var b wire.DrawlistBuilder
	b.TextRun(0, 0, "frame one", wire.Style{})
	frame := b.Bytes()
	if err := rec.RequestFrame(ctx, frame); err != nil {
		t.Fatalf("RequestFrame -> %v", err)
	}

	ctrl.InjectKey(wire.KeyEnter, 0)
	batch, err := rec.PollEvents(ctx)
	if err != nil {
		t.Fatalf("PollEvents -> %v", err)
	}

	p, err := replay.Load(db, rec.Session())
	if err != nil {
		t.Fatalf("Load -> %v", err)
	}
	if p.Meta.Cols != 20 || p.Meta.Rows != 5 || p.Meta.Note != "round trip" {
		t.Errorf("meta = %+v, want 20x5 with the note", p.Meta)
	}
	if diff := cmp.Diff([][]byte{frame}, p.Frames); diff != "" {
		t.Errorf("frames (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]byte{batch}, p.Events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}

	// The recorded batch still decodes to the injected event.
	decoded, err := wire.DecodeBatch(p.Events[0])
	if err != nil {
		t.Fatalf("DecodeBatch -> %v", err)
	}
	if key, ok := decoded.Events[0].(wire.KeyEvent); !ok || key.Code != wire.KeyEnter {
		t.Errorf("recorded event = %#v, want the enter key", decoded.Events[0])
	}
}

func TestSessions_ListsEveryRecording(t *testing.T) {
	db := replay.MustTempDB(t)
	ctx := context.Background()
	ids := make(map[string]bool)
	for i := 0; i < 3; i++ {
		stub, _ := backend.NewStub(10, 2)
		if err := stub.Start(ctx); err != nil {
			t.Fatalf("Start -> %v", err)
		}
		rec, err := replay.NewRecorder(stub, db, "")
		if err != nil {
			t.Fatalf("NewRecorder -> %v", err)
		}
		ids[rec.Session()] = true
		stub.Dispose()
	}
	metas, err := db.Sessions()
	if err != nil {
		t.Fatalf("Sessions -> %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("got %d sessions, want 3", len(metas))
	}
	for _, meta := range metas {
		if !ids[meta.ID] {
			t.Errorf("unexpected session %s", meta.ID)
		}
	}
}

func TestLoad_UnknownSession(t *testing.T) {
	db := replay.MustTempDB(t)
	if _, err := replay.Load(db, "no-such-session"); !errors.Is(err, replay.ErrNoSession) {
		t.Errorf("Load -> %v, want ErrNoSession", err)
	}
}
