package wire_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.zr.sh/pkg/wire"
)

func buildFrame(label string) []byte {
	var b wire.DrawlistBuilder
	st := wire.Style{FG: wire.RGB(200, 200, 200), BG: wire.ColorDefault}
	b.PushClip(0, 0, 80, 24)
	b.Fill(0, 0, 80, 24, ' ', st)
	b.TextRun(2, 1, label, st)
	b.TextRun(2, 2, label, st) // interned: shares the first span
	b.Cursor(2, 1, wire.CursorBar, true, true)
	b.PopClip()
	return b.Bytes()
}

func TestDrawlistRoundTrip(t *testing.T) {
	buf := buildFrame("hello — 世界")
	d, err := wire.ParseDrawlist(buf)
	if err != nil {
		t.Fatalf("ParseDrawlist -> %v", err)
	}
	if len(d.Cmds) != 6 {
		t.Fatalf("decoded %d commands, want 6", len(d.Cmds))
	}
	if len(d.Strings) != 1 {
		t.Errorf("string table has %d entries, want 1 (interning)", len(d.Strings))
	}
	ops := make([]wire.Op, len(d.Cmds))
	for i, c := range d.Cmds {
		ops[i] = c.Op
	}
	wantOps := []wire.Op{wire.OpClipPush, wire.OpFill, wire.OpText, wire.OpText, wire.OpCursor, wire.OpClipPop}
	if diff := cmp.Diff(wantOps, ops); diff != "" {
		t.Errorf("ops differ (-want +got):\n%s", diff)
	}
	if got := d.Text(d.Cmds[2]); got != "hello — 世界" {
		t.Errorf("Text = %q", got)
	}
	if c := d.Cmds[4]; c.Op != wire.OpCursor || !c.Blink || !c.Visible || c.Shape != wire.CursorBar {
		t.Errorf("cursor command = %+v", c)
	}
	if len(buf)%4 != 0 {
		t.Errorf("frame size %d not 4-byte aligned", len(buf))
	}
}

func TestDrawlistEmptyFrame(t *testing.T) {
	var b wire.DrawlistBuilder
	d, err := wire.ParseDrawlist(b.Bytes())
	if err != nil {
		t.Fatalf("ParseDrawlist -> %v", err)
	}
	if len(d.Cmds) != 0 || len(d.Strings) != 0 {
		t.Errorf("empty frame decoded to %d commands, %d strings", len(d.Cmds), len(d.Strings))
	}
}

func TestDrawlistBuilderReset(t *testing.T) {
	var b wire.DrawlistBuilder
	b.TextRun(0, 0, "first", wire.Style{})
	first := b.Bytes()
	b.Reset()
	b.TextRun(0, 0, "second", wire.Style{})
	second := b.Bytes()

	d, err := wire.ParseDrawlist(second)
	if err != nil {
		t.Fatalf("ParseDrawlist -> %v", err)
	}
	if got := d.Text(d.Cmds[0]); got != "second" {
		t.Errorf("after Reset, text = %q, want %q", got, "second")
	}
	if _, err := wire.ParseDrawlist(first); err != nil {
		t.Errorf("first frame invalidated by Reset: %v", err)
	}
}

func TestParseDrawlistErrors(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[0:], 1); return b }},
		{"bad version", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[4:], 9); return b }},
		{"total beyond buffer", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[12:], uint32(len(b)*2)); return b }},
		{"cmd region outside", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[20:], uint32(len(b))); return b }},
		{"span outside bytes", func(b []byte) []byte {
			spanOffset := binary.LittleEndian.Uint32(b[28:])
			binary.LittleEndian.PutUint32(b[spanOffset+4:], 0xFFFF)
			return b
		}},
		{"cmd count short", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[24:], 2); return b }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := wire.ParseDrawlist(test.corrupt(buildFrame("x")))
			var de *wire.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("ParseDrawlist -> %v, want DecodeError", err)
			}
		})
	}
}

func TestSplitFrames(t *testing.T) {
	f1 := buildFrame("one")
	f2 := buildFrame("two")
	f3 := buildFrame("three")
	stream := append(append(append([]byte{}, f1...), f2...), f3...)

	frames, err := wire.SplitFrames(stream)
	if err != nil {
		t.Fatalf("SplitFrames -> %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("split into %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		d, err := wire.ParseDrawlist(f)
		if err != nil {
			t.Fatalf("frame %d: ParseDrawlist -> %v", i, err)
		}
		want := []string{"one", "two", "three"}[i]
		if got := d.Text(d.Cmds[2]); got != want {
			t.Errorf("frame %d text = %q, want %q", i, got, want)
		}
	}
}

func TestSplitFramesPartialTail(t *testing.T) {
	f1 := buildFrame("one")
	f2 := buildFrame("two")
	stream := append(append([]byte{}, f1...), f2[:20]...)

	_, err := wire.SplitFrames(stream)
	var de *wire.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("SplitFrames -> %v, want DecodeError", err)
	}
	if de.Offset != len(f1)+12 {
		t.Errorf("Offset = %d, want %d", de.Offset, len(f1)+12)
	}
}

func TestSplitFramesEmpty(t *testing.T) {
	frames, err := wire.SplitFrames(nil)
	if err != nil {
		t.Fatalf("SplitFrames(nil) -> %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("split empty stream into %d frames", len(frames))
	}
}
