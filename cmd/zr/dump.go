package main

import (
	"fmt"
	"io"
	"time"

	"src.zr.sh/pkg/backend"
	"src.zr.sh/pkg/replay"
	"src.zr.sh/pkg/wire"
)

func listSessions(cfg Config, out, errOut io.Writer) int {
	db, err := replay.Open(cfg.Replay.DB)
	if err != nil {
		fmt.Fprintln(errOut, "zr:", err)
		return 2
	}
	defer db.Close()

	metas, err := db.Sessions()
	if err != nil {
		fmt.Fprintln(errOut, "zr:", err)
		return 2
	}
	if len(metas) == 0 {
		fmt.Fprintln(out, "no recorded sessions")
		return 0
	}
	for _, m := range metas {
		started := time.UnixMilli(m.StartedMs).Format(time.RFC3339)
		fmt.Fprintf(out, "%s  %s  %dx%d  %s\n", m.ID, started, m.Cols, m.Rows, m.Note)
	}
	return 0
}

// dumpSession prints a recorded session: its metadata, every event, and
// each frame applied in order to an off-screen cell grid.
func dumpSession(cfg Config, session string, out, errOut io.Writer) int {
	db, err := replay.Open(cfg.Replay.DB)
	if err != nil {
		fmt.Fprintln(errOut, "zr:", err)
		return 2
	}
	defer db.Close()

	player, err := replay.Load(db, session)
	if err != nil {
		fmt.Fprintln(errOut, "zr:", err)
		return 2
	}
	meta := player.Meta
	fmt.Fprintf(out, "session %s (%dx%d) %s\n",
		meta.ID, meta.Cols, meta.Rows, meta.Note)

	for i, blob := range player.Events {
		batch, err := wire.DecodeBatch(blob)
		if err != nil {
			fmt.Fprintf(out, "batch %d: %v\n", i, err)
			continue
		}
		for _, ev := range batch.Events {
			fmt.Fprintf(out, "  %6dms %s\n", ev.When(), eventString(ev))
		}
	}

	screen := backend.NewScreen(meta.Cols, meta.Rows)
	for i, blob := range player.Frames {
		dl, err := wire.ParseDrawlist(blob)
		if err != nil {
			fmt.Fprintf(out, "frame %d: %v\n", i, err)
			continue
		}
		screen.Apply(dl)
		fmt.Fprintf(out, "frame %d (%d commands):\n%s", i, len(dl.Cmds), screen)
	}
	return 0
}

func eventString(ev wire.Event) string {
	switch e := ev.(type) {
	case wire.KeyEvent:
		return fmt.Sprintf("key %#x mods %#x", uint32(e.Code), uint32(e.Mods))
	case wire.TextEvent:
		return fmt.Sprintf("text %q", e.Rune)
	case wire.MouseEvent:
		return fmt.Sprintf("mouse %d at (%d, %d)", e.Action, e.X, e.Y)
	case wire.ResizeEvent:
		return fmt.Sprintf("resize %dx%d", e.Cols, e.Rows)
	case wire.TickEvent:
		return "tick"
	case wire.PasteEvent:
		return fmt.Sprintf("paste %d bytes", len(e.Data))
	case wire.UserEvent:
		return fmt.Sprintf("user tag %d, %d bytes", e.Tag, len(e.Payload))
	}
	return "unknown"
}
