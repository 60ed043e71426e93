// Zr is a demo driver for the zr runtime. It runs a small two-pane
// application against the in-memory engine, printing the screen after
// each scripted step, and can record the run into a replay database and
// print recorded sessions back.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"src.zr.sh/pkg/app"
	"src.zr.sh/pkg/backend"
	"src.zr.sh/pkg/logutil"
	"src.zr.sh/pkg/replay"
	"src.zr.sh/pkg/sys"
	"src.zr.sh/pkg/theme"
	"src.zr.sh/pkg/wire"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	flags := pflag.NewFlagSet("zr", pflag.ContinueOnError)
	flags.SetOutput(errOut)
	dump := flags.String("dump", "", "print a recorded session instead of running the demo")
	sessions := flags.Bool("sessions", false, "list recorded sessions")
	record := flags.Bool("record", false, "record this run into the replay database")
	themePath := flags.String("theme", "", "theme YAML file, overriding the configured one")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(errOut, "zr:", err)
		return 2
	}
	if *record {
		cfg.Replay.Record = true
	}
	if *themePath != "" {
		cfg.Theme = *themePath
	}
	if cfg.Log != "" {
		if err := logutil.SetOutputFile(cfg.Log); err != nil {
			fmt.Fprintln(errOut, "zr:", err)
			return 2
		}
	}

	switch {
	case *sessions:
		return listSessions(cfg, out, errOut)
	case *dump != "":
		return dumpSession(cfg, *dump, out, errOut)
	}
	return demo(cfg, out, errOut)
}

func demo(cfg Config, out, errOut io.Writer) int {
	th := theme.Default()
	if cfg.Theme != "" {
		var err error
		th, err = theme.Load(cfg.Theme)
		if err != nil {
			fmt.Fprintln(errOut, "zr:", err)
			return 2
		}
	}

	cols, rows := cfg.Size.Cols, cfg.Size.Rows
	onTTY := sys.IsATTY(os.Stdout.Fd())
	if onTTY {
		if c, r := sys.WinSize(os.Stdout); c > 0 {
			cols, rows = c, r
		}
	}

	stub, ctrl := backend.NewStub(cols, rows)
	defer stub.Dispose()
	var engine backend.Engine = stub

	var rec *replay.Recorder
	if cfg.Replay.Record {
		if err := os.MkdirAll(filepath.Dir(cfg.Replay.DB), 0700); err != nil {
			fmt.Fprintln(errOut, "zr:", err)
			return 2
		}
		db, err := replay.Open(cfg.Replay.DB)
		if err != nil {
			fmt.Fprintln(errOut, "zr:", err)
			return 2
		}
		defer db.Close()
		rec, err = replay.NewRecorder(stub, db, "demo run")
		if err != nil {
			fmt.Fprintln(errOut, "zr:", err)
			return 2
		}
		engine = rec
	}

	if onTTY {
		winch := make(chan os.Signal, 1)
		sys.NotifyWinch(winch)
		defer signal.Stop(winch)
		go func() {
			for range winch {
				if c, r := sys.WinSize(os.Stdout); c > 0 {
					ctrl.Resize(c, r)
				}
			}
		}()
	}

	var a app.App
	a = app.NewApp(app.AppSpec{
		Engine:       engine,
		Routes:       demoRoutes(),
		InitialRoute: "browse",
		Theme:        th,
		Listener: func(n app.Notice) {
			switch n := n.(type) {
			case app.KeyNotice:
				switch n.Event.Code {
				case 'q':
					a.Stop()
				case 'g':
					a.Navigate("grid")
				case 'b':
					a.Navigate("browse")
				}
			case app.FatalNotice:
				fmt.Fprintln(errOut, "zr: fatal:", n.Err)
			}
		},
	})

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	defer a.Stop()

	steps := []struct {
		desc string
		do   func()
	}{
		{"initial screen", nil},
		{"tab into the form", func() { ctrl.InjectKey(wire.KeyTab, 0) }},
		{"type a note", func() { ctrl.InjectText("hello") }},
		{"open help (focus trap)", func() { ctrl.InjectKey(wire.KeyF1, 0) }},
		{"close help", func() { ctrl.InjectKey(wire.KeyEscape, 0) }},
		{"grid route", func() { ctrl.InjectKey('g', 0) }},
		{"grid right", func() { ctrl.InjectKey(wire.KeyRight, 0) }},
		{"grid down", func() { ctrl.InjectKey(wire.KeyDown, 0) }},
		{"back to browse", func() { ctrl.InjectKey('b', 0) }},
	}
	seen := 0
	for _, step := range steps {
		if step.do != nil {
			step.do()
		}
		seen = awaitFrame(ctrl, seen)
		fmt.Fprintf(out, "-- %s --\n%s\n", step.desc, ctrl.Screen())
	}

	a.Stop()
	if err := <-done; err != nil {
		fmt.Fprintln(errOut, "zr:", err)
		return 1
	}
	if rec != nil {
		fmt.Fprintln(out, "recorded session", rec.Session())
	}
	return 0
}

// awaitFrame waits until the stub has seen more than n frames and
// returns the new count. Focus-only steps still produce a frame, so
// every scripted step ends in at least one.
func awaitFrame(ctrl backend.StubCtrl, n int) int {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if frames := ctrl.FrameHistory(); len(frames) > n {
			return len(frames)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return n
}
