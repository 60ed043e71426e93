//go:build unix

package sys

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

func winSize(file *os.File) (cols, rows int) {
	fd := int(file.Fd())
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return -1, -1
	}

	// Zero can happen on serial consoles; substitute a usable size.
	if ws.Col == 0 {
		ws.Col = 80
	}
	if ws.Row == 0 {
		ws.Row = 24
	}

	return int(ws.Col), int(ws.Row)
}

func notifyWinch(ch chan<- os.Signal) {
	signal.Notify(ch, unix.SIGWINCH)
}
