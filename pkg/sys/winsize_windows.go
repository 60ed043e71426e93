package sys

import (
	"os"

	"golang.org/x/sys/windows"
)

func winSize(file *os.File) (cols, rows int) {
	var info windows.ConsoleScreenBufferInfo
	err := windows.GetConsoleScreenBufferInfo(windows.Handle(file.Fd()), &info)
	if err != nil {
		return -1, -1
	}
	window := info.Window
	return int(window.Right-window.Left) + 1, int(window.Bottom-window.Top) + 1
}

// Windows has no window change signal; resizes must be polled.
func notifyWinch(ch chan<- os.Signal) {}
