// Package sys provides the OS-specific plumbing needed when the runtime
// is hosted on a real terminal: viewport size queries and window change
// notification. The API is the same across OSes.
package sys

import (
	"os"

	"github.com/mattn/go-isatty"
)

// WinSize queries the size of the terminal referenced by the given
// file. It returns (-1, -1) if the file is not a terminal.
func WinSize(file *os.File) (cols, rows int) { return winSize(file) }

// NotifyWinch relays window size change signals to ch. On platforms
// without such a signal it does nothing. Use signal.Stop to
// unsubscribe.
func NotifyWinch(ch chan<- os.Signal) { notifyWinch(ch) }

// IsATTY reports whether the given file descriptor is a terminal.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
