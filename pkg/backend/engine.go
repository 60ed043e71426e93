// Package backend defines the contract between the runtime and a
// rendering engine, and provides two implementations: an in-memory stub
// engine for tests and tooling, and a transport that talks to an engine
// process over its standard pipes.
//
// The runtime never assumes a concrete transport; it submits drawlist
// blobs and polls event-batch blobs, both in the formats of pkg/wire.
package backend

import (
	"context"
	"errors"
)

// Engine is a rendering engine as seen by the runtime driver.
type Engine interface {
	// Start brings the engine up. Starting an engine that was stopped
	// restarts it.
	Start(ctx context.Context) error
	// Stop shuts the engine down. It interrupts a blocked PollEvents.
	Stop(ctx context.Context) error
	// Dispose releases the engine permanently. Every later call on the
	// engine returns ErrDisposed.
	Dispose() error

	// RequestFrame submits one drawlist blob. It returns once the
	// engine has acknowledged the frame; at most one frame should be
	// in flight at a time.
	RequestFrame(ctx context.Context, drawlist []byte) error
	// PollEvents blocks for the next event batch blob.
	PollEvents(ctx context.Context) ([]byte, error)
	// PostUserEvent queues an application-defined event, which comes
	// back out of PollEvents as a user record.
	PostUserEvent(tag uint32, payload []byte) error

	// Caps describes the engine's capabilities.
	Caps() (Caps, error)
}

// Errors shared by engine implementations.
var (
	ErrDisposed   = errors.New("engine disposed")
	ErrNotStarted = errors.New("engine not started")
	ErrStopped    = errors.New("engine stopped")
)

// Color modes of Caps.ColorMode.
const (
	ColorUnknown = iota
	Color16
	Color256
	ColorRGB
)

// Caps describes an engine's terminal capabilities.
type Caps struct {
	ColorMode  int
	Cols, Rows int
	Mouse      bool
	Paste      bool
	Title      bool
}

// Limits bounds the drawlists an engine accepts. Engines reject frames
// exceeding them instead of truncating.
type Limits struct {
	MaxTotalBytes   int
	MaxCmds         int
	MaxStrings      int
	MaxBlobBytes    int
	MaxClipDepth    int
	MaxTextSegments int
}

// DefaultLimits returns the limits of the reference engine.
func DefaultLimits() Limits {
	return Limits{
		MaxTotalBytes:   1 << 22,
		MaxCmds:         1 << 16,
		MaxStrings:      1 << 14,
		MaxBlobBytes:    1 << 20,
		MaxClipDepth:    64,
		MaxTextSegments: 1 << 12,
	}
}

// Config configures an engine.
type Config struct {
	Limits      Limits
	TargetFPS   int
	EnableMouse bool
	EnablePaste bool
	// Record asks the host to wrap the engine in a replay recorder.
	Record bool
}

// DefaultConfig returns a Config with the default limits.
func DefaultConfig() Config {
	return Config{
		Limits:      DefaultLimits(),
		TargetFPS:   60,
		EnableMouse: true,
		EnablePaste: true,
	}
}

// Metrics is a snapshot of an engine's counters.
type Metrics struct {
	FramesPresented uint64
	EventsPolled    uint64
	EventsDropped   uint64
	BytesSubmitted  uint64
}

// LimitError reports a drawlist rejected for exceeding a limit.
type LimitError struct {
	Limit string
	Max   int
	Got   int
}

func (e *LimitError) Error() string {
	return "drawlist exceeds " + e.Limit + " limit: " +
		itoa(e.Got) + " > " + itoa(e.Max)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	pos := len(b)
	for i > 0 {
		pos--
		b[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(b[pos:])
}
