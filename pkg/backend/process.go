package backend

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"src.zr.sh/pkg/wire"
)

var le = binary.LittleEndian

// Process runs an engine as a child process. Drawlists go to the
// child's stdin; event batches come back on its stdout, both
// self-delimited by their declared total size.
type Process struct {
	cmd *exec.Cmd

	mu      sync.Mutex
	state   engineState
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	caps    Caps
	readErr error

	batchCh chan []byte
	ackCh   chan struct{}
	done    chan struct{}
}

// NewProcess wraps cmd as an engine. The command must not have been
// started; Start launches it.
func NewProcess(cmd *exec.Cmd) *Process {
	return &Process{cmd: cmd}
}

// Start launches the child and begins reading its event stream. Unlike
// the stub, a process engine does not restart: Start after Stop returns
// ErrDisposed.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case engineDisposed, engineStopped:
		return ErrDisposed
	case engineStarted:
		return nil
	}
	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("engine process: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("engine process: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("engine process: %w", err)
	}
	p.stdin, p.stdout = stdin, stdout
	p.state = engineStarted
	p.batchCh = make(chan []byte, stubEventBatches)
	p.ackCh = make(chan struct{}, 1)
	p.done = make(chan struct{})
	go p.readLoop()
	return nil
}

// readLoop reads framed event batches off the child's stdout. Batches
// carrying the frame-ack flag additionally release the in-flight frame.
func (p *Process) readLoop() {
	defer close(p.done)
	header := make([]byte, 12)
	for {
		if _, err := io.ReadFull(p.stdout, header); err != nil {
			p.mu.Lock()
			p.readErr = err
			p.mu.Unlock()
			return
		}
		size, err := wire.BatchSize(header)
		if err != nil {
			p.mu.Lock()
			p.readErr = err
			p.mu.Unlock()
			return
		}
		batch := make([]byte, size)
		copy(batch, header)
		if _, err := io.ReadFull(p.stdout, batch[len(header):]); err != nil {
			p.mu.Lock()
			p.readErr = err
			p.mu.Unlock()
			return
		}
		if flags := le.Uint32(batch[16:]); flags&wire.FlagFrameAck != 0 {
			select {
			case p.ackCh <- struct{}{}:
			default:
			}
		}
		select {
		case p.batchCh <- batch:
		default:
			// The runtime is not draining; drop, like the stub.
		}
	}
}

// RequestFrame writes the drawlist and waits for the child's ack batch.
func (p *Process) RequestFrame(ctx context.Context, drawlist []byte) error {
	p.mu.Lock()
	if p.state != engineStarted {
		p.mu.Unlock()
		return stateErr(p.state)
	}
	stdin := p.stdin
	p.mu.Unlock()

	if _, err := stdin.Write(drawlist); err != nil {
		return fmt.Errorf("engine process: %w", err)
	}
	select {
	case <-p.ackCh:
		return nil
	case <-p.done:
		return p.exitErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PollEvents returns the next event batch from the child.
func (p *Process) PollEvents(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	if p.state != engineStarted {
		p.mu.Unlock()
		return nil, stateErr(p.state)
	}
	p.mu.Unlock()

	select {
	case batch := <-p.batchCh:
		return batch, nil
	case <-p.done:
		return nil, p.exitErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PostUserEvent writes a single-record user batch to the child, which
// echoes it back into the event stream.
func (p *Process) PostUserEvent(tag uint32, payload []byte) error {
	p.mu.Lock()
	if p.state != engineStarted {
		p.mu.Unlock()
		return stateErr(p.state)
	}
	stdin := p.stdin
	p.mu.Unlock()
	batch := wire.EncodeBatch([]wire.Event{wire.UserEvent{Tag: tag, Payload: payload}}, 0, 0)
	_, err := stdin.Write(batch)
	return err
}

// Caps returns the capabilities announced through SetCaps, or a minimal
// default.
func (p *Process) Caps() (Caps, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == engineDisposed {
		return Caps{}, ErrDisposed
	}
	if p.caps == (Caps{}) {
		return Caps{ColorMode: Color256, Cols: 80, Rows: 24}, nil
	}
	return p.caps, nil
}

// SetCaps records the capabilities negotiated with the child out of
// band (for example from its handshake output).
func (p *Process) SetCaps(caps Caps) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caps = caps
}

// Stop closes the pipes and waits for the child to exit.
func (p *Process) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state != engineStarted {
		defer p.mu.Unlock()
		return stateErr(p.state)
	}
	p.state = engineStopped
	stdin := p.stdin
	p.mu.Unlock()

	stdin.Close()
	waited := make(chan error, 1)
	go func() { waited <- p.cmd.Wait() }()
	select {
	case err := <-waited:
		return err
	case <-ctx.Done():
		p.cmd.Process.Kill()
		return ctx.Err()
	}
}

// Dispose releases the engine. A still-running child is killed.
func (p *Process) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == engineDisposed {
		return ErrDisposed
	}
	if p.state == engineStarted && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.state = engineDisposed
	return nil
}

func (p *Process) exitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil && p.readErr != io.EOF {
		return fmt.Errorf("engine process: %w", p.readErr)
	}
	return ErrStopped
}

func stateErr(s engineState) error {
	switch s {
	case engineDisposed, engineStopped:
		return ErrDisposed
	}
	return ErrNotStarted
}
