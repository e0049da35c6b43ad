package codex

import (
	"bytes"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeStdoutEvent is one scripted write to the fake child's stdout.
type fakeStdoutEvent struct {
	// Delay postpones the write relative to the previous event.
	Delay time.Duration
	// Data is written verbatim; protocol lines include their newline.
	Data string
}

// fakeCommandConfig scripts a fake child process.
type fakeCommandConfig struct {
	// StdoutPlan is replayed to the stdout pipe once the command starts.
	StdoutPlan []fakeStdoutEvent
	// KeepStdoutOpen leaves the stdout pipe open after the plan finishes,
	// simulating a child that stalls mid-stream without exiting.
	KeepStdoutOpen bool
	// StartErr makes Start fail without creating a process handle.
	StartErr error
	// WaitErr is what Wait returns once the child is considered exited.
	WaitErr error
	// WaitDelay postpones Wait's return after any release.
	WaitDelay time.Duration
	// BlockWait blocks Wait until a signal or kill releases it.
	BlockWait bool
	// ReleaseWaitOnSignal releases a blocked Wait on the terminate signal.
	ReleaseWaitOnSignal bool
	// ReleaseWaitOnKill releases a blocked Wait on kill.
	ReleaseWaitOnKill bool
}

// fakeCommand stands in for the spawned agent. Its stdout is an in-memory
// pipe fed by the configured plan, and Wait mirrors exec.Cmd by closing the
// pipes once the child has exited.
type fakeCommand struct {
	config fakeCommandConfig

	name string
	args []string

	stdoutReader *io.PipeReader
	stdoutWriter *io.PipeWriter
	stdin        *stdinBuffer
	stderr       io.Writer

	proc        *fakeProcess
	waitRelease chan struct{}
	releaseOnce sync.Once

	started    atomic.Bool
	startCount atomic.Int32
	waitCount  atomic.Int32
}

func newFakeCommand(config fakeCommandConfig) *fakeCommand {
	reader, writer := io.Pipe()
	fake := &fakeCommand{
		config:       config,
		stdoutReader: reader,
		stdoutWriter: writer,
		stdin:        &stdinBuffer{},
		proc:         &fakeProcess{},
		waitRelease:  make(chan struct{}),
	}
	if config.ReleaseWaitOnSignal {
		fake.proc.onSignal = func(os.Signal) { fake.release() }
	}
	if config.ReleaseWaitOnKill {
		fake.proc.onKill = fake.release
	}
	return fake
}

// factory returns a command factory that records the spawned name and args.
func (c *fakeCommand) factory() func(name string, args ...string) command {
	return func(name string, args ...string) command {
		c.name = name
		c.args = args
		return c
	}
}

func (c *fakeCommand) release() {
	c.releaseOnce.Do(func() { close(c.waitRelease) })
}

func (c *fakeCommand) Start() error {
	c.startCount.Add(1)
	if c.config.StartErr != nil {
		return c.config.StartErr
	}
	c.started.Store(true)
	go c.replayStdout()
	return nil
}

func (c *fakeCommand) replayStdout() {
	for _, event := range c.config.StdoutPlan {
		if event.Delay > 0 {
			time.Sleep(event.Delay)
		}
		if _, err := c.stdoutWriter.Write([]byte(event.Data)); err != nil {
			return
		}
	}
	if !c.config.KeepStdoutOpen {
		c.stdoutWriter.Close()
	}
}

func (c *fakeCommand) Wait() error {
	c.waitCount.Add(1)
	if c.config.BlockWait {
		<-c.waitRelease
	}
	if c.config.WaitDelay > 0 {
		time.Sleep(c.config.WaitDelay)
	}
	// Wait closes the pipes after the child exits, like exec.Cmd does.
	c.stdoutWriter.Close()
	c.stdin.Close()
	return c.config.WaitErr
}

func (c *fakeCommand) StdoutPipe() (io.ReadCloser, error) {
	return c.stdoutReader, nil
}

func (c *fakeCommand) StdinPipe() (io.WriteCloser, error) {
	return c.stdin, nil
}

func (c *fakeCommand) SetStderr(writer io.Writer) {
	c.stderr = writer
}

func (c *fakeCommand) Process() process {
	if !c.started.Load() {
		return nil
	}
	return c.proc
}

// fakeProcess records the signals delivered to the fake child.
type fakeProcess struct {
	mu       sync.Mutex
	signals  []os.Signal
	kills    int
	onSignal func(os.Signal)
	onKill   func()
}

func (p *fakeProcess) Signal(signal os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, signal)
	p.mu.Unlock()
	if p.onSignal != nil {
		p.onSignal(signal)
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	if p.onKill != nil {
		p.onKill()
	}
	return nil
}

// Signals returns a copy of the delivered signals.
func (p *fakeProcess) Signals() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]os.Signal(nil), p.signals...)
}

// KillCount returns how many times Kill was delivered.
func (p *fakeProcess) KillCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

// stdinBuffer captures what the runner writes to the child's stdin.
type stdinBuffer struct {
	mu     sync.Mutex
	data   bytes.Buffer
	closed bool
}

func (b *stdinBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Write(p)
}

func (b *stdinBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Contents returns everything written so far.
func (b *stdinBuffer) Contents() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.String()
}

// Closed reports whether the runner closed the stream.
func (b *stdinBuffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// waitFor polls a predicate until it holds or the test deadline lapses.
func waitFor(t *testing.T, what string, predicate func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if predicate() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
