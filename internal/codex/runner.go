package codex

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/codexrun/codexrun/internal/events"
)

// forceKillGrace is the window between the terminate signal and the
// unconditional kill.
const forceKillGrace = 5 * time.Second

// maxEventLineBytes bounds a single protocol line; agent messages arrive as
// one JSON line each.
const maxEventLineBytes = 10 << 20

// RunState is the terminal state of a run.
type RunState string

const (
	// RunCompleted means the child exited on its own.
	RunCompleted RunState = "completed"
	// RunTimedOut means the budget elapsed and the child was terminated.
	RunTimedOut RunState = "timed_out"
	// RunInterrupted means the caller interrupted the run.
	RunInterrupted RunState = "interrupted"
)

// Outcome is the immutable result of one run, handed to the reporter.
type Outcome struct {
	// State records how the run left the running state. The three states are
	// mutually exclusive and terminal.
	State RunState
	// ExitCode is the child's exit code; meaningful only for completed runs.
	ExitCode int
	// Message is the latest agent message observed, empty when none was
	// produced. The most recent non-empty text wins.
	Message string
	// SessionID is the latest thread identifier announced by the agent,
	// kept for later resume.
	SessionID string
}

// Runner spawns the agent, consumes its event stream, and enforces the
// cancellation policy. Each Run call owns its own outcome record; a Runner
// holds no per-run state.
type Runner struct {
	// Agent is the executable name or path to spawn.
	Agent string
	// Stderr receives the wrapper's warnings and the child's own error
	// stream, unmodified. Defaults to os.Stderr.
	Stderr io.Writer

	// newCommand builds the child command; tests substitute scripted fakes.
	newCommand func(name string, args ...string) command
	// grace overrides the terminate-to-kill window in tests.
	grace time.Duration
}

// Run executes one request. The context carries both the wall-clock budget
// and caller interrupts; when it fires, the child receives a terminate
// signal and, after the grace window, an unconditional kill. The returned
// error reports spawn or wait failures only; protocol-level results travel
// in the Outcome.
func (r *Runner) Run(ctx context.Context, req Request) (Outcome, error) {
	if r.Agent == "" {
		return Outcome{}, errors.New("agent binary is required")
	}

	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	factory := r.newCommand
	if factory == nil {
		factory = newExecCommand
	}
	grace := r.grace
	if grace <= 0 {
		grace = forceKillGrace
	}

	channel := SelectChannel(req.Task)
	if channel == ChannelStdin {
		fmt.Fprintf(stderr, "WARN: Task length (%d chars) exceeds threshold, using stdin mode to avoid shell escaping issues\n", utf8.RuneCountInString(req.Task))
	}

	cmd := factory(r.Agent, BuildArgs(req, channel)...)
	cmd.SetStderr(stderr)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("open stdout pipe: %w", err)
	}

	var stdin io.WriteCloser
	if channel == ChannelStdin {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return Outcome{}, fmt.Errorf("open stdin pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("start %s: %w", r.Agent, err)
	}

	// Deliver the task off the main flow so a full pipe cannot deadlock a
	// child that emits output before reading its input.
	if stdin != nil {
		go func(task string) {
			defer stdin.Close()
			io.WriteString(stdin, task)
		}(req.Task)
	}

	// The parse goroutine owns sessionID and message until parseDone closes;
	// the run flow reads them only afterwards, so no lock is needed.
	var sessionID, message string
	parseDone := make(chan struct{})
	go func() {
		defer close(parseDone)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineBytes)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			event, err := events.Decode([]byte(line))
			if err != nil {
				fmt.Fprintf(stderr, "WARN: Failed to parse line: %s\n", line)
				continue
			}
			if event.Type == events.TypeThreadStarted {
				sessionID = event.ThreadID
			}
			if text := event.MessageText(); text != "" {
				message = text
			}
		}
	}()

	// Wait starts only after the stream is exhausted: Wait closes the stdout
	// pipe once the child exits, which would otherwise race the parser. The
	// cancellation path starts it early on purpose, to reap the child it is
	// about to kill.
	waitCh := make(chan error, 1)
	waitStarted := false
	startReaper := func() {
		if waitStarted {
			return
		}
		waitStarted = true
		go func() { waitCh <- cmd.Wait() }()
	}

	select {
	case <-parseDone:
		startReaper()
		select {
		case waitErr := <-waitCh:
			outcome := Outcome{State: RunCompleted, Message: message, SessionID: sessionID}
			if waitErr != nil {
				var exitErr *exec.ExitError
				if !errors.As(waitErr, &exitErr) {
					return Outcome{}, fmt.Errorf("wait for %s: %w", r.Agent, waitErr)
				}
				outcome.ExitCode = exitErr.ExitCode()
			}
			return outcome, nil
		case <-ctx.Done():
			terminateAndReap(cmd, waitCh, grace)
			return cancelledOutcome(ctx, message, sessionID), nil
		}
	case <-ctx.Done():
		startReaper()
		terminateAndReap(cmd, waitCh, grace)
		// Wait has closed the pipes; the parser drains and exits.
		<-parseDone
		return cancelledOutcome(ctx, message, sessionID), nil
	}
}

// cancelledOutcome classifies a cancelled run: an expired deadline is a
// timeout, anything else is a caller interrupt.
func cancelledOutcome(ctx context.Context, message string, sessionID string) Outcome {
	state := RunInterrupted
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		state = RunTimedOut
	}
	return Outcome{State: state, Message: message, SessionID: sessionID}
}

// terminateAndReap signals the child to exit, escalates to kill after the
// grace window, and returns once Wait has delivered the child's final error.
// Kill repeats on each further window until the child is reaped.
func terminateAndReap(cmd command, waitCh <-chan error, grace time.Duration) error {
	proc := cmd.Process()
	if proc != nil {
		_ = proc.Signal(syscall.SIGTERM)
	}
	for {
		select {
		case waitErr := <-waitCh:
			return waitErr
		case <-time.After(grace):
			if proc != nil {
				_ = proc.Kill()
			}
		}
	}
}
