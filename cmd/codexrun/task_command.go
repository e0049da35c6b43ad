package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codexrun/codexrun/internal/codex"
	"github.com/codexrun/codexrun/internal/config"
	"github.com/codexrun/codexrun/internal/notify"
)

// resumeCommand continues a previous agent session by id.
func resumeCommand(stdout io.Writer, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <session_id> <task> [model] [workdir]",
		Short: "Resume a previous Codex session",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := loadSettingsOrWarn(stderr)
			req, ok := resumeRequest(args)
			if !ok {
				fmt.Fprintln(stderr, "ERROR: Resume mode requires: resume <session_id> <task>")
				return exitStatus(1)
			}
			return exitStatus(runTask(stdout, stderr, req, settings))
		},
	}
	cmd.Args = cobra.ArbitraryArgs
	return cmd
}

// argAt returns the positional argument at index, or empty when absent.
func argAt(args []string, index int) string {
	if index < len(args) {
		return args[index]
	}
	return ""
}

// newSessionRequest maps the root positionals onto a request: the task,
// then optional model and working directory, with the settings file filling
// the gaps. ok is false when the task position is absent; an empty task
// string is accepted as given.
func newSessionRequest(args []string, settings *config.Settings) (codex.Request, bool) {
	if len(args) < 1 {
		return codex.Request{}, false
	}
	return codex.Request{
		Mode:    codex.ModeNew,
		Task:    args[0],
		Model:   settings.Model(argAt(args, 1)),
		WorkDir: settings.WorkDir(argAt(args, 2)),
	}, true
}

// resumeRequest maps the resume positionals onto a request: session id and
// task. Trailing model and workdir positionals are accepted for command
// line compatibility but not recorded; resumed sessions keep the values
// stored by the agent. ok is false when a required position is absent.
func resumeRequest(args []string) (codex.Request, bool) {
	if len(args) < 2 {
		return codex.Request{}, false
	}
	return codex.Request{
		Mode:      codex.ModeResume,
		SessionID: args[0],
		Task:      args[1],
	}, true
}

// runTask executes one request end to end: budget resolution, signal
// wiring, the agent run, outcome reporting, and the optional post-run
// notification. It returns the process exit status.
func runTask(stdout io.Writer, stderr io.Writer, req codex.Request, settings *config.Settings) int {
	budget, warning := config.ResolveTimeout(os.Getenv(config.EnvTimeout))
	if warning != "" {
		fmt.Fprintf(stderr, "WARN: %s\n", warning)
	}

	// One context carries both cancellation causes: the wall-clock budget
	// and caller interrupts. The runner tells them apart by the deadline.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(budget)*time.Second)
	defer cancel()

	runner := &codex.Runner{Agent: settings.AgentBinary(), Stderr: stderr}
	outcome, err := runner.Run(ctx, req)

	code := reportOutcome(stdout, stderr, outcome, err)
	notifyOutcome(stderr, settings, outcome, err, code)
	return code
}

// reportOutcome prints the result of a finished run and returns the
// process exit status. Interrupted runs exit silently; every other failure
// produces one ERROR line on stderr.
func reportOutcome(stdout io.Writer, stderr io.Writer, outcome codex.Outcome, runErr error) int {
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			fmt.Fprintln(stderr, "ERROR: codex command not found in PATH")
			return 127
		}
		fmt.Fprintf(stderr, "ERROR: %v\n", runErr)
		return 1
	}

	switch outcome.State {
	case codex.RunTimedOut:
		fmt.Fprintln(stderr, "ERROR: Codex execution timeout")
		return 124
	case codex.RunInterrupted:
		return 130
	}

	if outcome.ExitCode != 0 {
		fmt.Fprintf(stderr, "ERROR: Codex exited with status %d\n", outcome.ExitCode)
		return outcome.ExitCode
	}
	if outcome.Message == "" {
		fmt.Fprintln(stderr, "ERROR: Codex completed without agent_message output")
		return 1
	}

	fmt.Fprintf(stdout, "%s\n", outcome.Message)
	if outcome.SessionID != "" {
		fmt.Fprintf(stdout, "\n---\nSESSION_ID: %s\n", outcome.SessionID)
	}
	return 0
}

// notifyOutcome delivers the post-run notification when a webhook is
// configured. The run's exit status is already settled, so delivery
// problems surface as warnings only. Interrupted runs stay quiet; the
// caller was at the keyboard.
func notifyOutcome(stderr io.Writer, settings *config.Settings, outcome codex.Outcome, runErr error, code int) {
	url := settings.Webhook()
	if url == "" {
		return
	}
	if runErr == nil && outcome.State == codex.RunInterrupted {
		return
	}

	center := notify.NewCenter()
	center.RegisterChannel(notify.NewWebhookChannel("webhook", url), notify.ChannelConfig{Enabled: true})

	// The run context may already be cancelled; delivery gets its own.
	for _, result := range center.Send(context.Background(), outcomeNotification(outcome, runErr, code)) {
		if result.Status == notify.StatusFailed {
			fmt.Fprintf(stderr, "WARN: notification delivery failed: %v\n", result.Err)
		}
	}
}

// outcomeNotification summarizes a finished run for the notification
// channels.
func outcomeNotification(outcome codex.Outcome, runErr error, code int) *notify.Notification {
	metadata := map[string]string{"exit_code": strconv.Itoa(code)}
	if outcome.SessionID != "" {
		metadata["session_id"] = outcome.SessionID
	}

	switch {
	case runErr != nil:
		return &notify.Notification{
			Title:    "❌ Codex Run Failed",
			Body:     runErr.Error(),
			Priority: notify.PriorityHigh,
			Metadata: metadata,
		}
	case outcome.State == codex.RunTimedOut:
		body := outcome.Message
		if body == "" {
			body = "Terminated after the time budget elapsed"
		}
		return &notify.Notification{
			Title:    "⏰ Codex Run Timed Out",
			Body:     body,
			Priority: notify.PriorityHigh,
			Metadata: metadata,
		}
	case code != 0:
		body := fmt.Sprintf("Codex exited with status %d", outcome.ExitCode)
		if outcome.ExitCode == 0 {
			body = "Codex completed without agent_message output"
		}
		return &notify.Notification{
			Title:    "❌ Codex Task Failed",
			Body:     body,
			Priority: notify.PriorityHigh,
			Metadata: metadata,
		}
	default:
		return &notify.Notification{
			Title:    "✅ Codex Task Completed",
			Body:     outcome.Message,
			Priority: notify.PriorityNormal,
			Metadata: metadata,
		}
	}
}
