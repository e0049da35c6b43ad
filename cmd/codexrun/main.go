package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/codexrun/codexrun/internal/config"
)

// version is the CLI build version.
const version = "0.1.0"

// options holds the root command flags.
type options struct {
	// Version prints the CLI version.
	Version bool
}

// main wires Cobra and exits with the mapped status.
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run builds the command tree, executes it, and maps the result to a
// process exit status. Commands print their own diagnostics and signal the
// status through exitStatusError; any other error is a usage-level mistake.
func run(args []string, stdout io.Writer, stderr io.Writer) int {
	rootCmd := newRootCommand(stdout, stderr)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		var status *exitStatusError
		if errors.As(err, &status) {
			return status.code
		}
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

// newRootCommand assembles the CLI. The root command starts a new agent
// session from positional arguments; resume, notify, and doctor are
// subcommands.
func newRootCommand(stdout io.Writer, stderr io.Writer) *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "codexrun <task> [model] [workdir]",
		Short:         "Non-interactive wrapper around the Codex CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Fprintln(stdout, version)
				return nil
			}
			settings := loadSettingsOrWarn(stderr)
			req, ok := newSessionRequest(args, settings)
			if !ok {
				fmt.Fprintln(stderr, "ERROR: Task required")
				return exitStatus(1)
			}
			return exitStatus(runTask(stdout, stderr, req, settings))
		},
	}
	rootCmd.Args = cobra.ArbitraryArgs

	applyFlags(rootCmd.Flags(), opts)

	rootCmd.AddCommand(resumeCommand(stdout, stderr))
	rootCmd.AddCommand(notifyCommand(stdout, stderr))
	rootCmd.AddCommand(doctorCommand(stdout, stderr))

	return rootCmd
}

// applyFlags defines the root command flags.
func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.BoolVarP(&opts.Version, "version", "v", false, "Output the version number")
}

// exitStatusError carries a specific process exit status through the
// command tree. The commands print their own diagnostics before returning
// it; the error text itself is never shown.
type exitStatusError struct {
	code int
}

func (e *exitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitStatus wraps a non-zero status for Cobra; zero maps to nil.
func exitStatus(code int) error {
	if code == 0 {
		return nil
	}
	return &exitStatusError{code: code}
}

// loadSettingsOrWarn reads the optional settings file. A missing file means
// defaults; an unreadable one is reported but never blocks the run.
func loadSettingsOrWarn(stderr io.Writer) *config.Settings {
	settings, err := config.LoadSettings()
	if err != nil {
		if !errors.Is(err, config.ErrSettingsMissing) {
			fmt.Fprintf(stderr, "WARN: %v\n", err)
		}
		return nil
	}
	return settings
}

// doctorCommand checks the local setup: agent binary resolution, timeout
// override, settings file, and webhook configuration.
func doctorCommand(stdout io.Writer, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check codexrun configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exitStatus(runDoctor(stdout, stderr))
		},
	}
}

// runDoctor reports each health check as an OK line or a diagnostic. Only a
// missing agent binary fails the command; everything else has a usable
// fallback.
func runDoctor(stdout io.Writer, stderr io.Writer) int {
	settings := loadSettingsOrWarn(stderr)

	agent := settings.AgentBinary()
	agentPath, err := exec.LookPath(agent)
	agentMissing := err != nil
	if agentMissing {
		fmt.Fprintf(stderr, "ERROR: agent binary %q not found in PATH\n", agent)
	} else {
		fmt.Fprintf(stdout, "OK: agent binary %s\n", agentPath)
	}

	budget, warning := config.ResolveTimeout(os.Getenv(config.EnvTimeout))
	if warning != "" {
		fmt.Fprintf(stderr, "WARN: %s\n", warning)
	}
	fmt.Fprintf(stdout, "OK: timeout budget %ds\n", budget)

	if settingsPath, pathErr := config.SettingsPath(); pathErr == nil {
		if info, statErr := os.Stat(settingsPath); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0o077 != 0 {
				fmt.Fprintf(stderr, "WARN: settings file permissions too open: %s\n", mode)
			}
			fmt.Fprintf(stdout, "OK: settings file %s\n", settingsPath)
		} else {
			fmt.Fprintln(stdout, "OK: no settings file, using defaults")
		}
	}

	if settings.Webhook() != "" {
		fmt.Fprintln(stdout, "OK: notification webhook configured")
	} else {
		fmt.Fprintln(stdout, "OK: notifications disabled (no webhook_url)")
	}

	if agentMissing {
		return 1
	}
	return 0
}
