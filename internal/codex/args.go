package codex

import "unicode/utf8"

// Channel selects how the task text reaches the agent.
type Channel string

const (
	// ChannelArgument passes the task inside the argument vector.
	ChannelArgument Channel = "argument"
	// ChannelStdin pipes the task through the child's standard input.
	ChannelStdin Channel = "stdin"
)

// StdinThreshold is the task length, in characters, above which the task is
// delivered over standard input to dodge shell argument limits.
const StdinThreshold = 800

// stdinPlaceholder stands in for the task in the argument vector when the
// task travels over standard input.
const stdinPlaceholder = "-"

// SelectChannel chooses the delivery channel for a task. Lengths up to and
// including the threshold stay on the argument vector.
func SelectChannel(task string) Channel {
	if utf8.RuneCountInString(task) > StdinThreshold {
		return ChannelStdin
	}
	return ChannelArgument
}

// BuildArgs assembles the agent's argument vector for a request. The slice
// excludes the binary itself; the runner supplies it at spawn time.
func BuildArgs(req Request, channel Channel) []string {
	task := req.Task
	if channel == ChannelStdin {
		task = stdinPlaceholder
	}

	if req.Mode == ModeResume {
		// Resumed sessions keep the agent's stored model and directory; the
		// positional overrides are accepted but not forwarded.
		return []string{
			"e",
			"--skip-git-repo-check",
			"--json",
			"resume",
			req.SessionID,
			task,
		}
	}

	return []string{
		"e",
		"-m", req.Model,
		"--dangerously-bypass-approvals-and-sandbox",
		"--skip-git-repo-check",
		"-C", req.WorkDir,
		"--json",
		task,
	}
}
