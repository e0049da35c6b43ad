package codex

// Mode distinguishes new sessions from resumed ones.
type Mode string

const (
	// ModeNew starts a fresh agent session.
	ModeNew Mode = "new"
	// ModeResume continues a previous session by id.
	ModeResume Mode = "resume"
)

// Request describes one agent invocation. It is immutable once built; the
// command line layer constructs it and hands it to the runner.
type Request struct {
	// Mode selects the new or resume argument layout.
	Mode Mode
	// Task is the instruction text handed to the agent.
	Task string
	// Model is the model identifier for new sessions.
	Model string
	// WorkDir is the agent's working directory for new sessions.
	WorkDir string
	// SessionID identifies the session to resume, resume mode only.
	SessionID string
}
