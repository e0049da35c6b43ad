package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Built-in defaults, used when neither the command line nor the settings file
// provides a value.
const (
	// DefaultModel is the model requested for new sessions.
	DefaultModel = "gpt-5.1-codex"
	// DefaultWorkDir is the working directory handed to the agent.
	DefaultWorkDir = "."
	// DefaultAgentBinary is the agent executable resolved on PATH.
	DefaultAgentBinary = "codex"
)

// ErrSettingsMissing indicates that no settings file exists. Callers treat it
// as "use the defaults", not as a failure.
var ErrSettingsMissing = errors.New("settings file missing")

// Settings captures the optional user configuration file.
type Settings struct {
	// DefaultModel overrides the built-in model for new sessions.
	DefaultModel string `json:"default_model,omitempty"`
	// DefaultWorkDir overrides the built-in working directory.
	DefaultWorkDir string `json:"default_workdir,omitempty"`
	// Agent overrides the agent executable name or path.
	Agent string `json:"agent,omitempty"`
	// WebhookURL enables post-run notification delivery when set.
	WebhookURL string `json:"webhook_url,omitempty"`
}

// SettingsPath returns the location of the user settings file.
func SettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codexrun", "config.json"), nil
}

// LoadSettings reads the user settings file. A missing file yields
// ErrSettingsMissing; all methods on Settings tolerate a nil receiver, so
// callers may keep the nil and resolve against the defaults.
func LoadSettings() (*Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSettingsMissing
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return &settings, nil
}

// Model resolves the effective model: positional override first, then the
// settings file, then the built-in default.
func (s *Settings) Model(positional string) string {
	if positional != "" {
		return positional
	}
	if s != nil && s.DefaultModel != "" {
		return s.DefaultModel
	}
	return DefaultModel
}

// WorkDir resolves the effective working directory with the same precedence
// as Model.
func (s *Settings) WorkDir(positional string) string {
	if positional != "" {
		return positional
	}
	if s != nil && s.DefaultWorkDir != "" {
		return s.DefaultWorkDir
	}
	return DefaultWorkDir
}

// AgentBinary resolves the agent executable to spawn.
func (s *Settings) AgentBinary() string {
	if s != nil && s.Agent != "" {
		return s.Agent
	}
	return DefaultAgentBinary
}

// Webhook returns the configured notification webhook URL, empty when unset.
func (s *Settings) Webhook() string {
	if s == nil {
		return ""
	}
	return s.WebhookURL
}
