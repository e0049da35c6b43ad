package config

import (
	"fmt"
	"strconv"
)

// EnvTimeout names the environment override for the wall-clock budget.
const EnvTimeout = "CODEX_TIMEOUT"

// DefaultTimeoutSeconds is the budget applied when the override is absent or
// unusable (two hours).
const DefaultTimeoutSeconds = 7200

// millisecondCutoff separates second from millisecond overrides: values above
// it are read as milliseconds.
const millisecondCutoff = 10000

// ResolveTimeout derives the effective budget in seconds from the raw
// override value. It never fails: absent or unusable input falls back to the
// default, and the returned warning (empty when there is none) describes the
// fallback for the caller to surface.
func ResolveTimeout(raw string) (int, string) {
	if raw == "" {
		return DefaultTimeoutSeconds, ""
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		warning := fmt.Sprintf("Invalid %s '%s', falling back to %ds", EnvTimeout, raw, DefaultTimeoutSeconds)
		return DefaultTimeoutSeconds, warning
	}

	// Overrides above the cutoff are milliseconds; convert to whole seconds.
	if parsed > millisecondCutoff {
		return parsed / 1000, ""
	}
	return parsed, ""
}
