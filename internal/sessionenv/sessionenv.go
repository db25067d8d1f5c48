// Package sessionenv captures the environment flags that control wrapper
// activation. The snapshot is taken once at startup; nothing downstream
// re-reads the process environment mid-session.
package sessionenv

import "strings"

const (
	// ActiveVar marks a shell as already wrapped so a sourced rc file
	// cannot re-launch the wrapper inside itself.
	ActiveVar       = "MEND_ACTIVE"
	SessionIDVar    = "MEND_SESSION_ID"
	PromptPrefixVar = "MEND_PROMPT_PREFIX"
	ShellVar        = "MEND_SHELL"
	DebugVar        = "MEND_DEBUG"
)

type Snapshot struct {
	Active        bool
	SessionID     string
	PromptPrefix  string
	ShellOverride string
	Debug         bool
}

// FromEnviron builds a snapshot from os.Environ()-style "KEY=value" pairs.
func FromEnviron(environ []string) Snapshot {
	values := map[string]string{}
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		values[key] = value
	}

	return Snapshot{
		Active:        isTruthy(values[ActiveVar]),
		SessionID:     strings.TrimSpace(values[SessionIDVar]),
		PromptPrefix:  values[PromptPrefixVar],
		ShellOverride: strings.TrimSpace(values[ShellVar]),
		Debug:         isTruthy(values[DebugVar]),
	}
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
