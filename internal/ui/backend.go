package ui

import "strings"

// Confirmation prompts, the first-run wizard, and the one-shot spinner can
// render through several terminal toolkits. They are tried in order until one
// succeeds, so a toolkit that cannot start degrades toward plain stdio
// instead of losing the confirmation.
const (
	BackendAuto      = "auto"
	BackendBubbleTea = "bubbletea"
	BackendHuh       = "huh"
	BackendTView     = "tview"
	BackendPlain     = "plain"
)

// fallbacks gives the attempt order per configured backend. Plain never
// escalates to an interactive toolkit; everything else keeps the remaining
// toolkits as fallbacks.
var fallbacks = map[string][]string{
	BackendAuto:      {BackendBubbleTea, BackendHuh, BackendTView},
	BackendBubbleTea: {BackendBubbleTea, BackendHuh, BackendTView},
	BackendHuh:       {BackendHuh, BackendBubbleTea, BackendTView},
	BackendTView:     {BackendTView, BackendBubbleTea, BackendHuh},
	BackendPlain:     {BackendPlain},
}

// NormalizeBackend maps config and flag spellings onto a known backend name.
// Unknown names mean auto rather than an error; a stale config value must not
// keep mend from starting.
func NormalizeBackend(backend string) string {
	name := strings.ToLower(strings.TrimSpace(backend))
	if _, ok := fallbacks[name]; ok {
		return name
	}
	return BackendAuto
}

func IsInteractiveBackend(backend string) bool {
	return NormalizeBackend(backend) != BackendPlain
}

func backendCandidates(backend string) []string {
	return fallbacks[NormalizeBackend(backend)]
}
