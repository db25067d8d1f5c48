package sessionenv

import "testing"

func TestFromEnvironReadsActivationFlags(t *testing.T) {
	snap := FromEnviron([]string{
		"MEND_ACTIVE=1",
		"MEND_SESSION_ID=abc-123",
		"MEND_PROMPT_PREFIX=(mend) ",
		"MEND_SHELL=zsh",
		"PATH=/usr/bin",
	})

	if !snap.Active {
		t.Fatalf("expected active snapshot")
	}
	if snap.SessionID != "abc-123" {
		t.Fatalf("unexpected session id: %q", snap.SessionID)
	}
	if snap.PromptPrefix != "(mend) " {
		t.Fatalf("prompt prefix should keep trailing whitespace, got %q", snap.PromptPrefix)
	}
	if snap.ShellOverride != "zsh" {
		t.Fatalf("unexpected shell override: %q", snap.ShellOverride)
	}
}

func TestFromEnvironTruthyVariants(t *testing.T) {
	cases := map[string]bool{
		"1":     true,
		"true":  true,
		"YES":   true,
		"on":    true,
		"0":     false,
		"false": false,
		"":      false,
		"maybe": false,
	}
	for value, want := range cases {
		snap := FromEnviron([]string{"MEND_ACTIVE=" + value})
		if snap.Active != want {
			t.Errorf("MEND_ACTIVE=%q: got %v, want %v", value, snap.Active, want)
		}
	}
}

func TestFromEnvironIgnoresMalformedEntries(t *testing.T) {
	snap := FromEnviron([]string{"NOEQUALS", "MEND_DEBUG=true"})
	if !snap.Debug {
		t.Fatalf("expected debug flag set")
	}
	if snap.Active {
		t.Fatalf("expected inactive snapshot")
	}
}
