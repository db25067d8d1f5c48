package safety

import (
	"strings"
	"testing"
)

func TestRedactTextRedactsAssignments(t *testing.T) {
	input := "AWS_SECRET_ACCESS_KEY=abc123 token: xyz password='hunter2'"
	got := RedactText(input)

	if strings.Contains(strings.ToLower(got), "abc123") || strings.Contains(strings.ToLower(got), "xyz") || strings.Contains(strings.ToLower(got), "hunter2") {
		t.Fatalf("expected secrets to be redacted, got %q", got)
	}
	if !strings.Contains(got, "AWS_SECRET_ACCESS_KEY=<redacted>") {
		t.Fatalf("expected AWS secret assignment to be redacted, got %q", got)
	}
}

func TestRedactTextRedactsBearerToken(t *testing.T) {
	input := "Authorization: Bearer verysecrettoken"
	got := RedactText(input)
	if strings.Contains(got, "verysecrettoken") {
		t.Fatalf("expected bearer token to be redacted, got %q", got)
	}
}

func TestRedactTextRedactsFlagStyleSecrets(t *testing.T) {
	input := "mycli --password hunter2 --token=abc123 --user bob"
	got := RedactText(input)

	if strings.Contains(got, "hunter2") || strings.Contains(got, "abc123") {
		t.Fatalf("expected flag-style secrets to be redacted, got %q", got)
	}
	if !strings.Contains(got, "--user bob") {
		t.Fatalf("expected non-secret flags to remain unchanged, got %q", got)
	}
}

func TestRedactTextLeavesRegularCommands(t *testing.T) {
	input := "git status && ls -la"
	if got := RedactText(input); got != input {
		t.Fatalf("expected non-secret text unchanged, got %q", got)
	}
}
