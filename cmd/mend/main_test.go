package main

import "testing"

func TestParseArgsFlagsAndQuery(t *testing.T) {
	opts, query, err := parseArgs([]string{"--mode", "yolo", "--yes", "list", "open", "ports"})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if opts.Mode != "yolo" || !opts.Yes {
		t.Fatalf("flags not parsed: %+v", opts)
	}
	if query != "list open ports" {
		t.Fatalf("query not joined: %q", query)
	}
}

func TestParseArgsNoArgsMeansWrap(t *testing.T) {
	opts, query, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if query != "" {
		t.Fatalf("expected empty query, got %q", query)
	}
	if opts.Yes || opts.Version {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestLeadingCommand(t *testing.T) {
	if got := leadingCommand("ls all files including hidden"); got != "ls" {
		t.Fatalf("ls should resolve, got %q", got)
	}
	if got := leadingCommand("definitelynotacommand48151 foo"); got != "" {
		t.Fatalf("unknown binary should yield empty, got %q", got)
	}
	if got := leadingCommand("/etc/passwd read"); got != "" {
		t.Fatalf("paths should be ignored, got %q", got)
	}
	if got := leadingCommand("   "); got != "" {
		t.Fatalf("blank query should yield empty, got %q", got)
	}
}
