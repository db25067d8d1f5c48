package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const manMaxLines = 200

// GatherDocs collects --help and man-page material for a command, used as
// provider context in one-shot mode. Missing docs are not an error; the
// provider falls back to general knowledge.
func GatherDocs(ctx context.Context, command string) string {
	if strings.TrimSpace(command) == "" {
		return ""
	}

	var parts []string
	if help := helpOutput(ctx, command); help != "" {
		parts = append(parts, fmt.Sprintf("=== %s --help ===\n%s", command, help))
	}
	if man := manPage(ctx, command); man != "" {
		parts = append(parts, fmt.Sprintf("=== man %s ===\n%s", command, man))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("No documentation found for %q. Rely on general knowledge.", command)
	}
	return strings.Join(parts, "\n\n")
}

func helpOutput(ctx context.Context, command string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, "--help")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Tools disagree on where help goes and whether it exits zero.
	_ = cmd.Run()

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		output = strings.TrimSpace(stderr.String())
	}
	return output
}

func manPage(ctx context.Context, command string) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "man", command)
	cmd.Env = append(os.Environ(), "MANPAGER=cat", "MANWIDTH=120")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > manMaxLines {
		total := len(lines)
		lines = lines[:manMaxLines]
		lines = append(lines, fmt.Sprintf("... (truncated, %d of %d lines shown)", manMaxLines, total))
	}
	return strings.Join(lines, "\n")
}
