package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ashwch/mend/internal/config"
)

// CommandAdapter invokes an external AI CLI (claude, gemini, llm, ...) with
// the rendered prompt on stdin and parses its reply.
type CommandAdapter struct {
	cfg config.ProviderConfig
}

func NewCommandAdapter(cfg config.ProviderConfig) (*CommandAdapter, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, fmt.Errorf("provider command cannot be empty")
	}
	if strings.TrimSpace(cfg.ModelFlag) == "" {
		cfg.ModelFlag = "--model"
	}
	return &CommandAdapter{cfg: cfg}, nil
}

// HealthCheck reports whether the provider binary is resolvable.
func (a *CommandAdapter) HealthCheck() error {
	if _, err := exec.LookPath(a.cfg.Command); err != nil {
		return fmt.Errorf("provider command %q not found on PATH: %w", a.cfg.Command, err)
	}
	return nil
}

func (a *CommandAdapter) Suggest(ctx context.Context, req Request) (Response, error) {
	prompt := BuildPrompt(req)
	if strings.TrimSpace(prompt) == "" {
		return Response{}, fmt.Errorf("prompt cannot be empty")
	}

	args := append([]string(nil), a.cfg.Args...)
	if model := strings.TrimSpace(a.cfg.Model); model != "" {
		args = append(args, a.cfg.ModelFlag, model)
	}

	cmd := exec.CommandContext(ctx, a.cfg.Command, args...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, fmt.Errorf("provider command failed (%s): %w; stderr=%s",
			a.cfg.Command, err, truncate(stderr.String(), 400))
	}

	resp, err := ParseResponse(stdout.String())
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

// ParseResponse decodes a provider reply. Strict JSON is preferred; a JSON
// object embedded in prose is extracted; anything else is treated as the
// command itself, which the model commonly returns despite instructions.
func ParseResponse(raw string) (Response, error) {
	trimmed := strings.TrimSpace(stripCodeFences(raw))
	if trimmed == "" {
		return Response{}, fmt.Errorf("provider returned empty output")
	}

	var resp Response
	if err := json.Unmarshal([]byte(trimmed), &resp); err == nil && strings.TrimSpace(resp.Command) != "" {
		return resp, nil
	}

	if extracted, ok := extractJSONObject(trimmed); ok {
		if err := json.Unmarshal([]byte(extracted), &resp); err == nil && strings.TrimSpace(resp.Command) != "" {
			return resp, nil
		}
	}

	if strings.ContainsAny(trimmed, "\n") {
		// Multi-line prose is not a command.
		return Response{}, fmt.Errorf("provider returned unparseable output: %s", truncate(trimmed, 400))
	}
	return Response{Command: trimmed}, nil
}

func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONObject finds the first balanced top-level {...} in raw.
func extractJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

func truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
