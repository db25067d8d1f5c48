package provider

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a terminal command assistant. Your job is to generate the exact terminal command that accomplishes what the user describes.

Rules:
- Return ONLY valid JSON matching this schema: {"command": "<the command>", "explanation": "<one sentence>"}
- The command must be a single, copy-pasteable terminal command
- Use pipes, &&, or ; to chain commands if needed
- Do not wrap the command in backticks or code blocks
- If the request is ambiguous, make reasonable assumptions and note them in the explanation`

// BuildPrompt renders a request into the provider prompt. The failed-command
// and one-shot shapes share a template so providers see a consistent format.
func BuildPrompt(req Request) string {
	var parts []string
	parts = append(parts, systemPrompt)

	if req.SystemInfo != "" {
		parts = append(parts, "System:\n"+req.SystemInfo)
	}
	if req.CommandDocs != "" {
		parts = append(parts, "Context:\n"+req.CommandDocs)
	}

	switch {
	case req.FailedCommand != "":
		ask := fmt.Sprintf("fix this command: %s\n(exit status %d)", req.FailedCommand, req.ExitStatus)
		if req.TerminalContext != "" {
			ask += "\n\nTerminal output:\n" + req.TerminalContext
		}
		parts = append(parts, ask)
	default:
		parts = append(parts, "What I want to do: "+req.Query)
	}

	return strings.Join(parts, "\n\n")
}
