// Package provider defines the external suggestion boundary: failure context
// in, suggested command text out. Every response is untrusted text; callers
// must route it through the safety filter before showing it as runnable.
package provider

import "context"

// Request carries everything the suggester may use. TerminalContext is
// already redacted and truncated by the caller.
type Request struct {
	// Query is the natural-language ask in one-shot mode; empty when fixing
	// a failed command from the wrapper.
	Query           string
	FailedCommand   string
	ExitStatus      int
	TerminalContext string
	// CommandDocs is --help/man material for the command, when resolvable.
	CommandDocs string
	SystemInfo  string
	Shell       string
}

// Response is the parsed provider output.
type Response struct {
	Command     string `json:"command"`
	Explanation string `json:"explanation,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Suggester is the opaque suggestion function. Implementations must honor
// context cancellation; the caller enforces the timeout.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (Response, error)
}
