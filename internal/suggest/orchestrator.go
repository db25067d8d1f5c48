package suggest

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ashwch/mend/internal/boundary"
	"github.com/ashwch/mend/internal/history"
	"github.com/ashwch/mend/internal/provider"
	"github.com/ashwch/mend/internal/safety"
)

// Options configure an Orchestrator. Zero values fall back to sane defaults.
type Options struct {
	// Timeout bounds a single provider call.
	Timeout time.Duration
	// ContextLimit caps the terminal-output bytes forwarded to the provider.
	ContextLimit int
	// RedactContext strips secret-shaped values from the terminal output
	// before it leaves the process.
	RedactContext bool
	// SystemInfo and Shell are forwarded verbatim in every request.
	SystemInfo string
	Shell      string
	// SessionID tags history entries; empty disables history recording.
	SessionID string
}

const (
	defaultTimeout      = 6 * time.Second
	defaultContextLimit = 2048
)

// Orchestrator drives one suggestion attempt per command failure: build the
// request, call the suggester under a deadline, classify the reply.
type Orchestrator struct {
	suggester provider.Suggester
	opts      Options
	log       *zap.Logger
}

func NewOrchestrator(suggester provider.Suggester, opts Options, log *zap.Logger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = defaultContextLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{suggester: suggester, opts: opts, log: log}
}

// OnFailure produces a Verdict for a failed command. terminalOutput is the
// raw recent output around the failure; it is sanitized here, not by the
// caller. Any provider error, including ctx expiry, yields an Unavailable
// verdict rather than an error: a broken suggester must never break the
// shell session.
func (o *Orchestrator) OnFailure(ctx context.Context, b boundary.Boundary, terminalOutput []byte) Verdict {
	req := provider.Request{
		FailedCommand:   b.Command,
		ExitStatus:      b.ExitStatus,
		TerminalContext: o.sanitize(terminalOutput),
		SystemInfo:      o.opts.SystemInfo,
		Shell:           o.opts.Shell,
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	resp, err := o.suggester.Suggest(ctx, req)
	if err != nil {
		o.log.Debug("suggestion unavailable",
			zap.String("command", b.Command),
			zap.Int("exit_status", b.ExitStatus),
			zap.Error(err))
		v := Verdict{Kind: KindUnavailable, Cause: err}
		o.record(b, v)
		return v
	}

	v := verdictFor(resp)
	o.log.Debug("suggestion classified",
		zap.String("suggested", v.Command),
		zap.String("verdict", v.Kind.String()))
	o.record(b, v)
	return v
}

func (o *Orchestrator) record(b boundary.Boundary, v Verdict) {
	if o.opts.SessionID == "" {
		return
	}
	err := history.Record(history.Event{
		SessionID:     o.opts.SessionID,
		FailedCommand: b.Command,
		ExitStatus:    b.ExitStatus,
		Suggested:     v.Command,
		Verdict:       v.Kind.String(),
	})
	if err != nil {
		o.log.Debug("history record failed", zap.Error(err))
	}
}

// sanitize strips terminal control sequences, redacts secrets, and keeps
// only the trailing ContextLimit bytes.
func (o *Orchestrator) sanitize(raw []byte) string {
	text := stripControlSequences(string(raw))
	if o.opts.RedactContext {
		text = safety.RedactText(text)
	}
	if len(text) > o.opts.ContextLimit {
		text = text[len(text)-o.opts.ContextLimit:]
	}
	return strings.TrimSpace(text)
}

// stripControlSequences removes CSI/OSC escape sequences and normalizes CRLF
// so providers see plain text rather than rendering noise.
func stripControlSequences(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != 0x1b {
			if c == '\r' {
				continue
			}
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(text) {
			break
		}
		switch text[i] {
		case '[':
			// CSI: skip to the final byte in 0x40..0x7e.
			for i++; i < len(text); i++ {
				if text[i] >= 0x40 && text[i] <= 0x7e {
					break
				}
			}
		case ']':
			// OSC: terminated by BEL or ST.
			for i++; i < len(text); i++ {
				if text[i] == 0x07 {
					break
				}
				if text[i] == 0x1b && i+1 < len(text) && text[i+1] == '\\' {
					i++
					break
				}
			}
		default:
			// Two-byte sequence; the byte after ESC is consumed.
		}
	}
	return sb.String()
}
