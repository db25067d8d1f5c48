// Package gate renders suggestion verdicts into a raw-mode terminal and
// holds the single-keystroke confirmation that may inject the suggested
// command into the wrapped shell.
package gate

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashwch/mend/internal/suggest"
)

var (
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	commandStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("87"))
	explainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	blockStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// Gate writes verdict banners to the user's terminal and, while a
// confirmable verdict is pending, intercepts input bytes until the user
// answers. It is driven from the session's single event loop and needs no
// locking of its own.
type Gate struct {
	term io.Writer // user terminal, raw mode: lines end in \r\n
	pty  io.Writer // master side of the wrapped shell's pty

	pending suggest.Verdict
	waiting bool
}

func New(term, pty io.Writer) *Gate {
	return &Gate{term: term, pty: pty}
}

// Waiting reports whether the gate is holding input for a y/N answer.
func (g *Gate) Waiting() bool {
	return g.waiting
}

// Present renders a verdict. Allowed and warned verdicts arm the
// confirmation prompt; blocked ones are shown with their reason and nothing
// to confirm; unavailable ones render nothing at all.
func (g *Gate) Present(v suggest.Verdict) {
	switch v.Kind {
	case suggest.KindUnavailable:
		return
	case suggest.KindBlocked:
		g.writeLine("")
		g.writeLine(blockStyle.Render("✗ suggestion blocked: ") + explainStyle.Render(v.Rule.Reason))
		g.writeLine(explainStyle.Render("  (not executable) ") + v.Command)
		return
	case suggest.KindWarned:
		g.writeLine("")
		g.writeLine(warnStyle.Render("⚠ " + v.Rule.Reason))
	default:
		g.writeLine("")
	}

	g.writeLine(promptStyle.Render("→ ") + commandStyle.Render(v.Command))
	if v.Explanation != "" {
		g.writeLine(explainStyle.Render("  " + v.Explanation))
	}
	fmt.Fprint(g.term, promptStyle.Render("  run it? [y/N] "))

	g.pending = v
	g.waiting = true
}

// Show renders a verdict without arming the confirmation prompt, for
// display-only modes. Blocked and unavailable verdicts render as in Present.
func (g *Gate) Show(v suggest.Verdict) {
	switch v.Kind {
	case suggest.KindUnavailable:
		return
	case suggest.KindBlocked:
		g.Present(v)
		return
	case suggest.KindWarned:
		g.writeLine("")
		g.writeLine(warnStyle.Render("⚠ " + v.Rule.Reason))
	default:
		g.writeLine("")
	}
	g.writeLine(promptStyle.Render("→ ") + commandStyle.Render(v.Command))
	if v.Explanation != "" {
		g.writeLine(explainStyle.Render("  " + v.Explanation))
	}
}

// HandleByte consumes one input byte while waiting. It returns true when the
// byte was taken by the gate and must not be forwarded to the shell. Only an
// explicit y confirms; enter, escape and n decline; Ctrl-C declines and is
// still delivered to the shell; anything else keeps the prompt armed.
func (g *Gate) HandleByte(b byte) bool {
	if !g.waiting {
		return false
	}
	switch b {
	case 'y', 'Y':
		g.writeLine("y")
		g.waiting = false
		fmt.Fprint(g.pty, g.pending.Command+"\n")
		g.pending = suggest.Verdict{}
		return true
	case 'n', 'N', '\r', '\n', 0x1b:
		g.writeLine("n")
		g.reset()
		return true
	case 0x03:
		// Decline, then let the interrupt reach the shell as usual.
		g.writeLine("n")
		g.reset()
		g.pty.Write([]byte{0x03})
		return true
	default:
		return true
	}
}

// Cancel abandons a pending prompt without executing, for example when new
// shell output arrives or the session is shutting down.
func (g *Gate) Cancel() {
	if !g.waiting {
		return
	}
	g.writeLine("")
	g.reset()
}

func (g *Gate) reset() {
	g.waiting = false
	g.pending = suggest.Verdict{}
}

func (g *Gate) writeLine(s string) {
	// Raw mode: \n alone would stair-step.
	fmt.Fprint(g.term, strings.ReplaceAll(s, "\n", "\r\n")+"\r\n")
}
