// Package suggest turns command failures into safety-filtered suggestions.
// The orchestrator owns the provider timeout and the classification step, so
// callers only ever see a finished Verdict.
package suggest

import (
	"github.com/ashwch/mend/internal/provider"
	"github.com/ashwch/mend/internal/safety"
)

// Kind is the outcome of a suggestion attempt.
type Kind int

const (
	// KindAllowed means the command passed the safety filter and may be
	// offered for execution.
	KindAllowed Kind = iota
	// KindWarned means the command matched a warn-severity rule; it is shown
	// with the reason and may still be confirmed.
	KindWarned
	// KindBlocked means the command matched a block-severity rule. It is
	// shown for transparency but is never executable.
	KindBlocked
	// KindUnavailable means no suggestion was produced (provider error or
	// timeout). Nothing is shown to the user.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindAllowed:
		return "allowed"
	case KindWarned:
		return "warned"
	case KindBlocked:
		return "blocked"
	default:
		return "unavailable"
	}
}

// Verdict is the final word on one suggestion attempt. Command and
// Explanation are populated for every kind except Unavailable; Rule is set
// for Warned and Blocked; Cause only for Unavailable.
type Verdict struct {
	Kind        Kind
	Command     string
	Explanation string
	Rule        *safety.Rule
	Cause       error
}

// Executable reports whether the gate may run the command on confirmation.
func (v Verdict) Executable() bool {
	return v.Kind == KindAllowed || v.Kind == KindWarned
}

func verdictFor(resp provider.Response) Verdict {
	v := Verdict{Command: resp.Command, Explanation: resp.Explanation}
	rule := safety.Classify(resp.Command)
	switch {
	case rule == nil:
		v.Kind = KindAllowed
	case rule.Severity == safety.SeverityBlock:
		v.Kind = KindBlocked
		v.Rule = rule
	default:
		v.Kind = KindWarned
		v.Rule = rule
	}
	return v
}
