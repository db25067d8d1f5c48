// Package boundary infers command completion and exit status from the wrapped
// shell's output stream. The startup hook makes the shell print an invisible
// OSC sequence after every command; terminals ignore unknown OSC sequences, so
// the marker never reaches the user's screen once the detector strips it.
package boundary

import (
	"bytes"
	"strconv"
	"strings"
)

// Marker format: ESC ] 7 7 7 0 ; <exit status> ; <command> BEL
const (
	markerPrefix     = "\x1b]7770;"
	markerTerminator = 0x07
)

// maxMarkerLen caps how long an unterminated marker candidate is held back
// before being flushed as ordinary output.
const maxMarkerLen = 8192

// DefaultOutputLimit is how many marker-free output bytes a running command
// may produce before the detector stops trusting its own state. Full-screen
// programs and nested shells never emit markers; guessing at their command
// boundaries would trigger suggestions on editor output.
const DefaultOutputLimit = 256 * 1024

// interruptStatus is the POSIX exit status for Ctrl-C. An interrupted command
// is an intentional abort, not a failure that needs fixing.
const interruptStatus = 130

type State int

const (
	StateIdle State = iota
	StateRunning
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateUnknown:
		return "unknown"
	}
	return "invalid"
}

// Boundary is one completed command reported by the shell hook.
type Boundary struct {
	Command    string
	ExitStatus int
	// Suppressed marks a boundary seen while the detector had lost track of
	// command state; it still resets the stream but must not drive suggestions.
	Suppressed bool
}

// ShouldSuggest reports whether a boundary represents a failure worth sending
// to the suggester.
func (b Boundary) ShouldSuggest() bool {
	if b.Suppressed || b.ExitStatus == 0 || b.ExitStatus == interruptStatus {
		return false
	}
	return strings.TrimSpace(b.Command) != ""
}

// Detector is the Idle -> Running -> Idle state machine over the output
// stream. It is mutated only by the session's forward loop.
type Detector struct {
	state   State
	carry   []byte
	running int
	limit   int
}

func NewDetector(outputLimit int) *Detector {
	if outputLimit <= 0 {
		outputLimit = DefaultOutputLimit
	}
	return &Detector{limit: outputLimit}
}

func (d *Detector) State() State { return d.state }

// NoteInput observes user keystrokes headed for the child. The first byte
// typed after a prompt moves the detector out of Idle.
func (d *Detector) NoteInput(p []byte) {
	if len(p) == 0 {
		return
	}
	if d.state == StateIdle {
		d.state = StateRunning
		d.running = 0
	}
}

// Scan feeds child output incrementally. It returns the bytes to display
// (markers stripped) and any command boundaries completed by this chunk.
// Markers split across read chunks are reassembled via an internal carry.
func (d *Detector) Scan(p []byte) (clean []byte, boundaries []Boundary) {
	data := p
	if len(d.carry) > 0 {
		data = append(d.carry, p...)
		d.carry = nil
	}

	var out bytes.Buffer
	for len(data) > 0 {
		idx := bytes.Index(data, []byte(markerPrefix))
		if idx < 0 {
			held := partialPrefixLen(data)
			d.emit(&out, data[:len(data)-held])
			if held > 0 {
				d.carry = append([]byte(nil), data[len(data)-held:]...)
			}
			break
		}

		d.emit(&out, data[:idx])
		rest := data[idx:]

		bel := bytes.IndexByte(rest, markerTerminator)
		if bel < 0 {
			if len(rest) > maxMarkerLen {
				// Not one of ours after all; flush it as ordinary output.
				d.emit(&out, rest)
				break
			}
			d.carry = append([]byte(nil), rest...)
			break
		}

		body := rest[len(markerPrefix):bel]
		data = rest[bel+1:]

		b, ok := parseMarkerBody(body)
		if !ok {
			continue
		}
		boundaries = append(boundaries, d.complete(b))
	}

	return out.Bytes(), boundaries
}

// emit accounts displayed bytes against the unknown-boundary budget.
func (d *Detector) emit(out *bytes.Buffer, p []byte) {
	if len(p) == 0 {
		return
	}
	out.Write(p)
	if d.state == StateRunning {
		d.running += len(p)
		if d.running > d.limit {
			d.state = StateUnknown
		}
	}
}

func (d *Detector) complete(b Boundary) Boundary {
	b.Suppressed = d.state == StateUnknown
	d.state = StateIdle
	d.running = 0
	return b
}

func parseMarkerBody(body []byte) (Boundary, bool) {
	statusText, command, ok := strings.Cut(string(body), ";")
	if !ok {
		return Boundary{}, false
	}
	status, err := strconv.Atoi(statusText)
	if err != nil || status < 0 {
		return Boundary{}, false
	}
	return Boundary{Command: strings.TrimSpace(command), ExitStatus: status}, true
}

// partialPrefixLen returns the length of the longest tail of data that could
// still grow into a marker prefix on the next read.
func partialPrefixLen(data []byte) int {
	max := len(markerPrefix) - 1
	if len(data) < max {
		max = len(data)
	}
	for l := max; l > 0; l-- {
		if bytes.Equal(data[len(data)-l:], []byte(markerPrefix[:l])) {
			return l
		}
	}
	return 0
}
