package boundary

import (
	"bytes"
	"strings"
	"testing"
)

func marker(status, command string) string {
	return "\x1b]7770;" + status + ";" + command + "\x07"
}

func TestScanStripsMarkerAndReportsFailure(t *testing.T) {
	d := NewDetector(0)
	d.NoteInput([]byte("g"))

	input := "gi status\r\ncommand not found\r\n" + marker("127", "gi status") + "$ "
	clean, boundaries := d.Scan([]byte(input))

	if bytes.Contains(clean, []byte("\x1b]7770")) {
		t.Fatalf("marker leaked into display output: %q", clean)
	}
	if !bytes.Contains(clean, []byte("command not found")) {
		t.Fatalf("command output missing from display stream: %q", clean)
	}
	if len(boundaries) != 1 {
		t.Fatalf("expected one boundary, got %d", len(boundaries))
	}
	b := boundaries[0]
	if b.Command != "gi status" || b.ExitStatus != 127 {
		t.Fatalf("unexpected boundary: %+v", b)
	}
	if !b.ShouldSuggest() {
		t.Fatalf("exit 127 with a command should be suggestible")
	}
	if d.State() != StateIdle {
		t.Fatalf("expected idle after marker, got %v", d.State())
	}
}

func TestScanZeroStatusIsNotSuggestible(t *testing.T) {
	d := NewDetector(0)
	_, boundaries := d.Scan([]byte(marker("0", "ls")))
	if len(boundaries) != 1 {
		t.Fatalf("expected boundary for successful command, got %d", len(boundaries))
	}
	if boundaries[0].ShouldSuggest() {
		t.Fatalf("zero exit status must never trigger a suggestion")
	}
}

func TestScanInterruptStatusIsNotSuggestible(t *testing.T) {
	d := NewDetector(0)
	_, boundaries := d.Scan([]byte(marker("130", "sleep 100")))
	if len(boundaries) != 1 || boundaries[0].ShouldSuggest() {
		t.Fatalf("Ctrl-C (130) is an intentional abort, got %+v", boundaries)
	}
}

func TestScanEmptyCommandIsNotSuggestible(t *testing.T) {
	d := NewDetector(0)
	_, boundaries := d.Scan([]byte(marker("1", "  ")))
	if len(boundaries) != 1 || boundaries[0].ShouldSuggest() {
		t.Fatalf("empty command text must not trigger a suggestion, got %+v", boundaries)
	}
}

func TestScanMarkerSplitAcrossChunks(t *testing.T) {
	d := NewDetector(0)
	full := "output" + marker("2", "make build") + "$ "

	var clean bytes.Buffer
	var boundaries []Boundary
	// Feed one byte at a time to exercise every split point.
	for i := 0; i < len(full); i++ {
		c, bs := d.Scan([]byte{full[i]})
		clean.Write(c)
		boundaries = append(boundaries, bs...)
	}

	if got := clean.String(); got != "output$ " {
		t.Fatalf("expected marker stripped across chunk boundaries, got %q", got)
	}
	if len(boundaries) != 1 || boundaries[0].Command != "make build" || boundaries[0].ExitStatus != 2 {
		t.Fatalf("unexpected boundaries: %+v", boundaries)
	}
}

func TestScanNoBytesLostWithoutMarkers(t *testing.T) {
	d := NewDetector(0)
	input := []byte("plain output with \x1b[31mcolors\x1b[0m and more")
	clean, boundaries := d.Scan(input)
	clean2, _ := d.Scan(nil)
	clean = append(clean, clean2...)
	if !bytes.Equal(clean, input) {
		t.Fatalf("marker-free output must pass through unchanged: %q vs %q", clean, input)
	}
	if len(boundaries) != 0 {
		t.Fatalf("expected no boundaries, got %+v", boundaries)
	}
}

func TestScanDegradesToUnknownAfterOutputLimit(t *testing.T) {
	d := NewDetector(64)
	d.NoteInput([]byte("v"))

	// A full-screen program produces unbounded marker-free output.
	d.Scan([]byte(strings.Repeat("x", 100)))
	if d.State() != StateUnknown {
		t.Fatalf("expected unknown state after output limit, got %v", d.State())
	}

	// The next marker resets state but its boundary stays suppressed.
	_, boundaries := d.Scan([]byte(marker("1", "vim notes.txt")))
	if len(boundaries) != 1 {
		t.Fatalf("expected boundary, got %d", len(boundaries))
	}
	if !boundaries[0].Suppressed || boundaries[0].ShouldSuggest() {
		t.Fatalf("boundary after unknown state must be suppressed: %+v", boundaries[0])
	}
	if d.State() != StateIdle {
		t.Fatalf("marker should restore idle state, got %v", d.State())
	}
}

func TestScanMalformedMarkerIsDropped(t *testing.T) {
	d := NewDetector(0)
	clean, boundaries := d.Scan([]byte("a" + "\x1b]7770;notanumber\x07" + "b"))
	if string(clean) != "ab" {
		t.Fatalf("malformed marker should be stripped, got %q", clean)
	}
	if len(boundaries) != 0 {
		t.Fatalf("malformed marker must not produce a boundary: %+v", boundaries)
	}
}

func TestNoteInputTransitionsIdleToRunning(t *testing.T) {
	d := NewDetector(0)
	if d.State() != StateIdle {
		t.Fatalf("expected idle start state")
	}
	d.NoteInput([]byte("l"))
	if d.State() != StateRunning {
		t.Fatalf("expected running after input, got %v", d.State())
	}
	// Further keystrokes keep the state.
	d.NoteInput([]byte("s\r"))
	if d.State() != StateRunning {
		t.Fatalf("expected running, got %v", d.State())
	}
}
