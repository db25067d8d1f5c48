package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ashwch/mend/internal/boundary"
	"github.com/ashwch/mend/internal/provider"
	"github.com/ashwch/mend/internal/suggest"
)

func TestReadPumpDeliversAndCloses(t *testing.T) {
	pr, pw := io.Pipe()
	ch := readPump(pr)

	go func() {
		pw.Write([]byte("hello"))
		pw.Write([]byte(" world"))
		pw.Close()
	}()

	var got []byte
	for chunk := range ch {
		got = append(got, chunk...)
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q, want all pumped bytes", got)
	}
}

func TestReadPumpChunksAreOwned(t *testing.T) {
	pr, pw := io.Pipe()
	ch := readPump(pr)

	go func() {
		pw.Write([]byte("first"))
		pw.Write([]byte("xxxxx"))
		pw.Close()
	}()

	first := <-ch
	<-ch // the second write must not clobber the first chunk
	if string(first) != "first" {
		t.Fatalf("chunk aliased the pump buffer: %q", first)
	}
}

// lockedBuffer is a bytes.Buffer safe to read from the test goroutine while
// the forward loop writes to it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// pipeShell stands in for the pty master: the test writes shell output into
// the pipe and collects injected input from the buffer.
type pipeShell struct {
	io.Reader
	*lockedBuffer
}

type stubSuggester struct {
	calls     chan provider.Request
	responses chan provider.Response
	cancelled chan struct{}
}

func newStubSuggester() *stubSuggester {
	return &stubSuggester{
		calls:     make(chan provider.Request, 4),
		responses: make(chan provider.Response, 4),
		cancelled: make(chan struct{}, 4),
	}
}

func (s *stubSuggester) Suggest(ctx context.Context, req provider.Request) (provider.Response, error) {
	s.calls <- req
	select {
	case resp := <-s.responses:
		return resp, nil
	case <-ctx.Done():
		s.cancelled <- struct{}{}
		return provider.Response{}, ctx.Err()
	}
}

func (s *stubSuggester) awaitCall(t *testing.T) provider.Request {
	t.Helper()
	select {
	case req := <-s.calls:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("suggester was never called")
		return provider.Request{}
	}
}

type forwardHarness struct {
	userIn   *io.PipeWriter
	shellOut *io.PipeWriter
	term     *lockedBuffer
	shellIn  *lockedBuffer
	done     chan error
}

func startForward(t *testing.T, ctx context.Context, sg provider.Suggester, mode string) *forwardHarness {
	t.Helper()
	inR, inW := io.Pipe()
	shellR, shellW := io.Pipe()
	h := &forwardHarness{
		userIn:   inW,
		shellOut: shellW,
		term:     &lockedBuffer{},
		shellIn:  &lockedBuffer{},
		done:     make(chan error, 1),
	}
	s := &Session{
		in:    inR,
		out:   h.term,
		shell: pipeShell{Reader: shellR, lockedBuffer: h.shellIn},
		log:   zap.NewNop(),
	}
	var orch *suggest.Orchestrator
	if sg != nil {
		orch = suggest.NewOrchestrator(sg, suggest.Options{Timeout: 5 * time.Second}, nil)
	}
	go func() {
		h.done <- s.Forward(ctx, ForwardOptions{Orchestrator: orch, Mode: mode})
	}()
	t.Cleanup(func() {
		inW.Close()
		shellW.Close()
	})
	return h
}

func (h *forwardHarness) waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func failureMarker(status int, command string) []byte {
	return []byte(fmt.Sprintf("\x1b]7770;%d;%s\x07", status, command))
}

func TestForwardConfirmFlowInjectsCommand(t *testing.T) {
	sg := newStubSuggester()
	h := startForward(t, context.Background(), sg, "confirm")

	h.shellOut.Write(failureMarker(127, "git statsu"))
	req := sg.awaitCall(t)
	if req.FailedCommand != "git statsu" {
		t.Fatalf("suggester saw command %q", req.FailedCommand)
	}
	sg.responses <- provider.Response{Command: "git status", Explanation: "fix the typo"}

	h.waitFor(t, func() bool { return strings.Contains(h.term.String(), "[y/N]") },
		"confirmation prompt never rendered")
	h.userIn.Write([]byte("y"))
	h.waitFor(t, func() bool { return h.shellIn.String() == "git status\n" },
		"confirmed command not injected into the shell")

	h.shellOut.Close()
	if err := <-h.done; err != nil {
		t.Fatalf("Forward returned %v after shell exit", err)
	}
}

func TestForwardDiscardsVerdictAfterTyping(t *testing.T) {
	sg := newStubSuggester()
	h := startForward(t, context.Background(), sg, "confirm")

	h.shellOut.Write(failureMarker(127, "gi status"))
	sg.awaitCall(t)

	// The user moved on while the call was in flight.
	h.userIn.Write([]byte("l"))
	h.waitFor(t, func() bool { return strings.Contains(h.shellIn.String(), "l") },
		"typed byte not forwarded to the shell")

	sg.responses <- provider.Response{Command: "git status"}
	time.Sleep(100 * time.Millisecond)
	if out := h.term.String(); strings.Contains(out, "[y/N]") || strings.Contains(out, "git status") {
		t.Fatalf("stale suggestion reached the terminal: %q", out)
	}
}

func TestForwardInterruptCancelsPendingCall(t *testing.T) {
	sg := newStubSuggester()
	h := startForward(t, context.Background(), sg, "confirm")

	h.shellOut.Write(failureMarker(1, "make buid"))
	sg.awaitCall(t)

	h.userIn.Write([]byte{0x03})
	select {
	case <-sg.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("Ctrl-C did not cancel the in-flight provider call")
	}
	h.waitFor(t, func() bool { return strings.Contains(h.shellIn.String(), "\x03") },
		"interrupt not forwarded to the shell")
	time.Sleep(100 * time.Millisecond)
	if strings.Contains(h.term.String(), "[y/N]") {
		t.Fatalf("cancelled call still produced a prompt: %q", h.term.String())
	}
}

func TestForwardNewFailureSupersedesPrompt(t *testing.T) {
	sg := newStubSuggester()
	h := startForward(t, context.Background(), sg, "confirm")

	h.shellOut.Write(failureMarker(2, "make buid"))
	sg.awaitCall(t)
	sg.responses <- provider.Response{Command: "make build"}
	h.waitFor(t, func() bool { return strings.Contains(h.term.String(), "make build") },
		"first suggestion never rendered")

	h.shellOut.Write(failureMarker(1, "npm tset"))
	sg.awaitCall(t)
	sg.responses <- provider.Response{Command: "npm test"}
	h.waitFor(t, func() bool { return strings.Contains(h.term.String(), "npm test") },
		"second suggestion never rendered")

	h.userIn.Write([]byte("y"))
	h.waitFor(t, func() bool { return h.shellIn.String() == "npm test\n" },
		"confirmation should run only the latest suggestion")
}

func TestForwardYoloRunsOnlyCleanSuggestions(t *testing.T) {
	sg := newStubSuggester()
	h := startForward(t, context.Background(), sg, "yolo")

	h.shellOut.Write(failureMarker(127, "gti status"))
	sg.awaitCall(t)
	sg.responses <- provider.Response{Command: "git status"}
	h.waitFor(t, func() bool { return h.shellIn.String() == "git status\n" },
		"clean suggestion should run without confirmation")

	h.shellOut.Write(failureMarker(1, "restart"))
	sg.awaitCall(t)
	sg.responses <- provider.Response{Command: "reboot"}
	h.waitFor(t, func() bool { return strings.Contains(h.term.String(), "[y/N]") },
		"warned suggestion should fall back to the confirmation prompt")
	if strings.Contains(h.shellIn.String(), "reboot") {
		t.Fatalf("warned suggestion auto-ran: %q", h.shellIn.String())
	}
}

func TestForwardReturnsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := startForward(t, ctx, nil, "confirm")

	cancel()
	select {
	case err := <-h.done:
		if err != context.Canceled {
			t.Fatalf("Forward returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Forward did not return after context cancellation")
	}
}

func TestNoteWriterMarksDetectorRunning(t *testing.T) {
	d := boundary.NewDetector(boundary.DefaultOutputLimit)
	var sink bytes.Buffer
	w := noteWriter{detector: d, pty: &sink}

	if _, err := w.Write([]byte("git status\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if sink.String() != "git status\n" {
		t.Fatalf("bytes not forwarded: %q", sink.String())
	}
	if d.State() != boundary.StateRunning {
		t.Fatalf("detector should leave Idle on injected input, got %v", d.State())
	}
}
