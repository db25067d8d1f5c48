package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashwch/mend/internal/boundary"
	"github.com/ashwch/mend/internal/history"
	"github.com/ashwch/mend/internal/provider"
	"github.com/ashwch/mend/internal/safety"
)

type fakeSuggester struct {
	resp    provider.Response
	err     error
	delay   time.Duration
	lastReq provider.Request
}

func (f *fakeSuggester) Suggest(ctx context.Context, req provider.Request) (provider.Response, error) {
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return provider.Response{}, ctx.Err()
		}
	}
	return f.resp, f.err
}

func TestOnFailureAllowed(t *testing.T) {
	fake := &fakeSuggester{resp: provider.Response{Command: "git status", Explanation: "typo fix"}}
	o := NewOrchestrator(fake, Options{}, nil)

	v := o.OnFailure(context.Background(), boundary.Boundary{Command: "gi status", ExitStatus: 127}, nil)
	if v.Kind != KindAllowed {
		t.Fatalf("got %s, want allowed", v.Kind)
	}
	if !v.Executable() {
		t.Fatal("allowed verdict must be executable")
	}
	if fake.lastReq.FailedCommand != "gi status" || fake.lastReq.ExitStatus != 127 {
		t.Fatalf("request not built from boundary: %+v", fake.lastReq)
	}
}

func TestOnFailureBlocked(t *testing.T) {
	fake := &fakeSuggester{resp: provider.Response{Command: "sudo rm -rf /"}}
	o := NewOrchestrator(fake, Options{}, nil)

	v := o.OnFailure(context.Background(), boundary.Boundary{Command: "rm -rf ./build", ExitStatus: 1}, nil)
	if v.Kind != KindBlocked {
		t.Fatalf("got %s, want blocked", v.Kind)
	}
	if v.Executable() {
		t.Fatal("blocked verdict must never be executable")
	}
	if v.Rule == nil || v.Rule.Severity != safety.SeverityBlock {
		t.Fatalf("blocked verdict must carry its rule, got %+v", v.Rule)
	}
	if v.Command != "sudo rm -rf /" {
		t.Fatalf("blocked verdict keeps the command for display, got %q", v.Command)
	}
}

func TestOnFailureWarned(t *testing.T) {
	fake := &fakeSuggester{resp: provider.Response{Command: "sudo reboot"}}
	o := NewOrchestrator(fake, Options{}, nil)

	v := o.OnFailure(context.Background(), boundary.Boundary{Command: "reboto", ExitStatus: 127}, nil)
	if v.Kind != KindWarned {
		t.Fatalf("got %s, want warned", v.Kind)
	}
	if !v.Executable() {
		t.Fatal("warned verdict is still confirmable")
	}
}

func TestOnFailureProviderError(t *testing.T) {
	fake := &fakeSuggester{err: errors.New("provider exploded")}
	o := NewOrchestrator(fake, Options{}, nil)

	v := o.OnFailure(context.Background(), boundary.Boundary{Command: "ls", ExitStatus: 1}, nil)
	if v.Kind != KindUnavailable {
		t.Fatalf("got %s, want unavailable", v.Kind)
	}
	if v.Cause == nil {
		t.Fatal("unavailable verdict must carry its cause")
	}
}

func TestOnFailureTimeout(t *testing.T) {
	fake := &fakeSuggester{delay: time.Second, resp: provider.Response{Command: "ls"}}
	o := NewOrchestrator(fake, Options{Timeout: 10 * time.Millisecond}, nil)

	v := o.OnFailure(context.Background(), boundary.Boundary{Command: "ls", ExitStatus: 1}, nil)
	if v.Kind != KindUnavailable {
		t.Fatalf("got %s, want unavailable after timeout", v.Kind)
	}
	if !errors.Is(v.Cause, context.DeadlineExceeded) {
		t.Fatalf("cause should be deadline exceeded, got %v", v.Cause)
	}
}

func TestOnFailureRecordsHistory(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	fake := &fakeSuggester{resp: provider.Response{Command: "git status"}}
	o := NewOrchestrator(fake, Options{SessionID: "sess-1"}, nil)
	o.OnFailure(context.Background(), boundary.Boundary{Command: "gi status", ExitStatus: 127}, nil)

	events, err := history.Recent(5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d history events, want 1", len(events))
	}
	ev := events[0]
	if ev.SessionID != "sess-1" || ev.Suggested != "git status" || ev.Verdict != "allowed" {
		t.Fatalf("unexpected history event: %+v", ev)
	}
}

func TestSanitizeRedactsAndTruncates(t *testing.T) {
	fake := &fakeSuggester{resp: provider.Response{Command: "ls"}}
	o := NewOrchestrator(fake, Options{ContextLimit: 64, RedactContext: true}, nil)

	output := []byte("\x1b[31merror:\x1b[0m auth failed\r\napi_key=supersecretvalue123\n")
	o.OnFailure(context.Background(), boundary.Boundary{Command: "deploy", ExitStatus: 1}, output)

	ctx := fake.lastReq.TerminalContext
	if strings.Contains(ctx, "supersecretvalue123") {
		t.Fatalf("secret leaked into provider context: %q", ctx)
	}
	if strings.Contains(ctx, "\x1b") || strings.Contains(ctx, "\r") {
		t.Fatalf("control bytes leaked into provider context: %q", ctx)
	}
	if !strings.Contains(ctx, "error:") {
		t.Fatalf("plain text lost during sanitize: %q", ctx)
	}
}

func TestSanitizeKeepsTrailingBytes(t *testing.T) {
	fake := &fakeSuggester{resp: provider.Response{Command: "ls"}}
	o := NewOrchestrator(fake, Options{ContextLimit: 10, RedactContext: false}, nil)

	o.OnFailure(context.Background(), boundary.Boundary{Command: "x", ExitStatus: 1},
		[]byte("aaaaaaaaaaaaaaaaaaaatail"))
	if got := fake.lastReq.TerminalContext; !strings.HasSuffix(got, "tail") || len(got) > 10 {
		t.Fatalf("want trailing 10 bytes ending in tail, got %q", got)
	}
}

func TestStripControlSequences(t *testing.T) {
	cases := map[string]string{
		"plain":                         "plain",
		"\x1b[1;32mgreen\x1b[0m":        "green",
		"\x1b]0;title\x07after":         "after",
		"\x1b]7770;1;cmd\x07prompt":     "prompt",
		"line1\r\nline2":                "line1\nline2",
		"\x1b]2;st-terminated\x1b\\ok":  "ok",
		"truncated escape at end \x1b[": "truncated escape at end ",
	}
	for in, want := range cases {
		if got := stripControlSequences(in); got != want {
			t.Errorf("stripControlSequences(%q) = %q, want %q", in, got, want)
		}
	}
}
