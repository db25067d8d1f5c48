package session

import (
	"bytes"
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/ashwch/mend/internal/boundary"
	"github.com/ashwch/mend/internal/gate"
	"github.com/ashwch/mend/internal/suggest"
)

// ForwardOptions wire the suggestion pipeline into the forwarding loop.
// A nil Orchestrator disables suggestions entirely; the session degrades to
// a transparent pty passthrough.
type ForwardOptions struct {
	Detector     *boundary.Detector
	Ring         *Ring
	Orchestrator *suggest.Orchestrator
	// Mode is one of confirm, suggest, yolo. Confirm gates execution behind
	// y/N; suggest only displays; yolo runs allowed suggestions unasked.
	Mode string
}

type suggestResult struct {
	generation uint64
	verdict    suggest.Verdict
}

// noteWriter lets the gate inject a confirmed command into the shell while
// keeping the boundary detector's view of user input accurate.
type noteWriter struct {
	detector *boundary.Detector
	pty      io.Writer
}

func (w noteWriter) Write(p []byte) (int, error) {
	w.detector.NoteInput(p)
	return w.pty.Write(p)
}

// Forward pumps bytes between the user terminal and the shell until the
// shell exits. All suggestion state lives on this goroutine; only provider
// calls run concurrently, and their results are re-validated against the
// generation counter and detector state before anything is shown.
func (s *Session) Forward(ctx context.Context, opts ForwardOptions) error {
	detector := opts.Detector
	if detector == nil {
		detector = boundary.NewDetector(boundary.DefaultOutputLimit)
	}
	ring := opts.Ring
	if ring == nil {
		ring = NewRing(DefaultRingCapacity)
	}

	inject := noteWriter{detector: detector, pty: s.shell}
	g := gate.New(s.out, inject)

	inputCh := readPump(s.in)
	outputCh := readPump(s.shell)
	suggestCh := make(chan suggestResult, 1)

	var generation uint64
	var pendingCancel context.CancelFunc
	cancelPending := func() {
		if pendingCancel != nil {
			pendingCancel()
			pendingCancel = nil
		}
	}
	defer cancelPending()

	for {
		select {
		case <-ctx.Done():
			g.Cancel()
			return ctx.Err()

		case <-s.winch:
			s.Resize()

		case chunk, ok := <-inputCh:
			if !ok {
				// Stdin is gone; the shell will notice EOF via the pty
				// once we stop forwarding. Keep draining output.
				inputCh = nil
				continue
			}
			if bytes.ContainsAny(chunk, "\x03\x1b") {
				cancelPending()
			}
			forward := chunk
			if g.Waiting() {
				forward = forward[:0]
				for _, b := range chunk {
					if !g.HandleByte(b) {
						forward = append(forward, b)
					}
				}
			}
			if len(forward) > 0 {
				detector.NoteInput(forward)
				if _, err := s.shell.Write(forward); err != nil {
					s.log.Debug("pty write failed", zap.Error(err))
				}
			}

		case chunk, ok := <-outputCh:
			if !ok {
				// Shell exited.
				g.Cancel()
				return nil
			}
			clean, boundaries := detector.Scan(chunk)
			if len(clean) > 0 {
				if _, err := s.out.Write(clean); err != nil {
					return err
				}
				ring.Append(clean)
			}
			for _, b := range boundaries {
				// Each boundary invalidates whatever was in flight, including
				// a result already sitting in the channel buffer.
				generation++
				cancelPending()
				g.Cancel()
				select {
				case <-suggestCh:
				default:
				}

				snapshot := ring.Snapshot()
				ring.Reset()

				if opts.Orchestrator == nil || !b.ShouldSuggest() {
					continue
				}
				ctxSuggest, cancel := context.WithCancel(ctx)
				pendingCancel = cancel
				go func(gen uint64, b boundary.Boundary, snap []byte) {
					verdict := opts.Orchestrator.OnFailure(ctxSuggest, b, snap)
					select {
					case suggestCh <- suggestResult{generation: gen, verdict: verdict}:
					case <-ctxSuggest.Done():
					}
				}(generation, b, snapshot)
			}

		case res := <-suggestCh:
			if res.generation != generation || detector.State() != boundary.StateIdle {
				s.log.Debug("discarding stale suggestion",
					zap.Uint64("generation", res.generation),
					zap.String("detector_state", detector.State().String()))
				continue
			}
			cancelPending()
			s.deliver(g, inject, res.verdict, opts.Mode)
		}
	}
}

func (s *Session) deliver(g *gate.Gate, inject io.Writer, v suggest.Verdict, mode string) {
	switch mode {
	case "suggest":
		g.Show(v)
	case "yolo":
		// Only clean verdicts run unasked. Warned ones still need an
		// explicit human decision, so they fall back to the y/N prompt.
		if v.Kind == suggest.KindAllowed {
			g.Show(v)
			if _, err := io.WriteString(inject, v.Command+"\n"); err != nil {
				s.log.Debug("auto-run write failed", zap.Error(err))
			}
		} else {
			g.Present(v)
		}
	default: // confirm
		g.Present(v)
	}
}

// readPump reads f until error and delivers owned copies of each chunk. The
// channel closes when the underlying descriptor does, which for the pty side
// is how shell exit is observed.
func readPump(f io.Reader) <-chan []byte {
	ch := make(chan []byte, 1)
	go func() {
		defer close(ch)
		buf := make([]byte, 32*1024)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				ch <- chunk
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}
