// Package session owns the wrapped-shell lifecycle: the pty the shell runs
// in, the raw-mode user terminal, the recent-output ring, and the event loop
// that ties boundary detection, suggestions, and the confirmation gate
// together.
package session

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ashwch/mend/internal/sessionenv"
	"github.com/ashwch/mend/internal/shellkind"
)

// Session is one wrapped interactive shell. Open it, Forward it, Close it.
type Session struct {
	ID     string
	Launch shellkind.Launch

	cmd    *exec.Cmd
	ptmx   *os.File
	stdin  *os.File
	stdout *os.File

	// The forwarding loop reads and writes through these rather than the
	// concrete files above, so it can be driven by pipes as well as a pty.
	in    io.Reader
	out   io.Writer
	shell io.ReadWriter

	rawState *term.State
	winch    chan os.Signal

	log *zap.Logger
}

// Open starts the shell inside a pty sized like the current terminal and
// switches the user's terminal to raw mode. The hook environment carries the
// recursion guard and session id so nested invocations refuse to wrap again.
func Open(launch shellkind.Launch, promptPrefix string, debug bool, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		ID:     uuid.NewString(),
		Launch: launch,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		log:    log,
	}
	s.in = s.stdin
	s.out = s.stdout

	hookEnv := map[string]string{
		sessionenv.ActiveVar:    "1",
		sessionenv.SessionIDVar: s.ID,
	}
	if promptPrefix != "" {
		hookEnv[sessionenv.PromptPrefixVar] = promptPrefix
	}
	if debug {
		hookEnv[sessionenv.DebugVar] = "1"
	}

	cmd := exec.Command(launch.Path, launch.Args...)
	cmd.Env = append(os.Environ(), launch.Env...)
	for key, value := range hookEnv {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	size, err := pty.GetsizeFull(s.stdin)
	if err != nil {
		// Not a terminal, or size unavailable. Pick a sane default; the
		// first SIGWINCH corrects it.
		size = &pty.Winsize{Rows: 24, Cols: 80}
	}
	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("could not start %s: %w", launch.Kind, err)
	}
	s.cmd = cmd
	s.ptmx = ptmx
	s.shell = ptmx

	rawState, err := term.MakeRaw(int(s.stdin.Fd()))
	if err != nil {
		ptmx.Close()
		cmd.Process.Kill()
		cmd.Wait()
		launch.Cleanup()
		return nil, fmt.Errorf("could not switch terminal to raw mode: %w", err)
	}
	s.rawState = rawState

	s.winch = make(chan os.Signal, 1)
	signal.Notify(s.winch, syscall.SIGWINCH)

	s.log.Debug("session opened",
		zap.String("session_id", s.ID),
		zap.String("shell", string(launch.Kind)),
		zap.String("path", launch.Path))
	return s, nil
}

// Resize propagates the current terminal size to the pty.
func (s *Session) Resize() {
	if err := pty.InheritSize(s.stdin, s.ptmx); err != nil {
		s.log.Debug("resize failed", zap.Error(err))
	}
}

// Close restores the terminal, reaps the shell, and removes launch temp
// files. It returns the shell's exit status so the wrapper can propagate it.
func (s *Session) Close() int {
	signal.Stop(s.winch)
	if s.rawState != nil {
		term.Restore(int(s.stdin.Fd()), s.rawState)
		s.rawState = nil
	}
	if s.ptmx != nil {
		s.ptmx.Close()
	}

	status := 0
	if s.cmd != nil {
		if err := s.cmd.Wait(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				status = exitErr.ExitCode()
			} else {
				status = 1
			}
		}
	}
	s.Launch.Cleanup()
	s.log.Debug("session closed", zap.String("session_id", s.ID), zap.Int("exit_status", status))
	return status
}
