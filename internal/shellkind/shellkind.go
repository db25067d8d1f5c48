// Package shellkind abstracts over the shells the wrapper can host. Each kind
// knows how to launch itself with the boundary-marker hook installed; nothing
// downstream branches on the shell again.
package shellkind

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type Kind string

const (
	Bash Kind = "bash"
	Zsh  Kind = "zsh"
	Fish Kind = "fish"
)

// Launch describes how to start the wrapped shell: executable, arguments,
// extra environment, and temp files to remove when the session ends.
type Launch struct {
	Kind         Kind
	Path         string
	Args         []string
	Env          []string
	CleanupPaths []string
}

// Detect resolves the shell to wrap. The override (config or MEND_SHELL) wins;
// otherwise $SHELL decides; unrecognized shells fall back to bash, which every
// target platform has.
func Detect(override, shellEnv string) (Kind, string, error) {
	candidate := strings.TrimSpace(override)
	if candidate == "" {
		candidate = strings.TrimSpace(shellEnv)
	}
	if candidate == "" {
		candidate = "bash"
	}

	kind := Kind(strings.ToLower(filepath.Base(candidate)))
	switch kind {
	case Bash, Zsh, Fish:
	default:
		kind = Bash
		candidate = "bash"
	}

	path := candidate
	if !filepath.IsAbs(path) {
		resolved, err := exec.LookPath(string(kind))
		if err != nil {
			return kind, "", fmt.Errorf("could not find %s on PATH: %w", kind, err)
		}
		path = resolved
	}
	return kind, path, nil
}

// Prepare materializes the startup hook for a kind and returns the launch
// spec. hookEnv carries the wrapper's opaque key/value pairs (recursion guard,
// session id, prompt prefix); Prepare forwards them, it never computes them.
func Prepare(kind Kind, path string, hookEnv map[string]string) (Launch, error) {
	launch := Launch{Kind: kind, Path: path}
	for key, value := range hookEnv {
		launch.Env = append(launch.Env, key+"="+value)
	}

	switch kind {
	case Bash:
		rcfile, err := writeTempFile("mend_*.bashrc", bashRC())
		if err != nil {
			return Launch{}, err
		}
		launch.Args = []string{"--rcfile", rcfile, "-i"}
		launch.CleanupPaths = []string{rcfile}

	case Zsh:
		zdotdir, err := os.MkdirTemp("", "mend_zdot_*")
		if err != nil {
			return Launch{}, fmt.Errorf("could not create zsh startup dir: %w", err)
		}
		rcPath := filepath.Join(zdotdir, ".zshrc")
		if err := os.WriteFile(rcPath, []byte(zshRC()), 0o600); err != nil {
			os.RemoveAll(zdotdir)
			return Launch{}, fmt.Errorf("could not write zsh startup file: %w", err)
		}
		launch.Args = []string{"-i"}
		launch.Env = append(launch.Env, "ZDOTDIR="+zdotdir)
		launch.CleanupPaths = []string{zdotdir}

	case Fish:
		launch.Args = []string{"-i", "-C", fishHook()}

	default:
		return Launch{}, fmt.Errorf("unsupported shell kind: %s", kind)
	}

	return launch, nil
}

// The marker is an OSC sequence terminals ignore, so the hook output is
// invisible; the wrapper parses and strips it before echoing.

func bashRC() string {
	return `[ -f ~/.bashrc ] && source ~/.bashrc
if [ -n "$MEND_PROMPT_PREFIX" ]; then
  PS1="${MEND_PROMPT_PREFIX}${PS1}"
fi
_mend_prompt() {
  local exit_code=$?
  local last_command
  last_command=$(HISTTIMEFORMAT= history 1 | sed 's/^[ ]*[0-9]*[ ]*//')
  printf '\033]7770;%d;%s\007' "$exit_code" "$last_command"
}
case ";$PROMPT_COMMAND;" in
  *";_mend_prompt;"*) ;;
  *) PROMPT_COMMAND="_mend_prompt${PROMPT_COMMAND:+;$PROMPT_COMMAND}" ;;
esac
`
}

func zshRC() string {
	return `[ -f "$HOME/.zshrc" ] && source "$HOME/.zshrc"
if [ -n "$MEND_PROMPT_PREFIX" ]; then
  PROMPT="${MEND_PROMPT_PREFIX}${PROMPT}"
fi
function _mend_preexec() {
  MEND_LAST_COMMAND="$1"
}
function _mend_precmd() {
  local exit_code=$?
  printf '\033]7770;%d;%s\007' "$exit_code" "$MEND_LAST_COMMAND"
  MEND_LAST_COMMAND=""
}
autoload -Uz add-zsh-hook
add-zsh-hook preexec _mend_preexec
add-zsh-hook precmd _mend_precmd
`
}

func fishHook() string {
	return `function __mend_postexec --on-event fish_postexec
  printf '\033]7770;%d;%s\007' $status "$argv"
end`
}

// Snippet returns the hook for manual installation into a shell's own rc
// files, for users who want boundary markers without the temp-rcfile launch.
func Snippet(kind Kind) (string, error) {
	switch kind {
	case Bash:
		return bashRC(), nil
	case Zsh:
		return zshRC(), nil
	case Fish:
		return fishHook(), nil
	}
	return "", fmt.Errorf("unsupported shell kind: %s", kind)
}

func writeTempFile(pattern, content string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("could not create shell startup file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("could not write shell startup file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("could not close shell startup file: %w", err)
	}
	return f.Name(), nil
}

// Cleanup removes the temp startup files created by Prepare.
func (l Launch) Cleanup() {
	for _, path := range l.CleanupPaths {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			os.RemoveAll(path)
			continue
		}
		os.Remove(path)
	}
}
