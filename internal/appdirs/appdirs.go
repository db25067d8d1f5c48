// Package appdirs resolves where mend keeps its files: the TOML config in
// the platform config dir, and the event history plus debug log in the state
// dir. MEND_CONFIG_DIR and MEND_STATE_DIR override the platform defaults.
package appdirs

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const AppName = "mend"

// Environment overrides, mainly for scripted and test setups.
const (
	ConfigDirEnv = "MEND_CONFIG_DIR"
	StateDirEnv  = "MEND_STATE_DIR"
)

const (
	configFileName  = "config.toml"
	historyFileName = "history.jsonl"
	logFileName     = "mend.log"
)

// ConfigDir is where config.toml lives.
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	return platformDir("XDG_CONFIG_HOME", ".config", "APPDATA", "Roaming", AppName)
}

// StateDir is where mutable data lives: the suggestion history and the debug
// log. Kept apart from config so wiping state never loses settings.
func StateDir() (string, error) {
	if dir := os.Getenv(StateDirEnv); dir != "" {
		return dir, nil
	}
	return platformDir("XDG_STATE_HOME", filepath.Join(".local", "state"), "LOCALAPPDATA", "Local", AppName, "state")
}

// platformDir picks the per-OS base directory and joins the app path onto it.
// On darwin everything goes under Application Support regardless of the XDG
// and Windows hints.
func platformDir(xdgVar, xdgFallback, winVar, winFallback string, elem ...string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}

	var base string
	switch runtime.GOOS {
	case "darwin":
		base = filepath.Join(home, "Library", "Application Support")
	case "windows":
		if base = os.Getenv(winVar); base == "" {
			base = filepath.Join(home, "AppData", winFallback)
		}
	default:
		if base = os.Getenv(xdgVar); base == "" {
			base = filepath.Join(home, xdgFallback)
		}
	}
	return filepath.Join(append([]string{base}, elem...)...), nil
}

func EnsureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return ensurePrivate(dir, "config")
}

func EnsureStateDir() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return ensurePrivate(dir, "state")
}

// ensurePrivate creates dir user-only. Both dirs can hold command text, which
// may embed secrets, so group/other access is always stripped.
func ensurePrivate(dir, label string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("could not create %s dir: %w", label, err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		return "", fmt.Errorf("could not secure %s dir permissions: %w", label, err)
	}
	return dir, nil
}

func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// HistoryFilePath is the append-only suggestion-event log.
func HistoryFilePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, historyFileName), nil
}

// LogFilePath is the debug log target; stderr is off-limits while the wrapper
// holds a raw terminal.
func LogFilePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logFileName), nil
}
