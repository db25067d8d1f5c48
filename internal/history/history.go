// Package history keeps an append-only log of suggestion outcomes in the
// state dir, so past fixes can be reviewed with _mend history.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ashwch/mend/internal/appdirs"
	"github.com/ashwch/mend/internal/safety"
)

const maxCommandLength = 8192

type Event struct {
	SessionID     string `json:"session_id,omitempty"`
	FailedCommand string `json:"failed_command"`
	ExitStatus    int    `json:"exit_status"`
	Suggested     string `json:"suggested,omitempty"`
	Verdict       string `json:"verdict"`
	Timestamp     string `json:"timestamp"`
}

// Record appends one event. Commands are redacted before they touch disk;
// the file is private to the user.
func Record(ev Event) error {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	ev.FailedCommand = clip(safety.RedactText(strings.TrimSpace(ev.FailedCommand)))
	ev.Suggested = clip(safety.RedactText(strings.TrimSpace(ev.Suggested)))
	if ev.FailedCommand == "" {
		return fmt.Errorf("failed command cannot be empty")
	}

	if _, err := appdirs.EnsureStateDir(); err != nil {
		return err
	}
	path, err := appdirs.HistoryFilePath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("could not open history file: %w", err)
	}
	defer f.Close()
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("could not secure history file permissions: %w", err)
	}

	encoded, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("could not serialize event: %w", err)
	}
	if _, err := f.WriteString(string(encoded) + "\n"); err != nil {
		return fmt.Errorf("could not write event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest last. A missing file is an empty
// history, not an error.
func Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	path, err := appdirs.HistoryFilePath()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not open history file: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			// Tolerate a torn tail line.
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read history file: %w", err)
	}

	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

func clip(command string) string {
	if len(command) > maxCommandLength {
		return command[:maxCommandLength]
	}
	return command
}
