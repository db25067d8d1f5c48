// Package sysinfo captures the basic platform facts the suggester contract
// asks for: OS, architecture, and the wrapped shell.
package sysinfo

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

type Info struct {
	OS    string
	Arch  string
	Shell string
}

// Collect builds an Info snapshot. The shell is passed in rather than read
// from the environment; the caller already holds the resolved value.
func Collect(shell string) Info {
	return Info{
		OS:    describeOS(),
		Arch:  runtime.GOARCH,
		Shell: shell,
	}
}

// Summary renders the snapshot for inclusion in a provider prompt.
func (i Info) Summary() string {
	return fmt.Sprintf("OS: %s (%s)\nShell: %s", i.OS, i.Arch, i.Shell)
}

func describeOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS"
	case "linux":
		if name := linuxPrettyName(); name != "" {
			return name
		}
		return "Linux"
	default:
		return runtime.GOOS
	}
}

func linuxPrettyName() string {
	payload, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(payload), "\n") {
		if value, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(strings.TrimSpace(value), `"`)
		}
	}
	return ""
}
