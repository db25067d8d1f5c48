// _mend is the plumbing binary: scriptable subcommands for config access,
// diagnostics, and the shell hook snippet, kept out of mend's porcelain
// surface.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ashwch/mend/internal/appdirs"
	"github.com/ashwch/mend/internal/config"
	"github.com/ashwch/mend/internal/history"
	"github.com/ashwch/mend/internal/shellkind"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "config-get":
		err = configGet(args)
	case "config-set":
		err = configSet(args)
	case "config-path":
		err = configPath()
	case "state-path":
		err = statePath()
	case "doctor":
		err = doctor()
	case "history":
		err = showHistory(args)
	case "hook-snippet":
		err = hookSnippet(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown _mend subcommand: %s\n", sub)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "_mend error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("_mend <config-get|config-set|config-path|state-path|doctor|history|hook-snippet>")
}

func showHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max events")
	if err := fs.Parse(args); err != nil {
		return err
	}

	events, err := history.Recent(*limit)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}

func configGet(args []string) error {
	fs := flag.NewFlagSet("config-get", flag.ContinueOnError)
	key := fs.String("key", "", "optional config key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := config.LoadOrCreate()
	if err != nil {
		return err
	}

	if strings.TrimSpace(*key) == "" {
		payload, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(payload))
		return nil
	}

	val, err := cfg.Get(*key)
	if err != nil {
		return err
	}
	fmt.Println(val)
	return nil
}

func configSet(args []string) error {
	fs := flag.NewFlagSet("config-set", flag.ContinueOnError)
	key := fs.String("key", "", "config key")
	value := fs.String("value", "", "config value")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*key) == "" {
		return fmt.Errorf("--key is required")
	}
	if strings.TrimSpace(*value) == "" {
		return fmt.Errorf("--value is required")
	}

	cfg, path, err := config.LoadOrCreate()
	if err != nil {
		return err
	}
	if err := cfg.Set(*key, *value); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("saved %s=%s\n", *key, *value)
	return nil
}

func configPath() error {
	path, err := appdirs.ConfigFilePath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func statePath() error {
	path, err := appdirs.StateDir()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func doctor() error {
	type check struct {
		Key    string `json:"key"`
		Value  string `json:"value"`
		Status string `json:"status"`
	}

	cfgPath, err := appdirs.ConfigFilePath()
	if err != nil {
		return err
	}
	stateDir, err := appdirs.StateDir()
	if err != nil {
		return err
	}

	checks := []check{
		{Key: "os", Value: runtime.GOOS, Status: "ok"},
		{Key: "config_path", Value: cfgPath, Status: statusPath(cfgPath)},
		{Key: "state_dir", Value: stateDir, Status: statusPath(stateDir)},
	}

	cfg, _, err := config.LoadOrCreate()
	if err != nil {
		checks = append(checks, check{Key: "config", Value: err.Error(), Status: "error"})
	} else {
		checks = append(checks,
			check{
				Key:    "provider",
				Value:  fmt.Sprintf("command=%s model=%s", cfg.Provider.Command, cfg.Provider.Model),
				Status: statusBinary(cfg.Provider.Command),
			},
			check{Key: "mode", Value: cfg.Mode, Status: "ok"},
		)

		kind, path, err := shellkind.Detect(cfg.Shell, os.Getenv("SHELL"))
		if err != nil {
			checks = append(checks, check{Key: "shell", Value: err.Error(), Status: "error"})
		} else {
			checks = append(checks, check{Key: "shell", Value: fmt.Sprintf("%s (%s)", kind, path), Status: "ok"})
		}
	}

	payload, err := json.MarshalIndent(checks, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}

func statusPath(path string) string {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "missing"
		}
		return "error"
	}
	return "ok"
}

func statusBinary(name string) string {
	if _, err := exec.LookPath(name); err != nil {
		return "missing"
	}
	return "ok"
}

func hookSnippet(args []string) error {
	fs := flag.NewFlagSet("hook-snippet", flag.ContinueOnError)
	shell := fs.String("shell", "bash", "shell type: bash|zsh|fish")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snippet, err := shellkind.Snippet(shellkind.Kind(strings.ToLower(*shell)))
	if err != nil {
		return err
	}
	fmt.Println(snippet)
	return nil
}
