// mend wraps an interactive shell in a pty, watches for failed commands, and
// offers a safety-filtered AI fix behind a y/N gate. With arguments it runs
// one-shot: describe what you want, get a command, confirm, run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ashwch/mend/internal/appdirs"
	"github.com/ashwch/mend/internal/boundary"
	"github.com/ashwch/mend/internal/config"
	"github.com/ashwch/mend/internal/logging"
	"github.com/ashwch/mend/internal/provider"
	mendrt "github.com/ashwch/mend/internal/runtime"
	"github.com/ashwch/mend/internal/safety"
	"github.com/ashwch/mend/internal/session"
	"github.com/ashwch/mend/internal/sessionenv"
	"github.com/ashwch/mend/internal/shellkind"
	"github.com/ashwch/mend/internal/suggest"
	"github.com/ashwch/mend/internal/sysinfo"
	"github.com/ashwch/mend/internal/ui"
)

var version = "dev"

const maxQueryLength = 1000

type options struct {
	Model    string
	Provider string
	Mode     string
	Shell    string
	UI       string
	Yes      bool
	Debug    bool
	Version  bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, query, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if opts.Version {
		fmt.Println(version)
		return 0
	}

	env := sessionenv.FromEnviron(os.Environ())

	configExisted := configFileExists()
	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mend: could not load config: %v\n", err)
		return 1
	}
	cfg.ApplyEnvOverrides(os.Environ())
	if err := applyFlagOverrides(&cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "mend: %v\n", err)
		return 2
	}

	log := logging.New(cfg.Debug || env.Debug || opts.Debug)
	defer log.Sync()

	if query != "" {
		return runQuery(cfg, opts, query, log)
	}
	return runWrap(cfg, cfgPath, !configExisted, env, log)
}

func parseArgs(args []string) (options, string, error) {
	fs := flag.NewFlagSet("mend", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts options
	fs.StringVar(&opts.Model, "model", "", "override provider model for this invocation")
	fs.StringVar(&opts.Provider, "provider", "", "override provider command")
	fs.StringVar(&opts.Mode, "mode", "", "override mode: suggest|confirm|yolo")
	fs.StringVar(&opts.Shell, "shell", "", "override shell to wrap: bash|zsh|fish")
	fs.StringVar(&opts.UI, "ui", "", "override ui backend: auto|bubbletea|huh|tview|plain")
	fs.BoolVar(&opts.Yes, "yes", false, "auto-confirm execution prompts")
	fs.BoolVar(&opts.Debug, "debug", false, "write a debug log to the state dir")
	fs.BoolVar(&opts.Version, "version", false, "print version")

	if err := fs.Parse(args); err != nil {
		return options{}, "", err
	}
	return opts, strings.TrimSpace(strings.Join(fs.Args(), " ")), nil
}

func applyFlagOverrides(cfg *config.Config, opts options) error {
	overrides := map[string]string{}
	if opts.Mode != "" {
		overrides["mode"] = opts.Mode
	}
	if opts.Shell != "" {
		overrides["shell"] = opts.Shell
	}
	if opts.Model != "" {
		overrides["provider.model"] = opts.Model
	}
	if opts.Provider != "" {
		overrides["provider.command"] = opts.Provider
	}
	if opts.UI != "" {
		overrides["ui.backend"] = opts.UI
	}
	for key, value := range overrides {
		if err := cfg.Set(key, value); err != nil {
			return fmt.Errorf("invalid %s=%s: %v", key, value, err)
		}
	}
	return nil
}

func configFileExists() bool {
	path, err := appdirs.ConfigFilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// runWrap hosts the interactive shell session.
func runWrap(cfg config.Config, cfgPath string, firstRun bool, env sessionenv.Snapshot, log *zap.Logger) int {
	if env.Active {
		fmt.Fprintln(os.Stderr, "mend: already inside a mend session")
		return 1
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "mend: stdin is not a terminal; nothing to wrap")
		return 1
	}

	shellOverride := cfg.Shell
	if env.ShellOverride != "" {
		shellOverride = env.ShellOverride
	}
	kind, shellPath, err := shellkind.Detect(shellOverride, os.Getenv("SHELL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "mend: %v\n", err)
		return 1
	}

	if firstRun {
		cfg = offerFirstRunSetup(cfg, cfgPath, string(kind), log)
	}

	launch, err := shellkind.Prepare(kind, shellPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mend: %v\n", err)
		return 1
	}

	promptPrefix := cfg.Wrapper.PromptPrefix
	if env.PromptPrefix != "" {
		promptPrefix = env.PromptPrefix
	}

	sess, err := session.Open(launch, promptPrefix, cfg.Debug, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mend: %v\n", err)
		return 1
	}

	// A termination signal must unwind through Close so the terminal leaves
	// raw mode and the hook temp files are removed.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)
	defer stop()

	orch := buildOrchestrator(cfg, string(kind), sess.ID, log)
	forwardErr := sess.Forward(ctx, session.ForwardOptions{
		Detector:     boundary.NewDetector(cfg.Wrapper.OutputLimit),
		Ring:         session.NewRing(cfg.Wrapper.BufferSize),
		Orchestrator: orch,
		Mode:         cfg.Mode,
	})
	status := sess.Close()
	if forwardErr != nil && !errors.Is(forwardErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "mend: session error: %v\n", forwardErr)
		if status == 0 {
			status = 1
		}
	}
	return status
}

// buildOrchestrator returns nil when the provider binary is missing, which
// degrades the session to a plain passthrough instead of failing to start.
func buildOrchestrator(cfg config.Config, shell, sessionID string, log *zap.Logger) *suggest.Orchestrator {
	adapter, err := provider.NewCommandAdapter(cfg.Provider)
	if err != nil {
		log.Warn("provider disabled", zap.Error(err))
		return nil
	}
	if err := adapter.HealthCheck(); err != nil {
		fmt.Fprintf(os.Stderr, "mend: %v; suggestions disabled\n", err)
		log.Warn("provider disabled", zap.Error(err))
		return nil
	}
	return suggest.NewOrchestrator(adapter, suggest.Options{
		Timeout:       time.Duration(cfg.Wrapper.TimeoutSeconds) * time.Second,
		ContextLimit:  cfg.Wrapper.BufferSize,
		RedactContext: cfg.Safety.RedactContext,
		SystemInfo:    sysinfo.Collect(shell).Summary(),
		Shell:         shell,
		SessionID:     sessionID,
	}, log)
}

func offerFirstRunSetup(cfg config.Config, cfgPath string, shell string, log *zap.Logger) config.Config {
	_, lookErr := exec.LookPath(cfg.Provider.Command)
	decision, ran, err := ui.FirstRunSetup(cfg.UI.Backend, shell, cfg.Provider.Command, lookErr == nil)
	if err != nil || !ran {
		return cfg
	}

	changed := false
	if decision.Mode != "" && decision.Mode != cfg.Mode {
		if err := cfg.Set("mode", decision.Mode); err == nil {
			changed = true
		}
	}
	if decision.SetProvider {
		if err := cfg.Set("provider.command", decision.ProviderCommand); err == nil {
			changed = true
		}
	}
	if changed {
		if err := config.Save(cfgPath, cfg); err != nil {
			log.Warn("could not persist setup choices", zap.Error(err))
		}
	}
	return cfg
}

// runQuery is the one-shot path: natural language in, one command out.
func runQuery(cfg config.Config, opts options, query string, log *zap.Logger) int {
	if len(query) > maxQueryLength {
		fmt.Fprintf(os.Stderr, "mend: query too long (%d chars, max %d)\n", len(query), maxQueryLength)
		return 2
	}

	adapter, err := provider.NewCommandAdapter(cfg.Provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mend: %v\n", err)
		return 1
	}
	if err := adapter.HealthCheck(); err != nil {
		fmt.Fprintf(os.Stderr, "mend: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Wrapper.TimeoutSeconds)*time.Second)
	defer cancel()

	req := provider.Request{
		Query:      query,
		SystemInfo: sysinfo.Collect(cfg.Shell).Summary(),
		Shell:      cfg.Shell,
	}
	if command := leadingCommand(query); command != "" {
		req.CommandDocs = provider.GatherDocs(ctx, command)
	}

	var resp provider.Response
	spinErr := ui.WithSpinner(cfg.UI.Backend, "thinking...", func() error {
		var suggestErr error
		resp, suggestErr = adapter.Suggest(ctx, req)
		return suggestErr
	})
	if spinErr != nil {
		fmt.Fprintf(os.Stderr, "mend: no suggestion: %v\n", spinErr)
		log.Debug("one-shot suggestion failed", zap.Error(spinErr))
		return 1
	}

	command, err := mendrt.NormalizeCommand(resp.Command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mend: unusable suggestion: %v\n", err)
		return 1
	}

	warning := ""
	if rule := safety.Classify(command); rule != nil {
		if rule.Severity == safety.SeverityBlock {
			fmt.Fprintf(os.Stderr, "mend: suggestion blocked: %s\n  %s\n", rule.Reason, command)
			return 1
		}
		warning = rule.Reason
	}

	fmt.Println(command)
	if resp.Explanation != "" {
		fmt.Println("  " + resp.Explanation)
	}
	if cfg.Mode == "suggest" && !opts.Yes {
		return 0
	}

	approved, err := confirmOneShot(cfg, opts, command, resp.Explanation, warning)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mend: %v\n", err)
		return 1
	}
	if !approved {
		return 0
	}

	runErr := mendrt.RunCommand(command)
	return mendrt.ExitStatus(runErr)
}

func confirmOneShot(cfg config.Config, opts options, command, explanation, warning string) (bool, error) {
	if opts.Yes || cfg.Mode == "yolo" {
		return true, nil
	}
	if ui.IsInteractiveBackend(cfg.UI.Backend) && term.IsTerminal(int(os.Stdin.Fd())) {
		approved, handled, err := ui.ConfirmExecution(cfg.UI.Backend, ui.Prompt{
			Command:     command,
			Explanation: explanation,
			Warning:     warning,
		})
		if err == nil && handled {
			return approved, nil
		}
	}
	return mendrt.ShouldExecute(cfg.Mode, opts.Yes)
}

// leadingCommand reports the first word of the query when it resolves to a
// real executable, so --help and man material can ride along in the prompt.
func leadingCommand(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	name := fields[0]
	if strings.ContainsAny(name, "/\\") {
		return ""
	}
	if _, err := exec.LookPath(name); err != nil {
		return ""
	}
	return name
}
