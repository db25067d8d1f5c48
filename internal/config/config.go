package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ashwch/mend/internal/appdirs"
)

// WrapperConfig tunes the interactive session loop.
type WrapperConfig struct {
	// BufferSize bounds the recent-output context kept for suggestions.
	BufferSize int `toml:"buffer_size" json:"buffer_size"`
	// OutputLimit is how many marker-free bytes a command may emit before
	// boundary detection gives up for that command.
	OutputLimit    int    `toml:"output_limit" json:"output_limit"`
	PromptPrefix   string `toml:"prompt_prefix" json:"prompt_prefix"`
	TimeoutSeconds int    `toml:"suggest_timeout_seconds" json:"suggest_timeout_seconds"`
}

// ProviderConfig describes the external suggestion command.
type ProviderConfig struct {
	Command   string   `toml:"command" json:"command"`
	Args      []string `toml:"args,omitempty" json:"args,omitempty"`
	Model     string   `toml:"model,omitempty" json:"model,omitempty"`
	ModelFlag string   `toml:"model_flag,omitempty" json:"model_flag,omitempty"`
}

type SafetyConfig struct {
	RedactContext bool `toml:"redact_context" json:"redact_context"`
}

type UIConfig struct {
	Backend string `toml:"backend" json:"backend"`
}

type Config struct {
	Version  int            `toml:"version" json:"version"`
	Shell    string         `toml:"shell" json:"shell"`
	Mode     string         `toml:"mode" json:"mode"`
	Debug    bool           `toml:"debug" json:"debug"`
	Wrapper  WrapperConfig  `toml:"wrapper" json:"wrapper"`
	Provider ProviderConfig `toml:"provider" json:"provider"`
	Safety   SafetyConfig   `toml:"safety" json:"safety"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

func Default() Config {
	return Config{
		Version: 1,
		Shell:   "",
		Mode:    "confirm",
		Wrapper: WrapperConfig{
			BufferSize:     2048,
			OutputLimit:    256 * 1024,
			PromptPrefix:   "",
			TimeoutSeconds: 6,
		},
		Provider: ProviderConfig{
			Command:   "claude",
			Args:      []string{"-p"},
			ModelFlag: "--model",
		},
		Safety: SafetyConfig{RedactContext: true},
		UI:     UIConfig{Backend: "bubbletea"},
	}
}

func (c *Config) normalize() {
	if c.Wrapper.BufferSize <= 0 {
		c.Wrapper.BufferSize = 2048
	}
	if c.Wrapper.OutputLimit <= 0 {
		c.Wrapper.OutputLimit = 256 * 1024
	}
	if c.Wrapper.TimeoutSeconds <= 0 {
		c.Wrapper.TimeoutSeconds = 6
	}
	switch strings.ToLower(strings.TrimSpace(c.Mode)) {
	case "suggest", "confirm", "yolo":
		c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	default:
		c.Mode = "confirm"
	}
	if strings.TrimSpace(c.UI.Backend) == "" {
		c.UI.Backend = "bubbletea"
	}
}

// ApplyEnvOverrides folds the recognized environment overrides into the
// config. Called exactly once at startup; nothing re-reads env later.
func (c *Config) ApplyEnvOverrides(environ []string) {
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		switch key {
		case "MEND_MODEL":
			c.Provider.Model = strings.TrimSpace(value)
		case "MEND_PROVIDER":
			c.Provider.Command = strings.TrimSpace(value)
		case "MEND_MODE":
			c.Mode = strings.TrimSpace(value)
		case "MEND_SHELL":
			c.Shell = strings.TrimSpace(value)
		}
	}
	c.normalize()
}

// LoadOrCreate reads the config file, writing defaults on first run.
func LoadOrCreate() (Config, string, error) {
	path, err := appdirs.ConfigFilePath()
	if err != nil {
		return Config{}, "", err
	}

	cfg := Default()
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := appdirs.EnsureConfigDir(); err != nil {
			return Config{}, "", err
		}
		if err := Save(path, cfg); err != nil {
			return Config{}, "", err
		}
		return cfg, path, nil
	} else if statErr != nil {
		return Config{}, "", fmt.Errorf("could not stat config path: %w", statErr)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return Config{}, "", fmt.Errorf("could not read config file: %w", err)
	}
	if err := toml.Unmarshal(payload, &cfg); err != nil {
		return Config{}, "", fmt.Errorf("could not parse config file: %w", err)
	}
	cfg.normalize()
	return cfg, path, nil
}

// Save writes the config atomically with private permissions; the file may
// carry provider credentials.
func Save(path string, cfg Config) error {
	cfg.normalize()
	payload, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("could not serialize config: %w", err)
	}
	if _, err := appdirs.EnsureConfigDir(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".mend-config-*.toml")
	if err != nil {
		return fmt.Errorf("could not create temp config file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() { _ = os.Remove(tempPath) }

	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not write temp config file: %w", err)
	}
	if err := tempFile.Chmod(0o600); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not secure temp config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("could not close temp config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		cleanup()
		return fmt.Errorf("could not replace config file: %w", err)
	}
	return nil
}

// Get reads a single dotted config key, for the helper binary.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "shell":
		return c.Shell, nil
	case "mode":
		return c.Mode, nil
	case "debug":
		return strconv.FormatBool(c.Debug), nil
	case "wrapper.buffer_size":
		return strconv.Itoa(c.Wrapper.BufferSize), nil
	case "wrapper.output_limit":
		return strconv.Itoa(c.Wrapper.OutputLimit), nil
	case "wrapper.prompt_prefix":
		return c.Wrapper.PromptPrefix, nil
	case "wrapper.suggest_timeout_seconds":
		return strconv.Itoa(c.Wrapper.TimeoutSeconds), nil
	case "provider.command":
		return c.Provider.Command, nil
	case "provider.args":
		return strings.Join(c.Provider.Args, ","), nil
	case "provider.model":
		return c.Provider.Model, nil
	case "provider.model_flag":
		return c.Provider.ModelFlag, nil
	case "safety.redact_context":
		return strconv.FormatBool(c.Safety.RedactContext), nil
	case "ui.backend":
		return c.UI.Backend, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set writes a single dotted config key, for the helper binary.
func (c *Config) Set(key, value string) error {
	switch key {
	case "shell":
		c.Shell = strings.TrimSpace(value)
	case "mode":
		mode := strings.ToLower(strings.TrimSpace(value))
		switch mode {
		case "suggest", "confirm", "yolo":
			c.Mode = mode
		default:
			return fmt.Errorf("invalid mode: %s", value)
		}
	case "debug":
		parsed, err := parseBool(value)
		if err != nil {
			return err
		}
		c.Debug = parsed
	case "wrapper.buffer_size":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid buffer size: %s", value)
		}
		c.Wrapper.BufferSize = n
	case "wrapper.output_limit":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid output limit: %s", value)
		}
		c.Wrapper.OutputLimit = n
	case "wrapper.prompt_prefix":
		c.Wrapper.PromptPrefix = value
	case "wrapper.suggest_timeout_seconds":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid timeout: %s", value)
		}
		c.Wrapper.TimeoutSeconds = n
	case "provider.command":
		c.Provider.Command = strings.TrimSpace(value)
	case "provider.args":
		c.Provider.Args = splitCommaList(value)
	case "provider.model":
		c.Provider.Model = strings.TrimSpace(value)
	case "provider.model_flag":
		c.Provider.ModelFlag = strings.TrimSpace(value)
	case "safety.redact_context":
		parsed, err := parseBool(value)
		if err != nil {
			return err
		}
		c.Safety.RedactContext = parsed
	case "ui.backend":
		c.UI.Backend = strings.TrimSpace(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool: %s", value)
	}
}

func splitCommaList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
