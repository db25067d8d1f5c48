// Package logging provides the debug logger for the wrapper. The wrapper owns
// a raw terminal while a session is live, so log output must never touch
// stderr; debug logs go to a file under the state dir instead.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ashwch/mend/internal/appdirs"
)

// New returns a file-backed debug logger when enabled, zap.NewNop otherwise.
// Logger construction failures degrade to the nop logger: a missing state dir
// must not keep the session from starting.
func New(enabled bool) *zap.Logger {
	if !enabled {
		return zap.NewNop()
	}

	if _, err := appdirs.EnsureStateDir(); err != nil {
		return zap.NewNop()
	}
	path, err := appdirs.LogFilePath()
	if err != nil {
		return zap.NewNop()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
