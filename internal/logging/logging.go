// Package logging builds the zap logger shared by the prefs CLI and servers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger writing to stderr at the given level.
// An unknown level falls back to info; the fallback is reported on the
// returned logger.
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, parseErr := zapcore.ParseLevel(level)
	if parseErr != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building zap logger: %w", err)
	}
	if parseErr != nil {
		logger.Warn("invalid log level, using info", zap.String("level", level))
	}
	return logger.Named("prefs"), nil
}
