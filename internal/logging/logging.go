// Package logging builds the zap logger from configuration.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/deeptube/deeptube/internal/config"
)

// Options adjust the configured logger for one invocation.
type Options struct {
	Verbose bool // force debug level
	Quiet   bool // discard all output
	// NoStderr keeps log output off the terminal, e.g. while the picker owns it.
	NoStderr bool
}

// New builds a logger from cfg.
func New(cfg config.LoggingConfig, opts Options) (*zap.Logger, error) {
	if opts.Quiet {
		return zap.NewNop(), nil
	}

	zcfg := zap.NewProductionConfig()

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	switch cfg.Format {
	case "json", "":
	case "console":
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	zcfg.OutputPaths = nil
	if !opts.NoStderr {
		zcfg.OutputPaths = append(zcfg.OutputPaths, "stderr")
	}
	if cfg.File != "" {
		zcfg.OutputPaths = append(zcfg.OutputPaths, cfg.File)
	}
	if len(zcfg.OutputPaths) == 0 {
		return zap.NewNop(), nil
	}
	zcfg.ErrorOutputPaths = zcfg.OutputPaths

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("deeptube"), nil
}
