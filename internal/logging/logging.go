// Package logging builds the zap logger shared by the client, the poller and
// the CLI.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr at level using the console or json
// encoding. Empty or unknown levels fall back to warn.
func New(level, encoding string) (*zap.Logger, error) {
	lvl := parseLevel(level)

	enc := strings.ToLower(strings.TrimSpace(encoding))
	switch enc {
	case "":
		enc = "console"
	case "console", "json":
	default:
		return nil, fmt.Errorf("unsupported log encoding %q", encoding)
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         enc,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    encoderConfig(enc, isatty.IsTerminal(os.Stderr.Fd())),
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("sift"), nil
}

// parseLevel treats empty and unknown levels as warn.
func parseLevel(level string) zapcore.Level {
	trimmed := strings.TrimSpace(level)
	if trimmed == "" {
		return zapcore.WarnLevel
	}
	lvl, err := zapcore.ParseLevel(trimmed)
	if err != nil {
		return zapcore.WarnLevel
	}
	return lvl
}

// encoderConfig colors console levels only when color is set, so redirected
// stderr stays free of escape codes.
func encoderConfig(encoding string, color bool) zapcore.EncoderConfig {
	var levelEncoder zapcore.LevelEncoder
	switch {
	case encoding == "json":
		levelEncoder = zapcore.LowercaseLevelEncoder
	case color:
		levelEncoder = zapcore.CapitalColorLevelEncoder
	default:
		levelEncoder = zapcore.CapitalLevelEncoder
	}
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
