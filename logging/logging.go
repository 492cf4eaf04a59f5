// Package logging provides configurable zap logger creation for loantwin services.
package logging

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Style selects the output format of a logger.
type Style string

const (
	// StyleNoop discards all log output.
	StyleNoop Style = "noop"
	// StyleJson emits one JSON object per line (production default).
	StyleJson Style = "json"
	// StyleTerminal emits colored human-readable output for development.
	StyleTerminal Style = "terminal"
	// StyleLogfmt emits compact key=value pairs.
	StyleLogfmt Style = "logfmt"
)

// Config holds logger construction settings.
type Config struct {
	// Style is one of noop, json, terminal, logfmt. Defaults to terminal.
	Style Style `yaml:"style"`
	// Level is a zap level name (debug, info, warn, error). Defaults to info.
	Level string `yaml:"level"`
}

// NewLogger creates a zap logger based on the Config settings.
// If config is nil or has empty values, defaults to terminal style with info level.
func NewLogger(c *Config) *zap.Logger {
	style := StyleTerminal
	level := zapcore.InfoLevel

	if c != nil {
		if c.Style != "" {
			style = c.Style
		}
		if c.Level != "" {
			if lvl, err := zapcore.ParseLevel(c.Level); err == nil {
				level = lvl
			}
		}
	}

	var logger *zap.Logger
	var err error

	switch style {
	case StyleNoop:
		logger = zap.NewNop()
	case StyleJson:
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = cfg.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zap.ErrorLevel),
		)
	case StyleTerminal:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = cfg.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zap.ErrorLevel),
		)
	case StyleLogfmt:
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:       "ts",
			LevelKey:      "lvl",
			NameKey:       "logger",
			CallerKey:     "caller",
			MessageKey:    "msg",
			StacktraceKey: "stacktrace",
			LineEnding:    zapcore.DefaultLineEnding,
		}
		core := zapcore.NewCore(
			NewLogfmtEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			level,
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	default:
		log.Fatalf(
			"invalid logging style '%s': must be one of: terminal, json, logfmt, noop",
			style,
		)
	}

	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	return logger
}
