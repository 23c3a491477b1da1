// Package logging builds the zap loggers used across bins.
//
// Commands log to stderr unless a file is configured. The terminal UI owns the
// screen, so it only ever logs to a file and otherwise gets a no-op logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem; it becomes the logger name.
type Category string

const (
	CategoryBoot    Category = "boot"    // startup, config
	CategoryAPI     Category = "api"     // backend HTTP calls
	CategorySession Category = "session" // login, logout, session expiry
	CategoryFleet   Category = "fleet"   // dumpster and plant operations
	CategoryStore   Category = "store"   // local database
	CategoryUI      Category = "ui"      // terminal UI
)

// Options selects level, encoding and destination.
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // json, console
	File    string // optional log file
	Verbose bool   // forces debug
	Quiet   bool   // no file configured means no logging at all
}

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	if opts.Quiet && strings.TrimSpace(opts.File) == "" {
		return zap.NewNop(), nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		cfg.Encoding = "json"
	default:
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	if file := strings.TrimSpace(opts.File); file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	} else {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to a zap level; unknown names are info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// For returns the category's child logger. A nil parent yields a no-op
// logger.
func For(parent *zap.Logger, category Category) *zap.Logger {
	if parent == nil {
		return zap.NewNop()
	}
	return parent.Named(string(category))
}
