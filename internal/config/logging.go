package config

import (
	"fmt"
	"strings"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // empty = stderr for commands, disabled for the TUI
}

// ValidLogLevels lists the accepted log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks level and format.
func (c LoggingConfig) Validate() error {
	level := strings.ToLower(strings.TrimSpace(c.Level))
	if level == "warning" {
		level = "warn"
	}
	valid := false
	for _, l := range ValidLogLevels {
		if level == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid logging.level: %q (valid: %v)", c.Level, ValidLogLevels)
	}

	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "json", "console", "text":
	default:
		return fmt.Errorf("invalid logging.format: %q (valid: json, console)", c.Format)
	}
	return nil
}
