package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // console or json
}

// NewDefaultConfig returns console logging at info level.
func NewDefaultConfig() *Config {
	return &Config{Level: "info", Format: "console"}
}

// Validate checks level and format.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	switch c.Format {
	case "console", "json":
		return nil
	}
	return fmt.Errorf("invalid log format %q: expected console or json", c.Format)
}
