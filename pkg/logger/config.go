package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Environment names recognised by WithEnvironment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config describes logger settings loaded from the environment.
type Config struct {
	Service string `env:"SERVICE_NAME" envDefault:"multitenant"`
	Env     string `env:"APP_ENV" envDefault:"development"` // development, staging or production
	Level   string `env:"LOG_LEVEL" envDefault:""`          // overrides the environment preset when set
	Format  Format `env:"LOG_FORMAT" envDefault:""`         // json or text; overrides the preset when set
}

// Options turns the config into logger options. The environment preset is
// applied first so explicit level and format values win.
func (c Config) Options() ([]Option, error) {
	opts := []Option{WithEnvironment(c.Env, c.Service)}
	if c.Level != "" {
		lvl, err := ParseLevel(c.Level)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLevel(lvl))
	}
	switch c.Format {
	case "":
	case FormatJSON, FormatText:
		opts = append(opts, WithFormat(c.Format))
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
	return opts, nil
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitive.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}
