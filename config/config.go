// Package config holds the process-wide numerical settings consumed when the
// dispatch catalogs are built. Settings are read once; nothing here is
// mutated after a catalog has been constructed from them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultJitter           = 1e-6
	DefaultQuadraturePoints = 20
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Settings struct {
	// Jitter added to the diagonal of every covariance before it is factorized.
	Jitter float64 `yaml:"jitter"`

	// Gauss-Hermite points per input dimension for quadrature expectations.
	QuadraturePoints int `yaml:"quadrature_points"`

	// Evaluate expectations without a closed form by quadrature instead of
	// failing with a dispatch error.
	QuadratureFallback bool `yaml:"quadrature_fallback"`

	LogLevel string `yaml:"log_level"`
}

func Default() Settings {
	return Settings{
		Jitter:           DefaultJitter,
		QuadraturePoints: DefaultQuadraturePoints,
		LogLevel:         "info",
	}
}

// Parse decodes YAML settings on top of the defaults.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	return Parse(data)
}

func (s Settings) Validate() error {
	if s.Jitter < 0 {
		return fmt.Errorf("jitter %g must be non-negative: %w", s.Jitter, ErrInvalidConfig)
	}
	if s.QuadraturePoints < 1 {
		return fmt.Errorf("quadrature_points %d must be positive: %w", s.QuadraturePoints, ErrInvalidConfig)
	}
	if _, err := parseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel onto a slog level, defaulting to info.
func (s Settings) Level() slog.Level {
	lvl, err := parseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level %q: %w", name, ErrInvalidConfig)
}
