package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, DefaultJitter, s.Jitter)
	assert.Equal(t, DefaultQuadraturePoints, s.QuadraturePoints)
	assert.False(t, s.QuadratureFallback)
	require.NoError(t, s.Validate())
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte("jitter: 1.0e-8\nquadrature_fallback: true\nlog_level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, 1e-8, s.Jitter)
	assert.True(t, s.QuadratureFallback)
	assert.Equal(t, DefaultQuadraturePoints, s.QuadraturePoints)
	assert.Equal(t, slog.LevelDebug, s.Level())
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"negative jitter", "jitter: -1"},
		{"no quadrature points", "quadrature_points: 0"},
		{"unknown level", "log_level: chatty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}

	_, err := Parse([]byte("jitter: [1, 2"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quadrature_points: 7\n"), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, s.QuadraturePoints)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
