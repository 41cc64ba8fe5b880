package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-journal/compass-api/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, 5, cfg.Laddering.MaxTurns)
	assert.Equal(t, 0.6, cfg.Insight.DisplayProbability)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Port, cfg.Port)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compass.yml")
	data := []byte("port: 9090\nstorage_backend: memory\nladdering:\n  max_turns: 7\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 7, cfg.Laddering.MaxTurns)
	// Untouched values keep their defaults.
	assert.Equal(t, "local", cfg.SpeechEngine)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COMPASS_PORT", "7070")
	t.Setenv("COMPASS_LADDERING__MAX_TURNS", "9")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 9, cfg.Laddering.MaxTurns)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port out of range", func(c *config.Config) { c.Port = 0 }},
		{"unknown storage backend", func(c *config.Config) { c.StorageBackend = "postgres" }},
		{"firestore without project", func(c *config.Config) { c.StorageBackend = "firestore"; c.GCPProject = "" }},
		{"unknown speech engine", func(c *config.Config) { c.SpeechEngine = "espeak" }},
		{"zero turn budget", func(c *config.Config) { c.Laddering.MaxTurns = 0 }},
		{"probability above one", func(c *config.Config) { c.Insight.DisplayProbability = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compass.yml")

	cfg := config.Default()
	cfg.Port = 9999
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, loaded.Port)
}
