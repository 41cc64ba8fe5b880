package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (COMPASS_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// COMPASS_STORAGE_BACKEND -> storage_backend; nested keys use a
	// double underscore, COMPASS_LADDERING__MAX_TURNS -> laddering.max_turns.
	if err := k.Load(env.Provider("COMPASS_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "COMPASS_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validStorageBackends = map[string]bool{
	"memory":    true,
	"firestore": true,
}

var validSpeechEngines = map[string]bool{
	"google": true,
	"local":  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if !validStorageBackends[c.StorageBackend] {
		return fmt.Errorf("invalid storage_backend %q: must be memory or firestore", c.StorageBackend)
	}
	if c.StorageBackend == "firestore" && c.GCPProject == "" {
		return fmt.Errorf("gcp_project is required for the firestore backend")
	}
	if !validSpeechEngines[c.SpeechEngine] {
		return fmt.Errorf("invalid speech_engine %q: must be google or local", c.SpeechEngine)
	}
	if c.Laddering.MaxTurns < 1 {
		return fmt.Errorf("laddering.max_turns must be at least 1")
	}
	if c.Insight.DisplayProbability < 0 || c.Insight.DisplayProbability > 1 {
		return fmt.Errorf("insight.display_probability must be within [0,1]")
	}
	return nil
}
