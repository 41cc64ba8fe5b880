package config

// Config is the top-level compass-api configuration, corresponding to
// compass.yml. Every field can be overridden through COMPASS_* env vars.
type Config struct {
	Port int `yaml:"port" koanf:"port"`

	GCPProject  string `yaml:"gcp_project" koanf:"gcp_project"`
	GCPLocation string `yaml:"gcp_location" koanf:"gcp_location"`
	ModelName   string `yaml:"model_name" koanf:"model_name"`

	StorageBackend string `yaml:"storage_backend" koanf:"storage_backend"` // "memory" or "firestore"
	UseMockLLM     bool   `yaml:"use_mock_llm" koanf:"use_mock_llm"`

	SpeechEngine string `yaml:"speech_engine" koanf:"speech_engine"` // "google" or "local"

	// TelemetryIDFile persists the anonymous client identifier the
	// telemetry stream is tagged with. Generated once, reused thereafter.
	TelemetryIDFile string `yaml:"telemetry_id_file" koanf:"telemetry_id_file"`

	Laddering LadderingConfig `yaml:"laddering" koanf:"laddering"`
	Insight   InsightConfig   `yaml:"insight" koanf:"insight"`
}

// LadderingConfig holds the turn budget and the two system prompt variants
// of the laddering dialogue. Empty prompts fall back to the built-in ones.
type LadderingConfig struct {
	MaxTurns      int    `yaml:"max_turns" koanf:"max_turns"`
	ProbingPrompt string `yaml:"probing_prompt" koanf:"probing_prompt"`
	ClosingPrompt string `yaml:"closing_prompt" koanf:"closing_prompt"`
}

// InsightConfig tunes the advisory message shown during the meaning audit.
// DisplayProbability is a UI parameter, not a correctness rule.
type InsightConfig struct {
	DisplayProbability float64 `yaml:"display_probability" koanf:"display_probability"`
}

// Default returns the configuration used when no file or env overrides
// are present.
func Default() *Config {
	return &Config{
		Port:            8080,
		GCPLocation:     "us-central1",
		ModelName:       "gemini-2.5-flash",
		StorageBackend:  "memory",
		UseMockLLM:      true,
		SpeechEngine:    "local",
		TelemetryIDFile: ".compass_telemetry_id",
		Laddering: LadderingConfig{
			MaxTurns: 5,
		},
		Insight: InsightConfig{
			DisplayProbability: 0.6,
		},
	}
}
