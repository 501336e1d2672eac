// Package config provides configuration management for LoreBinders.
//
// Settings are resolved in three layers: built-in defaults, an optional YAML
// file, then environment variables with the LOREBINDERS_ prefix. Later layers
// override earlier ones.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for LoreBinders.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Storage   StorageConfig   `yaml:"storage"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LLMConfig contains text-analysis provider configuration.
type LLMConfig struct {
	Provider          string `yaml:"provider"`            // ollama, openai, anthropic (default: ollama)
	OllamaURL         string `yaml:"ollama_url"`          // default: http://localhost:11434
	OllamaModel       string `yaml:"ollama_model"`        // default: qwen2.5:7b
	OpenAIAPIKey      string `yaml:"openai_api_key"`      // OpenAI API key
	OpenAIModel       string `yaml:"openai_model"`        // default: gpt-4o-mini
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`   // Anthropic API key
	AnthropicModel    string `yaml:"anthropic_model"`     // default: claude-3-5-sonnet-20241022
	RequestsPerMinute int    `yaml:"requests_per_minute"` // 0 disables rate limiting
	MaxRetries        int    `yaml:"max_retries"`         // attempts per unit of work in the agents (default: 3)
	TimeoutSeconds    int    `yaml:"timeout_seconds"`     // per-request timeout (default: 120)
}

// StorageConfig selects the cache backend.
type StorageConfig struct {
	Engine      string `yaml:"engine"`       // memory, filesystem, sqlite, postgres (default: sqlite)
	DataPath    string `yaml:"data_path"`    // directory for filesystem and sqlite (default: ./data)
	PostgresDSN string `yaml:"postgres_dsn"` // required for postgres
}

// PipelineConfig tunes the resolution pipeline.
type PipelineConfig struct {
	Categories         []string            `yaml:"categories"`
	Traits             map[string][]string `yaml:"traits"`               // category -> trait names
	DefaultTraits      []string            `yaml:"default_traits"`       // used for categories without an entry in Traits
	MaxConcurrency     int                 `yaml:"max_concurrency"`      // bound on in-flight external calls (default: 10)
	MinSummaryChapters int                 `yaml:"min_summary_chapters"` // appearances needed before summarizing (default: 2)
	NarratorName       string              `yaml:"narrator_name"`        // replaces narrator self-references when set
	ThirdPerson        bool                `yaml:"third_person"`         // the narrator is not a character
	ChunkTokens        int                 `yaml:"chunk_tokens"`         // extraction window per call (default: 6000)
	PriorityPolicy     string              `yaml:"priority_policy"`      // shorter or longer (default: shorter)
	Titles             []string            `yaml:"titles"`               // overrides the honorific vocabulary when set
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level"` // logrus level name (default: info)
	File  string `yaml:"file"`  // optional file, appended to alongside stderr
}

// TelemetryConfig controls tracing export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"` // empty disables export
	ServiceName  string `yaml:"service_name"`  // default: lorebinders
}

// Default returns a Config populated with built-in defaults only.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "ollama",
			OllamaURL:      "http://localhost:11434",
			OllamaModel:    "qwen2.5:7b",
			OpenAIModel:    "gpt-4o-mini",
			AnthropicModel: "claude-3-5-sonnet-20241022",
			MaxRetries:     3,
			TimeoutSeconds: 120,
		},
		Storage: StorageConfig{
			Engine:   "sqlite",
			DataPath: "./data",
		},
		Pipeline: PipelineConfig{
			Categories: []string{"Characters", "Locations"},
			Traits: map[string][]string{
				"Characters": {"Appearance", "Personality", "Mood", "Relationships to other characters"},
				"Locations":  {"Key Features", "Relative Location", "Character Familiarity"},
			},
			DefaultTraits:      []string{"Description", "Role"},
			MaxConcurrency:     10,
			MinSummaryChapters: 2,
			PriorityPolicy:     "shorter",
			ChunkTokens:        6000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "lorebinders",
		},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// (skipped when path is empty) and LOREBINDERS_ environment variables, then
// validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LLM.Provider = getEnv("LOREBINDERS_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.OllamaURL = getEnv("LOREBINDERS_OLLAMA_URL", c.LLM.OllamaURL)
	c.LLM.OllamaModel = getEnv("LOREBINDERS_OLLAMA_MODEL", c.LLM.OllamaModel)
	c.LLM.OpenAIAPIKey = getEnv("LOREBINDERS_OPENAI_API_KEY", c.LLM.OpenAIAPIKey)
	c.LLM.OpenAIModel = getEnv("LOREBINDERS_OPENAI_MODEL", c.LLM.OpenAIModel)
	c.LLM.AnthropicAPIKey = getEnv("LOREBINDERS_ANTHROPIC_API_KEY", c.LLM.AnthropicAPIKey)
	c.LLM.AnthropicModel = getEnv("LOREBINDERS_ANTHROPIC_MODEL", c.LLM.AnthropicModel)
	c.LLM.RequestsPerMinute = getEnvInt("LOREBINDERS_REQUESTS_PER_MINUTE", c.LLM.RequestsPerMinute)
	c.LLM.MaxRetries = getEnvInt("LOREBINDERS_MAX_RETRIES", c.LLM.MaxRetries)
	c.LLM.TimeoutSeconds = getEnvInt("LOREBINDERS_TIMEOUT_SECONDS", c.LLM.TimeoutSeconds)

	c.Storage.Engine = getEnv("LOREBINDERS_STORAGE_ENGINE", c.Storage.Engine)
	c.Storage.DataPath = getEnv("LOREBINDERS_DATA_PATH", c.Storage.DataPath)
	c.Storage.PostgresDSN = getEnv("LOREBINDERS_POSTGRES_DSN", c.Storage.PostgresDSN)

	c.Pipeline.Categories = getEnvList("LOREBINDERS_CATEGORIES", c.Pipeline.Categories)
	c.Pipeline.MaxConcurrency = getEnvInt("LOREBINDERS_MAX_CONCURRENCY", c.Pipeline.MaxConcurrency)
	c.Pipeline.MinSummaryChapters = getEnvInt("LOREBINDERS_MIN_SUMMARY_CHAPTERS", c.Pipeline.MinSummaryChapters)
	c.Pipeline.NarratorName = getEnv("LOREBINDERS_NARRATOR_NAME", c.Pipeline.NarratorName)
	c.Pipeline.ThirdPerson = getEnvBool("LOREBINDERS_THIRD_PERSON", c.Pipeline.ThirdPerson)
	c.Pipeline.ChunkTokens = getEnvInt("LOREBINDERS_CHUNK_TOKENS", c.Pipeline.ChunkTokens)
	c.Pipeline.PriorityPolicy = getEnv("LOREBINDERS_PRIORITY_POLICY", c.Pipeline.PriorityPolicy)

	c.Log.Level = getEnv("LOREBINDERS_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOREBINDERS_LOG_FILE", c.Log.File)

	c.Telemetry.OTLPEndpoint = getEnv("LOREBINDERS_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = getEnv("LOREBINDERS_SERVICE_NAME", c.Telemetry.ServiceName)
}

// Validate rejects unknown providers or engines and non-positive bounds.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case "ollama":
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("llm.openai_api_key is required for the openai provider"))
		}
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("llm.anthropic_api_key is required for the anthropic provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	if c.LLM.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("llm.requests_per_minute must be >= 0"))
	}
	if c.LLM.MaxRetries < 1 {
		errs = append(errs, errors.New("llm.max_retries must be >= 1"))
	}
	if c.LLM.TimeoutSeconds < 1 {
		errs = append(errs, errors.New("llm.timeout_seconds must be >= 1"))
	}

	switch c.Storage.Engine {
	case "memory":
	case "filesystem", "sqlite":
		if c.Storage.DataPath == "" {
			errs = append(errs, fmt.Errorf("storage.data_path is required for the %s engine", c.Storage.Engine))
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.engine %q", c.Storage.Engine))
	}

	if len(c.Pipeline.Categories) == 0 {
		errs = append(errs, errors.New("pipeline.categories must not be empty"))
	}
	if c.Pipeline.MaxConcurrency < 1 {
		errs = append(errs, errors.New("pipeline.max_concurrency must be >= 1"))
	}
	if c.Pipeline.MinSummaryChapters < 1 {
		errs = append(errs, errors.New("pipeline.min_summary_chapters must be >= 1"))
	}
	if c.Pipeline.ChunkTokens < 256 {
		errs = append(errs, errors.New("pipeline.chunk_tokens must be >= 256"))
	}
	switch strings.ToLower(c.Pipeline.PriorityPolicy) {
	case "shorter", "longer":
	default:
		errs = append(errs, fmt.Errorf("unknown pipeline.priority_policy %q", c.Pipeline.PriorityPolicy))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// TraitsFor returns the trait list for category, falling back to
// DefaultTraits.
func (p PipelineConfig) TraitsFor(category string) []string {
	if traits, ok := p.Traits[category]; ok && len(traits) > 0 {
		return traits
	}
	return p.DefaultTraits
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// Values accepted by strconv.ParseBool are recognized; anything else is ignored.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated environment variable, dropping blank
// entries. Unset or blank variables return the default value.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
