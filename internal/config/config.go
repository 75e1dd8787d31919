// Package config holds all shellmind configuration, loaded from a YAML
// file with environment-variable overrides applied after parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all shellmind configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Decision oracle (OpenAI-compatible chat endpoint)
	Oracle OracleConfig `yaml:"oracle"`

	// Embedding engine
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Session memory and vector recall
	Memory MemoryConfig `yaml:"memory"`

	// Plan and shell execution
	Execution ExecutionConfig `yaml:"execution"`

	// Vision endpoint for classify_image
	Vision VisionConfig `yaml:"vision"`

	// Persistent store
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// OracleConfig configures the decision oracle client.
type OracleConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
	MaxRetries  int     `yaml:"max_retries"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Backend    string `yaml:"backend"` // ollama, gemini, hash
	Model      string `yaml:"model"`
	Endpoint   string `yaml:"endpoint"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Dimensions int    `yaml:"dimensions"`
}

// EmbeddingAPIKey resolves the embedding API key from the configured
// environment variable. Only the gemini backend needs one.
func (c *Config) EmbeddingAPIKey() string {
	if c.Embedding.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Embedding.APIKeyEnv)
}

// MemoryConfig configures the session ring and vector recall.
type MemoryConfig struct {
	MaxSessionMessages int     `yaml:"max_session_messages"`
	RecallLimit        int     `yaml:"recall_limit"`
	MinSimilarity      float64 `yaml:"min_similarity"`
}

// ExecutionConfig configures shell and plan execution.
type ExecutionConfig struct {
	ShellTimeout     string `yaml:"shell_timeout"`
	MaxOutputBytes   int    `yaml:"max_output_bytes"`
	MaxReplans       int    `yaml:"max_replans"`
	WorkingDirectory string `yaml:"working_directory"`
}

// VisionConfig configures the OpenAI-compatible vision endpoint used
// by classify_image.
type VisionConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`   // empty disables file logging
}

// MaxReplans limits (ceiling is clamped into this range)
const (
	MinReplanCeiling = 3
	MaxReplanCeiling = 5
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "shellmind",
		Version: "0.3.0",

		Oracle: OracleConfig{
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Model:       "gpt-4o",
			Temperature: 0.2,
			Timeout:     "120s",
			MaxRetries:  3,
		},

		Embedding: EmbeddingConfig{
			Backend:    "ollama",
			Model:      "nomic-embed-text",
			Endpoint:   "http://localhost:11434",
			APIKeyEnv:  "GEMINI_API_KEY",
			Dimensions: 768,
		},

		Memory: MemoryConfig{
			MaxSessionMessages: 20,
			RecallLimit:        3,
			MinSimilarity:      0.5,
		},

		Execution: ExecutionConfig{
			ShellTimeout:     "60s",
			MaxOutputBytes:   50000,
			MaxReplans:       4,
			WorkingDirectory: ".",
		},

		Vision: VisionConfig{
			Endpoint: "http://localhost:8002/v1",
			Model:    "Qwen/Qwen2.5-VL-3B-Instruct",
		},

		Store: StoreConfig{
			DatabasePath: "data/shellmind.db",
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("SHELLMIND_ORACLE_URL"); url != "" {
		c.Oracle.BaseURL = url
	}
	if model := os.Getenv("SHELLMIND_MODEL"); model != "" {
		c.Oracle.Model = model
	}
	if path := os.Getenv("SHELLMIND_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if dir := os.Getenv("SHELLMIND_LOG_DIR"); dir != "" {
		c.Logging.Dir = dir
	}
	if endpoint := os.Getenv("SHELLMIND_EMBED_ENDPOINT"); endpoint != "" {
		c.Embedding.Endpoint = endpoint
	}
}

// APIKey resolves the oracle API key from the configured environment variable.
func (c *Config) APIKey() string {
	if c.Oracle.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Oracle.APIKeyEnv)
}

// GetOracleTimeout returns the oracle timeout as a duration.
func (c *Config) GetOracleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Oracle.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetShellTimeout returns the shell command timeout as a duration.
func (c *Config) GetShellTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.ShellTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ReplanCeiling returns the replan limit clamped to the allowed range.
func (c *Config) ReplanCeiling() int {
	n := c.Execution.MaxReplans
	if n < MinReplanCeiling {
		return MinReplanCeiling
	}
	if n > MaxReplanCeiling {
		return MaxReplanCeiling
	}
	return n
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle base URL not configured")
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle model not configured")
	}
	if c.Memory.MaxSessionMessages < 2 {
		return fmt.Errorf("max_session_messages must be at least 2, got %d", c.Memory.MaxSessionMessages)
	}
	if c.Memory.MaxSessionMessages%2 != 0 {
		return fmt.Errorf("max_session_messages must be even, got %d", c.Memory.MaxSessionMessages)
	}
	switch c.Embedding.Backend {
	case "ollama", "gemini", "hash":
	default:
		return fmt.Errorf("invalid embedding backend: %s (valid: ollama, gemini, hash)", c.Embedding.Backend)
	}
	return nil
}
