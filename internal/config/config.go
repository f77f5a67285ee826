// Package config loads tradementor configuration from YAML with environment
// overrides. An optional .env file is honored for API keys so local setups
// don't have to export anything.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all tradementor configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM completion provider
	LLM LLMConfig `yaml:"llm"`

	// Journal store
	Store StoreConfig `yaml:"store"`

	// Routing cascade
	Router RouterConfig `yaml:"router"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // zai, anthropic, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// StoreConfig configures the SQLite journal store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`

	// CacheTTL controls the read-cache over list queries. Writes invalidate
	// the affected user's cached queries regardless of TTL.
	CacheTTL string `yaml:"cache_ttl"`
}

// RouterConfig configures the routing cascade.
type RouterConfig struct {
	// ConfidenceGate is the threshold below which a classification is
	// distrusted in favor of the keyword-based default (default: 0.6).
	ConfidenceGate float64 `yaml:"confidence_gate"`

	// FallbackConfidence is assigned when keyword evidence overrides a
	// low-confidence or unresolved verdict (default: 0.7).
	FallbackConfidence float64 `yaml:"fallback_confidence"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "tradementor",
		Version: "1.0.0",
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "",
			Timeout:  "120s",
		},
		Store: StoreConfig{
			DatabasePath: ".tradementor/journal.db",
			CacheTTL:     "60s",
		},
		Router: RouterConfig{
			ConfidenceGate:     0.6,
			FallbackConfidence: 0.7,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads the config file at path, layered over defaults. A missing file
// is not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	// Best-effort .env load; absence is fine
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
// Provider keys follow the same precedence as the client factory:
// TRADEMENTOR_API_KEY is provider-agnostic, specific keys select a provider.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TRADEMENTOR_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("TRADEMENTOR_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("TRADEMENTOR_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("TRADEMENTOR_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("TRADEMENTOR_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

func (c *Config) validate() error {
	if c.Router.ConfidenceGate < 0 || c.Router.ConfidenceGate > 1 {
		return fmt.Errorf("router.confidence_gate must be in [0,1], got %v", c.Router.ConfidenceGate)
	}
	if c.Router.FallbackConfidence < 0 || c.Router.FallbackConfidence > 1 {
		return fmt.Errorf("router.fallback_confidence must be in [0,1], got %v", c.Router.FallbackConfidence)
	}
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path is required")
	}
	return nil
}

// LLMTimeout parses the configured provider timeout, defaulting to 120s.
func (c *Config) LLMTimeout() time.Duration {
	return parseDurationOr(c.LLM.Timeout, 120*time.Second)
}

// StoreCacheTTL parses the configured cache TTL, defaulting to 60s.
func (c *Config) StoreCacheTTL() time.Duration {
	return parseDurationOr(c.Store.CacheTTL, 60*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
