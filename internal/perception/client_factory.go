package perception

import (
	"fmt"
	"os"
	"strings"

	"tradementor/internal/config"
	"tradementor/internal/logging"
)

// Provider identifies a completion provider backend.
type Provider string

const (
	ProviderZAI       Provider = "zai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// NewClient builds an LLMClient from config. The provider string is
// case-insensitive; an unknown provider is an error, not a silent default.
func NewClient(cfg config.LLMConfig) (LLMClient, error) {
	provider := Provider(strings.ToLower(strings.TrimSpace(cfg.Provider)))
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = keyFromEnv(provider)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", provider)
	}

	timeout := (&config.Config{LLM: cfg}).LLMTimeout()

	switch provider {
	case ProviderZAI:
		c := DefaultZAIConfig(apiKey)
		c.Timeout = timeout
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		logging.Boot("completion provider: zai (model=%s)", c.Model)
		return NewZAIClientWithConfig(c), nil

	case ProviderAnthropic:
		c := DefaultAnthropicConfig(apiKey)
		c.Timeout = timeout
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		logging.Boot("completion provider: anthropic (model=%s)", c.Model)
		return NewAnthropicClientWithConfig(c), nil

	case ProviderGemini:
		c := DefaultGeminiConfig(apiKey)
		c.Timeout = timeout
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		logging.Boot("completion provider: gemini (model=%s)", c.Model)
		return NewGeminiClientWithConfig(c), nil
	}

	return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
}

// DetectProvider picks a provider from the environment when the config names
// none. Priority: ANTHROPIC > GEMINI > ZAI.
func DetectProvider() (Provider, string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return ProviderAnthropic, key, nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return ProviderGemini, key, nil
	}
	if key := os.Getenv("ZAI_API_KEY"); key != "" {
		return ProviderZAI, key, nil
	}
	return "", "", fmt.Errorf("no provider API key found in environment")
}

func keyFromEnv(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	case ProviderZAI:
		return os.Getenv("ZAI_API_KEY")
	}
	return ""
}
