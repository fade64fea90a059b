package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/docportal/pkg/log"
)

const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderCustom     = "custom"
)

var Providers = []string{ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter, ProviderOllama, ProviderCustom}

type ProviderConfig struct {
	Provider   string        `env:"PORTAL_LLM_PROVIDER" envDefault:"openai"`
	Model      string        `env:"PORTAL_LLM_MODEL" envDefault:"gpt-3.5-turbo"`
	APIKey     string        `env:"PORTAL_LLM_API_KEY" redact:"true"`
	BaseURL    string        `env:"PORTAL_LLM_BASE_URL"`
	Timeout    time.Duration `env:"PORTAL_LLM_TIMEOUT" envDefault:"120s"`
	MaxRetries int           `env:"PORTAL_LLM_MAX_RETRIES" envDefault:"2"`

	mu sync.RWMutex
}

func LoadProviderConfig() (*ProviderConfig, error) {
	c := &ProviderConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	c.Provider = strings.ToLower(c.Provider)
	if !isKnownProvider(c.Provider) {
		return nil, fmt.Errorf("unknown llm provider: %s", c.Provider)
	}
	if c.Provider == ProviderCustom && c.BaseURL == "" {
		return nil, fmt.Errorf("PORTAL_LLM_BASE_URL is required for the custom provider")
	}
	return c, nil
}

func NewProviderConfig(ctx context.Context) *ProviderConfig {
	c, err := LoadProviderConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Provider config")
	}
	return c
}

func (c *ProviderConfig) GetModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Model
}

// SetModel accepts either "model" or "provider/model" for a known provider.
func (c *ProviderConfig) SetModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if provider, rest, ok := strings.Cut(model, "/"); ok && isKnownProvider(provider) && rest != "" {
		if provider != c.Provider {
			return fmt.Errorf("switching provider from %s to %s requires a restart", c.Provider, provider)
		}
		model = rest
	}
	c.Model = model
	return nil
}

func (c *ProviderConfig) GetProvider() string {
	return c.Provider
}

func (c *ProviderConfig) GetAPIKey() string {
	return c.APIKey
}

func (c *ProviderConfig) GetBaseURL() string {
	return c.BaseURL
}

func (c *ProviderConfig) GetTimeout() time.Duration {
	return c.Timeout
}

func (c *ProviderConfig) GetMaxRetries() int {
	return c.MaxRetries
}

func isKnownProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}
