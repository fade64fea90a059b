package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/docportal/pkg/log"
)

const (
	OversizeReject   = "reject"
	OversizeTruncate = "truncate"
)

const defaultSystemPrompt = `You are a helpful assistant answering questions about a document the user uploaded.
Answer using the provided document excerpts. If the excerpts do not contain the answer, say so plainly.`

type AppConfig struct {
	RuntimePath  string `env:"PORTAL_RUNTIME_PATH" envDefault:".docportal"`
	DatabasePath string `env:"PORTAL_DATABASE_PATH"`
	RulesPath    string `env:"PORTAL_RULES_PATH"`
	SystemPrompt string `env:"PORTAL_SYSTEM_PROMPT"`

	// Transport Flags
	EnableHTTP     bool `env:"PORTAL_ENABLE_HTTP" envDefault:"true"`
	EnableTelegram bool `env:"PORTAL_ENABLE_TELEGRAM" envDefault:"false"`

	// Response delivery
	Stream       bool `env:"PORTAL_STREAM" envDefault:"true"`
	StreamBuffer int  `env:"PORTAL_STREAM_BUFFER" envDefault:"16"`

	// Context Management. Zero sends the whole transcript.
	ContextWindowSize int `env:"PORTAL_CONTEXT_WINDOW" envDefault:"0"`
	RetrievalTopK     int `env:"PORTAL_RETRIEVAL_TOP_K" envDefault:"4"`

	// Document limits
	MaxDocumentBytes int64  `env:"PORTAL_MAX_DOCUMENT_BYTES" envDefault:"1048576"`
	OversizePolicy   string `env:"PORTAL_OVERSIZE_POLICY" envDefault:"reject"`

	// Sessions
	SessionIdleTTL   time.Duration `env:"PORTAL_SESSION_IDLE_TTL" envDefault:"2h"`
	SessionSweepCron string        `env:"PORTAL_SESSION_SWEEP_CRON" envDefault:"*/5 * * * *"`
}

// LoadAppConfig parses the environment and normalizes paths.
func LoadAppConfig() (*AppConfig, error) {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(c.RuntimePath) {
		c.RuntimePath = GetRuntimePath()
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	switch c.OversizePolicy {
	case OversizeReject, OversizeTruncate:
	default:
		return nil, fmt.Errorf("invalid PORTAL_OVERSIZE_POLICY %q: want %s or %s", c.OversizePolicy, OversizeReject, OversizeTruncate)
	}
	if c.MaxDocumentBytes <= 0 {
		return nil, fmt.Errorf("PORTAL_MAX_DOCUMENT_BYTES must be positive")
	}
	return c, nil
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c, err := LoadAppConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c *AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c *AppConfig) GetRulesPath() string {
	if c.RulesPath != "" {
		return c.RulesPath
	}
	return filepath.Join(c.RuntimePath, "rules.yaml")
}

// GetDatabaseDSN returns a shared in-memory database unless a file path is configured.
func (c *AppConfig) GetDatabaseDSN() string {
	if c.DatabasePath == "" {
		return "file:docportal?mode=memory&cache=shared"
	}
	return c.DatabasePath
}

func (c *AppConfig) IsInMemoryDatabase() bool {
	return c.DatabasePath == ""
}

func (c *AppConfig) GetEnvPath() string {
	return filepath.Join(c.RuntimePath, ".env")
}

func (c *AppConfig) IsTelegramSelected() bool {
	return c.EnableTelegram
}

func (c *AppConfig) IsHTTPSelected() bool {
	return c.EnableHTTP
}
