package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/docportal/pkg/log"
)

type HTTPConfig struct {
	Addr              string        `env:"PORTAL_HTTP_ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"PORTAL_HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	RateLimitRPS      float64       `env:"PORTAL_HTTP_RATE_RPS" envDefault:"5"`
	RateLimitBurst    int           `env:"PORTAL_HTTP_RATE_BURST" envDefault:"10"`
	AllowedOrigins    []string      `env:"PORTAL_HTTP_ALLOWED_ORIGINS" envSeparator:","`
}

func NewHTTPConfig(ctx context.Context) *HTTPConfig {
	c := &HTTPConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse HTTP config")
	}
	return c
}
