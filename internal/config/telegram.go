package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/docportal/pkg/log"
)

type TelegramConfig struct {
	Token string `env:"PORTAL_TELEGRAM_TOKEN,required,notEmpty" redact:"true"`
	// Zero allows every user; each chat still gets its own session.
	OwnerID      int64         `env:"PORTAL_TELEGRAM_OWNER_ID"`
	EditInterval time.Duration `env:"PORTAL_TELEGRAM_EDIT_INTERVAL" envDefault:"800ms"`
}

func NewTelegramConfig(ctx context.Context) *TelegramConfig {
	c := &TelegramConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Telegram config")
	}
	return c
}
