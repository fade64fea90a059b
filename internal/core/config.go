package core

import (
	"context"
	"time"
)

type ProviderConfig interface {
	GetModel() string
	SetModel(model string) error
	GetProvider() string
	GetAPIKey() string
	GetBaseURL() string
	GetTimeout() time.Duration
	GetMaxRetries() int
}

type GlobalState interface {
	ChangeModel(ctx context.Context, model string) error
	CurrentModel() string
}
