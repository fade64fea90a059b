package llm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sandevgo/docportal/internal/core"
)

// DynamicProvider lets /model swap the underlying provider while requests are in flight.
type DynamicProvider struct {
	config       core.ProviderConfig
	streamBuffer int
	current      atomic.Value
	mu           sync.Mutex
}

func NewDynamicProvider(
	ctx context.Context,
	config core.ProviderConfig,
	streamBuffer int,
) (*DynamicProvider, error) {
	d := &DynamicProvider{
		config:       config,
		streamBuffer: streamBuffer,
	}

	provider, err := NewProvider(ctx, config, streamBuffer)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial provider: %w", err)
	}

	d.current.Store(provider)
	return d, nil
}

func (d *DynamicProvider) load() core.AIProvider {
	return d.current.Load().(core.AIProvider)
}

func (d *DynamicProvider) Complete(ctx context.Context, req core.CompletionRequest) (core.Completion, error) {
	return d.load().Complete(ctx, req)
}

func (d *DynamicProvider) Stream(ctx context.Context, req core.CompletionRequest) (<-chan core.Chunk, error) {
	return d.load().Stream(ctx, req)
}

func (d *DynamicProvider) Models(ctx context.Context) ([]core.Model, error) {
	return d.load().Models(ctx)
}

func (d *DynamicProvider) CheckCredentials(ctx context.Context) error {
	if checker, ok := d.load().(core.CredentialChecker); ok {
		return checker.CheckCredentials(ctx)
	}
	return nil
}

func (d *DynamicProvider) GetModel() string {
	return d.config.GetModel()
}

func (d *DynamicProvider) SetModel(ctx context.Context, model string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	previous := d.config.GetModel()
	if err := d.config.SetModel(model); err != nil {
		return err
	}

	newProvider, err := NewProvider(ctx, d.config, d.streamBuffer)
	if err != nil {
		_ = d.config.SetModel(previous)
		return fmt.Errorf("failed to create provider: %w", err)
	}

	d.current.Store(newProvider)
	return nil
}
