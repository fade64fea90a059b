package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppConfig_Defaults(t *testing.T) {
	t.Setenv("PORTAL_RUNTIME_PATH", "/tmp/portal-test")

	cfg, err := LoadAppConfig()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/portal-test", cfg.RuntimePath)
	assert.True(t, cfg.Stream)
	assert.Equal(t, int64(1<<20), cfg.MaxDocumentBytes)
	assert.Equal(t, OversizeReject, cfg.OversizePolicy)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, filepath.Join("/tmp/portal-test", "rules.yaml"), cfg.GetRulesPath())
	assert.True(t, cfg.IsInMemoryDatabase())
	assert.NotEmpty(t, cfg.SystemPrompt)
}

func TestLoadAppConfig_InvalidOversizePolicy(t *testing.T) {
	t.Setenv("PORTAL_RUNTIME_PATH", "/tmp/portal-test")
	t.Setenv("PORTAL_OVERSIZE_POLICY", "split")

	_, err := LoadAppConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORTAL_OVERSIZE_POLICY")
}

func TestLoadAppConfig_NonPositiveDocumentLimit(t *testing.T) {
	for _, v := range []string{"0", "-5"} {
		t.Setenv("PORTAL_RUNTIME_PATH", "/tmp/portal-test")
		t.Setenv("PORTAL_MAX_DOCUMENT_BYTES", v)

		_, err := LoadAppConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PORTAL_MAX_DOCUMENT_BYTES")
	}
}

func TestLoadAppConfig_FileDatabase(t *testing.T) {
	t.Setenv("PORTAL_RUNTIME_PATH", "/tmp/portal-test")
	t.Setenv("PORTAL_DATABASE_PATH", "/tmp/portal-test/portal.db")

	cfg, err := LoadAppConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IsInMemoryDatabase())
	assert.Equal(t, "/tmp/portal-test/portal.db", cfg.GetDatabaseDSN())
}

func TestProviderConfig_SetModel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain model", input: "gpt-4o-mini", want: "gpt-4o-mini"},
		{name: "same provider prefix", input: "openai/gpt-4o", want: "gpt-4o"},
		{name: "vendor slug kept", input: "meta-llama/llama-3-8b", want: "meta-llama/llama-3-8b"},
		{name: "other provider", input: "anthropic/claude-3-haiku", wantErr: true},
		{name: "empty", input: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ProviderConfig{Provider: ProviderOpenAI, Model: "gpt-3.5-turbo"}
			err := cfg.SetModel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "gpt-3.5-turbo", cfg.GetModel())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.GetModel())
		})
	}
}

func TestLoadProviderConfig_CustomNeedsBaseURL(t *testing.T) {
	t.Setenv("PORTAL_LLM_PROVIDER", "custom")

	_, err := LoadProviderConfig()
	require.Error(t, err)

	t.Setenv("PORTAL_LLM_BASE_URL", "http://localhost:9000")
	cfg, err := LoadProviderConfig()
	require.NoError(t, err)
	assert.Equal(t, ProviderCustom, cfg.GetProvider())
}
