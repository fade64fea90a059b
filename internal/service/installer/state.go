package installer

import (
	"strings"

	"github.com/sandevgo/docportal/internal/config"
)

const (
	keyProvider       = "PORTAL_LLM_PROVIDER"
	keyModel          = "PORTAL_LLM_MODEL"
	keyAPIKey         = "PORTAL_LLM_API_KEY"
	keyBaseURL        = "PORTAL_LLM_BASE_URL"
	keyEnableHTTP     = "PORTAL_ENABLE_HTTP"
	keyEnableTelegram = "PORTAL_ENABLE_TELEGRAM"
	keyTelegramToken  = "PORTAL_TELEGRAM_TOKEN"
	keyTelegramOwner  = "PORTAL_TELEGRAM_OWNER_ID"
	keyDebug          = "PORTAL_DEBUG"

	// channel is wizard-only and never written to .env
	keyChannel = "channel"
)

type InstallState struct {
	EnvVars map[string]string
}

func NewInstallState() *InstallState {
	return &InstallState{
		EnvVars: make(map[string]string),
	}
}

func (s *InstallState) Provider() string {
	return strings.ToLower(s.EnvVars[keyProvider])
}

// ProviderConfig builds a provider config from the answers collected so far.
func (s *InstallState) ProviderConfig() *config.ProviderConfig {
	return &config.ProviderConfig{
		Provider: s.Provider(),
		Model:    s.EnvVars[keyModel],
		APIKey:   s.EnvVars[keyAPIKey],
		BaseURL:  s.EnvVars[keyBaseURL],
	}
}

func (s *InstallState) wantsTelegram() bool {
	return s.EnvVars[keyChannel] == channelTelegram || s.EnvVars[keyChannel] == channelBoth
}
