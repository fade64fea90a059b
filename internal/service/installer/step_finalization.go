package installer

import (
	tea "github.com/charmbracelet/bubbletea"
)

// FinalizationStep computes derived values and final env var formatting
type FinalizationStep struct{}

func NewFinalizationStep() Step {
	return &FinalizationStep{}
}

func (s *FinalizationStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *FinalizationStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	finalize(state)
	return nil, nil
}

func (s *FinalizationStep) View(state *InstallState) string {
	return "Finalizing configuration...\n"
}

func finalize(state *InstallState) {
	channel := state.EnvVars[keyChannel]
	state.EnvVars[keyEnableHTTP] = boolString(channel == channelHTTP || channel == channelBoth || channel == "")
	state.EnvVars[keyEnableTelegram] = boolString(state.EnvVars[keyTelegramToken] != "")

	if state.EnvVars[keyDebug] == "" {
		state.EnvVars[keyDebug] = "0"
	}

	// Only used as intermediate state
	delete(state.EnvVars, keyChannel)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
