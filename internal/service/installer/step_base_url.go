package installer

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandevgo/docportal/internal/config"
)

const defaultOllamaURL = "http://localhost:11434"

// BaseURLStep asks for the endpoint of self-hosted providers and is skipped for the rest.
type BaseURLStep struct {
	input    textinput.Model
	provider string
	required bool
}

func NewBaseURLStep() Step {
	return &BaseURLStep{}
}

func (s *BaseURLStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *BaseURLStep) initProvider(state *InstallState) bool {
	s.provider = state.Provider()

	ti := textinput.New()
	ti.Focus()
	ti.Width = 50

	switch s.provider {
	case config.ProviderOllama:
		ti.Placeholder = defaultOllamaURL
	case config.ProviderCustom:
		ti.Placeholder = "https://api.example.com"
		s.required = true
	default:
		return false
	}
	s.input = ti
	return true
}

func (s *BaseURLStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.provider == "" {
		if !s.initProvider(state) {
			return nil, nil
		}
		return s, textinput.Blink
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimSpace(s.input.Value())
		if val == "" && !s.required {
			val = s.input.Placeholder
		}
		if val != "" {
			state.EnvVars[keyBaseURL] = val
			return nil, nil
		}
	}
	return s, cmd
}

func (s *BaseURLStep) View(state *InstallState) string {
	if s.provider == "" {
		return "Loading...\n"
	}
	hint := "(press enter to confirm)"
	if !s.required {
		hint = "(press enter to accept the default)"
	}
	return "Enter the " + s.provider + " base URL:\n\n" + s.input.View() + "\n\n" + hint + "\n"
}
