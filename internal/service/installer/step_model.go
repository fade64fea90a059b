package installer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/providers/llm"
)

const modelsFetchTimeout = 30 * time.Second

// listModels is swapped in tests.
var listModels = func(ctx context.Context, cfg core.ProviderConfig) ([]core.Model, error) {
	p, err := llm.NewProvider(ctx, cfg, 0)
	if err != nil {
		return nil, err
	}
	return p.Models(ctx)
}

// ModelStep lists the provider's models. When listing fails the model can be typed in.
type ModelStep struct {
	list     list.Model
	input    textinput.Model
	manual   bool
	loading  bool
	fetching bool
	err      error
}

func NewModelStep() Step {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select AI Model"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	ti := textinput.New()
	ti.Placeholder = "gpt-4o-mini"
	ti.Width = 50

	return &ModelStep{
		list:    l,
		input:   ti,
		loading: true,
	}
}

func (s *ModelStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func modelItems(models []core.Model) []list.Item {
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	items := make([]list.Item, 0, len(models))
	for _, mod := range models {
		title := mod.Name
		if title == "" {
			title = mod.ID
		}
		desc := "ID: " + mod.ID
		if mod.ContextLength > 0 {
			desc = fmt.Sprintf("ID: %s | Context: %d", mod.ID, mod.ContextLength)
		}
		items = append(items, item{id: mod.ID, title: title, desc: desc})
	}
	return items
}

func (s *ModelStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.manual {
		return s.updateManual(msg, state)
	}

	if s.loading && !s.fetching {
		s.fetching = true
		cfg := state.ProviderConfig()

		return s, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), modelsFetchTimeout)
			defer cancel()

			models, err := listModels(ctx, cfg)
			if err != nil {
				return errMsg(err)
			}
			if len(models) == 0 {
				return errMsg(fmt.Errorf("provider returned no models"))
			}
			return modelsMsg(modelItems(models))
		}
	}

	s.list.SetSize(width, height-4)

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case modelsMsg:
		s.list.SetItems(msg)
		s.loading = false
		s.fetching = false
		return s, nil

	case errMsg:
		s.loading = false
		s.fetching = false
		s.err = msg
		return s, nil

	case tea.KeyMsg:
		if s.err != nil {
			switch msg.String() {
			case "enter":
				s.err = nil
				s.loading = true
				s.fetching = false
			case "m":
				s.manual = true
				s.input.Focus()
				return s, textinput.Blink
			}
			return s, nil
		}

		if msg.String() == "enter" {
			wasFiltering := s.list.FilterState() == list.Filtering
			s.list, cmd = s.list.Update(msg)

			if wasFiltering || s.list.FilterState() == list.Filtering {
				return s, cmd
			}

			if i, ok := s.list.SelectedItem().(item); ok {
				state.EnvVars[keyModel] = i.id
				return nil, nil
			}
			return s, cmd
		}
	}

	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

func (s *ModelStep) updateManual(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if val := strings.TrimSpace(s.input.Value()); val != "" {
			state.EnvVars[keyModel] = val
			return nil, nil
		}
	}
	return s, cmd
}

func (s *ModelStep) View(state *InstallState) string {
	if s.manual {
		return "Enter the model name:\n\n" + s.input.View() + "\n\n(press enter to confirm)\n"
	}
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error fetching models: %v", s.err)) +
			"\n\nCheck your API key and connection.\n\n(press enter to retry, m to type a model name, ctrl+c to quit)\n"
	}
	if s.loading {
		return fmt.Sprintf("Fetching models from %s...\n", state.Provider())
	}
	return s.list.View()
}
