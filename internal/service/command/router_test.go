package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/service/rules"
	"github.com/sandevgo/docportal/internal/service/session"
)

type nopReleaser struct{}

func (nopReleaser) Release(context.Context, core.ContextHandle) error { return nil }

type fakeState struct {
	model string
	err   error
}

func (f *fakeState) ChangeModel(_ context.Context, model string) error {
	if f.err != nil {
		return f.err
	}
	f.model = model
	return nil
}

func (f *fakeState) CurrentModel() string { return f.model }

type fakeConfig struct{}

func (fakeConfig) GetModel() string { return "gpt-4o-mini" }
func (fakeConfig) SetModel(string) error { return nil }
func (fakeConfig) GetProvider() string { return "openai" }
func (fakeConfig) GetAPIKey() string { return "" }
func (fakeConfig) GetBaseURL() string { return "" }
func (fakeConfig) GetTimeout() time.Duration { return time.Second }
func (fakeConfig) GetMaxRetries() int { return 0 }

type fakeModels struct{}

func (fakeModels) Models(context.Context) ([]core.Model, error) {
	return []core.Model{{ID: "b-model"}, {ID: "a-model"}}, nil
}

func newTestRouter(t *testing.T) (*Router, *session.Manager, *fakeState) {
	t.Helper()
	sessions := session.NewManager(nopReleaser{}, 0)
	state := &fakeState{model: "gpt-4o-mini"}
	matcher := rules.NewMatcher(rules.Defaults())
	return New(WithModelControl(NewCommands(sessions, matcher, state), fakeConfig{}, state, fakeModels{})), sessions, state
}

func TestRouter_NotACommand(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out, ok := r.Execute(context.Background(), "s1", "what is the wifi password?")
	assert.False(t, ok)
	assert.Empty(t, out)
}

func TestRouter_UnknownSlashFallsThrough(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out, ok := r.Execute(context.Background(), "s1", "/wifi not working")
	assert.False(t, ok)
	assert.Empty(t, out)
}

func TestRouter_RefusedCommand(t *testing.T) {
	sessions := session.NewManager(nopReleaser{}, 0)
	state := &fakeState{model: "gpt-4o-mini"}
	r := New(NewCommands(sessions, rules.NewMatcher(rules.Defaults()), state), WithRefused("model"))

	out, ok := r.Execute(context.Background(), "s1", "/model gpt-4o")
	require.True(t, ok)
	assert.Contains(t, out, "/model is not available")
	assert.Equal(t, "gpt-4o-mini", state.model)

	for _, c := range r.ListCommands() {
		assert.NotEqual(t, "model", c.Name())
	}
}

func TestRouter_ListCommandsSorted(t *testing.T) {
	r, _, _ := newTestRouter(t)

	var names []string
	for _, c := range r.ListCommands() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"help", "model", "new", "rules", "status"}, names)
}

func TestRouter_Help(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out, ok := r.Execute(context.Background(), "s1", "/help")
	require.True(t, ok)
	assert.Contains(t, out, "`/status`")
	assert.Contains(t, out, "`/new`")
}

func TestRouter_StripsBotSuffix(t *testing.T) {
	r, sessions, _ := newTestRouter(t)
	sessions.GetOrCreate("s1")

	out, ok := r.Execute(context.Background(), "s1", "/status@portal_bot")
	require.True(t, ok)
	assert.Contains(t, out, "awaiting_document")
}

func TestStatusCommand(t *testing.T) {
	r, sessions, _ := newTestRouter(t)
	s := sessions.GetOrCreate("s1")
	s.MarkReady("h1", "handbook.md")
	s.Transcript().Append(core.RoleUser, "hi")

	out, ok := r.Execute(context.Background(), "s1", "/status")
	require.True(t, ok)
	assert.Contains(t, out, "`ready`")
	assert.Contains(t, out, "`handbook.md`")
	assert.Contains(t, out, "**Messages**  ›  `1`")
	assert.Contains(t, out, "`gpt-4o-mini`")
}

func TestStatusCommand_UnknownSession(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out, ok := r.Execute(context.Background(), "missing", "/status")
	require.True(t, ok)
	assert.Contains(t, out, "/status failed")
}

func TestNewCommand_ResetsSession(t *testing.T) {
	r, sessions, _ := newTestRouter(t)
	s := sessions.GetOrCreate("s1")
	s.MarkReady("h1", "handbook.md")

	out, ok := r.Execute(context.Background(), "s1", "/new")
	require.True(t, ok)
	assert.Contains(t, out, "New session started")

	fresh, err := sessions.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, session.AwaitingDocument, fresh.State())
}

func TestNewCommand_Busy(t *testing.T) {
	r, sessions, _ := newTestRouter(t)
	s := sessions.GetOrCreate("s1")
	require.True(t, s.TryBegin())
	defer s.End()

	out, ok := r.Execute(context.Background(), "s1", "/new")
	require.True(t, ok)
	assert.Contains(t, out, "/new failed")
}

func TestRulesCommand(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out, ok := r.Execute(context.Background(), "s1", "/rules")
	require.True(t, ok)
	assert.Contains(t, out, "`wifi`")
	assert.Contains(t, out, "`password`")
}

func TestModelCommand(t *testing.T) {
	t.Run("show", func(t *testing.T) {
		r, _, _ := newTestRouter(t)
		out, _ := r.Execute(context.Background(), "s1", "/model")
		assert.Contains(t, out, "`openai`")
		assert.Contains(t, out, "`gpt-4o-mini`")
	})

	t.Run("change", func(t *testing.T) {
		r, _, state := newTestRouter(t)
		out, _ := r.Execute(context.Background(), "s1", "/model gpt-4o")
		assert.Contains(t, out, "Model changed to: `openai/gpt-4o`")
		assert.Equal(t, "gpt-4o", state.model)
	})

	t.Run("change fails", func(t *testing.T) {
		r, _, state := newTestRouter(t)
		state.err = errors.New("unknown model")
		out, _ := r.Execute(context.Background(), "s1", "/model nope")
		assert.Contains(t, out, "unknown model")
		assert.Equal(t, "gpt-4o-mini", state.model)
	})

	t.Run("list", func(t *testing.T) {
		r, _, _ := newTestRouter(t)
		out, _ := r.Execute(context.Background(), "s1", "/model list")
		assert.Less(t, strings.Index(out, "a-model"), strings.Index(out, "b-model"))
	})
}
