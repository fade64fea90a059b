package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/docportal/internal/config"
	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/providers/rag"
	"github.com/sandevgo/docportal/internal/service/conversation"
	"github.com/sandevgo/docportal/internal/service/rules"
	"github.com/sandevgo/docportal/internal/service/state"
	"github.com/sandevgo/docportal/internal/transport/httpapi"
)

type fixedModel struct {
	model string
}

func (f *fixedModel) SetModel(_ context.Context, model string) error {
	f.model = model
	return nil
}

func (f *fixedModel) GetModel() string { return f.model }

type silentCompleter struct{}

func (silentCompleter) Complete(context.Context, core.CompletionRequest) (core.Completion, error) {
	return core.Completion{Text: "ok", FinishReason: core.FinishStop}, nil
}

func (silentCompleter) Stream(context.Context, core.CompletionRequest) (<-chan core.Chunk, error) {
	ch := make(chan core.Chunk, 1)
	ch <- core.Chunk{FinishReason: core.FinishStop}
	close(ch)
	return ch, nil
}

func newTestApp(t *testing.T, model *fixedModel) *app {
	t.Helper()
	matcher := rules.NewMatcher(rules.Defaults())
	a := &app{
		cfg: &config.AppConfig{
			SessionIdleTTL:   time.Hour,
			SessionSweepCron: "*/5 * * * *",
		},
		limits:  rag.Limits{MaxBytes: 1 << 20, Policy: rag.PolicyReject},
		matcher: matcher,
		state:   state.NewGlobalState(model),
	}
	a.orch = conversation.New(matcher, silentCompleter{}, rag.NewRetriever(nil, nil, nil), conversation.Config{Stream: true})
	return a
}

func serveHTTP(t *testing.T, a *app, ch *channel) *httptest.Server {
	t.Helper()
	server := httpapi.NewServer(
		&config.HTTPConfig{RateLimitRPS: 1000, RateLimitBurst: 1000},
		a.orch,
		ch.sessions,
		a.limits,
		httpapi.WithCommands(ch.router),
	)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestChannels_DoNotShareSessions(t *testing.T) {
	a := newTestApp(t, &fixedModel{model: "gpt-4o-mini"})

	web, err := a.newChannel(false)
	require.NoError(t, err)
	bot, err := a.newChannel(true)
	require.NoError(t, err)

	bot.sessions.GetOrCreate("telegram-42")
	ts := serveHTTP(t, a, web)

	resp, err := http.Get(ts.URL + "/api/sessions/telegram-42")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	web.sessions.Create()
	assert.Equal(t, 2, a.sessionCount())
	assert.Len(t, a.background, 2)
}

func TestChannels_ModelSwitchOnlyWhenTrusted(t *testing.T) {
	model := &fixedModel{model: "gpt-4o-mini"}
	a := newTestApp(t, model)

	web, err := a.newChannel(false)
	require.NoError(t, err)
	ts := serveHTTP(t, a, web)

	s := web.sessions.Create()
	body, err := json.Marshal(map[string]string{"text": "/model gpt-4o"})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/sessions/"+s.ID+"/messages", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out.Reply, "/model is not available")
	assert.Equal(t, "gpt-4o-mini", model.model)

	trusted, err := a.newChannel(true)
	require.NoError(t, err)
	var names []string
	for _, c := range trusted.router.ListCommands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "model")
}
