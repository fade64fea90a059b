package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/docportal/internal/core"
)

func TestAnthropic_Complete(t *testing.T) {
	var got anthropicPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Hello"},{"type":"text","text":" there"}],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	p := NewAnthropic(Options{BaseURL: srv.URL, APIKey: "sk-ant", Model: "claude-test"})
	res, err := p.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "Hello there", res.Text)
	assert.Equal(t, core.FinishStop, res.FinishReason)
	assert.Equal(t, "Answer from the document.", got.System)
	for _, m := range got.Messages {
		assert.NotEqual(t, core.RoleSystem, m.Role)
	}
	assert.Len(t, got.Messages, 3)
}

func TestAnthropic_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "event: ping\ndata: {\"type\":\"ping\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Wifi \"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"guide\"}}\n\n")
		fmt.Fprint(w, "event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"max_tokens\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	p := NewAnthropic(Options{BaseURL: srv.URL, APIKey: "k"})
	ch, err := p.Stream(context.Background(), sampleRequest())
	require.NoError(t, err)

	var finish string
	var text string
	for c := range ch {
		require.NoError(t, c.Err)
		text += c.Text
		if c.FinishReason != "" {
			finish = c.FinishReason
		}
	}
	assert.Equal(t, "Wifi guide", text)
	assert.Equal(t, core.FinishLength, finish)
}

func TestAnthropic_StreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	}))
	defer srv.Close()

	ch, err := NewAnthropic(Options{BaseURL: srv.URL, APIKey: "k"}).Stream(context.Background(), sampleRequest())
	require.NoError(t, err)

	_, _, err = collect(t, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error")
}
