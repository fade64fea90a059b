package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/docportal/internal/core"
)

func collect(t *testing.T, ch <-chan core.Chunk) (string, []string, error) {
	t.Helper()
	var text strings.Builder
	var deltas []string
	var err error
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return text.String(), deltas, err
			}
			if c.Err != nil {
				err = c.Err
				continue
			}
			if c.Text != "" {
				deltas = append(deltas, c.Text)
				text.WriteString(c.Text)
			}
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func sampleRequest() core.CompletionRequest {
	return core.CompletionRequest{
		System:  "Answer from the document.",
		History: []core.Message{{Role: core.RoleUser, Content: "hi"}, {Role: core.RoleAssistant, Content: "hello"}},
		Message: "What is the wifi password?",
	}
}

func TestOpenAI_Complete(t *testing.T) {
	var got chatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"guest123"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-test"})
	res, err := p.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, core.Completion{Text: "guest123", FinishReason: "stop"}, res)
	assert.Equal(t, "gpt-test", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, core.RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "What is the wifi password?", got.Messages[3].Content)
}

func TestOpenAI_SessionKeyOverridesConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-session", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "sk-config"})
	_, err := p.Complete(core.WithAPIKey(context.Background(), "sk-session"), sampleRequest())
	require.NoError(t, err)
}

func TestOpenAI_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload chatPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.True(t, payload.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"The ", "password ", "is guest."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "k"})
	ch, err := p.Stream(context.Background(), sampleRequest())
	require.NoError(t, err)

	text, deltas, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, "The password is guest.", text)
	assert.Equal(t, []string{"The ", "password ", "is guest."}, deltas)
}

func TestOpenAI_StreamPrematureEOF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "k"})
	ch, err := p.Stream(context.Background(), sampleRequest())
	require.NoError(t, err)

	text, _, err := collect(t, ch)
	assert.Equal(t, "partial", text)
	assert.ErrorIs(t, err, errStreamTruncated)
}

func TestOpenAI_StreamFinishWithoutDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"all\"},\"finish_reason\":\"stop\"}]}\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "k"})
	ch, err := p.Stream(context.Background(), sampleRequest())
	require.NoError(t, err)

	text, _, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, "all", text)
}

func TestOpenAI_StreamUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\"}}\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "k"})
	ch, err := p.Stream(context.Background(), sampleRequest())
	require.NoError(t, err)

	_, _, err = collect(t, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestOpenAI_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "k", MaxRetries: 1})
	res, err := p.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAI_UnauthorizedIsConfigurationError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "k", MaxRetries: 3})
	_, err := p.Complete(context.Background(), sampleRequest())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCheckCredentials(t *testing.T) {
	ctx := context.Background()

	assert.ErrorIs(t, NewOpenAI(Options{}).CheckCredentials(ctx), core.ErrConfiguration)
	assert.NoError(t, NewOpenAI(Options{}).CheckCredentials(core.WithAPIKey(ctx, "sk")))
	assert.NoError(t, NewOllama(Options{}).CheckCredentials(ctx))
	assert.ErrorIs(t, NewAnthropic(Options{}).CheckCredentials(ctx), core.ErrConfiguration)
}

func TestOpenRouter_Models(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, core.PortalName, r.Header.Get("X-Title"))
		fmt.Fprint(w, `{"data":[{"id":"openai/gpt-4o","name":"GPT-4o","context_length":128000}]}`)
	}))
	defer srv.Close()

	models, err := NewOpenRouter(Options{BaseURL: srv.URL, APIKey: "k"}).Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.Model{{ID: "openai/gpt-4o", Name: "GPT-4o", ContextLength: 128000}}, models)
}

func TestOllama_Models(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[{"name":"llama3:8b"}]}`)
	}))
	defer srv.Close()

	models, err := NewOllama(Options{BaseURL: srv.URL}).Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "llama3:8b", models[0].ID)
}

func TestOpenAI_StreamDoneWithoutFinishReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "k"})
	ch, err := p.Stream(context.Background(), sampleRequest())
	require.NoError(t, err)

	var last core.Chunk
	for c := range ch {
		last = c
	}
	require.NoError(t, last.Err)
	assert.Equal(t, core.FinishStop, last.FinishReason)
}

func TestOpenAI_StreamCancelledWhileBufferFull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"A", "B", "C"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "k", StreamBuffer: 1})
	ch, err := p.Stream(ctx, sampleRequest())
	require.NoError(t, err)

	// Let the producer fill the buffer before the caller goes away.
	time.Sleep(50 * time.Millisecond)
	cancel()

	_, _, err = collect(t, ch)
	assert.ErrorIs(t, err, context.Canceled)
}
