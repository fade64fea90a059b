package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// bufferSink collects one turn for a plain JSON response.
type bufferSink struct {
	reply strings.Builder
	err   error
}

func (s *bufferSink) Reply(_ context.Context, text string) error {
	s.reply.WriteString(text)
	return nil
}

func (s *bufferSink) Delta(context.Context, string) error {
	return nil
}

func (s *bufferSink) Done(_ context.Context, text string) error {
	s.reply.Reset()
	s.reply.WriteString(text)
	return nil
}

func (s *bufferSink) Fail(_ context.Context, err error) error {
	s.err = err
	return nil
}

type textEvent struct {
	Text string `json:"text"`
}

// sseSink streams one turn as server-sent events.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) (*sseSink, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &sseSink{w: w, flusher: flusher}, true
}

func (s *sseSink) event(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) Pending() error {
	return s.event("pending", struct{}{})
}

func (s *sseSink) Reply(_ context.Context, text string) error {
	return s.event("message", textEvent{Text: text})
}

func (s *sseSink) Delta(_ context.Context, text string) error {
	return s.event("delta", textEvent{Text: text})
}

func (s *sseSink) Done(_ context.Context, text string) error {
	return s.event("message", textEvent{Text: text})
}

func (s *sseSink) Fail(_ context.Context, err error) error {
	return s.event("error", newErrorResponse(err))
}

func (s *sseSink) Close() error {
	return s.event("done", struct{}{})
}
