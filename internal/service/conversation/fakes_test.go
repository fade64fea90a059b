package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sandevgo/docportal/internal/core"
)

type countingMatcher struct {
	inner interface{ Match(string) (string, bool) }
	calls int
}

func (m *countingMatcher) Match(text string) (string, bool) {
	m.calls++
	return m.inner.Match(text)
}

type fakeCompleter struct {
	mu        sync.Mutex
	calls     int
	requests  []core.CompletionRequest
	deltas    []string
	streamErr error
	startErr  error
	credErr   error
	block     chan struct{}
	// noFinish closes the stream after the deltas with neither an error nor a finish reason.
	noFinish bool
	// afterDeltas runs once every delta has been queued.
	afterDeltas func(ctx context.Context)
}

func (f *fakeCompleter) record(req core.CompletionRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
}

func (f *fakeCompleter) Complete(_ context.Context, req core.CompletionRequest) (core.Completion, error) {
	f.record(req)
	if f.startErr != nil {
		return core.Completion{}, f.startErr
	}
	return core.Completion{Text: strings.Join(f.deltas, ""), FinishReason: core.FinishStop}, nil
}

func (f *fakeCompleter) Stream(ctx context.Context, req core.CompletionRequest) (<-chan core.Chunk, error) {
	f.record(req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	ch := make(chan core.Chunk, 1)
	go func() {
		defer close(ch)
		if f.block != nil {
			<-f.block
		}
		for _, d := range f.deltas {
			select {
			case ch <- core.Chunk{Text: d}:
			case <-ctx.Done():
				return
			}
		}
		if f.afterDeltas != nil {
			f.afterDeltas(ctx)
		}
		if f.streamErr != nil {
			ch <- core.Chunk{Err: f.streamErr}
			return
		}
		if f.noFinish || ctx.Err() != nil {
			return
		}
		ch <- core.Chunk{FinishReason: core.FinishStop}
	}()
	return ch, nil
}

func (f *fakeCompleter) CheckCredentials(ctx context.Context) error {
	return f.credErr
}

type fakeRetriever struct {
	mu        sync.Mutex
	ingestErr error
	credErr   error
	passages  []core.Passage
	queryErr  error
	ingested  []core.Document
	released  []core.ContextHandle
	next      int
}

func (f *fakeRetriever) Ingest(_ context.Context, doc core.Document) (core.ContextHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingestErr != nil {
		return "", f.ingestErr
	}
	if strings.TrimSpace(doc.Text) == "" {
		return "", errors.Join(core.ErrIngestion, errors.New("no chunks"))
	}
	f.ingested = append(f.ingested, doc)
	f.next++
	return core.ContextHandle("ctx-" + string(rune('0'+f.next))), nil
}

func (f *fakeRetriever) Query(context.Context, core.ContextHandle, string, int) ([]core.Passage, error) {
	return f.passages, f.queryErr
}

func (f *fakeRetriever) Release(_ context.Context, h core.ContextHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, h)
	return nil
}

func (f *fakeRetriever) CheckCredentials(context.Context) error {
	return f.credErr
}

type event struct {
	kind string
	text string
	err  error
}

type recordingSink struct {
	mu       sync.Mutex
	events   []event
	deltaErr error
}

func (r *recordingSink) add(e event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) Reply(_ context.Context, text string) error {
	r.add(event{kind: "reply", text: text})
	return nil
}

func (r *recordingSink) Delta(_ context.Context, text string) error {
	r.add(event{kind: "delta", text: text})
	return r.deltaErr
}

func (r *recordingSink) Done(_ context.Context, text string) error {
	r.add(event{kind: "done", text: text})
	return nil
}

func (r *recordingSink) Fail(_ context.Context, err error) error {
	r.add(event{kind: "fail", err: err})
	return nil
}

func (r *recordingSink) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return out
}

func (r *recordingSink) last() event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}
