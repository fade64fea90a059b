package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/service/session"
	"github.com/sandevgo/docportal/pkg/log"
)

const (
	ModeStream = "stream"
	ModeSingle = "single"
)

type matcher interface {
	Match(text string) (string, bool)
}

// Metrics receives resolution outcomes. The Prometheus recorder implements it.
type Metrics interface {
	RuleHit()
	Completion(mode string, err error, elapsed time.Duration)
	Ingestion(err error)
	Rejected(err error)
}

type Config struct {
	SystemPrompt string
	TopK         int
	// ContextWindow caps prior messages sent upstream. Zero sends all of them.
	ContextWindow int
	Stream        bool
}

// Orchestrator resolves each message by rule first and by model otherwise.
type Orchestrator struct {
	matcher   matcher
	completer core.Completer
	retriever core.Retriever
	cfg       Config
	metrics   Metrics
}

type Option func(*Orchestrator)

func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

func New(m matcher, completer core.Completer, retriever core.Retriever, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		matcher:   m,
		completer: completer,
		retriever: retriever,
		cfg:       cfg,
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle resolves one user message for s and renders the outcome through sink.
// Errors are reported to the sink and returned.
func (o *Orchestrator) Handle(ctx context.Context, s *session.Session, text string, sink core.Sink) error {
	ctx = log.WithFields(ctx, "session", s.ID)

	if err := s.Begin(); err != nil {
		return o.reject(ctx, sink, err)
	}
	defer s.End()

	if s.State() != session.Ready {
		return o.reject(ctx, sink, core.ErrNotReady)
	}
	if strings.TrimSpace(text) == "" {
		return o.reject(ctx, sink, core.ErrEmptyMessage)
	}

	transcript := s.Transcript()
	history := transcript.Messages()
	transcript.Append(core.RoleUser, text)

	if reply, ok := o.matcher.Match(text); ok {
		transcript.Append(core.RoleAssistant, reply)
		o.metrics.RuleHit()
		log.FromCtx(ctx).Debug().Msg("Answered by rule")
		if err := sink.Reply(ctx, reply); err != nil {
			return fmt.Errorf("deliver rule reply: %w", err)
		}
		return nil
	}

	ctx = core.WithAPIKey(ctx, s.APIKey())
	mode := ModeSingle
	if o.cfg.Stream {
		mode = ModeStream
	}

	start := time.Now()
	reply, err := o.complete(ctx, s, history, text, sink)
	o.metrics.Completion(mode, err, time.Since(start))
	if err != nil {
		err = classify(err, core.ErrCompletion)
		log.FromCtx(ctx).Error().Err(err).Str("mode", mode).Msg("Completion failed")
		o.fail(ctx, sink, err)
		return err
	}

	transcript.Append(core.RoleAssistant, reply)
	return nil
}

func (o *Orchestrator) complete(ctx context.Context, s *session.Session, history []core.Message, text string, sink core.Sink) (string, error) {
	if checker, ok := o.completer.(core.CredentialChecker); ok {
		if err := checker.CheckCredentials(ctx); err != nil {
			return "", err
		}
	}

	passages, err := o.retrieve(ctx, s, text)
	if err != nil {
		return "", err
	}

	req := core.CompletionRequest{
		System:  BuildSystemPrompt(o.cfg.SystemPrompt, s.Document(), passages),
		History: window(history, o.cfg.ContextWindow),
		Message: text,
	}

	if !o.cfg.Stream {
		res, err := o.completer.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(res.Text) == "" {
			return "", errEmptyReply
		}
		if err := sink.Reply(ctx, res.Text); err != nil {
			return "", fmt.Errorf("deliver reply: %w", err)
		}
		return res.Text, nil
	}

	return o.stream(ctx, req, sink)
}

var (
	errEmptyReply       = errors.New("model returned an empty reply")
	errStreamIncomplete = errors.New("stream ended without a finish reason")
)

func (o *Orchestrator) stream(ctx context.Context, req core.CompletionRequest, sink core.Sink) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := o.completer.Stream(ctx, req)
	if err != nil {
		return "", err
	}

	var (
		reply     strings.Builder
		streamErr error
		finished  bool
	)
	for chunk := range ch {
		if chunk.Err != nil {
			streamErr = chunk.Err
			continue
		}
		if chunk.FinishReason != "" {
			finished = true
		}
		if chunk.Text == "" || streamErr != nil {
			continue
		}
		reply.WriteString(chunk.Text)
		if err := sink.Delta(ctx, chunk.Text); err != nil {
			streamErr = fmt.Errorf("deliver delta: %w", err)
			cancel()
		}
	}

	// A cancelled producer may close the channel without reporting why.
	if streamErr == nil && ctx.Err() != nil {
		streamErr = ctx.Err()
	}
	if streamErr == nil && !finished {
		streamErr = errStreamIncomplete
	}
	if streamErr != nil {
		return "", streamErr
	}
	if strings.TrimSpace(reply.String()) == "" {
		return "", errEmptyReply
	}
	if err := sink.Done(ctx, reply.String()); err != nil {
		return "", fmt.Errorf("deliver reply: %w", err)
	}
	return reply.String(), nil
}

func (o *Orchestrator) retrieve(ctx context.Context, s *session.Session, text string) ([]core.Passage, error) {
	if o.retriever == nil || o.cfg.TopK <= 0 {
		return nil, nil
	}
	passages, err := o.retriever.Query(ctx, s.Handle(), text, o.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	return passages, nil
}

// Ingest loads doc into the retrieval collaborator and makes s Ready.
// On failure the session keeps its previous state and document.
func (o *Orchestrator) Ingest(ctx context.Context, s *session.Session, doc core.Document, sink core.Sink) error {
	ctx = log.WithFields(ctx, "session", s.ID, "document", doc.Name)

	if err := s.Begin(); err != nil {
		return o.reject(ctx, sink, err)
	}
	defer s.End()

	ctx = core.WithAPIKey(ctx, s.APIKey())
	handle, err := o.ingest(ctx, doc)
	o.metrics.Ingestion(err)
	if err != nil {
		err = classify(err, core.ErrIngestion)
		log.FromCtx(ctx).Error().Err(err).Msg("Ingestion failed")
		o.fail(ctx, sink, err)
		return err
	}

	if previous := s.MarkReady(handle, doc.Name); previous != "" {
		if err := o.retriever.Release(ctx, previous); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to release previous document")
		}
	}

	if err := sink.Reply(ctx, fmt.Sprintf("Document %q processed successfully! You can now ask questions.", doc.Name)); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to confirm ingestion")
	}
	return nil
}

func (o *Orchestrator) ingest(ctx context.Context, doc core.Document) (core.ContextHandle, error) {
	if checker, ok := o.retriever.(core.CredentialChecker); ok {
		if err := checker.CheckCredentials(ctx); err != nil {
			return "", err
		}
	}
	return o.retriever.Ingest(ctx, doc)
}

func (o *Orchestrator) reject(ctx context.Context, sink core.Sink, err error) error {
	o.metrics.Rejected(err)
	log.FromCtx(ctx).Debug().Err(err).Msg("Message rejected")
	o.fail(ctx, sink, err)
	return err
}

func (o *Orchestrator) fail(ctx context.Context, sink core.Sink, err error) {
	if ferr := sink.Fail(ctx, err); ferr != nil {
		log.FromCtx(ctx).Warn().Err(ferr).Msg("failed to report error to user")
	}
}

// classify keeps taxonomy errors and wraps everything else in fallback.
func classify(err, fallback error) error {
	for _, known := range []error{core.ErrConfiguration, core.ErrIngestion, core.ErrCompletion} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", fallback, err)
}

func window(history []core.Message, size int) []core.Message {
	if size <= 0 || len(history) <= size {
		return history
	}
	return history[len(history)-size:]
}

type nopMetrics struct{}

func (nopMetrics) RuleHit() {}

func (nopMetrics) Completion(string, error, time.Duration) {}

func (nopMetrics) Ingestion(error) {}

func (nopMetrics) Rejected(error) {}
