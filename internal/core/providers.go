package core

import "context"

type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Stream(ctx context.Context, req CompletionRequest) (<-chan Chunk, error)
}

type AIProvider interface {
	Completer
	Models(ctx context.Context) ([]Model, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Retriever interface {
	Ingest(ctx context.Context, doc Document) (ContextHandle, error)
	Query(ctx context.Context, handle ContextHandle, question string, limit int) ([]Passage, error)
	Release(ctx context.Context, handle ContextHandle) error
}

// CredentialChecker is implemented by providers that need an API key.
// CheckCredentials returns ErrConfiguration before any call is attempted.
type CredentialChecker interface {
	CheckCredentials(ctx context.Context) error
}

type apiKeyCtxKey struct{}

// WithAPIKey attaches a per-session credential that overrides the configured key.
func WithAPIKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, apiKeyCtxKey{}, key)
}

func APIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyCtxKey{}).(string)
	return key
}
