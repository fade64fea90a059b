package core

import "context"

// Sink renders orchestrator output in one UI.
type Sink interface {
	// Reply renders a complete message as a single bubble.
	Reply(ctx context.Context, text string) error
	// Delta appends an increment to the bubble currently being streamed.
	Delta(ctx context.Context, text string) error
	// Done finalizes the streamed bubble with the accumulated text.
	Done(ctx context.Context, text string) error
	// Fail shows an error to the user.
	Fail(ctx context.Context, err error) error
}
