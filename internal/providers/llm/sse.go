package llm

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/sandevgo/docportal/internal/core"
)

const maxSSELine = 1 << 20

type sseEvent struct {
	Event string
	Data  string
}

// readSSE dispatches events to fn until fn reports done or the reader ends.
// Reaching EOF before fn reports done returns io.ErrUnexpectedEOF.
func readSSE(r io.Reader, fn func(sseEvent) (bool, error)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxSSELine)

	var ev sseEvent
	var data []string
	dispatch := func() (bool, error) {
		if len(data) == 0 {
			ev = sseEvent{}
			return false, nil
		}
		ev.Data = strings.Join(data, "\n")
		done, err := fn(ev)
		ev, data = sseEvent{}, nil
		return done, err
	}

	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if done, err := dispatch(); done || err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			ev.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if done, err := dispatch(); done || err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// streamDelta is what a provider extracts from one event.
type streamDelta struct {
	Text   string
	Finish string
	Done   bool
}

// startStream pumps parsed events into a bounded channel. The channel is
// closed when the stream ends; a failure is delivered as a final Chunk and a
// clean end always carries a finish reason. The caller must drain the channel.
func (b *baseProvider) startStream(ctx context.Context, body io.ReadCloser, parse func(sseEvent) (streamDelta, error)) <-chan core.Chunk {
	out := make(chan core.Chunk, b.streamBuffer)

	go func() {
		defer close(out)
		defer body.Close()

		send := func(c core.Chunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		finished := false
		err := readSSE(body, func(ev sseEvent) (bool, error) {
			d, err := parse(ev)
			if err != nil {
				return true, err
			}
			if d.Finish != "" {
				finished = true
			}
			if d.Text != "" || d.Finish != "" {
				if !send(core.Chunk{Text: d.Text, FinishReason: d.Finish}) {
					return true, ctx.Err()
				}
			}
			return d.Done, nil
		})

		switch {
		case err == nil:
			// Some servers end with [DONE] and never send finish_reason.
			if !finished {
				send(core.Chunk{FinishReason: core.FinishStop})
			}
			return
		case err == io.ErrUnexpectedEOF && finished:
			return
		case ctx.Err() != nil:
			err = ctx.Err()
		case err == io.ErrUnexpectedEOF:
			err = errStreamTruncated
		}

		// Consumers drain until close, so the failure is always delivered,
		// cancellation included.
		out <- core.Chunk{Err: err}
	}()

	return out
}
