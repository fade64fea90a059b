package session

import (
	"sync"

	"github.com/sandevgo/docportal/internal/core"
)

// Transcript is the append-only message log of one session.
type Transcript struct {
	mu       sync.RWMutex
	messages []core.Message
}

func (t *Transcript) Append(role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, core.Message{Role: role, Content: content})
}

// Messages returns a copy; callers may keep or modify it freely.
func (t *Transcript) Messages() []core.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]core.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
