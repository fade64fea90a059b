package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandevgo/docportal/internal/core"
)

type State int

const (
	AwaitingDocument State = iota
	Ready
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	default:
		return "awaiting_document"
	}
}

type Session struct {
	ID        string
	CreatedAt time.Time

	transcript *Transcript

	mu         sync.Mutex
	state      State
	handle     core.ContextHandle
	document   string
	apiKey     string
	busy       bool
	closed     bool
	lastActive time.Time
}

func New(id string, now time.Time) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:         id,
		CreatedAt:  now,
		transcript: &Transcript{},
		state:      AwaitingDocument,
		lastActive: now,
	}
}

func (s *Session) Transcript() *Transcript {
	return s.transcript
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Handle() core.ContextHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// SetAPIKey stores a credential supplied by the user for this session only.
func (s *Session) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

func (s *Session) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey
}

// Begin claims the session for one message or ingest. It fails with
// core.ErrBusy while another one is in flight and with
// core.ErrSessionNotFound once the manager has evicted the session.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrSessionNotFound
	}
	if s.busy {
		return core.ErrBusy
	}
	s.busy = true
	s.lastActive = time.Now()
	return nil
}

func (s *Session) TryBegin() bool {
	return s.Begin() == nil
}

func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.lastActive = time.Now()
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// MarkReady attaches a freshly ingested context and returns the one it replaces.
// A closed session keeps nothing and hands the new context straight back.
func (s *Session) MarkReady(handle core.ContextHandle, document string) core.ContextHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return handle
	}
	previous := s.handle
	s.handle = handle
	s.document = document
	s.state = Ready
	return previous
}

// retire closes the session unless it is in flight or was active after idleSince.
// A zero idleSince skips the activity check.
func (s *Session) retire(idleSince time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy || (!idleSince.IsZero() && s.lastActive.After(idleSince)) {
		return false
	}
	s.closed = true
	return true
}

// shut closes the session even while it is in flight.
func (s *Session) shut() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot is a point-in-time view used by status commands and the HTTP API.
type Snapshot struct {
	ID         string         `json:"id"`
	State      string         `json:"state"`
	Document   string         `json:"document,omitempty"`
	Transcript []core.Message `json:"transcript"`
	Busy       bool           `json:"busy"`
	LastActive time.Time      `json:"last_active"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:         s.ID,
		State:      s.state.String(),
		Document:   s.document,
		Busy:       s.busy,
		LastActive: s.lastActive,
	}
	s.mu.Unlock()

	snap.Transcript = s.transcript.Messages()
	return snap
}
