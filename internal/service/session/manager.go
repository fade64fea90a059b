package session

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/pkg/log"
)

type releaser interface {
	Release(ctx context.Context, handle core.ContextHandle) error
}

// Manager owns the set of live sessions. It guards only its map;
// per-session data is reached through the Session itself.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	releaser releaser
	idleTTL  time.Duration
	now      func() time.Time
}

func NewManager(releaser releaser, idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		releaser: releaser,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

func (m *Manager) Create() *Session {
	return m.GetOrCreate("")
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return s, nil
}

// GetOrCreate returns the session for a stable key such as a chat ID.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok && id != "" {
		return s
	}
	s := New(id, m.now())
	m.sessions[s.ID] = s
	return s
}

// Reset replaces the session with a fresh one under the same ID.
// The transcript is dropped and the retrieval context released.
func (m *Manager) Reset(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	old, ok := m.sessions[id]
	if ok && !old.retire(time.Time{}) {
		m.mu.Unlock()
		return nil, core.ErrBusy
	}
	s := New(id, m.now())
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if ok {
		m.release(ctx, old)
	}
	return s, nil
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return core.ErrSessionNotFound
	}
	if !s.retire(time.Time{}) {
		m.mu.Unlock()
		return core.ErrBusy
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	m.release(ctx, s)
	return nil
}

// Sweep evicts idle sessions that are not busy and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) int {
	if m.idleTTL <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.idleTTL)
	var evicted []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		// A transport may hold s without having claimed it yet.
		if !s.retire(cutoff) {
			continue
		}
		delete(m.sessions, id)
		evicted = append(evicted, s)
	}
	m.mu.Unlock()

	for _, s := range evicted {
		m.release(ctx, s)
	}
	return len(evicted)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close releases every remaining context.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		s.shut()
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.release(ctx, s)
	}
}

func (m *Manager) release(ctx context.Context, s *Session) {
	handle := s.Handle()
	if handle == "" || m.releaser == nil {
		return
	}
	if err := m.releaser.Release(ctx, handle); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("session", s.ID).Msg("failed to release document context")
	}
}
