package srv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingService struct {
	name    string
	mu      *sync.Mutex
	order   *[]string
	started chan struct{}
	ctxErr  error
}

func (s *recordingService) Start(ctx context.Context) error {
	close(s.started)
	return nil
}

func (s *recordingService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.order = append(*s.order, s.name)
	s.ctxErr = ctx.Err()
	return nil
}

func TestShutdownServices_ReverseOrderWithLiveContext(t *testing.T) {
	var mu sync.Mutex
	var order []string
	a := &recordingService{name: "a", mu: &mu, order: &order, started: make(chan struct{})}
	b := &recordingService{name: "b", mu: &mu, order: &order, started: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	StartServices(ctx, []Service{a, b})

	for _, s := range []*recordingService{a, b} {
		select {
		case <-s.started:
		case <-time.After(time.Second):
			t.Fatalf("service %s did not start", s.name)
		}
	}

	cancel()
	ShutdownServices(ctx, []Service{a, b})

	assert.Equal(t, []string{"b", "a"}, order)
	assert.NoError(t, a.ctxErr)
	assert.NoError(t, b.ctxErr)
}

func TestNewCleanup(t *testing.T) {
	called := false
	svc := NewCleanup(func() error {
		called = true
		return errors.New("close failed")
	})

	assert.NoError(t, svc.Start(context.Background()))
	assert.EqualError(t, svc.Shutdown(context.Background()), "close failed")
	assert.True(t, called)
}
