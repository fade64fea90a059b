package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"

	"github.com/sandevgo/docportal/pkg/log"
)

const DefaultSweepCron = "*/5 * * * *"

// Sweeper runs Manager.Sweep on a cron schedule.
type Sweeper struct {
	manager *Manager
	cron    string
	started atomic.Bool
	stop    chan struct{}
	once    sync.Once
	done    chan struct{}
}

func NewSweeper(manager *Manager, cronExpr string) (*Sweeper, error) {
	if cronExpr == "" {
		cronExpr = DefaultSweepCron
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid session sweep cron expression: %s", cronExpr)
	}
	return &Sweeper{
		manager: manager,
		cron:    cronExpr,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.started.Store(true)
	logger := log.FromCtx(ctx)
	logger.Info().Str("cron", s.cron).Msg("Session sweeper started")

	defer close(s.done)
	for {
		next, err := gronx.NextTickAfter(s.cron, time.Now(), false)
		if err != nil {
			logger.Error().Err(err).Msg("failed to compute next sweep tick")
			next = time.Now().Add(time.Minute)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-time.After(time.Until(next)):
			if n := s.manager.Sweep(ctx); n > 0 {
				logger.Info().Int("evicted", n).Msg("Idle sessions evicted")
			}
		}
	}
}

func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })
	if s.started.Load() {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.manager.Close(ctx)
	return nil
}
