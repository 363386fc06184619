package rates

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher refreshes the rate store. *Fetcher implements it.
type Refresher interface {
	Refresh(ctx context.Context) (Batch, error)
}

// Scheduler refreshes rates periodically on its own goroutine.
type Scheduler struct {
	refresher Refresher
	every     time.Duration
	timeout   time.Duration
	log       *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
	runs    int
}

// NewScheduler returns a scheduler calling r every interval.
func NewScheduler(r Refresher, every time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		refresher: r,
		every:     every,
		timeout:   time.Minute,
		log:       log,
	}
}

// Runs returns the number of refreshes started so far.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Start runs a first refresh right away, then one every interval until Stop
// is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.every <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	c.Schedule(cron.Every(s.every), cron.FuncJob(func() { s.tick(runCtx) }))
	s.cron, s.cancel = c, cancel
	s.running = true
	s.mu.Unlock()

	s.tick(runCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != c {
		// stopped during the first refresh.
		return nil
	}
	c.Start()
	s.log.Info("rates scheduler started", zap.Duration("every", s.every))
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish, or
// for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	done := c.Stop()
	cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("rates scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	b, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.log.Warn("scheduled refresh failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled refresh done", zap.Int("rates", len(b.Records)), zap.Strings("sources", b.Sources))
}
