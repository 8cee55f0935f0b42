// Package scheduler runs registered periodic services, each on its own
// interval, with per-service failure isolation.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// TimedService is a periodic callback registered with the scheduler.
type TimedService interface {
	Name() string
	Callback(ctx context.Context) error
}

// Scheduler owns a registry of independently scheduled callbacks. Entries run
// concurrently with respect to each other; overlapping runs of the same entry
// are skipped (single-flight per service), and a panicking or failing
// callback is logged without disturbing its schedule or the other entries.
type Scheduler struct {
	log *slog.Logger
	c   *cron.Cron

	mu  sync.Mutex
	ctx context.Context
}

// New creates an empty Scheduler.
func New(log *slog.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		log: log,
		c:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
}

// Register adds a service to the registry with its own interval. Services
// self-declare their interval; registration order carries no meaning.
func (s *Scheduler) Register(svc TimedService, interval time.Duration) error {
	if svc == nil {
		return fmt.Errorf("service is required")
	}
	if interval < time.Second {
		return fmt.Errorf("register %s: interval %s is below 1s", svc.Name(), interval)
	}
	s.c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		s.run(svc)
	}))
	s.log.Info("registered service", "service", svc.Name(), "interval", interval.String())
	return nil
}

// Start begins ticking. The scheduler stops once ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.c.Start()
	go func() {
		<-ctx.Done()
		s.c.Stop()
	}()
}

// Stop halts future ticks and waits for in-flight callbacks to return.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

func (s *Scheduler) run(svc TimedService) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	if err := svc.Callback(ctx); err != nil {
		s.log.Error("service callback failed", "service", svc.Name(), "error", err)
		return
	}
	s.log.Debug("service callback done", "service", svc.Name(), "took", time.Since(start).String())
}

// cronLogger adapts slog to cron's logging interface. cron only speaks up for
// recovered panics and skipped overlapping runs.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug(msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error(msg, append([]any{"error", err}, kv...)...)
}
