package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the time between scheduled runs.
const DefaultInterval = 60 * time.Second

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	// Interval between runs; rounded down to whole seconds, minimum 1s.
	Interval time.Duration

	// RunOnStart triggers one run as soon as Start is called.
	RunOnStart bool

	Logger *slog.Logger
}

// Scheduler triggers sync runs at startup and on a fixed interval.
type Scheduler struct {
	sync       *Synchronizer
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	isRunning bool
	done      chan struct{} // closed when the current start is stopped
	startRuns sync.WaitGroup
}

// NewScheduler creates a stopped scheduler for s.
func NewScheduler(s *Synchronizer, opts SchedulerOptions) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sync:       s,
		interval:   interval,
		runOnStart: opts.RunOnStart,
		logger:     logger,
	}
}

// Start begins scheduling runs. Runs use ctx; cancelling it stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return errors.New("scheduler already started")
	}

	cl := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.sync.Run(ctx)
	}))

	if s.runOnStart {
		s.startRuns.Add(1)
		go func() {
			defer s.startRuns.Done()
			s.sync.Run(ctx)
		}()
	}

	c.Start()
	s.cron = c
	s.isRunning = true
	done := make(chan struct{})
	s.done = done

	s.logger.InfoContext(ctx, "sync scheduler started",
		slog.Duration("interval", s.interval),
		slog.Bool("run_on_start", s.runOnStart),
	)

	go func() {
		select {
		case <-ctx.Done():
			s.stop(done)
		case <-done:
		}
	}()

	return nil
}

// Stop stops scheduling and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.stop(nil)
}

// stop stops the scheduler if it is still running the start that owns done.
// A nil done stops whatever start is current.
func (s *Scheduler) stop(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning || (done != nil && done != s.done) {
		return
	}

	close(s.done)
	<-s.cron.Stop().Done()
	s.startRuns.Wait()

	s.isRunning = false
	s.logger.Info("sync scheduler stopped")
}

// Started reports whether the scheduler is running.
func (s *Scheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Trigger runs a sync immediately, outside the schedule.
func (s *Scheduler) Trigger(ctx context.Context) Report {
	return s.sync.Run(ctx)
}

// Interval returns the effective interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(fmt.Sprintf("cron: %s", msg), keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(fmt.Sprintf("cron: %s", msg), append(keysAndValues, slog.Any("error", err))...)
}
