// Package syncer reconciles the local quote collection with a remote source:
// fetch remote quotes, merge them, notify, then push the full local collection.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/quotebook/internal/metrics"
	"github.com/rcliao/quotebook/internal/model"
	"github.com/rcliao/quotebook/internal/store"
)

// Source lists remote quotes.
type Source interface {
	Fetch(ctx context.Context) ([]model.Quote, error)
}

// Sink receives the full local collection.
type Sink interface {
	Push(ctx context.Context, quotes []model.Quote) error
}

// Collection is the local side of a sync run.
type Collection interface {
	MergeExternal(ctx context.Context, incoming []model.Quote) (store.MergeResult, error)
	All() []model.Quote
}

// Notifier is told when a run added quotes.
type Notifier interface {
	QuotesSynced(ctx context.Context, added int)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, added int)

func (f NotifierFunc) QuotesSynced(ctx context.Context, added int) { f(ctx, added) }

// Run outcomes, also used as metric labels.
const (
	OutcomeOK          = "ok"
	OutcomeSkipped     = "skipped"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeMergeFailed = "merge_failed"
	OutcomePushFailed  = "push_failed"
)

// Report describes one sync run. Failures are recorded here instead of being returned.
type Report struct {
	RunID    string        `json:"run_id,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Fetched  int           `json:"fetched"`
	Added    int           `json:"added"`
	Pushed   int           `json:"pushed"`
	Skipped  bool          `json:"skipped,omitempty"`

	FetchErr error `json:"-"`
	MergeErr error `json:"-"`
	PushErr  error `json:"-"`
}

// Outcome summarizes the run. The first failing step wins.
func (r Report) Outcome() string {
	switch {
	case r.Skipped:
		return OutcomeSkipped
	case r.FetchErr != nil:
		return OutcomeFetchFailed
	case r.MergeErr != nil:
		return OutcomeMergeFailed
	case r.PushErr != nil:
		return OutcomePushFailed
	default:
		return OutcomeOK
	}
}

// Err joins every step failure, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.FetchErr, r.MergeErr, r.PushErr)
}

// Config wires a Synchronizer.
type Config struct {
	Collection Collection
	Source     Source
	Sink       Sink

	// Notifier is optional.
	Notifier Notifier

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Synchronizer runs sync runs one at a time.
type Synchronizer struct {
	collection Collection
	source     Source
	sink       Sink
	notifier   Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics

	running atomic.Bool
}

// New creates a Synchronizer.
func New(cfg Config) *Synchronizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		collection: cfg.Collection,
		source:     cfg.Source,
		sink:       cfg.Sink,
		notifier:   cfg.Notifier,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Running reports whether a run is in progress.
func (s *Synchronizer) Running() bool {
	return s.running.Load()
}

// Run performs fetch, merge, notify and push in that order. A run requested
// while another is in progress is skipped. Run never returns an error; step
// failures are recorded in the Report and logged.
func (s *Synchronizer) Run(ctx context.Context) Report {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.DebugContext(ctx, "sync already in progress, skipping")
		s.metrics.SyncRun(OutcomeSkipped)
		return Report{Skipped: true, Started: time.Now()}
	}
	defer s.running.Store(false)

	rep := Report{RunID: ulid.Make().String(), Started: time.Now()}
	logger := s.logger.With(slog.String("run_id", rep.RunID))

	incoming, err := s.source.Fetch(ctx)
	if err != nil {
		rep.FetchErr = err
		incoming = nil
		logger.WarnContext(ctx, "fetch remote quotes failed", slog.Any("error", err))
	}
	rep.Fetched = len(incoming)

	res, err := s.collection.MergeExternal(ctx, incoming)
	if err != nil {
		rep.MergeErr = err
		logger.ErrorContext(ctx, "merge remote quotes failed", slog.Any("error", err))
	}
	rep.Added = res.Added
	s.metrics.QuotesMerged("sync", res.Added)

	if rep.Added > 0 && s.notifier != nil {
		s.notifier.QuotesSynced(ctx, rep.Added)
	}

	local := s.collection.All()
	if err := s.sink.Push(ctx, local); err != nil {
		rep.PushErr = err
		logger.WarnContext(ctx, "push local quotes failed", slog.Any("error", err))
	} else {
		rep.Pushed = len(local)
	}

	rep.Duration = time.Since(rep.Started)
	s.metrics.SyncRun(rep.Outcome())

	logger.InfoContext(ctx, "sync run complete",
		slog.String("outcome", rep.Outcome()),
		slog.Int("fetched", rep.Fetched),
		slog.Int("added", rep.Added),
		slog.Int("pushed", rep.Pushed),
		slog.Duration("duration", rep.Duration),
	)
	return rep
}
