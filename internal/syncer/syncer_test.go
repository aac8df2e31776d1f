package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/quotebook/internal/kv"
	"github.com/rcliao/quotebook/internal/metrics"
	"github.com/rcliao/quotebook/internal/model"
	"github.com/rcliao/quotebook/internal/remote"
	"github.com/rcliao/quotebook/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestStore(t *testing.T, quotes ...model.Quote) *store.QuoteStore {
	t.Helper()
	db, err := kv.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := store.Open(context.Background(), db, store.Options{Logger: discard})
	for _, q := range quotes {
		_, err := s.Add(context.Background(), q.Text, q.Category)
		require.NoError(t, err)
	}
	return s
}

// fakeRemote records calls in order and returns canned results.
type fakeRemote struct {
	mu       sync.Mutex
	calls    []string
	fetch    []model.Quote
	fetchErr error
	pushErr  error
	pushed   [][]model.Quote
}

func (f *fakeRemote) Fetch(context.Context) ([]model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "fetch")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetch, nil
}

func (f *fakeRemote) Push(_ context.Context, quotes []model.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "push")
	f.pushed = append(f.pushed, quotes)
	return f.pushErr
}

func TestRunMergesNotifiesAndPushes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, model.Quote{Text: "Do or do not", Category: "Wisdom"})
	fr := &fakeRemote{fetch: []model.Quote{
		{Text: "Do or do not", Category: "Wisdom"},
		{Text: "New one", Category: "X"},
	}}

	var notified []int
	s := New(Config{
		Collection: st,
		Source:     fr,
		Sink:       fr,
		Notifier: NotifierFunc(func(_ context.Context, added int) {
			fr.mu.Lock()
			fr.calls = append(fr.calls, "notify")
			fr.mu.Unlock()
			notified = append(notified, added)
		}),
		Logger: discard,
	})

	rep := s.Run(ctx)
	assert.Equal(t, OutcomeOK, rep.Outcome())
	assert.NoError(t, rep.Err())
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 2, rep.Fetched)
	assert.Equal(t, 1, rep.Added)
	assert.Equal(t, 2, rep.Pushed)
	assert.Equal(t, []int{1}, notified)

	assert.Equal(t, []string{"fetch", "notify", "push"}, fr.calls)
	require.Len(t, fr.pushed, 1)
	assert.Equal(t, []model.Quote{
		{Text: "Do or do not", Category: "Wisdom"},
		{Text: "New one", Category: "X"},
	}, fr.pushed[0], "push includes the records just merged")
}

func TestRunWithoutNewQuotesDoesNotNotify(t *testing.T) {
	st := newTestStore(t, model.Quote{Text: "a", Category: "x"})
	fr := &fakeRemote{fetch: []model.Quote{{Text: "a", Category: "x"}}}

	called := false
	s := New(Config{
		Collection: st, Source: fr, Sink: fr, Logger: discard,
		Notifier: NotifierFunc(func(context.Context, int) { called = true }),
	})

	rep := s.Run(context.Background())
	assert.Equal(t, 0, rep.Added)
	assert.False(t, called)
	assert.Equal(t, []string{"fetch", "push"}, fr.calls, "push is unconditional")
}

func TestRunFetchFailureStillPushes(t *testing.T) {
	st := newTestStore(t, model.Quote{Text: "a", Category: "x"})
	fr := &fakeRemote{fetchErr: &remote.UnavailableError{Op: "fetch", Status: 503}}
	m := metrics.New()

	s := New(Config{Collection: st, Source: fr, Sink: fr, Logger: discard, Metrics: m})
	rep := s.Run(context.Background())

	assert.Equal(t, OutcomeFetchFailed, rep.Outcome())
	assert.ErrorIs(t, rep.Err(), remote.ErrUnavailable)
	assert.Equal(t, 0, rep.Fetched)
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, []string{"fetch", "push"}, fr.calls)
}

func TestRunPushFailureIsReported(t *testing.T) {
	st := newTestStore(t)
	fr := &fakeRemote{
		fetch:   []model.Quote{{Text: "a", Category: "x"}},
		pushErr: errors.New("connection reset"),
	}

	s := New(Config{Collection: st, Source: fr, Sink: fr, Logger: discard})
	rep := s.Run(context.Background())

	assert.Equal(t, OutcomePushFailed, rep.Outcome())
	assert.Equal(t, 1, rep.Added)
	assert.Equal(t, 0, rep.Pushed)
	assert.Equal(t, 1, st.Len(), "merged quotes are kept when push fails")
}

// blockingSource blocks Fetch until release is closed.
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingSource) Fetch(context.Context) ([]model.Quote, error) {
	b.calls.Add(1)
	close(b.entered)
	<-b.release
	return nil, nil
}

func TestRunSkipsWhileInProgress(t *testing.T) {
	st := newTestStore(t)
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	sink := &fakeRemote{}
	s := New(Config{Collection: st, Source: src, Sink: sink, Logger: discard})

	done := make(chan Report)
	go func() { done <- s.Run(context.Background()) }()
	<-src.entered
	assert.True(t, s.Running())

	second := s.Run(context.Background())
	assert.True(t, second.Skipped)
	assert.Equal(t, OutcomeSkipped, second.Outcome())

	close(src.release)
	first := <-done
	assert.False(t, first.Skipped)
	assert.False(t, s.Running())
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestRunAgainstMockServer(t *testing.T) {
	srv := remote.NewServer(remote.ServerOptions{
		Seed:   []model.Quote{{Text: "remote quote", Category: "Remote"}},
		Logger: discard,
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := remote.NewClient(remote.Config{URL: ts.URL + remote.PostsPath, Logger: discard})
	st := newTestStore(t, model.Quote{Text: "local quote", Category: "Local"})
	s := New(Config{Collection: st, Source: client, Sink: client, Logger: discard})

	rep := s.Run(context.Background())
	require.NoError(t, rep.Err())
	assert.Equal(t, 1, rep.Added)
	assert.Equal(t, []model.Quote{
		{Text: "local quote", Category: "Local"},
		{Text: "remote quote", Category: "Remote"},
	}, st.All())
	assert.ElementsMatch(t, st.All(), srv.Quotes())

	rep = s.Run(context.Background())
	assert.Equal(t, 0, rep.Added, "second run is idempotent")
}

func TestSchedulerRunsOnStartAndInterval(t *testing.T) {
	st := newTestStore(t)
	fr := &fakeRemote{}
	s := New(Config{Collection: st, Source: fr, Sink: fr, Logger: discard})

	sched := NewScheduler(s, SchedulerOptions{Interval: time.Second, RunOnStart: true, Logger: discard})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sched.Start(ctx))
	assert.Error(t, sched.Start(ctx), "second start is rejected")

	assert.Eventually(t, func() bool {
		fr.mu.Lock()
		defer fr.mu.Unlock()
		return len(fr.pushed) >= 2
	}, 5*time.Second, 50*time.Millisecond)

	sched.Stop()
	fr.mu.Lock()
	runs := len(fr.pushed)
	fr.mu.Unlock()

	time.Sleep(1500 * time.Millisecond)
	fr.mu.Lock()
	defer fr.mu.Unlock()
	assert.Equal(t, runs, len(fr.pushed), "no runs after Stop")
}

func TestSchedulerRestartIgnoresEarlierContext(t *testing.T) {
	fr := &fakeRemote{}
	s := New(Config{Collection: newTestStore(t), Source: fr, Sink: fr, Logger: discard})
	sched := NewScheduler(s, SchedulerOptions{Interval: time.Hour, Logger: discard})

	first, cancelFirst := context.WithCancel(context.Background())
	require.NoError(t, sched.Start(first))
	sched.Stop()
	assert.False(t, sched.Started())

	require.NoError(t, sched.Start(context.Background()))
	cancelFirst()
	assert.Never(t, func() bool { return !sched.Started() }, 300*time.Millisecond, 20*time.Millisecond,
		"cancelling the first start's context must not stop the second")

	sched.Stop()
	assert.False(t, sched.Started())
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	fr := &fakeRemote{}
	s := New(Config{Collection: newTestStore(t), Source: fr, Sink: fr, Logger: discard})
	sched := NewScheduler(s, SchedulerOptions{Interval: time.Hour, Logger: discard})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sched.Start(ctx))
	cancel()
	assert.Eventually(t, func() bool { return !sched.Started() }, time.Second, 10*time.Millisecond)
}

func TestSchedulerDefaults(t *testing.T) {
	sched := NewScheduler(New(Config{Logger: discard}), SchedulerOptions{})
	assert.Equal(t, DefaultInterval, sched.Interval())
}

func TestSchedulerTrigger(t *testing.T) {
	st := newTestStore(t)
	fr := &fakeRemote{fetch: []model.Quote{{Text: "a", Category: "x"}}}
	sched := NewScheduler(New(Config{Collection: st, Source: fr, Sink: fr, Logger: discard}), SchedulerOptions{Logger: discard})

	rep := sched.Trigger(context.Background())
	assert.Equal(t, 1, rep.Added)
}
