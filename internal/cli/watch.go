package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/quotebook/internal/metrics"
	"github.com/rcliao/quotebook/internal/syncer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync with the remote endpoint on an interval until interrupted",
		Run:   runWatch,
	}

	cmd.Flags().Duration("interval", 0, "Sync interval (default: sync.interval from config)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (default: metrics.addr from config)")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = cfg.Sync.Interval
	}
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, db, err := openStore(ctx, nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	m := metrics.New()
	notify := syncer.NotifierFunc(func(ctx context.Context, added int) {
		logger.InfoContext(ctx, "Quotes synced with server!", slog.Int("added", added))
	})
	sched := syncer.NewScheduler(newSynchronizer(st, notify, m), syncer.SchedulerOptions{
		Interval:   interval,
		RunOnStart: cfg.Sync.OnStart,
		Logger:     logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	if err := sched.Start(ctx); err != nil {
		exitErr("start scheduler", err)
	}
	if metricsAddr != "" {
		g.Go(func() error {
			return serveHTTP(ctx, metricsAddr, metricsRouter(m))
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		sched.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		exitErr("watch", err)
	}
}

func metricsRouter(m *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", m.Handler())
	return r
}
