// Package cli implements the quotebook CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotebook/internal/config"
	"github.com/rcliao/quotebook/internal/kv"
	"github.com/rcliao/quotebook/internal/logging"
	"github.com/rcliao/quotebook/internal/metrics"
	"github.com/rcliao/quotebook/internal/remote"
	"github.com/rcliao/quotebook/internal/store"
	"github.com/rcliao/quotebook/internal/syncer"
)

var (
	dbPath     string
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "quotebook",
	Short: "Categorized quotes with remote sync",
	Long: "A small CLI for a personal quote collection. Quotes are stored in SQLite, " +
		"filtered by category, imported and exported as JSON and synchronized with a remote endpoint.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := setup(); err != nil {
			exitErr("config", err)
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $QUOTEBOOK_DB or ~/.quotebook/quotes.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.quotebook/config.yaml)")
}

// setup loads configuration and installs the default logger.
func setup() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.DB.Path = dbPath
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	logger = logging.New(&logging.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File: logging.FileConfig{
			Enabled:    c.Log.File.Enabled,
			Path:       c.Log.File.Path,
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxBackups: c.Log.File.MaxBackups,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			Compress:   c.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)
	return nil
}

func getDBPath() string {
	return cfg.DB.Path
}

// openStore opens the durable database and hydrates a QuoteStore from it.
// session may be nil outside the interactive shell.
func openStore(ctx context.Context, session kv.Storage) (*store.QuoteStore, *kv.SQLite, error) {
	db, err := kv.NewSQLite(getDBPath())
	if err != nil {
		return nil, nil, err
	}
	st := store.Open(ctx, db, store.Options{Session: session, Logger: logger})
	return st, db, nil
}

func newClient(m *metrics.Metrics) *remote.Client {
	return remote.NewClient(remote.Config{
		URL:     cfg.Remote.URL,
		Timeout: cfg.Remote.Timeout,
		Logger:  logger,
		Metrics: m,
	})
}

func newSynchronizer(st *store.QuoteStore, n syncer.Notifier, m *metrics.Metrics) *syncer.Synchronizer {
	client := newClient(m)
	return syncer.New(syncer.Config{
		Collection: st,
		Source:     client,
		Sink:       client,
		Notifier:   n,
		Logger:     logger,
		Metrics:    m,
	})
}

func printJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
