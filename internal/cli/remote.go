package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotebook/internal/metrics"
	"github.com/rcliao/quotebook/internal/model"
	"github.com/rcliao/quotebook/internal/remote"
	"github.com/rcliao/quotebook/internal/store"
)

func init() {
	remoteCmd := &cobra.Command{
		Use:   "remote",
		Short: "Mock remote endpoint",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local stand-in for the remote quote endpoint",
		Long:  "Serve GET/POST " + remote.PostsPath + " backed by memory, so sync can run offline. Point remote.url at it.",
		Run:   runRemoteServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address (default: server.addr from config)")
	serveCmd.Flags().String("seed", "", "JSON file of quotes to serve initially (export format)")

	remoteCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(remoteCmd)
}

func runRemoteServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	seedPath, _ := cmd.Flags().GetString("seed")

	var seed []model.Quote
	if seedPath != "" {
		data, err := os.ReadFile(seedPath)
		if err != nil {
			exitErr("read seed", err)
		}
		if seed, err = store.ParseQuotes(data); err != nil {
			exitErr("parse seed", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := remote.NewServer(remote.ServerOptions{
		Seed:    seed,
		Logger:  logger,
		Metrics: metrics.New(),
	})
	if err := serveHTTP(ctx, addr, srv.Handler()); err != nil {
		exitErr("serve", err)
	}
}
