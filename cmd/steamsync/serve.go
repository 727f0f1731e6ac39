package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/steamsync/internal/config"
	"github.com/JonMunkholm/steamsync/internal/core"
	"github.com/JonMunkholm/steamsync/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily sync and the status server",
	Long: `Run one sync at startup (unless SYNC_RUN_ON_START=false), then one every day at
SYNC_DAILY_AT UTC. The status server, when enabled, shows the last run and
accepts manual triggers on POST /api/runs.

On SIGINT or SIGTERM the scheduler stops, an in-flight run is given up to
SERVER_SHUTDOWN_TIMEOUT to finish, and the status server shuts down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.Sync.WatchEntities {
			if err := config.WatchEntities(ctx, a.cfg.Sync.EntitiesFile, a.service.SetEntities); err != nil {
				slog.Warn("entities watch disabled", "error", err)
			}
		}

		schedCfg, err := a.schedulerConfig()
		if err != nil {
			return err
		}
		sched := core.NewScheduler(a.service.Tasks(), schedCfg)

		var server *web.Server
		serverErr := make(chan error, 1)
		if a.cfg.Server.Enabled {
			server = web.NewServer(sched, a.service, a.cfg.Server)
			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()
		}

		schedDone := make(chan struct{})
		go func() {
			sched.Start(ctx)
			close(schedDone)
		}()

		select {
		case <-ctx.Done():
		case err := <-serverErr:
			slog.Error("status server failed", "error", err)
			stop()
		}
		<-schedDone

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if sched.State() == core.StateRunning {
			slog.Info("waiting for the in-flight run to finish")
		}
		if err := sched.Wait(shutdownCtx); err != nil {
			slog.Warn("run did not finish in time", "error", err)
		}

		if server != nil {
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
			}
		}
		slog.Info("stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
