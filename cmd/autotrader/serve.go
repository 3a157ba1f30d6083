package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/camuig/autotrader/internal/scheduler"
	"github.com/camuig/autotrader/internal/web"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when enabled, the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			a.log.Info("starting autotrader", "mode", a.cfg.Mode(), "broker", a.session.Name())
			if !a.session.Connect(ctx) {
				a.log.Warn("broker not reachable at startup, will retry on first use")
			}

			if a.cfg.Scheduler.Enabled {
				sched := scheduler.NewScheduler(a.coord, a.exec, a.cfg.SchedulerInterval(), a.log)
				go sched.Run(ctx)
			}

			server := web.NewServer(a.coord, a.exec, a.repo, a.cfg, a.log)
			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			a.notifier.NotifyStatus(fmt.Sprintf("autotrader started (%s)", a.session.Name()))

			select {
			case <-ctx.Done():
				a.log.Info("shutdown signal received")
			case err := <-errCh:
				if err != nil {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				a.log.Error("web server shutdown", "error", err)
			}

			a.notifier.NotifyStatus("autotrader stopped")
			a.log.Info("autotrader stopped")
			return nil
		},
	}
}
