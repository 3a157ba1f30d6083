package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/camuig/autotrader/internal/coordinator"
	"github.com/camuig/autotrader/internal/executor"
	"github.com/camuig/autotrader/internal/logger"
)

// Runner is the part of the coordinator the scheduler drives.
type Runner interface {
	RunCycle(ctx context.Context, trigger coordinator.Trigger) coordinator.Outcome
}

// Reconciler refreshes orders that were still open after their run.
type Reconciler interface {
	Reconcile(ctx context.Context) (executor.ReconcileResult, error)
}

type Scheduler struct {
	runner     Runner
	reconciler Reconciler
	interval   time.Duration
	logger     *logger.Logger
}

func NewScheduler(runner Runner, reconciler Reconciler, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		runner:     runner,
		reconciler: reconciler,
		interval:   interval,
		logger:     log.Component("scheduler"),
	}
}

// Run ticks until ctx is done. The first tick fires immediately. Gating and
// mutual exclusion belong to the coordinator, so a tick that lands on a busy
// or too-early run is simply logged as skipped there.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval.String())

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in scheduler tick", "panic", fmt.Sprint(r))
		}
	}()

	if s.reconciler != nil {
		res, err := s.reconciler.Reconcile(ctx)
		switch {
		case err != nil:
			s.logger.Error("reconcile orders", "error", err)
		case res.InProgress:
			s.logger.Info("reconcile already running elsewhere")
		case res.Checked > 0:
			s.logger.Info("orders reconciled", "checked", res.Checked, "updated", res.Updated,
				"protected", res.Protected, "failed", res.Failed)
		}
	}

	out := s.runner.RunCycle(ctx, coordinator.TriggerScheduler)
	s.logger.Debug("scheduled run done", "run_id", out.RunID, "status", out.Status)
}
