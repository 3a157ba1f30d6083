// Package coordinator runs one analysis-execution cycle at a time: gates,
// data, recommendation, risk, orders and the run log entry.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/camuig/autotrader/internal/ai"
	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/executor"
	"github.com/camuig/autotrader/internal/id"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/marketdata"
	"github.com/camuig/autotrader/internal/storage"
)

type Trigger string

const (
	TriggerAPI       Trigger = "api"
	TriggerCLI       Trigger = "cli"
	TriggerScheduler Trigger = "scheduler"
)

// maxGateSlack absorbs ticker jitter so a scheduler firing exactly every
// interval is not skipped. Short intervals get a tenth of the interval.
const maxGateSlack = 5 * time.Second

const (
	logWriteTimeout = 10 * time.Second
	// runLeaseTTL outlives any bounded run; a crashed holder frees the account after it.
	runLeaseTTL = 30 * time.Minute
)

func gateSlack(interval time.Duration) time.Duration {
	return min(maxGateSlack, interval/10)
}

// Outcome is what callers of RunCycle see.
type Outcome struct {
	RunID          string `json:"run_id"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	TradesExecuted int    `json:"trades_executed"`
}

type Notifier interface {
	NotifyRun(run *storage.RunLogEntry)
	NotifyKillSwitch(active bool, reason, actor string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyRun(*storage.RunLogEntry)         {}
func (nopNotifier) NotifyKillSwitch(bool, string, string) {}

type Coordinator struct {
	mu sync.Mutex

	cfg      *config.Config
	session  *broker.Session
	data     marketdata.Source
	llm      ai.Recommender
	exec     *executor.Executor
	repo     *storage.Repository
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

func New(
	cfg *config.Config,
	session *broker.Session,
	data marketdata.Source,
	llm ai.Recommender,
	exec *executor.Executor,
	repo *storage.Repository,
	notifier Notifier,
	log *logger.Logger,
) *Coordinator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Coordinator{
		cfg:      cfg,
		session:  session,
		data:     data,
		llm:      llm,
		exec:     exec,
		repo:     repo,
		notifier: notifier,
		logger:   log.Component("coordinator"),
		now:      time.Now,
	}
}

// SetClock replaces the wall clock. Tests only.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// RunCycle runs at most one cycle at a time per broker account, also across
// processes sharing the database; a concurrent call is logged as skipped and
// returns immediately. The run log entry is written before RunCycle returns,
// whatever happened. A run whose entry cannot be written reports error.
func (c *Coordinator) RunCycle(ctx context.Context, trigger Trigger) Outcome {
	started := c.now().UTC()
	run := &storage.RunLogEntry{
		ID:        id.NewRunID(started),
		StartedAt: started,
		Trigger:   string(trigger),
	}
	log := c.logger.With("run_id", run.ID, "trigger", trigger)

	if !c.mu.TryLock() {
		log.Info("run skipped", "reason", "run in progress")
		setOutcome(run, storage.OutcomeSkipped, "run in progress")
		c.finish(ctx, run)
		return outcomeOf(run)
	}
	defer c.mu.Unlock()

	lease := c.leaseName()
	lctx, cancel := c.storeContext(ctx)
	held, err := c.repo.AcquireLease(lctx, lease, id.Holder(), started, runLeaseTTL)
	cancel()
	if err != nil || !held {
		reason := "run in progress"
		if err != nil {
			log.Error("acquire run lease", "error", err)
			reason = "run log unavailable"
		}
		log.Info("run skipped", "reason", reason)
		setOutcome(run, storage.OutcomeSkipped, reason)
		c.finish(ctx, run)
		return outcomeOf(run)
	}
	defer func() {
		rctx, cancel := c.storeContext(ctx)
		defer cancel()
		if err := c.repo.ReleaseLease(rctx, lease, id.Holder()); err != nil {
			log.Error("release run lease", "error", err)
		}
	}()

	log.Info("run started")
	func() {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				log.Error("run panicked", "panic", fmt.Sprint(r), "stack", stack)
				setOutcome(run, storage.OutcomeError, fmt.Sprintf("panic: %v", r))
				run.ErrorDetail = stack
			}
		}()
		c.cycle(ctx, run, log)
	}()

	c.finish(ctx, run)
	log.Info("run finished", "outcome", run.Outcome, "message", run.Message,
		"executed", run.Executed, "duration_ms", run.DurationMs)
	return outcomeOf(run)
}

func setOutcome(run *storage.RunLogEntry, outcome, message string) {
	run.Outcome = outcome
	run.Message = message
}

func outcomeOf(run *storage.RunLogEntry) Outcome {
	return Outcome{
		RunID:          run.ID,
		Status:         run.Outcome,
		Message:        run.Message,
		TradesExecuted: run.Executed,
	}
}

// finish writes the run log entry and notifies. The write survives
// cancellation of the caller's context. When it fails the outcome becomes
// error; orders already placed stay counted.
func (c *Coordinator) finish(ctx context.Context, run *storage.RunLogEntry) {
	run.FinishedAt = c.now().UTC()
	run.DurationMs = run.FinishedAt.Sub(run.StartedAt).Milliseconds()
	if cfg, err := json.Marshal(c.cfg.Redacted()); err == nil {
		run.Config = cfg
	}

	wctx, cancel := c.storeContext(ctx)
	defer cancel()
	if err := c.repo.SaveRun(wctx, run); err != nil {
		c.logger.Error("save run log", "run_id", run.ID, "outcome", run.Outcome, "error", err)
		setOutcome(run, storage.OutcomeError,
			fmt.Sprintf("run log not persisted: %v (run was %s: %s)", err, run.Outcome, run.Message))
	}
	c.notifier.NotifyRun(run)
}

// storeContext bounds run log bookkeeping without inheriting the caller's
// cancellation.
func (c *Coordinator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), logWriteTimeout)
}

func (c *Coordinator) leaseName() string {
	name := "run:" + c.session.Name()
	if c.cfg.Broker.Type == "tinkoff" && c.cfg.Broker.Tinkoff.AccountID != "" {
		name += ":" + c.cfg.Broker.Tinkoff.AccountID
	}
	return name
}

func (c *Coordinator) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (c *Coordinator) cycle(ctx context.Context, run *storage.RunLogEntry, log *logger.Logger) {
	// interval gate
	gctx, cancel := c.storeContext(ctx)
	last, err := c.repo.LastActiveRun(gctx)
	cancel()
	if err != nil {
		log.Error("read last run", "error", err)
		setOutcome(run, storage.OutcomeSkipped, "run log unavailable")
		return
	}
	if last != nil {
		interval := c.cfg.TradingInterval()
		if elapsed := run.StartedAt.Sub(last.StartedAt); elapsed+gateSlack(interval) < interval {
			log.Info("run skipped", "reason", "interval not elapsed", "since_last", elapsed)
			setOutcome(run, storage.OutcomeSkipped, "interval not elapsed")
			return
		}
	}

	// market-hours gate
	mctx, cancel := c.withTimeout(ctx, c.cfg.Timeouts.MarketHours())
	run.MarketOpen = c.session.IsMarketOpen(mctx)
	cancel()
	if !run.MarketOpen {
		log.Info("run skipped", "reason", "market closed")
		setOutcome(run, storage.OutcomeSkipped, "market closed")
		return
	}

	// account and positions
	book, err := c.loadBook(ctx)
	if err != nil {
		log.Warn("account unavailable", "error", err)
		setOutcome(run, storage.OutcomeNoResponse, "account unavailable")
		return
	}
	run.AccountSource = book.Source
	if book.Source == SourceBroker && book.PositionsLive {
		snap := storage.NewPortfolioSnapshot(run.ID, c.session.Name(), book.Account, book.Positions)
		if err := c.repo.SavePortfolioSnapshot(ctx, snap); err != nil {
			log.Error("save portfolio snapshot", "error", err)
		}
	}

	// market data
	dctx, cancel := c.withTimeout(ctx, c.cfg.Timeouts.Data())
	data := c.data.Gather(dctx, c.symbols(book.Positions))
	cancel()
	if len(data.Errors) > 0 {
		run.DataErrors = make(map[string]any, len(data.Errors))
		for sym, msg := range data.Errors {
			run.DataErrors[sym] = msg
		}
	}
	if len(data.Snapshots) == 0 {
		setOutcome(run, storage.OutcomeNoResponse, "no market data")
		return
	}

	state := c.riskState(ctx, book, log)

	// recommendation
	mc := &ai.MarketContext{
		Now:                  c.now(),
		Strategy:             c.cfg.Trading.Strategy,
		Account:              book.Account,
		Positions:            book.Positions,
		Snapshots:            data.Snapshots,
		Headlines:            data.Headlines,
		MaxPositionPct:       c.cfg.Trading.MaxPositionPct,
		MinConfidence:        c.cfg.Trading.MinConfidence,
		DefaultStopLossPct:   c.cfg.Trading.DefaultStopLossPct,
		DefaultTakeProfitPct: c.cfg.Trading.DefaultTakeProfitPct,
		TradesLeftToday:      max(0, c.cfg.Trading.MaxDailyTrades-state.TradesToday),
	}
	lctx, cancel := c.withTimeout(ctx, c.cfg.Timeouts.LLM())
	resp, err := c.llm.Recommend(lctx, mc)
	cancel()
	if err != nil {
		run.LLMError = err.Error()
		var aiErr *ai.Error
		if errors.As(err, &aiErr) {
			run.LLMAttempts = aiErr.Attempts
		}
		setOutcome(run, storage.OutcomeNoResponse, "model unavailable: "+err.Error())
		return
	}
	if resp == nil {
		run.LLMError = ai.ErrNoResponse.Error()
		setOutcome(run, storage.OutcomeNoResponse, "empty model response")
		return
	}
	run.LLMOK = true
	run.LLMAttempts = resp.Attempts
	run.Summary = resp.AnalysisSummary
	run.Recommended = len(resp.Trades)

	c.decide(ctx, run, resp, data, book, state, log)
}
