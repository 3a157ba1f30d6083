package coordinator_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"

	"github.com/camuig/autotrader/internal/ai"
	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/coordinator"
	"github.com/camuig/autotrader/internal/executor"
	"github.com/camuig/autotrader/internal/indicators"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/marketdata"
	"github.com/camuig/autotrader/internal/mocks"
	"github.com/camuig/autotrader/internal/storage"
)

var now = time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu    sync.Mutex
	runs  []string
	kills []bool
}

func (n *recordingNotifier) NotifyRun(run *storage.RunLogEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runs = append(n.runs, run.Outcome)
}

func (n *recordingNotifier) NotifyKillSwitch(active bool, reason, actor string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kills = append(n.kills, active)
}

type CoordinatorSuite struct {
	suite.Suite

	conn     *mocks.MockConnector
	data     *mocks.MockSource
	llm      *mocks.MockRecommender
	db       *gorm.DB
	repo     *storage.Repository
	notifier *recordingNotifier
	cfg      *config.Config
	coord    *coordinator.Coordinator
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func testConfig() *config.Config {
	return &config.Config{
		Broker: config.BrokerConfig{Type: "paper"},
		LLM:    config.LLMConfig{Model: "test", APIKey: "sk-live-123"},
		Trading: config.TradingConfig{
			Interval:             "15m",
			Watchlist:            []string{"AAPL", "MSFT"},
			Strategy:             "balanced",
			MinConfidence:        0.7,
			MaxPositionPct:       10,
			MaxDailyLossPct:      3,
			MaxDailyTrades:       20,
			DefaultStopLossPct:   5,
			DefaultTakeProfitPct: 10,
			OrderConcurrency:     2,
			Market:               config.MarketSession{Timezone: "America/New_York", Open: "09:30", Close: "16:00"},
		},
		Timeouts: config.TimeoutsConfig{
			MarketHoursSeconds: 1,
			BrokerSeconds:      1,
			DataSeconds:        1,
			LLMSeconds:         1,
			OrderSeconds:       1,
		},
	}
}

func (s *CoordinatorSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.conn = mocks.NewMockConnector(ctrl)
	s.conn.EXPECT().Name().Return("mock").AnyTimes()
	s.data = mocks.NewMockSource(ctrl)
	s.llm = mocks.NewMockRecommender(ctrl)

	db, err := storage.NewDatabase(filepath.Join(s.T().TempDir(), "coord.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = storage.Close(db) })
	s.db = db
	s.repo = storage.NewRepository(db)

	s.notifier = &recordingNotifier{}
	s.cfg = testConfig()

	session := broker.NewSession(s.conn, time.Second, logger.Nop())
	exec := executor.NewExecutor(session, s.repo, nil, 2, time.Second, logger.Nop())
	s.coord = coordinator.New(s.cfg, session, s.data, s.llm, exec, s.repo, s.notifier, logger.Nop())
	s.coord.SetClock(func() time.Time { return now })
}

func account() *broker.Account {
	return &broker.Account{
		Currency:       "USD",
		Cash:           50000,
		BuyingPower:    50000,
		PortfolioValue: 100000,
		Equity:         100000,
		LastEquity:     100000,
	}
}

func snapshots(prices map[string]float64) *marketdata.Result {
	res := &marketdata.Result{
		Snapshots: make(map[string]indicators.Snapshot),
		Errors:    map[string]string{},
	}
	for sym, px := range prices {
		res.Snapshots[sym] = indicators.Snapshot{Symbol: sym, Price: px, Overall: indicators.Neutral}
	}
	return res
}

func filled(id, symbol string, qty, price float64, side broker.Side) *broker.Order {
	return &broker.Order{ID: id, Symbol: symbol, Side: side, Quantity: qty,
		Status: broker.StatusFilled, FilledQty: qty, FilledPrice: price}
}

// openMarket sets up the broker calls of a run that passes the gates.
func (s *CoordinatorSuite) openMarket(acct *broker.Account, positions []broker.Position) {
	s.conn.EXPECT().IsMarketOpen(gomock.Any()).Return(true, nil)
	s.conn.EXPECT().GetAccount(gomock.Any()).Return(acct, nil)
	s.conn.EXPECT().GetPositions(gomock.Any()).Return(positions, nil)
}

func (s *CoordinatorSuite) savedRun(id string) *storage.RunLogEntry {
	run, err := s.repo.GetRun(context.Background(), id)
	s.Require().NoError(err)
	s.Require().NotNil(run, "every run is logged")
	return run
}

func (s *CoordinatorSuite) TestHappyPath() {
	s.openMarket(account(), nil)
	s.data.EXPECT().Gather(gomock.Any(), []string{"AAPL", "MSFT"}).
		Return(snapshots(map[string]float64{"AAPL": 190, "MSFT": 400}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, mc *ai.MarketContext) (*ai.Response, error) {
			s.Equal(100000.0, mc.Account.PortfolioValue)
			s.Equal(20, mc.TradesLeftToday)
			return &ai.Response{
				AnalysisSummary: "AAPL momentum",
				Attempts:        1,
				Trades: []ai.Recommendation{
					{Action: ai.ActionBuy, Symbol: "AAPL", Quantity: 10, Confidence: 0.85},
					{Action: ai.ActionHold, Symbol: "MSFT", Confidence: 0.9},
				},
			}, nil
		})
	s.conn.EXPECT().PlaceMarketOrder(gomock.Any(), "AAPL", 10.0, broker.SideBuy).
		Return(filled("o1", "AAPL", 10, 190, broker.SideBuy), nil)

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)

	s.Equal(storage.OutcomeSuccess, out.Status)
	s.Equal(1, out.TradesExecuted)

	run := s.savedRun(out.RunID)
	s.Equal("api", run.Trigger)
	s.True(run.MarketOpen)
	s.True(run.LLMOK)
	s.Equal(coordinator.SourceBroker, run.AccountSource)
	s.Equal(2, run.Recommended)
	s.Equal(1, run.Approved)
	s.Equal(1, run.Executed)
	s.Require().Len(run.Decisions, 2)
	s.Equal("filtered", run.Decisions[0].Decision)
	s.Equal("hold", run.Decisions[0].Reason)
	s.Equal("executed", run.Decisions[1].Decision)
	s.Equal("o1", run.Decisions[1].OrderID)
	s.NotContains(string(run.Config), "sk-live-123")

	trades, err := s.repo.TradesByRun(context.Background(), out.RunID)
	s.Require().NoError(err)
	s.Require().Len(trades, 1)
	s.InDelta(180.5, trades[0].StopLossPrice, 1e-9)
	s.InDelta(209, trades[0].TakeProfitPrice, 1e-9)

	snap, err := s.repo.LatestSnapshot(context.Background())
	s.Require().NoError(err)
	s.Require().NotNil(snap)
	s.Equal(out.RunID, snap.RunID)

	s.Equal([]string{storage.OutcomeSuccess}, s.notifier.runs)
}

func (s *CoordinatorSuite) TestSecondRunWaitsForInterval() {
	s.Require().NoError(s.repo.SaveRun(context.Background(), &storage.RunLogEntry{
		ID: "prev", StartedAt: now.Add(-time.Minute), Trigger: "scheduler", Outcome: storage.OutcomeNoTrades,
	}))

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerScheduler)

	s.Equal(storage.OutcomeSkipped, out.Status)
	s.Equal("interval not elapsed", out.Message)
	s.Equal(storage.OutcomeSkipped, s.savedRun(out.RunID).Outcome)
}

func (s *CoordinatorSuite) TestShortIntervalStillGates() {
	s.cfg.Trading.Interval = "3s"
	s.Require().NoError(s.repo.SaveRun(context.Background(), &storage.RunLogEntry{
		ID: "prev", StartedAt: now.Add(-time.Second), Trigger: "scheduler", Outcome: storage.OutcomeNoTrades,
	}))

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)
	s.Equal(storage.OutcomeSkipped, out.Status)
	s.Equal("interval not elapsed", out.Message)

	s.coord.SetClock(func() time.Time { return now.Add(2 * time.Second) })
	s.conn.EXPECT().IsMarketOpen(gomock.Any()).Return(false, nil)
	out = s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)
	s.Equal("market closed", out.Message, "a full interval since the last run passes the gate")
}

func (s *CoordinatorSuite) TestRunLeaseHeldByAnotherProcess() {
	ok, err := s.repo.AcquireLease(context.Background(), "run:mock", "other-host/1/X", now, time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerCLI)
	s.Equal(storage.OutcomeSkipped, out.Status)
	s.Equal("run in progress", out.Message)
	s.Equal(storage.OutcomeSkipped, s.savedRun(out.RunID).Outcome)

	// the other holder died; its lease runs out
	s.coord.SetClock(func() time.Time { return now.Add(2 * time.Minute) })
	s.conn.EXPECT().IsMarketOpen(gomock.Any()).Return(false, nil)
	out = s.coord.RunCycle(context.Background(), coordinator.TriggerCLI)
	s.Equal("market closed", out.Message)
}

func (s *CoordinatorSuite) TestRunLogWriteFailureIsAnError() {
	s.Require().NoError(s.db.Callback().Create().Before("gorm:create").Register("test:fail_run_log", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Model.(*storage.RunLogEntry); ok {
			_ = tx.AddError(errors.New("disk I/O error"))
		}
	}))

	s.openMarket(account(), nil)
	s.data.EXPECT().Gather(gomock.Any(), gomock.Any()).Return(snapshots(map[string]float64{"AAPL": 190, "MSFT": 400}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).Return(&ai.Response{
		Attempts: 1,
		Trades:   []ai.Recommendation{{Action: ai.ActionBuy, Symbol: "AAPL", Quantity: 10, Confidence: 0.85}},
	}, nil)
	s.conn.EXPECT().PlaceMarketOrder(gomock.Any(), "AAPL", 10.0, broker.SideBuy).
		Return(filled("o1", "AAPL", 10, 190, broker.SideBuy), nil)

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)

	s.Equal(storage.OutcomeError, out.Status)
	s.Contains(out.Message, "run log not persisted")
	s.Contains(out.Message, "disk I/O error")
	s.Equal(1, out.TradesExecuted, "the placed order is still reported")
	s.Equal([]string{storage.OutcomeError}, s.notifier.runs)
}

func (s *CoordinatorSuite) TestUnreadableRunLogSkipsTheRun() {
	s.Require().NoError(s.db.Migrator().DropTable(&storage.RunLogEntry{}))

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerScheduler)

	s.Equal(storage.OutcomeError, out.Status)
	s.Contains(out.Message, "run log not persisted")
	s.Contains(out.Message, "skipped: run log unavailable")
	s.Zero(out.TradesExecuted)
}

func (s *CoordinatorSuite) TestSkippedRunsDoNotResetInterval() {
	s.Require().NoError(s.repo.SaveRun(context.Background(), &storage.RunLogEntry{
		ID: "prev", StartedAt: now.Add(-20 * time.Minute), Outcome: storage.OutcomeNoTrades,
	}))
	s.Require().NoError(s.repo.SaveRun(context.Background(), &storage.RunLogEntry{
		ID: "skip", StartedAt: now.Add(-time.Minute), Outcome: storage.OutcomeSkipped,
	}))
	s.conn.EXPECT().IsMarketOpen(gomock.Any()).Return(false, nil)

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerScheduler)

	s.Equal("market closed", out.Message)
}

func (s *CoordinatorSuite) TestMarketClosed() {
	s.conn.EXPECT().IsMarketOpen(gomock.Any()).Return(false, nil)

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerCLI)

	s.Equal(storage.OutcomeSkipped, out.Status)
	s.Equal("market closed", out.Message)
	s.False(s.savedRun(out.RunID).MarketOpen)
}

func (s *CoordinatorSuite) TestConcurrentRunIsSkipped() {
	entered := make(chan struct{})
	release := make(chan struct{})

	s.openMarket(account(), nil)
	s.data.EXPECT().Gather(gomock.Any(), gomock.Any()).Return(snapshots(map[string]float64{"AAPL": 190}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, mc *ai.MarketContext) (*ai.Response, error) {
			close(entered)
			<-release
			return &ai.Response{AnalysisSummary: "nothing to do"}, nil
		})

	first := make(chan coordinator.Outcome, 1)
	go func() { first <- s.coord.RunCycle(context.Background(), coordinator.TriggerScheduler) }()
	<-entered

	second := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)
	close(release)

	s.Equal(storage.OutcomeSkipped, second.Status)
	s.Equal("run in progress", second.Message)
	s.Equal(storage.OutcomeNoTrades, (<-first).Status)
	s.Equal(storage.OutcomeSkipped, s.savedRun(second.RunID).Outcome)
}

func (s *CoordinatorSuite) TestQuotaExhaustionPlacesNoOrders() {
	s.openMarket(account(), nil)
	s.data.EXPECT().Gather(gomock.Any(), gomock.Any()).Return(snapshots(map[string]float64{"AAPL": 190}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).
		Return(nil, &ai.Error{Class: ai.ClassQuota, Attempts: 1, Err: errors.New("429 RESOURCE_EXHAUSTED: quota")})

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerScheduler)

	s.Equal(storage.OutcomeNoResponse, out.Status)
	s.Zero(out.TradesExecuted)
	run := s.savedRun(out.RunID)
	s.False(run.LLMOK)
	s.Equal(1, run.LLMAttempts)
	s.Contains(run.LLMError, "quota")
}

func (s *CoordinatorSuite) TestPartialOrderFailure() {
	s.openMarket(account(), nil)
	s.data.EXPECT().Gather(gomock.Any(), gomock.Any()).
		Return(snapshots(map[string]float64{"AAPL": 190, "MSFT": 400}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).Return(&ai.Response{
		Trades: []ai.Recommendation{
			{Action: ai.ActionBuy, Symbol: "AAPL", Quantity: 10, Confidence: 0.8},
			{Action: ai.ActionBuy, Symbol: "MSFT", Quantity: 5, Confidence: 0.8},
		},
	}, nil)
	s.conn.EXPECT().PlaceMarketOrder(gomock.Any(), "AAPL", 10.0, broker.SideBuy).
		Return(filled("o1", "AAPL", 10, 190, broker.SideBuy), nil)
	s.conn.EXPECT().PlaceMarketOrder(gomock.Any(), "MSFT", 5.0, broker.SideBuy).
		Return(nil, errors.New("insufficient buying power"))

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)

	s.Equal(storage.OutcomeSuccess, out.Status)
	s.Equal(1, out.TradesExecuted)
	s.Contains(out.Message, "1 failed")

	run := s.savedRun(out.RunID)
	s.Require().Len(run.Decisions, 2)
	s.Equal("executed", run.Decisions[0].Decision)
	s.Equal("failed", run.Decisions[1].Decision)
	s.Contains(run.Decisions[1].Error, "insufficient buying power")
}

func (s *CoordinatorSuite) TestDailyLossBlocksBuysButAllowsSells() {
	acct := account()
	acct.Equity = 96500
	positions := []broker.Position{{Symbol: "MSFT", Quantity: 10, CurrentPrice: 400, MarketValue: 4000}}

	s.openMarket(acct, positions)
	s.data.EXPECT().Gather(gomock.Any(), []string{"AAPL", "MSFT"}).
		Return(snapshots(map[string]float64{"AAPL": 190, "MSFT": 400}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).Return(&ai.Response{
		Trades: []ai.Recommendation{
			{Action: ai.ActionBuy, Symbol: "AAPL", Quantity: 5, Confidence: 0.9},
			{Action: ai.ActionSell, Symbol: "MSFT", Confidence: 0.8},
		},
	}, nil)
	s.conn.EXPECT().PlaceMarketOrder(gomock.Any(), "MSFT", 10.0, broker.SideSell).
		Return(filled("o2", "MSFT", 10, 400, broker.SideSell), nil)

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerScheduler)

	s.Equal(storage.OutcomeSuccess, out.Status)
	s.Equal(1, out.TradesExecuted)

	run := s.savedRun(out.RunID)
	s.Require().Len(run.Decisions, 2)
	s.Equal("AAPL", run.Decisions[0].Symbol)
	s.Equal("rejected", run.Decisions[0].Decision)
	s.Equal("daily_loss_limit", run.Decisions[0].Reason)
	s.Equal("MSFT", run.Decisions[1].Symbol)
	s.Equal("executed", run.Decisions[1].Decision)
}

func (s *CoordinatorSuite) TestKillSwitchRejectsEverything() {
	_, err := s.coord.SetKillSwitch(context.Background(), true, "manual halt", "test")
	s.Require().NoError(err)
	s.Equal([]bool{true}, s.notifier.kills)

	s.openMarket(account(), []broker.Position{{Symbol: "MSFT", Quantity: 10, CurrentPrice: 400}})
	s.data.EXPECT().Gather(gomock.Any(), gomock.Any()).
		Return(snapshots(map[string]float64{"AAPL": 190, "MSFT": 400}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).Return(&ai.Response{
		Trades: []ai.Recommendation{
			{Action: ai.ActionBuy, Symbol: "AAPL", Quantity: 1, Confidence: 0.9},
			{Action: ai.ActionSell, Symbol: "MSFT", Quantity: 1, Confidence: 0.9},
		},
	}, nil)

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)

	s.Equal(storage.OutcomeNoTrades, out.Status)
	run := s.savedRun(out.RunID)
	for _, d := range run.Decisions {
		s.Equal("kill_switch", d.Reason)
	}
}

func (s *CoordinatorSuite) TestLowConfidenceIsFiltered() {
	s.openMarket(account(), nil)
	s.data.EXPECT().Gather(gomock.Any(), gomock.Any()).Return(snapshots(map[string]float64{"AAPL": 190}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).Return(&ai.Response{
		Trades: []ai.Recommendation{{Action: ai.ActionBuy, Symbol: "AAPL", Quantity: 1, Confidence: 0.5}},
	}, nil)

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)

	s.Equal(storage.OutcomeNoTrades, out.Status)
	run := s.savedRun(out.RunID)
	s.Require().Len(run.Decisions, 1)
	s.Equal("low_confidence", run.Decisions[0].Reason)
}

func (s *CoordinatorSuite) TestNoMarketData() {
	s.openMarket(account(), nil)
	s.data.EXPECT().Gather(gomock.Any(), gomock.Any()).Return(&marketdata.Result{
		Snapshots: map[string]indicators.Snapshot{},
		Errors:    map[string]string{"AAPL": "503", "MSFT": "503"},
	})

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)

	s.Equal(storage.OutcomeNoResponse, out.Status)
	s.Equal("no market data", out.Message)
	s.Len(s.savedRun(out.RunID).DataErrors, 2)
}

func (s *CoordinatorSuite) TestFallsBackToSnapshot() {
	prev := storage.NewPortfolioSnapshot("prev", "mock", *account(),
		[]broker.Position{{Symbol: "NVDA", Quantity: 3, CurrentPrice: 120}})
	s.Require().NoError(s.repo.SavePortfolioSnapshot(context.Background(), prev))

	s.conn.EXPECT().IsMarketOpen(gomock.Any()).Return(true, nil)
	s.conn.EXPECT().GetAccount(gomock.Any()).Return(nil, errors.New("gateway timeout"))
	s.conn.EXPECT().GetPositions(gomock.Any()).Return(nil, errors.New("gateway timeout"))
	s.data.EXPECT().Gather(gomock.Any(), []string{"AAPL", "MSFT", "NVDA"}).
		Return(snapshots(map[string]float64{"AAPL": 190}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, mc *ai.MarketContext) (*ai.Response, error) {
			s.Equal(100000.0, mc.Account.PortfolioValue)
			s.Require().Len(mc.Positions, 1)
			return &ai.Response{}, nil
		})

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)

	s.Equal(storage.OutcomeNoTrades, out.Status)
	s.Equal(coordinator.SourceSnapshot, s.savedRun(out.RunID).AccountSource)
}

func (s *CoordinatorSuite) TestAccountUnavailable() {
	s.conn.EXPECT().IsMarketOpen(gomock.Any()).Return(true, nil)
	s.conn.EXPECT().GetAccount(gomock.Any()).Return(nil, errors.New("down"))
	s.conn.EXPECT().GetPositions(gomock.Any()).Return(nil, errors.New("down"))

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)

	s.Equal(storage.OutcomeNoResponse, out.Status)
	s.Equal("account unavailable", out.Message)
}

func (s *CoordinatorSuite) TestPanicIsRecordedAndLockReleased() {
	s.openMarket(account(), nil)
	s.data.EXPECT().Gather(gomock.Any(), gomock.Any()).Return(snapshots(map[string]float64{"AAPL": 190}))
	s.llm.EXPECT().Recommend(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, mc *ai.MarketContext) (*ai.Response, error) {
			panic("model client exploded")
		})

	out := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)

	s.Equal(storage.OutcomeError, out.Status)
	s.Contains(out.Message, "model client exploded")
	run := s.savedRun(out.RunID)
	s.NotEmpty(run.ErrorDetail)

	s.conn.EXPECT().IsMarketOpen(gomock.Any()).Return(false, nil)
	s.coord.SetClock(func() time.Time { return now.Add(time.Hour) })
	next := s.coord.RunCycle(context.Background(), coordinator.TriggerAPI)
	s.Equal("market closed", next.Message)
}

func (s *CoordinatorSuite) TestRiskStatus() {
	acct := account()
	acct.Equity = 98000
	s.conn.EXPECT().GetAccount(gomock.Any()).Return(acct, nil)
	s.conn.EXPECT().GetPositions(gomock.Any()).Return(nil, nil)

	st, err := s.coord.RiskStatus(context.Background())
	s.Require().NoError(err)
	s.InDelta(2000, st.DailyLoss, 1e-9)
}

func TestRunLogSurvivesCanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mocks.NewMockConnector(ctrl)
	conn.EXPECT().Name().Return("mock").AnyTimes()
	conn.EXPECT().IsMarketOpen(gomock.Any()).Return(false, context.Canceled).AnyTimes()

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "cancel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	repo := storage.NewRepository(db)

	session := broker.NewSession(conn, time.Second, logger.Nop())
	exec := executor.NewExecutor(session, repo, nil, 1, time.Second, logger.Nop())
	coord := coordinator.New(testConfig(), session, mocks.NewMockSource(ctrl), mocks.NewMockRecommender(ctrl),
		exec, repo, nil, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := coord.RunCycle(ctx, coordinator.TriggerCLI)

	assert.Equal(t, storage.OutcomeSkipped, out.Status)
	run, err := repo.GetRun(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.NotNil(t, run)
}
