package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/coordinator"
	"github.com/camuig/autotrader/internal/executor"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/risk"
	"github.com/camuig/autotrader/internal/storage"
)

type fakeCoordinator struct {
	repo     *storage.Repository
	outcome  coordinator.Outcome
	triggers []coordinator.Trigger
	bookErr  error
}

func (f *fakeCoordinator) RunCycle(ctx context.Context, trigger coordinator.Trigger) coordinator.Outcome {
	f.triggers = append(f.triggers, trigger)
	return f.outcome
}

func (f *fakeCoordinator) Portfolio(ctx context.Context) (*coordinator.Book, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &coordinator.Book{
		Account:   broker.Account{PortfolioValue: 100000},
		Positions: []broker.Position{{Symbol: "AAPL", Quantity: 10}},
		Source:    coordinator.SourceBroker,
	}, nil
}

func (f *fakeCoordinator) RiskStatus(ctx context.Context) (*risk.Status, error) {
	return &risk.Status{Level: risk.LevelLow, MaxDailyTrades: 20}, nil
}

func (f *fakeCoordinator) MarketHours(ctx context.Context) *broker.MarketHours {
	return nil
}

func (f *fakeCoordinator) SetKillSwitch(ctx context.Context, active bool, reason, actor string) (*storage.KillSwitchEvent, error) {
	return f.repo.SetKillSwitch(ctx, active, reason, actor)
}

type fakeReconciler struct {
	busy bool
}

func (f fakeReconciler) Reconcile(ctx context.Context) (executor.ReconcileResult, error) {
	if f.busy {
		return executor.ReconcileResult{InProgress: true}, nil
	}
	return executor.ReconcileResult{Checked: 2, Updated: 1}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeCoordinator) {
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	repo := storage.NewRepository(db)

	cfg := &config.Config{
		Broker: config.BrokerConfig{Type: "paper"},
		LLM:    config.LLMConfig{APIKey: "sk-live-123"},
		Web:    config.WebConfig{Port: 8080},
	}
	coord := &fakeCoordinator{repo: repo, outcome: coordinator.Outcome{RunID: "r1", Status: storage.OutcomeSuccess, TradesExecuted: 1}}
	return NewServer(coord, fakeReconciler{}, repo, cfg, logger.Nop()), coord
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyze(t *testing.T) {
	s, coord := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodPost, "/api/analyze", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out coordinator.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, 1, out.TradesExecuted)
	assert.Equal(t, []coordinator.Trigger{coordinator.TriggerAPI}, coord.triggers)

	coord.outcome = coordinator.Outcome{Status: storage.OutcomeError, Message: "panic: boom"}
	rec = do(t, s.Handler(), http.MethodPost, "/api/analyze", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	coord.outcome = coordinator.Outcome{Status: storage.OutcomeSkipped, Message: "run in progress"}
	rec = do(t, s.Handler(), http.MethodPost, "/api/analyze", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeRequiresPost(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/analyze", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "not allowed")

	rec = do(t, h, http.MethodPut, "/api/killswitch", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReconcileInProgressConflicts(t *testing.T) {
	s, _ := newTestServer(t)
	s.reconciler = fakeReconciler{busy: true}

	rec := do(t, s.Handler(), http.MethodPost, "/api/orders/reconcile", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"in_progress":true`)
}

func TestRunsAndSummary(t *testing.T) {
	s, _ := newTestServer(t)
	s.now = func() time.Time { return time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	for i, outcome := range []string{storage.OutcomeSuccess, storage.OutcomeSkipped, storage.OutcomeSkipped} {
		require.NoError(t, s.repo.SaveRun(ctx, &storage.RunLogEntry{
			ID:        "run" + string(rune('a'+i)),
			StartedAt: time.Date(2026, 3, 3, 14, i, 0, 0, time.UTC),
			Trigger:   "api",
			Outcome:   outcome,
		}))
	}

	rec := do(t, s.Handler(), http.MethodGet, "/api/runs?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []storage.RunLogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "runc", runs[0].ID)

	rec = do(t, s.Handler(), http.MethodGet, "/api/runs/summary?days=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		Outcomes map[string]int64 `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(2), summary.Outcomes[storage.OutcomeSkipped])
	assert.Equal(t, int64(1), summary.Outcomes[storage.OutcomeSuccess])

	rec = do(t, s.Handler(), http.MethodGet, "/api/runs/runa", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s.Handler(), http.MethodGet, "/api/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s.Handler(), http.MethodGet, "/api/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradesEmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/trades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestKillSwitchLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/killswitch", `{"reason":"drawdown"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/killswitch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st killSwitchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Active)
	require.NotNil(t, st.Current)
	assert.Equal(t, "drawdown", st.Current.Reason)
	assert.Equal(t, "api", st.Current.Actor)

	rec = do(t, h, http.MethodDelete, "/api/killswitch", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/killswitch", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Active)
	assert.Len(t, st.History, 2)

	rec = do(t, h, http.MethodPost, "/api/killswitch", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolioRiskMarket(t *testing.T) {
	s, coord := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"broker"`)

	coord.bookErr = errors.New("no account from broker and no snapshot")
	rec = do(t, h, http.MethodGet, "/api/portfolio", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/risk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"level":"LOW"`)

	rec = do(t, h, http.MethodGet, "/api/market", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReconcileConfigHealth(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/orders/reconcile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"checked":2,"updated":1,"protected":0,"failed":0}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-live-123")

	rec = do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SANDBOX")
}
