package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/coordinator"
	"github.com/camuig/autotrader/internal/executor"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/risk"
	"github.com/camuig/autotrader/internal/storage"
)

// Coordinator is what the API needs from the run loop.
type Coordinator interface {
	RunCycle(ctx context.Context, trigger coordinator.Trigger) coordinator.Outcome
	Portfolio(ctx context.Context) (*coordinator.Book, error)
	RiskStatus(ctx context.Context) (*risk.Status, error)
	MarketHours(ctx context.Context) *broker.MarketHours
	SetKillSwitch(ctx context.Context, active bool, reason, actor string) (*storage.KillSwitchEvent, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context) (executor.ReconcileResult, error)
}

type Server struct {
	httpServer *http.Server
	coord      Coordinator
	reconciler Reconciler
	repo       *storage.Repository
	config     *config.Config
	logger     *logger.Logger
	now        func() time.Time
}

func NewServer(coord Coordinator, reconciler Reconciler, repo *storage.Repository, cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		coord:      coord,
		reconciler: reconciler,
		repo:       repo,
		config:     cfg,
		logger:     log.Component("web"),
		now:        time.Now,
	}

	// analyze blocks for a whole run, which may include several model retries
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/analyze", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/api/runs", s.handleRuns).Methods(http.MethodGet)
	r.HandleFunc("/api/runs/summary", s.handleRunSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/runs/{id}", s.handleRun).Methods(http.MethodGet)
	r.HandleFunc("/api/trades", s.handleTrades).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolio", s.handlePortfolio).Methods(http.MethodGet)
	r.HandleFunc("/api/risk", s.handleRisk).Methods(http.MethodGet)
	r.HandleFunc("/api/market", s.handleMarket).Methods(http.MethodGet)
	r.HandleFunc("/api/killswitch", s.handleKillSwitchStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/killswitch", s.handleKillSwitchOn).Methods(http.MethodPost)
	r.HandleFunc("/api/killswitch", s.handleKillSwitchOff).Methods(http.MethodDelete)
	r.HandleFunc("/api/orders/reconcile", s.handleReconcile).Methods(http.MethodPost)
	r.HandleFunc("/api/config", s.handleConfig).Methods(http.MethodGet)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
