package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/camuig/autotrader/internal/coordinator"
	"github.com/camuig/autotrader/internal/storage"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// queryInt reads a positive integer query parameter, clamped to max.
func queryInt(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + name)
	}
	if n > max {
		n = max
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": s.config.Mode()})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	out := s.coord.RunCycle(r.Context(), coordinator.TriggerAPI)
	status := http.StatusOK
	if out.Status == storage.OutcomeError {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, out)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLimit, maxLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	runs, err := s.repo.RecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []storage.RunLogEntry{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.repo.GetRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, errors.New("run not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 1, 365)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	counts, err := s.repo.RunSummary(r.Context(), since)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"days": days, "since": since, "outcomes": counts})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLimit, maxLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	trades, err := s.repo.RecentTrades(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if trades == nil {
		trades = []storage.Trade{}
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	book, err := s.coord.Portfolio(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	st, err := s.coord.RiskStatus(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	hours := s.coord.MarketHours(r.Context())
	if hours == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("market hours unavailable"))
		return
	}
	s.writeJSON(w, http.StatusOK, hours)
}

type killSwitchRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

type killSwitchResponse struct {
	Active  bool                      `json:"active"`
	Current *storage.KillSwitchEvent  `json:"current,omitempty"`
	History []storage.KillSwitchEvent `json:"history,omitempty"`
}

func (s *Server) handleKillSwitchStatus(w http.ResponseWriter, r *http.Request) {
	current, err := s.repo.KillSwitch(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	history, err := s.repo.KillSwitchHistory(r.Context(), 20)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, killSwitchResponse{
		Active:  current != nil && current.Active,
		Current: current,
		History: history,
	})
}

func (s *Server) handleKillSwitchOn(w http.ResponseWriter, r *http.Request) {
	s.setKillSwitch(w, r, true)
}

func (s *Server) handleKillSwitchOff(w http.ResponseWriter, r *http.Request) {
	s.setKillSwitch(w, r, false)
}

func (s *Server) setKillSwitch(w http.ResponseWriter, r *http.Request, active bool) {
	var req killSwitchRequest
	if r.Body != nil {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.Actor == "" {
		req.Actor = "api"
	}
	ev, err := s.coord.SetKillSwitch(r.Context(), active, req.Reason, req.Actor)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, killSwitchResponse{Active: ev.Active, Current: ev})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	res, err := s.reconciler.Reconcile(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	status := http.StatusOK
	if res.InProgress {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, res)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.config.Redacted())
}
