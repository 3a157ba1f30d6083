package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/camuig/autotrader/internal/ai"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/marketdata"
	"github.com/camuig/autotrader/internal/risk"
	"github.com/camuig/autotrader/internal/storage"
)

// Decision labels on the run log.
const (
	decisionFiltered = "filtered"
	decisionRejected = "rejected"
	decisionExecuted = "executed"
	decisionFailed   = "failed"
)

func (c *Coordinator) decide(ctx context.Context, run *storage.RunLogEntry, resp *ai.Response,
	data *marketdata.Result, book *Book, state risk.State, log *logger.Logger) {
	var decisions []storage.Decision

	minConf := c.cfg.Trading.MinConfidence
	for _, t := range resp.Trades {
		switch {
		case t.Action == ai.ActionHold:
			decisions = append(decisions, recDecision(t, decisionFiltered, "hold"))
		case t.Confidence < minConf:
			decisions = append(decisions, recDecision(t, decisionFiltered, "low_confidence"))
		}
	}

	actionable := resp.Actionable(minConf)
	if len(actionable) == 0 {
		run.Decisions = decisions
		setOutcome(run, storage.OutcomeNoTrades, "no actionable recommendations")
		return
	}

	prices := make(map[string]float64, len(data.Snapshots))
	for sym, snap := range data.Snapshots {
		prices[sym] = snap.Price
	}

	proposals, unsized := risk.Size(actionable, prices, book.Account, book.Positions, c.limits())
	res := risk.Evaluate(proposals, book.Positions, book.Account, state, c.limits())

	for _, r := range append(unsized, res.Rejected...) {
		log.Info("recommendation rejected", "symbol", r.Proposal.Symbol, "side", r.Proposal.Side, "reason", r.Reason)
		decisions = append(decisions, proposalDecision(r.Proposal, decisionRejected, string(r.Reason)))
	}
	run.Approved = len(res.Approved)
	if len(res.Approved) == 0 {
		run.Decisions = decisions
		setOutcome(run, storage.OutcomeNoTrades, "all recommendations rejected")
		return
	}

	results := c.exec.Execute(ctx, run.ID, res.Approved)
	var failed int
	for _, r := range results {
		d := proposalDecision(r.Proposal, decisionExecuted, "")
		if r.Trade != nil {
			d.OrderID = r.Trade.OrderID
		}
		if r.Err != nil {
			d.Decision = decisionFailed
			d.Error = r.Err.Error()
			failed++
		} else {
			run.Executed++
		}
		decisions = append(decisions, d)
	}
	run.Decisions = decisions

	if run.Executed == 0 {
		setOutcome(run, storage.OutcomeNoTrades, fmt.Sprintf("all %d orders failed", failed))
		return
	}
	msg := fmt.Sprintf("%d orders placed", run.Executed)
	if failed > 0 {
		msg += fmt.Sprintf(", %d failed", failed)
	}
	setOutcome(run, storage.OutcomeSuccess, msg)
}

func recDecision(t ai.Recommendation, decision, reason string) storage.Decision {
	return storage.Decision{
		Symbol:     t.Symbol,
		Action:     string(t.Action),
		Confidence: t.Confidence,
		Decision:   decision,
		Reason:     reason,
	}
}

func proposalDecision(p risk.Proposal, decision, reason string) storage.Decision {
	return storage.Decision{
		Symbol:     p.Symbol,
		Action:     strings.ToUpper(string(p.Side)),
		Confidence: p.Confidence,
		Decision:   decision,
		Reason:     reason,
	}
}
