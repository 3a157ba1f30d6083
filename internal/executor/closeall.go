package executor

import (
	"context"
	"math"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/risk"
	"github.com/camuig/autotrader/internal/storage"
)

// CloseAll flattens every position with market orders. Trades are recorded
// under storage.ManualRunID. With dryRun the proposals are returned unplaced.
func (e *Executor) CloseAll(ctx context.Context, dryRun bool) ([]Result, error) {
	positions, ok := e.session.Positions(ctx)
	if !ok {
		return nil, broker.ErrConnection
	}

	var proposals []risk.Proposal
	for _, p := range positions {
		qty := math.Abs(p.Quantity)
		if qty == 0 {
			continue
		}
		side := broker.SideSell
		if p.Quantity < 0 {
			side = broker.SideBuy
		}
		proposals = append(proposals, risk.Proposal{
			Symbol:    p.Symbol,
			Side:      side,
			Quantity:  qty,
			OrderType: broker.OrderTypeMarket,
			Price:     p.CurrentPrice,
			Rationale: "close all",
		})
	}

	if dryRun {
		results := make([]Result, len(proposals))
		for i, p := range proposals {
			results[i] = Result{Proposal: p}
		}
		return results, nil
	}

	return e.Execute(ctx, storage.ManualRunID, proposals), nil
}
