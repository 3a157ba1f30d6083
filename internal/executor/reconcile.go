package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/camuig/autotrader/internal/id"
)

const reconcileLeaseTTL = 10 * time.Minute

type ReconcileResult struct {
	Checked   int `json:"checked"`
	Updated   int `json:"updated"`
	Protected int `json:"protected"`
	Failed    int `json:"failed"`
	// InProgress is set when another reconcile held the lock; nothing was checked.
	InProgress bool `json:"in_progress,omitempty"`
}

// Reconcile polls the broker for every trade still open at the broker and
// records status and fill changes. Buys that filled since placement get their
// exit orders here. Only one reconcile runs at a time per broker account,
// across processes sharing the database.
func (e *Executor) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	if !e.reconcileMu.TryLock() {
		res.InProgress = true
		return res, nil
	}
	defer e.reconcileMu.Unlock()

	lease := "reconcile:" + e.session.Name()
	ok, err := e.repo.AcquireLease(ctx, lease, id.Holder(), time.Now(), reconcileLeaseTTL)
	if err != nil {
		return res, fmt.Errorf("acquire reconcile lease: %w", err)
	}
	if !ok {
		res.InProgress = true
		return res, nil
	}
	defer func() {
		if err := e.repo.ReleaseLease(context.WithoutCancel(ctx), lease, id.Holder()); err != nil {
			e.logger.Error("release reconcile lease", "error", err)
		}
	}()

	trades, err := e.repo.PendingTrades(ctx)
	if err != nil {
		return res, fmt.Errorf("load pending trades: %w", err)
	}

	for i := range trades {
		t := &trades[i]
		res.Checked++

		orderCtx, cancel := context.WithTimeout(ctx, e.orderTimeout)
		order := e.session.Order(orderCtx, t.OrderID)
		if order == nil {
			cancel()
			res.Failed++
			continue
		}

		if string(order.Status) == t.Status && order.FilledQty == t.FilledQty && order.FilledPrice == t.FilledPrice {
			cancel()
			continue
		}

		t.ApplyOrder(order)
		hadExits := t.StopLossOrderID != "" || t.TakeProfitOrderID != ""
		e.protect(orderCtx, t)
		cancel()
		if !hadExits && (t.StopLossOrderID != "" || t.TakeProfitOrderID != "") {
			res.Protected++
		}

		if err := e.repo.UpdateTrade(ctx, t); err != nil {
			e.logger.Error("update trade", "order_id", t.OrderID, "error", err)
			res.Failed++
			continue
		}
		res.Updated++
		e.logger.Info("trade reconciled", "order_id", t.OrderID, "symbol", t.Symbol,
			"status", t.Status, "filled_qty", t.FilledQty, "filled_price", t.FilledPrice)
		if order.Status.Terminal() {
			e.notifier.NotifyOrder(t)
		}
	}

	if res.Checked > 0 {
		e.logger.Info("reconcile finished", "checked", res.Checked, "updated", res.Updated,
			"protected", res.Protected, "failed", res.Failed)
	}
	return res, nil
}
