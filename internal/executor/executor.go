package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/risk"
	"github.com/camuig/autotrader/internal/storage"
)

// Notifier receives order events.
type Notifier interface {
	NotifyOrder(t *storage.Trade)
	NotifyError(context string, err error)
}

type nopNotifier struct{}

func (nopNotifier) NotifyOrder(*storage.Trade) {}
func (nopNotifier) NotifyError(string, error) {}

// Result is the fate of one approved proposal.
type Result struct {
	Proposal risk.Proposal
	Trade    *storage.Trade
	Err      error
}

type Executor struct {
	session      *broker.Session
	repo         *storage.Repository
	notifier     Notifier
	concurrency  int
	orderTimeout time.Duration
	logger       *logger.Logger

	reconcileMu sync.Mutex
}

func NewExecutor(
	session *broker.Session,
	repo *storage.Repository,
	notifier Notifier,
	concurrency int,
	orderTimeout time.Duration,
	log *logger.Logger,
) *Executor {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if orderTimeout <= 0 {
		orderTimeout = 20 * time.Second
	}
	return &Executor{
		session:      session,
		repo:         repo,
		notifier:     notifier,
		concurrency:  concurrency,
		orderTimeout: orderTimeout,
		logger:       log.Component("executor"),
	}
}

// Execute places the approved proposals concurrently and returns once every
// order finished. Results keep the order of proposals; one failure never
// stops the others.
func (e *Executor) Execute(ctx context.Context, runID string, proposals []risk.Proposal) []Result {
	results := make([]Result, len(proposals))

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.concurrency)
	)
	for i, p := range proposals {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, p risk.Proposal) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("panic placing order", "symbol", p.Symbol, "panic", fmt.Sprint(r),
						"stack", string(debug.Stack()))
					results[i] = Result{Proposal: p, Err: fmt.Errorf("panic placing order: %v", r)}
				}
			}()

			trade, err := e.place(ctx, runID, p)
			results[i] = Result{Proposal: p, Trade: trade, Err: err}
		}(i, p)
	}
	wg.Wait()

	return results
}

func (e *Executor) place(ctx context.Context, runID string, p risk.Proposal) (*storage.Trade, error) {
	orderCtx, cancel := context.WithTimeout(ctx, e.orderTimeout)
	defer cancel()

	var (
		order *broker.Order
		err   error
	)
	switch p.OrderType {
	case broker.OrderTypeLimit:
		order, err = e.session.PlaceLimitOrder(orderCtx, p.Symbol, p.Quantity, p.Side, p.LimitPrice)
	default:
		order, err = e.session.PlaceMarketOrder(orderCtx, p.Symbol, p.Quantity, p.Side)
	}
	if err != nil {
		e.notifier.NotifyError(fmt.Sprintf("%s %s", p.Side, p.Symbol), err)
		return nil, err
	}
	if order == nil {
		return nil, errors.New("broker returned no order")
	}

	trade := &storage.Trade{
		RunID:           runID,
		Broker:          e.session.Name(),
		Symbol:          p.Symbol,
		Side:            string(p.Side),
		OrderType:       string(p.OrderType),
		Quantity:        p.Quantity,
		LimitPrice:      p.LimitPrice,
		Price:           p.Price,
		StopLossPrice:   p.StopLoss,
		TakeProfitPrice: p.TakeProfit,
		Confidence:      p.Confidence,
		Rationale:       p.Rationale,
	}
	trade.ApplyOrder(order)

	if trade.Status == string(broker.StatusRejected) {
		err = fmt.Errorf("order %s rejected by broker", order.ID)
	} else {
		e.protect(orderCtx, trade)
	}

	if serr := e.repo.SaveTrade(ctx, trade); serr != nil {
		e.logger.Error("save trade", "symbol", p.Symbol, "order_id", trade.OrderID, "error", serr)
	}

	e.logger.Info("order placed",
		"run_id", runID, "symbol", p.Symbol, "side", p.Side, "qty", p.Quantity,
		"type", p.OrderType, "order_id", trade.OrderID, "status", trade.Status)
	e.notifier.NotifyOrder(trade)
	return trade, err
}

// protect attaches exit orders to a filled buy. Unfilled orders are
// protected later by Reconcile.
func (e *Executor) protect(ctx context.Context, t *storage.Trade) {
	if t.Side != string(broker.SideBuy) || t.Status != string(broker.StatusFilled) {
		return
	}
	if t.StopLossOrderID != "" || t.TakeProfitOrderID != "" {
		return
	}
	if t.StopLossPrice <= 0 && t.TakeProfitPrice <= 0 {
		return
	}

	qty := t.FilledQty
	if qty <= 0 {
		qty = t.Quantity
	}
	orders, err := e.session.Protect(ctx, broker.Protection{
		Symbol:     t.Symbol,
		Quantity:   qty,
		Side:       broker.SideSell,
		StopLoss:   t.StopLossPrice,
		TakeProfit: t.TakeProfitPrice,
	})
	if errors.Is(err, broker.ErrUnsupported) {
		e.logger.Debug("exit orders not supported", "symbol", t.Symbol)
		return
	}
	if err != nil {
		e.notifier.NotifyError("protect "+t.Symbol, err)
		return
	}
	t.StopLossOrderID = orders.StopLossID
	t.TakeProfitOrderID = orders.TakeProfitID
}
