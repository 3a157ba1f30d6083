// Package paper is an in-process broker that fills orders against live quotes
// without touching a real account.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/logger"
)

var ErrInsufficientCash = errors.New("insufficient cash")

// Quoter supplies the last traded price used for fills and marks.
type Quoter interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

type holding struct {
	qty  decimal.Decimal
	cost decimal.Decimal // total cost basis
}

type Connector struct {
	quotes   Quoter
	clock    *broker.SessionClock
	slippage decimal.Decimal // fraction
	logger   *logger.Logger
	now      func() time.Time

	mu         sync.Mutex
	connected  bool
	cash       decimal.Decimal
	holdings   map[string]*holding
	orders     map[string]*broker.Order
	dayOpen    decimal.Decimal
	dayOpenKey string
}

func New(cfg config.PaperConfig, quotes Quoter, clock *broker.SessionClock, log *logger.Logger) *Connector {
	return &Connector{
		quotes:   quotes,
		clock:    clock,
		slippage: decimal.NewFromFloat(cfg.SlippageBps).Div(decimal.NewFromInt(10000)),
		logger:   log.Component("paper"),
		now:      time.Now,
		cash:     decimal.NewFromFloat(cfg.StartingCash),
		holdings: make(map[string]*holding),
		orders:   make(map[string]*broker.Order),
	}
}

func (c *Connector) Name() string {
	return "paper"
}

func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *Connector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *Connector) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Connector) checkConnected() error {
	if !c.connected {
		return broker.ErrNotConnected
	}
	return nil
}

// marks fetches prices outside the lock; a failed quote marks at cost.
func (c *Connector) marks(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		price, err := c.quotes.LastPrice(ctx, s)
		if err != nil || price <= 0 {
			c.logger.Warn("mark price unavailable", "symbol", s, "error", err)
			continue
		}
		out[s] = decimal.NewFromFloat(price)
	}
	return out
}

func (c *Connector) heldSymbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	symbols := make([]string, 0, len(c.holdings))
	for s := range c.holdings {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (c *Connector) GetAccount(ctx context.Context) (*broker.Account, error) {
	if !c.IsConnected() {
		return nil, broker.ErrNotConnected
	}
	marks := c.marks(ctx, c.heldSymbols())

	c.mu.Lock()
	defer c.mu.Unlock()

	equity := c.cash
	for s, h := range c.holdings {
		if px, ok := marks[s]; ok {
			equity = equity.Add(h.qty.Mul(px))
		} else {
			equity = equity.Add(h.cost)
		}
	}

	day := c.now().In(c.clockLocation()).Format(time.DateOnly)
	if c.dayOpenKey != day {
		c.dayOpenKey = day
		c.dayOpen = equity
	}

	return &broker.Account{
		ID:             "paper",
		Currency:       "USD",
		Cash:           c.cash.InexactFloat64(),
		BuyingPower:    c.cash.InexactFloat64(),
		PortfolioValue: equity.InexactFloat64(),
		Equity:         equity.InexactFloat64(),
		LastEquity:     c.dayOpen.InexactFloat64(),
	}, nil
}

func (c *Connector) clockLocation() *time.Location {
	if c.clock == nil {
		return time.UTC
	}
	return c.clock.Location()
}

func (c *Connector) GetPositions(ctx context.Context) ([]broker.Position, error) {
	if !c.IsConnected() {
		return nil, broker.ErrNotConnected
	}
	symbols := c.heldSymbols()
	marks := c.marks(ctx, symbols)

	c.mu.Lock()
	defer c.mu.Unlock()

	positions := make([]broker.Position, 0, len(symbols))
	for _, s := range symbols {
		h, ok := c.holdings[s]
		if !ok {
			continue
		}
		avg := h.cost.Div(h.qty)
		px, ok := marks[s]
		if !ok {
			px = avg
		}
		value := h.qty.Mul(px)
		pl := value.Sub(h.cost)
		p := broker.Position{
			Symbol:        s,
			Quantity:      h.qty.InexactFloat64(),
			AvgEntryPrice: avg.InexactFloat64(),
			CurrentPrice:  px.InexactFloat64(),
			MarketValue:   value.InexactFloat64(),
			UnrealizedPL:  pl.InexactFloat64(),
		}
		if h.cost.IsPositive() {
			p.UnrealizedPLPct = pl.Div(h.cost).InexactFloat64()
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func (c *Connector) PlaceMarketOrder(ctx context.Context, symbol string, qty float64, side broker.Side) (*broker.Order, error) {
	return c.place(ctx, symbol, qty, side, broker.OrderTypeMarket, 0)
}

func (c *Connector) PlaceLimitOrder(ctx context.Context, symbol string, qty float64, side broker.Side, limitPrice float64) (*broker.Order, error) {
	if limitPrice <= 0 {
		return nil, fmt.Errorf("limit price must be positive, got %.4f", limitPrice)
	}
	return c.place(ctx, symbol, qty, side, broker.OrderTypeLimit, limitPrice)
}

func (c *Connector) place(ctx context.Context, symbol string, qty float64, side broker.Side, typ broker.OrderType, limit float64) (*broker.Order, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%s: quantity must be positive", symbol)
	}
	if !c.IsConnected() {
		return nil, broker.ErrNotConnected
	}

	last, err := c.quotes.LastPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if last <= 0 {
		return nil, fmt.Errorf("quote %s: no price", symbol)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkConnected(); err != nil {
		return nil, err
	}

	order := &broker.Order{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Type:       typ,
		Quantity:   qty,
		LimitPrice: limit,
		Status:     broker.StatusSubmitted,
		CreatedAt:  c.now(),
	}

	if err := c.tryFill(order, decimal.NewFromFloat(last)); err != nil {
		return nil, err
	}
	c.orders[order.ID] = order

	c.logger.Info("paper order", "id", order.ID, "symbol", symbol, "side", side,
		"qty", qty, "status", order.Status, "price", order.FilledPrice)
	out := *order
	return &out, nil
}

// tryFill fills a market order at last adjusted by slippage, and a limit order
// only when the adjusted price is at or better than the limit. Caller holds mu.
func (c *Connector) tryFill(order *broker.Order, last decimal.Decimal) error {
	one := decimal.NewFromInt(1)
	price := last.Mul(one.Add(c.slippage))
	if order.Side == broker.SideSell {
		price = last.Mul(one.Sub(c.slippage))
	}

	if order.Type == broker.OrderTypeLimit {
		limit := decimal.NewFromFloat(order.LimitPrice)
		if order.Side == broker.SideBuy && price.GreaterThan(limit) {
			return nil
		}
		if order.Side == broker.SideSell && price.LessThan(limit) {
			return nil
		}
	}

	qty := decimal.NewFromFloat(order.Quantity)
	notional := qty.Mul(price)

	switch order.Side {
	case broker.SideBuy:
		if notional.GreaterThan(c.cash) {
			return fmt.Errorf("%w: need %s, have %s", ErrInsufficientCash,
				notional.StringFixed(2), c.cash.StringFixed(2))
		}
		c.cash = c.cash.Sub(notional)
		h, ok := c.holdings[order.Symbol]
		if !ok {
			h = &holding{}
			c.holdings[order.Symbol] = h
		}
		h.qty = h.qty.Add(qty)
		h.cost = h.cost.Add(notional)

	case broker.SideSell:
		h, ok := c.holdings[order.Symbol]
		if !ok || h.qty.LessThan(qty) {
			return fmt.Errorf("%s: cannot sell %s, holding %s", order.Symbol, qty.String(), heldQty(h))
		}
		avg := h.cost.Div(h.qty)
		h.qty = h.qty.Sub(qty)
		h.cost = h.cost.Sub(avg.Mul(qty))
		if h.qty.IsZero() {
			delete(c.holdings, order.Symbol)
		}
		c.cash = c.cash.Add(notional)
	}

	order.Status = broker.StatusFilled
	order.FilledQty = order.Quantity
	order.FilledPrice = price.InexactFloat64()
	return nil
}

func heldQty(h *holding) string {
	if h == nil {
		return "0"
	}
	return h.qty.String()
}

// GetOrder re-checks resting limit orders against the current quote.
func (c *Connector) GetOrder(ctx context.Context, id string) (*broker.Order, error) {
	if !c.IsConnected() {
		return nil, broker.ErrNotConnected
	}

	c.mu.Lock()
	order, ok := c.orders[id]
	var pending bool
	var symbol string
	if ok {
		pending = !order.Status.Terminal()
		symbol = order.Symbol
	}
	c.mu.Unlock()
	if !ok {
		return nil, broker.ErrOrderNotFound
	}

	var last float64
	if pending {
		if px, err := c.quotes.LastPrice(ctx, symbol); err == nil && px > 0 {
			last = px
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if last > 0 && !order.Status.Terminal() {
		if err := c.tryFill(order, decimal.NewFromFloat(last)); err != nil {
			order.Status = broker.StatusRejected
			c.logger.Warn("resting order rejected", "id", id, "error", err)
		}
	}
	out := *order
	return &out, nil
}

func (c *Connector) CancelOrder(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkConnected(); err != nil {
		return err
	}

	order, ok := c.orders[id]
	if !ok {
		return broker.ErrOrderNotFound
	}
	if order.Status.Terminal() {
		return fmt.Errorf("order %s already %s", id, order.Status)
	}
	order.Status = broker.StatusCanceled
	return nil
}

func (c *Connector) IsMarketOpen(ctx context.Context) (bool, error) {
	return c.clock.IsOpen(c.now()), nil
}

func (c *Connector) MarketHours(ctx context.Context) (*broker.MarketHours, error) {
	hours := c.clock.Hours(c.now())
	return &hours, nil
}
