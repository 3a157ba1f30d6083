package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/camuig/autotrader/internal/logger"
)

// Session owns the active connector for the process. Every call is bounded by
// a timeout, recovers connector panics, and retries once after a reconnect
// when the connection dropped. Order placements are retried only when the
// connector refused them before sending.
type Session struct {
	conn    Connector
	timeout time.Duration
	logger  *logger.Logger

	connectMu sync.Mutex
}

func NewSession(conn Connector, timeout time.Duration, log *logger.Logger) *Session {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Session{
		conn:    conn,
		timeout: timeout,
		logger:  log.Component("broker").With("broker", conn.Name()),
	}
}

func (s *Session) Name() string {
	return s.conn.Name()
}

// Connect is idempotent: an already connected session returns true immediately.
func (s *Session) Connect(ctx context.Context) bool {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if s.conn.IsConnected() {
		return true
	}
	if _, err := attempt(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.conn.Connect(ctx)
	}); err != nil {
		s.logger.Error("broker connect failed", "error", err)
		return false
	}
	s.logger.Info("broker connected")
	return true
}

func (s *Session) Disconnect() {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if err := s.conn.Disconnect(); err != nil {
		s.logger.Error("broker disconnect", "error", err)
	}
}

func (s *Session) reconnect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	_ = s.conn.Disconnect()
	_, err := attempt(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.conn.Connect(ctx)
	})
	return err
}

// Account returns nil when the broker cannot be reached.
func (s *Session) Account(ctx context.Context) *Account {
	acct, err := call(s, ctx, "get account", s.conn.GetAccount)
	if err != nil {
		s.logger.Error("get account", "error", err)
		return nil
	}
	return acct
}

// Positions reports ok=false when the broker cannot be reached.
func (s *Session) Positions(ctx context.Context) ([]Position, bool) {
	positions, err := call(s, ctx, "get positions", s.conn.GetPositions)
	if err != nil {
		s.logger.Error("get positions", "error", err)
		return nil, false
	}
	return positions, true
}

func (s *Session) PlaceMarketOrder(ctx context.Context, symbol string, qty float64, side Side) (*Order, error) {
	order, err := place(s, ctx, "place market order", func(ctx context.Context) (*Order, error) {
		return s.conn.PlaceMarketOrder(ctx, symbol, qty, side)
	})
	if err != nil {
		s.logger.Error("place market order", "symbol", symbol, "side", side, "qty", qty, "error", err)
		return nil, err
	}
	return order, nil
}

func (s *Session) PlaceLimitOrder(ctx context.Context, symbol string, qty float64, side Side, limitPrice float64) (*Order, error) {
	order, err := place(s, ctx, "place limit order", func(ctx context.Context) (*Order, error) {
		return s.conn.PlaceLimitOrder(ctx, symbol, qty, side, limitPrice)
	})
	if err != nil {
		s.logger.Error("place limit order",
			"symbol", symbol, "side", side, "qty", qty, "limit", limitPrice, "error", err)
		return nil, err
	}
	return order, nil
}

func (s *Session) Order(ctx context.Context, id string) *Order {
	order, err := call(s, ctx, "get order", func(ctx context.Context) (*Order, error) {
		return s.conn.GetOrder(ctx, id)
	})
	if err != nil {
		s.logger.Error("get order", "order_id", id, "error", err)
		return nil
	}
	return order
}

func (s *Session) Cancel(ctx context.Context, id string) bool {
	_, err := call(s, ctx, "cancel order", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.conn.CancelOrder(ctx, id)
	})
	if err != nil {
		s.logger.Error("cancel order", "order_id", id, "error", err)
		return false
	}
	return true
}

// Protect returns ErrUnsupported when the connector cannot place exit orders.
func (s *Session) Protect(ctx context.Context, p Protection) (*ProtectionOrders, error) {
	protector, ok := s.conn.(Protector)
	if !ok {
		return nil, ErrUnsupported
	}
	orders, err := place(s, ctx, "place protection", func(ctx context.Context) (*ProtectionOrders, error) {
		return protector.PlaceProtection(ctx, p)
	})
	if err != nil {
		s.logger.Error("place protection", "symbol", p.Symbol, "stop_loss", p.StopLoss,
			"take_profit", p.TakeProfit, "error", err)
		return nil, err
	}
	return orders, nil
}

// IsMarketOpen treats an unreachable broker as a closed market.
func (s *Session) IsMarketOpen(ctx context.Context) bool {
	open, err := call(s, ctx, "market open", s.conn.IsMarketOpen)
	if err != nil {
		s.logger.Error("is market open", "error", err)
		return false
	}
	return open
}

func (s *Session) MarketHours(ctx context.Context) *MarketHours {
	hours, err := call(s, ctx, "market hours", s.conn.MarketHours)
	if err != nil {
		s.logger.Error("market hours", "error", err)
		return nil
	}
	return hours
}

func call[T any](s *Session, ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	return retry(s, ctx, op, IsConnectionError, fn)
}

// place never resends after a transport error: the broker may already hold
// the first order.
func place[T any](s *Session, ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	return retry(s, ctx, op, notSent, fn)
}

func notSent(err error) bool {
	return errors.Is(err, ErrNotConnected) && !errors.Is(err, ErrConnection)
}

func retry[T any](s *Session, ctx context.Context, op string, replay func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	res, err := attempt(ctx, s.timeout, fn)
	if err == nil || !IsConnectionError(err) {
		return res, err
	}

	s.logger.Warn("broker connection lost, reconnecting", "op", op, "error", err)
	rerr := s.reconnect(ctx)
	if !replay(err) {
		if rerr != nil {
			s.logger.Error("broker reconnect failed", "op", op, "error", rerr)
		}
		return res, err
	}
	if rerr != nil {
		var zero T
		return zero, fmt.Errorf("%s: reconnect failed: %w", op, rerr)
	}
	return attempt(ctx, s.timeout, fn)
}

// attempt runs fn under a hard deadline. A connector that ignores its context
// is abandoned when the deadline passes; its goroutine finishes on its own.
func attempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("broker panic: %v", p)
			}
			done <- r
		}()
		r.val, r.err = fn(ctx)
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("broker call: %w", ctx.Err())
	}
}
