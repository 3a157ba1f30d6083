// Package broker defines the brokerage capability interface shared by every
// connector and the Session that applies the failure policy around it.
package broker

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConnected is returned by connectors before Connect succeeded or after the link dropped.
	ErrNotConnected = errors.New("broker not connected")
	// ErrConnection marks transport failures that justify a reconnect.
	ErrConnection = errors.New("broker connection error")
	// ErrUnsupported is returned for operations a venue does not offer.
	ErrUnsupported = errors.New("operation not supported by broker")
	// ErrOrderNotFound is returned by GetOrder and CancelOrder for unknown ids.
	ErrOrderNotFound = errors.New("order not found")
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

type OrderStatus string

const (
	StatusSubmitted       OrderStatus = "submitted"
	StatusFilled          OrderStatus = "filled"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusRejected        OrderStatus = "rejected"
	StatusCanceled        OrderStatus = "canceled"
)

// Terminal reports whether the order can no longer change.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusRejected, StatusCanceled:
		return true
	}
	return false
}

type Account struct {
	ID             string  `json:"id"`
	Currency       string  `json:"currency"`
	Cash           float64 `json:"cash"`
	BuyingPower    float64 `json:"buying_power"`
	PortfolioValue float64 `json:"portfolio_value"`
	Equity         float64 `json:"equity"`
	LastEquity     float64 `json:"last_equity"`
}

// DayChange is equity movement since the previous session close.
func (a Account) DayChange() float64 {
	if a.LastEquity == 0 {
		return 0
	}
	return a.Equity - a.LastEquity
}

type Position struct {
	Symbol          string  `json:"symbol"`
	Quantity        float64 `json:"quantity"`
	AvgEntryPrice   float64 `json:"avg_entry_price"`
	CurrentPrice    float64 `json:"current_price"`
	MarketValue     float64 `json:"market_value"`
	UnrealizedPL    float64 `json:"unrealized_pl"`
	UnrealizedPLPct float64 `json:"unrealized_plpc"`
}

type Order struct {
	ID          string      `json:"id"`
	ClientID    string      `json:"client_id,omitempty"`
	Symbol      string      `json:"symbol"`
	Side        Side        `json:"side"`
	Type        OrderType   `json:"type"`
	Quantity    float64     `json:"quantity"`
	LimitPrice  float64     `json:"limit_price,omitempty"`
	Status      OrderStatus `json:"status"`
	FilledQty   float64     `json:"filled_qty"`
	FilledPrice float64     `json:"filled_price"`
	CreatedAt   time.Time   `json:"created_at"`
}

type MarketHours struct {
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

// Connector is implemented once per brokerage. Implementations return errors;
// Session turns them into the nil/false results the run loop consumes.
type Connector interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	GetAccount(ctx context.Context) (*Account, error)
	GetPositions(ctx context.Context) ([]Position, error)

	PlaceMarketOrder(ctx context.Context, symbol string, qty float64, side Side) (*Order, error)
	PlaceLimitOrder(ctx context.Context, symbol string, qty float64, side Side, limitPrice float64) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	CancelOrder(ctx context.Context, id string) error

	IsMarketOpen(ctx context.Context) (bool, error)
	MarketHours(ctx context.Context) (*MarketHours, error)
}

// Protection describes the exit orders attached after an entry. Side is the
// side of the exits, opposite to the entry.
type Protection struct {
	Symbol     string
	Quantity   float64
	Side       Side
	StopLoss   float64
	TakeProfit float64
}

type ProtectionOrders struct {
	StopLossID   string `json:"stop_loss_id,omitempty"`
	TakeProfitID string `json:"take_profit_id,omitempty"`
}

// Protector is implemented by connectors that can place resting stop-loss and
// take-profit orders.
type Protector interface {
	PlaceProtection(ctx context.Context, p Protection) (*ProtectionOrders, error)
}

// IsConnectionError reports whether err should trigger a reconnect.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnection)
}

// PositionMap indexes positions by symbol.
func PositionMap(positions []Position) map[string]Position {
	m := make(map[string]Position, len(positions))
	for _, p := range positions {
		m[p.Symbol] = p
	}
	return m
}
