// Package risk decides which proposed orders may be placed. Everything here
// is pure: the same inputs always give the same result.
package risk

import (
	"math"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/config"
)

type Reason string

const (
	ReasonKillSwitch        Reason = "kill_switch"
	ReasonDailyLossLimit    Reason = "daily_loss_limit"
	ReasonPositionLimit     Reason = "position_limit"
	ReasonTradeCountLimit   Reason = "trade_count_limit"
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonNoPosition        Reason = "no_position"
	ReasonExceedsPosition   Reason = "exceeds_position"
	ReasonInvalidQuantity   Reason = "invalid_quantity"
	ReasonNoPrice           Reason = "no_price"
)

// Limits are percentages of portfolio value, except MaxDailyTrades.
type Limits struct {
	MaxPositionPct       float64
	MaxDailyLossPct      float64
	MaxDailyTrades       int
	DefaultStopLossPct   float64
	DefaultTakeProfitPct float64
}

func LimitsFromConfig(cfg config.TradingConfig) Limits {
	return Limits{
		MaxPositionPct:       cfg.MaxPositionPct,
		MaxDailyLossPct:      cfg.MaxDailyLossPct,
		MaxDailyTrades:       cfg.MaxDailyTrades,
		DefaultStopLossPct:   cfg.DefaultStopLossPct,
		DefaultTakeProfitPct: cfg.DefaultTakeProfitPct,
	}
}

// State is rebuilt at the start of every run and never cached.
type State struct {
	TradesToday int     `json:"trades_today"`
	DailyLoss   float64 `json:"daily_loss"` // positive currency amount
	KillSwitch  bool    `json:"kill_switch"`
}

// NewState derives the state of the current day.
func NewState(tradesToday int, killSwitch bool, account broker.Account, positions []broker.Position) State {
	return State{
		TradesToday: tradesToday,
		DailyLoss:   DailyLoss(account, positions),
		KillSwitch:  killSwitch,
	}
}

// DailyLoss is the realized plus unrealized loss of the day as a positive
// amount. Without a previous close it falls back to open losing positions.
func DailyLoss(account broker.Account, positions []broker.Position) float64 {
	if account.LastEquity > 0 {
		return math.Max(0, account.LastEquity-account.Equity)
	}
	var loss float64
	for _, p := range positions {
		if p.UnrealizedPL < 0 {
			loss -= p.UnrealizedPL
		}
	}
	return loss
}

// Proposal is a sized order candidate.
type Proposal struct {
	Symbol     string           `json:"symbol"`
	Side       broker.Side      `json:"side"`
	Quantity   float64          `json:"quantity"`
	OrderType  broker.OrderType `json:"order_type"`
	LimitPrice float64          `json:"limit_price,omitempty"`
	Price      float64          `json:"price"`
	StopLoss   float64          `json:"stop_loss,omitempty"`
	TakeProfit float64          `json:"take_profit,omitempty"`
	Confidence float64          `json:"confidence"`
	Rationale  string           `json:"rationale,omitempty"`
}

// Value is the notional of the order at the limit or reference price.
func (p Proposal) Value() float64 {
	price := p.Price
	if p.OrderType == broker.OrderTypeLimit && p.LimitPrice > 0 {
		price = p.LimitPrice
	}
	return p.Quantity * price
}

type Rejection struct {
	Proposal Proposal `json:"proposal"`
	Reason   Reason   `json:"reason"`
}

type Result struct {
	Approved []Proposal  `json:"approved"`
	Rejected []Rejection `json:"rejected"`
}

// Evaluate applies the rules in order to each proposal. Approvals earlier in
// the batch count against later ones.
func Evaluate(proposals []Proposal, positions []broker.Position, account broker.Account, state State, limits Limits) Result {
	res := Result{Approved: []Proposal{}, Rejected: []Rejection{}}

	held := broker.PositionMap(positions)
	maxLoss := limits.MaxDailyLossPct / 100 * account.PortfolioValue
	maxPosition := limits.MaxPositionPct / 100 * account.PortfolioValue
	buyingPower := account.BuyingPower
	added := make(map[string]float64)
	sold := make(map[string]float64)

	reject := func(p Proposal, r Reason) {
		res.Rejected = append(res.Rejected, Rejection{Proposal: p, Reason: r})
	}

	for _, p := range proposals {
		value := p.Value()

		if state.KillSwitch {
			reject(p, ReasonKillSwitch)
			continue
		}
		if p.Side == broker.SideBuy && state.DailyLoss >= maxLoss {
			reject(p, ReasonDailyLossLimit)
			continue
		}
		if p.Side == broker.SideBuy && positionValue(held[p.Symbol])+added[p.Symbol]+value > maxPosition {
			reject(p, ReasonPositionLimit)
			continue
		}
		if state.TradesToday+len(res.Approved) >= limits.MaxDailyTrades {
			reject(p, ReasonTradeCountLimit)
			continue
		}

		switch p.Side {
		case broker.SideBuy:
			if value > buyingPower {
				reject(p, ReasonInsufficientFunds)
				continue
			}
		case broker.SideSell:
			pos, ok := held[p.Symbol]
			left := pos.Quantity - sold[p.Symbol]
			if !ok || left <= 0 {
				reject(p, ReasonNoPosition)
				continue
			}
			// sells only close longs
			if p.Quantity > left {
				reject(p, ReasonExceedsPosition)
				continue
			}
		}
		if p.Quantity < 1 {
			reject(p, ReasonInvalidQuantity)
			continue
		}

		if p.Side == broker.SideBuy {
			buyingPower -= value
			added[p.Symbol] += value
		} else {
			sold[p.Symbol] += p.Quantity
		}
		res.Approved = append(res.Approved, withExits(p, limits))
	}
	return res
}

func positionValue(p broker.Position) float64 {
	if p.MarketValue != 0 {
		return math.Abs(p.MarketValue)
	}
	return math.Abs(p.Quantity * p.CurrentPrice)
}

// withExits fills in stop-loss and take-profit levels the model left out.
func withExits(p Proposal, limits Limits) Proposal {
	price := p.Price
	if p.OrderType == broker.OrderTypeLimit && p.LimitPrice > 0 {
		price = p.LimitPrice
	}
	if price <= 0 {
		return p
	}

	sl := limits.DefaultStopLossPct / 100
	tp := limits.DefaultTakeProfitPct / 100
	if p.Side == broker.SideSell {
		sl, tp = -sl, -tp
	}
	if p.StopLoss == 0 && sl != 0 {
		p.StopLoss = round2(price * (1 - sl))
	}
	if p.TakeProfit == 0 && tp != 0 {
		p.TakeProfit = round2(price * (1 + tp))
	}
	return p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
