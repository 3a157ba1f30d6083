package risk

import "github.com/camuig/autotrader/internal/broker"

type Level string

const (
	LevelHalted Level = "HALTED"
	LevelHigh   Level = "HIGH"
	LevelMedium Level = "MEDIUM"
	LevelLow    Level = "LOW"
)

type Status struct {
	Level              Level   `json:"level"`
	KillSwitch         bool    `json:"kill_switch_active"`
	DailyLoss          float64 `json:"daily_loss"`
	DailyLossPct       float64 `json:"daily_loss_pct"`
	MaxDailyLoss       float64 `json:"max_daily_loss"`
	DailyLossRemaining float64 `json:"daily_loss_remaining"`
	TradesToday        int     `json:"trades_today"`
	MaxDailyTrades     int     `json:"max_daily_trades"`
	MaxPositionValue   float64 `json:"max_position_value"`
	PortfolioValue     float64 `json:"portfolio_value"`
}

// CurrentStatus reports how close the account is to its limits. HIGH starts
// at 80% of the daily loss limit, MEDIUM at 50%.
func CurrentStatus(account broker.Account, state State, limits Limits) Status {
	pv := account.PortfolioValue
	maxLoss := limits.MaxDailyLossPct / 100 * pv

	st := Status{
		KillSwitch:         state.KillSwitch,
		DailyLoss:          round2(state.DailyLoss),
		MaxDailyLoss:       round2(maxLoss),
		DailyLossRemaining: round2(maxLoss - state.DailyLoss),
		TradesToday:        state.TradesToday,
		MaxDailyTrades:     limits.MaxDailyTrades,
		MaxPositionValue:   round2(limits.MaxPositionPct / 100 * pv),
		PortfolioValue:     pv,
	}
	if pv > 0 {
		st.DailyLossPct = round2(state.DailyLoss / pv * 100)
	}

	switch {
	case state.KillSwitch:
		st.Level = LevelHalted
	case st.DailyLossPct >= limits.MaxDailyLossPct*0.8:
		st.Level = LevelHigh
	case st.DailyLossPct >= limits.MaxDailyLossPct*0.5:
		st.Level = LevelMedium
	default:
		st.Level = LevelLow
	}
	return st
}
