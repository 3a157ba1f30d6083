package ai

import (
	"context"
	"time"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/indicators"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Recommender produces trade recommendations for one analysis cycle.
type Recommender interface {
	Recommend(ctx context.Context, mc *MarketContext) (*Response, error)
}

// MarketContext is everything the model sees in one request.
type MarketContext struct {
	Now       time.Time
	Strategy  string
	Account   broker.Account
	Positions []broker.Position
	Snapshots map[string]indicators.Snapshot
	Headlines map[string][]string

	MaxPositionPct       float64 // percent of portfolio value
	MinConfidence        float64 // fraction
	DefaultStopLossPct   float64
	DefaultTakeProfitPct float64
	TradesLeftToday      int
}

type Recommendation struct {
	Action     Action  `json:"action" jsonschema:"enum=BUY,enum=SELL,enum=HOLD"`
	Symbol     string  `json:"symbol" jsonschema:"description=Ticker from the watchlist or the current positions"`
	Quantity   float64 `json:"quantity,omitempty" jsonschema:"minimum=0,description=Number of shares"`
	SizePct    float64 `json:"position_size_pct,omitempty" jsonschema:"minimum=0,maximum=100,description=Position size as percent of portfolio value when quantity is omitted"`
	OrderType  string  `json:"order_type,omitempty" jsonschema:"enum=market,enum=limit"`
	LimitPrice float64 `json:"limit_price,omitempty" jsonschema:"minimum=0"`
	StopLoss   float64 `json:"stop_loss_price,omitempty" jsonschema:"minimum=0"`
	TakeProfit float64 `json:"take_profit_price,omitempty" jsonschema:"minimum=0"`
	Confidence float64 `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Rationale  string  `json:"reasoning,omitempty"`
}

type Response struct {
	AnalysisSummary         string           `json:"analysis_summary"`
	Trades                  []Recommendation `json:"trades"`
	PortfolioRecommendation string           `json:"portfolio_recommendation,omitempty"`
	RiskAssessment          string           `json:"risk_assessment,omitempty" jsonschema:"enum=LOW,enum=MEDIUM,enum=HIGH"`

	Raw      string `json:"-"`
	Attempts int    `json:"-"`
}

// Actionable returns recommendations that are not HOLD and meet minConfidence.
func (r *Response) Actionable(minConfidence float64) []Recommendation {
	var out []Recommendation
	for _, t := range r.Trades {
		if t.Action == ActionHold || t.Confidence < minConfidence {
			continue
		}
		out = append(out, t)
	}
	return out
}
