package risk

import (
	"math"

	"github.com/camuig/autotrader/internal/ai"
	"github.com/camuig/autotrader/internal/broker"
)

// Size turns model recommendations into whole-share proposals. prices holds
// the reference price per symbol. A BUY without quantity is sized from
// position_size_pct, or the full position limit when that is missing too. A
// SELL never exceeds the held quantity and defaults to all of it.
func Size(recs []ai.Recommendation, prices map[string]float64, account broker.Account, positions []broker.Position, limits Limits) ([]Proposal, []Rejection) {
	held := broker.PositionMap(positions)
	var (
		proposals []Proposal
		rejected  []Rejection
	)

	for _, rec := range recs {
		p := Proposal{
			Symbol:     rec.Symbol,
			OrderType:  broker.OrderTypeMarket,
			StopLoss:   rec.StopLoss,
			TakeProfit: rec.TakeProfit,
			Confidence: rec.Confidence,
			Rationale:  rec.Rationale,
		}
		if rec.OrderType == string(broker.OrderTypeLimit) && rec.LimitPrice > 0 {
			p.OrderType = broker.OrderTypeLimit
			p.LimitPrice = rec.LimitPrice
		}

		p.Price = prices[rec.Symbol]
		if p.Price <= 0 {
			p.Price = held[rec.Symbol].CurrentPrice
		}

		switch rec.Action {
		case ai.ActionBuy:
			p.Side = broker.SideBuy
		case ai.ActionSell:
			p.Side = broker.SideSell
		default:
			continue
		}

		price := p.Price
		if p.OrderType == broker.OrderTypeLimit {
			price = p.LimitPrice
		}
		if price <= 0 {
			rejected = append(rejected, Rejection{Proposal: p, Reason: ReasonNoPrice})
			continue
		}

		if p.Side == broker.SideBuy {
			p.Quantity = math.Floor(rec.Quantity)
			if rec.Quantity <= 0 {
				pct := limits.MaxPositionPct
				if rec.SizePct > 0 && rec.SizePct < pct {
					pct = rec.SizePct
				}
				p.Quantity = math.Floor(account.PortfolioValue * pct / 100 / price)
			}
		} else {
			have := math.Floor(held[rec.Symbol].Quantity)
			p.Quantity = math.Floor(rec.Quantity)
			if rec.Quantity <= 0 || p.Quantity > have {
				p.Quantity = math.Max(have, 0)
			}
		}

		proposals = append(proposals, p)
	}
	return proposals, rejected
}
