package storage

import "github.com/camuig/autotrader/internal/broker"

// NewPortfolioSnapshot captures the account and positions reported by the broker.
func NewPortfolioSnapshot(runID, brokerName string, acct broker.Account, positions []broker.Position) *PortfolioSnapshot {
	s := &PortfolioSnapshot{
		RunID:          runID,
		Broker:         brokerName,
		Cash:           acct.Cash,
		BuyingPower:    acct.BuyingPower,
		PortfolioValue: acct.PortfolioValue,
		Equity:         acct.Equity,
		LastEquity:     acct.LastEquity,
		PositionsCount: len(positions),
	}
	for _, p := range positions {
		s.Positions = append(s.Positions, PositionSnapshot{
			Symbol:          p.Symbol,
			Quantity:        p.Quantity,
			AvgEntryPrice:   p.AvgEntryPrice,
			CurrentPrice:    p.CurrentPrice,
			MarketValue:     p.MarketValue,
			UnrealizedPL:    p.UnrealizedPL,
			UnrealizedPLPct: p.UnrealizedPLPct,
		})
	}
	return s
}

func (s *PortfolioSnapshot) Account() broker.Account {
	return broker.Account{
		Cash:           s.Cash,
		BuyingPower:    s.BuyingPower,
		PortfolioValue: s.PortfolioValue,
		Equity:         s.Equity,
		LastEquity:     s.LastEquity,
	}
}

func (s *PortfolioSnapshot) BrokerPositions() []broker.Position {
	out := make([]broker.Position, 0, len(s.Positions))
	for _, p := range s.Positions {
		out = append(out, broker.Position{
			Symbol:          p.Symbol,
			Quantity:        p.Quantity,
			AvgEntryPrice:   p.AvgEntryPrice,
			CurrentPrice:    p.CurrentPrice,
			MarketValue:     p.MarketValue,
			UnrealizedPL:    p.UnrealizedPL,
			UnrealizedPLPct: p.UnrealizedPLPct,
		})
	}
	return out
}

// ApplyOrder copies broker order state onto the trade.
func (t *Trade) ApplyOrder(o *broker.Order) {
	if o == nil {
		return
	}
	if o.ID != "" {
		t.OrderID = o.ID
	}
	if o.ClientID != "" {
		t.ClientOrderID = o.ClientID
	}
	t.Status = string(o.Status)
	t.FilledQty = o.FilledQty
	t.FilledPrice = o.FilledPrice
}
