package tinkoff

import (
	"context"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"

	"github.com/camuig/autotrader/internal/broker"
)

type portfolioResponse interface {
	GetTotalAmountPortfolio() *pb.MoneyValue
	GetTotalAmountCurrencies() *pb.MoneyValue
	GetPositions() []*pb.PortfolioPosition
}

func (c *Connector) portfolio(client *investgo.Client) (portfolioResponse, error) {
	accountID := c.accountID(client)
	currency := pb.PortfolioRequest_RUB

	if c.cfg.Sandbox {
		r, err := client.NewSandboxServiceClient().GetSandboxPortfolio(accountID, currency)
		if err != nil {
			return nil, wrap("get sandbox portfolio", err)
		}
		return r.PortfolioResponse, nil
	}

	r, err := client.NewOperationsServiceClient().GetPortfolio(accountID, currency)
	if err != nil {
		return nil, wrap("get portfolio", err)
	}
	return r.PortfolioResponse, nil
}

func (c *Connector) GetAccount(ctx context.Context) (*broker.Account, error) {
	client, err := c.conn()
	if err != nil {
		return nil, err
	}

	resp, err := c.portfolio(client)
	if err != nil {
		return nil, err
	}

	acct := &broker.Account{ID: c.accountID(client), Currency: "RUB"}
	if total := resp.GetTotalAmountPortfolio(); total != nil {
		acct.PortfolioValue = total.ToFloat()
		acct.Equity = acct.PortfolioValue
	}
	if cash := resp.GetTotalAmountCurrencies(); cash != nil {
		acct.Cash = cash.ToFloat()
		acct.BuyingPower = acct.Cash
	}
	return acct, nil
}

func (c *Connector) GetPositions(ctx context.Context) ([]broker.Position, error) {
	client, err := c.conn()
	if err != nil {
		return nil, err
	}

	resp, err := c.portfolio(client)
	if err != nil {
		return nil, err
	}

	var positions []broker.Position
	for _, pos := range resp.GetPositions() {
		if pos.GetInstrumentType() == "currency" {
			continue
		}

		p := broker.Position{Symbol: pos.GetFigi()}
		if inst, err := c.byUID(client, pos.GetInstrumentUid()); err == nil {
			p.Symbol = inst.Ticker
		} else {
			c.logger.Warn("resolve position instrument", "uid", pos.GetInstrumentUid(), "error", err)
		}
		if q := pos.GetQuantity(); q != nil {
			p.Quantity = q.ToFloat()
		}
		if ap := pos.GetAveragePositionPrice(); ap != nil {
			p.AvgEntryPrice = ap.ToFloat()
		}
		if cp := pos.GetCurrentPrice(); cp != nil {
			p.CurrentPrice = cp.ToFloat()
		}
		if ey := pos.GetExpectedYield(); ey != nil {
			p.UnrealizedPL = ey.ToFloat()
		}
		p.MarketValue = p.Quantity * p.CurrentPrice
		if cost := p.Quantity * p.AvgEntryPrice; cost != 0 {
			p.UnrealizedPLPct = p.UnrealizedPL / cost
		}
		positions = append(positions, p)
	}
	return positions, nil
}
