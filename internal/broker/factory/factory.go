// Package factory builds the broker connector and the market data pipeline
// selected by configuration. It runs once at startup.
package factory

import (
	"context"
	"fmt"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/broker/alpaca"
	"github.com/camuig/autotrader/internal/broker/paper"
	"github.com/camuig/autotrader/internal/broker/tinkoff"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/marketdata"
	"github.com/camuig/autotrader/internal/marketdata/moex"
)

// Stack is everything that depends on the broker choice.
type Stack struct {
	Connector broker.Connector
	Bars      *marketdata.Chain
	Data      *marketdata.Gatherer
}

// New wires the connector named by broker.type and a provider chain in the
// order of market_data.providers. Nothing is dialled here.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stack, error) {
	open, closeAt := cfg.SessionMinutes()
	clock := broker.NewSessionClock(cfg.MarketLocation(), open, closeAt)

	var tk *tinkoff.Connector
	if cfg.Broker.Type == "tinkoff" {
		tk = tinkoff.New(ctx, cfg.Broker.Tinkoff, clock, log)
	}

	var (
		providers []marketdata.Provider
		headlines marketdata.HeadlineSource
	)
	for _, name := range cfg.MarketData.Providers {
		switch name {
		case "polygon":
			p, err := marketdata.NewPolygon(cfg.MarketData.PolygonAPIKey)
			if err != nil {
				return nil, fmt.Errorf("polygon provider: %w", err)
			}
			providers = append(providers, p)
		case "yahoo":
			providers = append(providers, marketdata.NewYahoo())
		case "longport":
			p, err := marketdata.NewLongport(cfg.MarketData.Longport)
			if err != nil {
				return nil, fmt.Errorf("longport provider: %w", err)
			}
			providers = append(providers, p)
		case "moex":
			client := moex.NewClient("", log)
			providers = append(providers, client)
			if cfg.MarketData.Headlines {
				headlines = client
			}
		case "tinkoff":
			if tk == nil {
				return nil, fmt.Errorf("tinkoff provider requires broker.type tinkoff")
			}
			providers = append(providers, tk)
		default:
			return nil, fmt.Errorf("unknown market data provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no market data providers configured")
	}

	chain := marketdata.NewChain(providers, cfg.MarketData.RequestsPerMinute, log)

	opts := []marketdata.GathererOption{marketdata.WithIndicators(cfg.IndicatorEnabled)}
	if headlines != nil {
		opts = append(opts, marketdata.WithHeadlines(headlines))
	}
	data := marketdata.NewGatherer(chain, cfg.Trading.LookbackDays, cfg.Trading.DataConcurrency,
		cfg.Timeouts.Data(), log, opts...)

	stack := &Stack{Bars: chain, Data: data}
	switch cfg.Broker.Type {
	case "tinkoff":
		stack.Connector = tk
	case "alpaca":
		stack.Connector = alpaca.New(cfg.Broker.Alpaca, log)
	case "paper":
		stack.Connector = paper.New(cfg.Broker.Paper, chain, clock, log)
	default:
		return nil, fmt.Errorf("unknown broker type %q", cfg.Broker.Type)
	}

	log.Info("broker selected", "broker", stack.Connector.Name(), "mode", cfg.Mode(), "data", chain.Name())
	return stack, nil
}
