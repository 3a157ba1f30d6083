package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/logger"
)

func baseConfig() *config.Config {
	return &config.Config{
		Broker: config.BrokerConfig{Type: "paper", Paper: config.PaperConfig{StartingCash: 100000}},
		Trading: config.TradingConfig{
			LookbackDays: 90,
			Market:       config.MarketSession{Timezone: "America/New_York", Open: "09:30", Close: "16:00"},
		},
		MarketData: config.MarketDataConfig{Providers: []string{"yahoo", "moex"}, Headlines: true},
	}
}

func TestNewPaper(t *testing.T) {
	stack, err := New(context.Background(), baseConfig(), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "paper", stack.Connector.Name())
	assert.Equal(t, "chain(yahoo,moex)", stack.Bars.Name())
	assert.NotNil(t, stack.Data)
}

func TestNewAlpaca(t *testing.T) {
	cfg := baseConfig()
	cfg.Broker.Type = "alpaca"
	cfg.Broker.Alpaca = config.AlpacaConfig{KeyID: "k", SecretKey: "s", Paper: true}

	stack, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "alpaca", stack.Connector.Name())
}

func TestNewTinkoffDoublesAsProvider(t *testing.T) {
	cfg := baseConfig()
	cfg.Broker.Type = "tinkoff"
	cfg.Broker.Tinkoff = config.TinkoffConfig{Token: "t", Sandbox: true}
	cfg.MarketData.Providers = []string{"tinkoff", "moex"}

	stack, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "tinkoff", stack.Connector.Name())
	assert.Equal(t, "chain(tinkoff,moex)", stack.Bars.Name())
}

func TestNewErrors(t *testing.T) {
	cfg := baseConfig()
	cfg.MarketData.Providers = []string{"tinkoff"}
	_, err := New(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "requires broker.type tinkoff")

	cfg = baseConfig()
	cfg.MarketData.Providers = []string{"polygon"}
	_, err = New(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "polygon")

	cfg = baseConfig()
	cfg.Broker.Type = "ibkr"
	_, err = New(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "unknown broker type")

	cfg = baseConfig()
	cfg.MarketData.Providers = nil
	_, err = New(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}
