package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: test-key
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "paper", cfg.Broker.Type)
	assert.Equal(t, 15*time.Minute, cfg.TradingInterval())
	assert.Equal(t, 15*time.Minute, cfg.SchedulerInterval())
	assert.Equal(t, 0.70, cfg.Trading.MinConfidence)
	assert.Equal(t, 3.0, cfg.Trading.MaxDailyLossPct)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.LLMBackoff())
	assert.Equal(t, 5*time.Second, cfg.Timeouts.MarketHours())
	assert.Equal(t, []string{"yahoo"}, cfg.MarketData.Providers)
	assert.True(t, *cfg.LLM.JSONMode)
	assert.True(t, cfg.IsSandbox())

	open, close := cfg.SessionMinutes()
	assert.Equal(t, 9*60+30, open)
	assert.Equal(t, 16*60, close)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("ANALYSIS_INTERVAL_MINUTES", "30")
	t.Setenv("WATCHLIST", "aapl, msft ,")
	t.Setenv("TRADING_STRATEGY", "momentum")

	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.TradingInterval())
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Trading.Watchlist)
	assert.Equal(t, "momentum", cfg.Trading.Strategy)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing llm key", `broker: {type: paper}`},
		{"unknown broker", "broker: {type: ibkr}\nllm: {api_key: k}"},
		{"tinkoff without token", "broker: {type: tinkoff}\nllm: {api_key: k}"},
		{"alpaca without secret", "broker: {type: alpaca, alpaca: {key_id: x}}\nllm: {api_key: k}"},
		{"polygon without key", "llm: {api_key: k}\nmarket_data: {providers: [polygon]}"},
		{"bad interval", "llm: {api_key: k}\ntrading: {interval: often}"},
		{"zero interval", "llm: {api_key: k}\ntrading: {interval: 0s}"},
		{"negative interval", "llm: {api_key: k}\ntrading: {interval: -5m}"},
		{"zero scheduler interval", "llm: {api_key: k}\nscheduler: {interval: 0s}"},
		{"confidence out of range", "llm: {api_key: k}\ntrading: {min_confidence: 1.5}"},
		{"bad strategy", "llm: {api_key: k}\ntrading: {strategy: yolo}"},
		{"telegram without chat", "llm: {api_key: k}\ntelegram: {enabled: true, bot_token: t}"},
		{"bad session clock", "llm: {api_key: k}\ntrading: {market: {open: '9am'}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
llm: {api_key: k, max_retries: 0, temperature: 0}
trading:
  min_confidence: 0
  default_stop_loss_pct: 0
market_data: {requests_per_minute: 0}
`))
	require.NoError(t, err)

	assert.Zero(t, cfg.Trading.MinConfidence)
	assert.Zero(t, cfg.Trading.DefaultStopLossPct)
	assert.Zero(t, cfg.LLM.MaxRetries)
	assert.Zero(t, cfg.LLM.Temperature)
	assert.Zero(t, cfg.MarketData.RequestsPerMinute)
	assert.Equal(t, 10.0, cfg.Trading.DefaultTakeProfitPct, "omitted keys keep their defaults")
	assert.Equal(t, 120, cfg.LLM.TimeoutSeconds)
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
llm: {api_key: secret}
broker:
  type: alpaca
  alpaca: {key_id: id, secret_key: sk, paper: true}
`))
	require.NoError(t, err)

	red := cfg.Redacted()
	assert.Equal(t, "***", red.LLM.APIKey)
	assert.Equal(t, "***", red.Broker.Alpaca.SecretKey)
	assert.Equal(t, "", red.Broker.Tinkoff.Token)
	assert.Equal(t, "secret", cfg.LLM.APIKey)

	red.Trading.Watchlist[0] = "XXX"
	assert.NotEqual(t, "XXX", cfg.Trading.Watchlist[0])
}

func TestIndicatorEnabledDefaultsOn(t *testing.T) {
	cfg := &Config{Trading: TradingConfig{Indicators: map[string]bool{"vwap": false}}}
	assert.True(t, cfg.IndicatorEnabled("rsi"))
	assert.False(t, cfg.IndicatorEnabled("vwap"))
}
