package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Broker     BrokerConfig     `yaml:"broker" json:"broker"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Trading    TradingConfig    `yaml:"trading" json:"trading"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts" json:"timeouts"`
	MarketData MarketDataConfig `yaml:"market_data" json:"market_data"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" json:"scheduler"`
	Telegram   TelegramConfig   `yaml:"telegram" json:"telegram"`
	Web        WebConfig        `yaml:"web" json:"web"`
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

type BrokerConfig struct {
	Type    string        `yaml:"type" json:"type" validate:"required,oneof=tinkoff alpaca paper"`
	Tinkoff TinkoffConfig `yaml:"tinkoff" json:"tinkoff"`
	Alpaca  AlpacaConfig  `yaml:"alpaca" json:"alpaca"`
	Paper   PaperConfig   `yaml:"paper" json:"paper"`
}

type TinkoffConfig struct {
	Token     string `yaml:"token" json:"token"`
	Sandbox   bool   `yaml:"sandbox" json:"sandbox"`
	AccountID string `yaml:"account_id" json:"account_id"`
	AppName   string `yaml:"app_name" json:"app_name"`
}

type AlpacaConfig struct {
	KeyID     string `yaml:"key_id" json:"key_id"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Paper     bool   `yaml:"paper" json:"paper"`
	BaseURL   string `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
}

type PaperConfig struct {
	StartingCash float64 `yaml:"starting_cash" json:"starting_cash" validate:"gte=0"`
	SlippageBps  float64 `yaml:"slippage_bps" json:"slippage_bps" validate:"gte=0,lte=500"`
}

type LLMConfig struct {
	BaseURL        string  `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	APIKey         string  `yaml:"api_key" json:"api_key"`
	Model          string  `yaml:"model" json:"model" validate:"required"`
	TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds" validate:"gte=0"`
	MaxRetries     int     `yaml:"max_retries" json:"max_retries" validate:"gte=0,lte=10"`
	BackoffSeconds int     `yaml:"backoff_seconds" json:"backoff_seconds" validate:"gte=0"`
	Temperature    float32 `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	JSONMode       *bool   `yaml:"json_mode" json:"json_mode"`
}

type TradingConfig struct {
	Interval             string          `yaml:"interval" json:"interval"`
	Watchlist            []string        `yaml:"watchlist" json:"watchlist" validate:"required,min=1,dive,required"`
	Strategy             string          `yaml:"strategy" json:"strategy" validate:"oneof=momentum mean_reversion contrarian balanced"`
	MinConfidence        float64         `yaml:"min_confidence" json:"min_confidence" validate:"gte=0,lte=1"`
	MaxPositionPct       float64         `yaml:"max_position_pct" json:"max_position_pct" validate:"gt=0,lte=100"`
	MaxDailyLossPct      float64         `yaml:"max_daily_loss_pct" json:"max_daily_loss_pct" validate:"gt=0,lte=100"`
	MaxDailyTrades       int             `yaml:"max_daily_trades" json:"max_daily_trades" validate:"gt=0"`
	DefaultStopLossPct   float64         `yaml:"default_stop_loss_pct" json:"default_stop_loss_pct" validate:"gte=0,lt=100"`
	DefaultTakeProfitPct float64         `yaml:"default_take_profit_pct" json:"default_take_profit_pct" validate:"gte=0"`
	OrderConcurrency     int             `yaml:"order_concurrency" json:"order_concurrency" validate:"gte=1"`
	DataConcurrency      int             `yaml:"data_concurrency" json:"data_concurrency" validate:"gte=1"`
	LookbackDays         int             `yaml:"lookback_days" json:"lookback_days" validate:"gte=30"`
	Market               MarketSession   `yaml:"market" json:"market"`
	Indicators           map[string]bool `yaml:"indicators" json:"indicators"`
}

// MarketSession describes the regular session used by connectors without a clock endpoint.
type MarketSession struct {
	Timezone string `yaml:"timezone" json:"timezone"`
	Open     string `yaml:"open" json:"open"`
	Close    string `yaml:"close" json:"close"`
}

type TimeoutsConfig struct {
	MarketHoursSeconds int `yaml:"market_hours_seconds" json:"market_hours_seconds" validate:"gt=0"`
	BrokerSeconds      int `yaml:"broker_seconds" json:"broker_seconds" validate:"gt=0"`
	DataSeconds        int `yaml:"data_seconds" json:"data_seconds" validate:"gt=0"`
	LLMSeconds         int `yaml:"llm_seconds" json:"llm_seconds" validate:"gt=0"`
	OrderSeconds       int `yaml:"order_seconds" json:"order_seconds" validate:"gt=0"`
}

type MarketDataConfig struct {
	Providers         []string       `yaml:"providers" json:"providers" validate:"required,min=1,dive,oneof=polygon yahoo longport moex tinkoff"`
	RequestsPerMinute int            `yaml:"requests_per_minute" json:"requests_per_minute" validate:"gte=0"`
	PolygonAPIKey     string         `yaml:"polygon_api_key" json:"polygon_api_key"`
	Longport          LongportConfig `yaml:"longport" json:"longport"`
	Headlines         bool           `yaml:"headlines" json:"headlines"`
}

type LongportConfig struct {
	AppKey      string `yaml:"app_key" json:"app_key"`
	AppSecret   string `yaml:"app_secret" json:"app_secret"`
	AccessToken string `yaml:"access_token" json:"access_token"`
}

type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Interval string `yaml:"interval" json:"interval"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	BotToken string `yaml:"bot_token" json:"bot_token"`
	ChatID   int64  `yaml:"chat_id" json:"chat_id"`
}

type WebConfig struct {
	Port int `yaml:"port" json:"port" validate:"gt=0,lt=65536"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" json:"path" validate:"required"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`
}

// Load reads the yaml file at path (skipped when path is empty), applies
// .env and environment overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := presets()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Broker.Type, "BROKER_TYPE")
	setString(&cfg.Broker.Tinkoff.Token, "TINKOFF_TOKEN")
	setString(&cfg.Broker.Tinkoff.AccountID, "TINKOFF_ACCOUNT_ID")
	setString(&cfg.Broker.Alpaca.KeyID, "ALPACA_API_KEY_ID")
	setString(&cfg.Broker.Alpaca.SecretKey, "ALPACA_API_SECRET_KEY")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.MarketData.PolygonAPIKey, "POLYGON_API_KEY")
	setString(&cfg.MarketData.Longport.AppKey, "LONGPORT_APP_KEY")
	setString(&cfg.MarketData.Longport.AppSecret, "LONGPORT_APP_SECRET")
	setString(&cfg.MarketData.Longport.AccessToken, "LONGPORT_ACCESS_TOKEN")
	setString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Trading.Strategy, "TRADING_STRATEGY")
	setString(&cfg.Database.Path, "DATABASE_PATH")

	if v := os.Getenv("ANALYSIS_INTERVAL_MINUTES"); v != "" {
		cfg.Trading.Interval = v + "m"
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
		cfg.Trading.Watchlist = symbols
	}
}

// presets holds the defaults of fields where zero is a valid setting. They are
// in place before the file is decoded so an explicit zero survives.
func presets() *Config {
	return &Config{
		Broker: BrokerConfig{Paper: PaperConfig{StartingCash: 100000}},
		LLM:    LLMConfig{TimeoutSeconds: 120, MaxRetries: 3, Temperature: 0.3},
		Trading: TradingConfig{
			MinConfidence:        0.70,
			DefaultStopLossPct:   5,
			DefaultTakeProfitPct: 10,
		},
		MarketData: MarketDataConfig{RequestsPerMinute: 300},
	}
}

func setDefaults(cfg *Config) {
	if cfg.Broker.Type == "" {
		cfg.Broker.Type = "paper"
	}
	if cfg.Broker.Tinkoff.AppName == "" {
		cfg.Broker.Tinkoff.AppName = "autotrader"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "deepseek-chat"
	}
	if cfg.LLM.BackoffSeconds == 0 {
		cfg.LLM.BackoffSeconds = 5
	}
	if cfg.LLM.JSONMode == nil {
		on := true
		cfg.LLM.JSONMode = &on
	}
	if cfg.Trading.Interval == "" {
		cfg.Trading.Interval = "15m"
	}
	if len(cfg.Trading.Watchlist) == 0 {
		cfg.Trading.Watchlist = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "AMD", "SPY", "QQQ"}
	}
	if cfg.Trading.Strategy == "" {
		cfg.Trading.Strategy = "balanced"
	}
	if cfg.Trading.MaxPositionPct == 0 {
		cfg.Trading.MaxPositionPct = 10
	}
	if cfg.Trading.MaxDailyLossPct == 0 {
		cfg.Trading.MaxDailyLossPct = 3
	}
	if cfg.Trading.MaxDailyTrades == 0 {
		cfg.Trading.MaxDailyTrades = 20
	}
	if cfg.Trading.OrderConcurrency == 0 {
		cfg.Trading.OrderConcurrency = 4
	}
	if cfg.Trading.DataConcurrency == 0 {
		cfg.Trading.DataConcurrency = 8
	}
	if cfg.Trading.LookbackDays == 0 {
		cfg.Trading.LookbackDays = 90
	}
	if cfg.Trading.Market.Timezone == "" {
		cfg.Trading.Market.Timezone = "America/New_York"
	}
	if cfg.Trading.Market.Open == "" {
		cfg.Trading.Market.Open = "09:30"
	}
	if cfg.Trading.Market.Close == "" {
		cfg.Trading.Market.Close = "16:00"
	}
	if cfg.Timeouts.MarketHoursSeconds == 0 {
		cfg.Timeouts.MarketHoursSeconds = 5
	}
	if cfg.Timeouts.BrokerSeconds == 0 {
		cfg.Timeouts.BrokerSeconds = 15
	}
	if cfg.Timeouts.DataSeconds == 0 {
		cfg.Timeouts.DataSeconds = 60
	}
	if cfg.Timeouts.LLMSeconds == 0 {
		cfg.Timeouts.LLMSeconds = 600
	}
	if cfg.Timeouts.OrderSeconds == 0 {
		cfg.Timeouts.OrderSeconds = 20
	}
	if len(cfg.MarketData.Providers) == 0 {
		cfg.MarketData.Providers = []string{"yahoo"}
		if cfg.MarketData.PolygonAPIKey != "" {
			cfg.MarketData.Providers = []string{"polygon", "yahoo"}
		}
	}
	if cfg.Scheduler.Interval == "" {
		cfg.Scheduler.Interval = cfg.Trading.Interval
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/autotrader.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if err := positiveDuration("trading.interval", c.Trading.Interval); err != nil {
		return err
	}
	if err := positiveDuration("scheduler.interval", c.Scheduler.Interval); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Trading.Market.Timezone); err != nil {
		return fmt.Errorf("invalid trading.market.timezone %q: %w", c.Trading.Market.Timezone, err)
	}
	if _, err := parseClock(c.Trading.Market.Open); err != nil {
		return fmt.Errorf("invalid trading.market.open: %w", err)
	}
	if _, err := parseClock(c.Trading.Market.Close); err != nil {
		return fmt.Errorf("invalid trading.market.close: %w", err)
	}

	switch c.Broker.Type {
	case "tinkoff":
		if c.Broker.Tinkoff.Token == "" {
			return fmt.Errorf("broker.tinkoff.token is required")
		}
	case "alpaca":
		if c.Broker.Alpaca.KeyID == "" || c.Broker.Alpaca.SecretKey == "" {
			return fmt.Errorf("broker.alpaca.key_id and broker.alpaca.secret_key are required")
		}
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}

	for _, p := range c.MarketData.Providers {
		switch p {
		case "polygon":
			if c.MarketData.PolygonAPIKey == "" {
				return fmt.Errorf("market_data.polygon_api_key is required for the polygon provider")
			}
		case "longport":
			lp := c.MarketData.Longport
			if lp.AppKey == "" || lp.AppSecret == "" || lp.AccessToken == "" {
				return fmt.Errorf("market_data.longport credentials are required for the longport provider")
			}
		case "tinkoff":
			if c.Broker.Type != "tinkoff" {
				return fmt.Errorf("market_data provider tinkoff requires broker.type tinkoff")
			}
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

func positiveDuration(key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return nil
}

func (c *Config) IsSandbox() bool {
	switch c.Broker.Type {
	case "tinkoff":
		return c.Broker.Tinkoff.Sandbox
	case "alpaca":
		return c.Broker.Alpaca.Paper
	default:
		return true
	}
}

// Mode is the label shown in logs and notifications.
func (c *Config) Mode() string {
	if c.IsSandbox() {
		return "SANDBOX"
	}
	return "LIVE"
}

func (c *Config) MarketLocation() *time.Location {
	loc, err := time.LoadLocation(c.Trading.Market.Timezone)
	if err != nil {
		loc = time.FixedZone("ET", -5*60*60)
	}
	return loc
}

// SessionMinutes returns the regular session bounds as minutes after midnight.
func (c *Config) SessionMinutes() (open, close int) {
	open, _ = parseClock(c.Trading.Market.Open)
	close, _ = parseClock(c.Trading.Market.Close)
	return open, close
}

func (c *Config) TradingInterval() time.Duration {
	d, _ := time.ParseDuration(c.Trading.Interval)
	return d
}

func (c *Config) SchedulerInterval() time.Duration {
	d, _ := time.ParseDuration(c.Scheduler.Interval)
	return d
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) LLMBackoff() time.Duration {
	return time.Duration(c.LLM.BackoffSeconds) * time.Second
}

func (c *Config) IndicatorEnabled(name string) bool {
	enabled, ok := c.Trading.Indicators[name]
	return !ok || enabled
}

func (t TimeoutsConfig) MarketHours() time.Duration {
	return time.Duration(t.MarketHoursSeconds) * time.Second
}

func (t TimeoutsConfig) Broker() time.Duration {
	return time.Duration(t.BrokerSeconds) * time.Second
}

func (t TimeoutsConfig) Data() time.Duration {
	return time.Duration(t.DataSeconds) * time.Second
}

func (t TimeoutsConfig) LLM() time.Duration {
	return time.Duration(t.LLMSeconds) * time.Second
}

func (t TimeoutsConfig) Order() time.Duration {
	return time.Duration(t.OrderSeconds) * time.Second
}

// Redacted returns a copy safe to persist or expose: every credential is masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Broker.Tinkoff.Token = mask(out.Broker.Tinkoff.Token)
	out.Broker.Alpaca.KeyID = mask(out.Broker.Alpaca.KeyID)
	out.Broker.Alpaca.SecretKey = mask(out.Broker.Alpaca.SecretKey)
	out.LLM.APIKey = mask(out.LLM.APIKey)
	out.MarketData.PolygonAPIKey = mask(out.MarketData.PolygonAPIKey)
	out.MarketData.Longport.AppKey = mask(out.MarketData.Longport.AppKey)
	out.MarketData.Longport.AppSecret = mask(out.MarketData.Longport.AppSecret)
	out.MarketData.Longport.AccessToken = mask(out.MarketData.Longport.AccessToken)
	out.Telegram.BotToken = mask(out.Telegram.BotToken)
	out.Trading.Watchlist = append([]string(nil), c.Trading.Watchlist...)
	out.MarketData.Providers = append([]string(nil), c.MarketData.Providers...)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
