// Package alpaca talks to the Alpaca trading REST API (paper or live).
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/logger"
)

const (
	paperURL = "https://paper-api.alpaca.markets"
	liveURL  = "https://api.alpaca.markets"
)

type Connector struct {
	cfg    config.AlpacaConfig
	logger *logger.Logger

	mu     sync.RWMutex
	client *resty.Client
}

func New(cfg config.AlpacaConfig, log *logger.Logger) *Connector {
	return &Connector{cfg: cfg, logger: log.Component("alpaca")}
}

func (c *Connector) Name() string {
	return "alpaca"
}

func (c *Connector) baseURL() string {
	if c.cfg.BaseURL != "" {
		return strings.TrimRight(c.cfg.BaseURL, "/")
	}
	if c.cfg.Paper {
		return paperURL
	}
	return liveURL
}

// Connect builds the client and checks the credentials against /v2/account.
func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	client := resty.New().
		SetBaseURL(c.baseURL()).
		SetTimeout(30*time.Second).
		SetHeader("APCA-API-KEY-ID", c.cfg.KeyID).
		SetHeader("APCA-API-SECRET-KEY", c.cfg.SecretKey).
		SetHeader("Accept", "application/json")

	var acct accountDTO
	if err := do(client.R().SetContext(ctx), http.MethodGet, "/v2/account", &acct); err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}

	c.client = client
	c.logger.Info("connected", "base_url", c.baseURL(), "account", acct.AccountNumber)
	return nil
}

func (c *Connector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = nil
	return nil
}

func (c *Connector) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil
}

func (c *Connector) request(ctx context.Context) (*resty.Request, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, broker.ErrNotConnected
	}
	return c.client.R().SetContext(ctx), nil
}

type accountDTO struct {
	ID             string          `json:"id"`
	AccountNumber  string          `json:"account_number"`
	Currency       string          `json:"currency"`
	Cash           decimal.Decimal `json:"cash"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	Equity         decimal.Decimal `json:"equity"`
	LastEquity     decimal.Decimal `json:"last_equity"`
}

func (c *Connector) GetAccount(ctx context.Context) (*broker.Account, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var dto accountDTO
	if err := do(req, http.MethodGet, "/v2/account", &dto); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &broker.Account{
		ID:             dto.ID,
		Currency:       dto.Currency,
		Cash:           dto.Cash.InexactFloat64(),
		BuyingPower:    dto.BuyingPower.InexactFloat64(),
		PortfolioValue: dto.PortfolioValue.InexactFloat64(),
		Equity:         dto.Equity.InexactFloat64(),
		LastEquity:     dto.LastEquity.InexactFloat64(),
	}, nil
}

type positionDTO struct {
	Symbol         string          `json:"symbol"`
	Qty            decimal.Decimal `json:"qty"`
	AvgEntryPrice  decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	MarketValue    decimal.Decimal `json:"market_value"`
	UnrealizedPL   decimal.Decimal `json:"unrealized_pl"`
	UnrealizedPLPC decimal.Decimal `json:"unrealized_plpc"`
}

func (c *Connector) GetPositions(ctx context.Context) ([]broker.Position, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var dtos []positionDTO
	if err := do(req, http.MethodGet, "/v2/positions", &dtos); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	positions := make([]broker.Position, 0, len(dtos))
	for _, p := range dtos {
		positions = append(positions, broker.Position{
			Symbol:          p.Symbol,
			Quantity:        p.Qty.InexactFloat64(),
			AvgEntryPrice:   p.AvgEntryPrice.InexactFloat64(),
			CurrentPrice:    p.CurrentPrice.InexactFloat64(),
			MarketValue:     p.MarketValue.InexactFloat64(),
			UnrealizedPL:    p.UnrealizedPL.InexactFloat64(),
			UnrealizedPLPct: p.UnrealizedPLPC.InexactFloat64(),
		})
	}
	return positions, nil
}

type clockDTO struct {
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

func (c *Connector) MarketHours(ctx context.Context) (*broker.MarketHours, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var dto clockDTO
	if err := do(req, http.MethodGet, "/v2/clock", &dto); err != nil {
		return nil, fmt.Errorf("get clock: %w", err)
	}
	return &broker.MarketHours{IsOpen: dto.IsOpen, NextOpen: dto.NextOpen, NextClose: dto.NextClose}, nil
}

func (c *Connector) IsMarketOpen(ctx context.Context) (bool, error) {
	hours, err := c.MarketHours(ctx)
	if err != nil {
		return false, err
	}
	return hours.IsOpen, nil
}

// APIError is a non-2xx answer from Alpaca.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alpaca: http %d: %s", e.Status, e.Message)
}

// do executes the request and decodes a 2xx body into out. Transport failures
// and gateway errors are tagged broker.ErrConnection.
func do(req *resty.Request, method, path string, out any) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %w", broker.ErrConnection, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return broker.ErrOrderNotFound
	case resp.StatusCode() == http.StatusBadGateway,
		resp.StatusCode() == http.StatusServiceUnavailable,
		resp.StatusCode() == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: http %d", broker.ErrConnection, resp.StatusCode())
	case resp.IsError():
		apiErr := &APIError{Status: resp.StatusCode()}
		if json.Unmarshal(resp.Body(), apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(resp.String())
		}
		return apiErr
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func newClientOrderID() string {
	return "at-" + uuid.NewString()
}
