// Package tinkoff connects to the Tinkoff Invest gRPC API (sandbox or live).
package tinkoff

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/logger"
)

const (
	sandboxEndpoint = "sandbox-invest-public-api.tinkoff.ru:443"
	liveEndpoint    = "invest-public-api.tinkoff.ru:443"
)

// Connector implements broker.Connector. Quantities are shares; orders are
// converted to whole lots and rejected when that rounds to zero.
type Connector struct {
	base   context.Context
	cfg    config.TinkoffConfig
	clock  *broker.SessionClock
	logger *logger.Logger
	now    func() time.Time

	mu     sync.RWMutex
	client *investgo.Client

	instruments sync.Map // ticker -> instrument, uid -> instrument
	orders      sync.Map // order id -> broker.Order placed by this process
}

// New does not dial; Connect does. base outlives every call made through the
// client, so it must be the process context rather than a per-call one.
func New(base context.Context, cfg config.TinkoffConfig, clock *broker.SessionClock, log *logger.Logger) *Connector {
	return &Connector{
		base:   base,
		cfg:    cfg,
		clock:  clock,
		logger: log.Component("tinkoff"),
		now:    time.Now,
	}
}

func (c *Connector) Name() string {
	return "tinkoff"
}

func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	endpoint := liveEndpoint
	if c.cfg.Sandbox {
		endpoint = sandboxEndpoint
	}

	client, err := investgo.NewClient(c.base, investgo.Config{
		EndPoint:  endpoint,
		Token:     c.cfg.Token,
		AccountId: c.cfg.AccountID,
		AppName:   c.cfg.AppName,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("create investgo client: %w: %w", broker.ErrConnection, err)
	}

	if c.cfg.Sandbox && c.cfg.AccountID == "" {
		if err := fundSandbox(client); err != nil {
			_ = client.Stop()
			return fmt.Errorf("setup sandbox: %w", err)
		}
		c.logger.Info("sandbox account funded", "account_id", client.Config.AccountId)
	}

	c.client = client
	c.logger.Info("connected", "endpoint", endpoint, "account_id", client.Config.AccountId)
	return nil
}

func fundSandbox(client *investgo.Client) error {
	sandbox := client.NewSandboxServiceClient()
	_, err := sandbox.SandboxPayIn(&investgo.SandboxPayInRequest{
		AccountId: client.Config.AccountId,
		Currency:  "RUB",
		Unit:      1000000,
		Nano:      0,
	})
	if err != nil {
		return fmt.Errorf("sandbox pay in: %w", err)
	}
	return nil
}

func (c *Connector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Stop()
	c.client = nil
	return err
}

func (c *Connector) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil
}

func (c *Connector) conn() (*investgo.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, broker.ErrNotConnected
	}
	return c.client, nil
}

func (c *Connector) accountID(client *investgo.Client) string {
	return client.Config.AccountId
}

func (c *Connector) IsMarketOpen(ctx context.Context) (bool, error) {
	return c.clock.IsOpen(c.now()), nil
}

func (c *Connector) MarketHours(ctx context.Context) (*broker.MarketHours, error) {
	hours := c.clock.Hours(c.now())
	return &hours, nil
}

// wrap tags transport failures so the session reconnects on them.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.Aborted:
		return fmt.Errorf("%s: %w: %w", op, broker.ErrConnection, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
