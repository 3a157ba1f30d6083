package coordinator

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/risk"
)

const (
	SourceBroker   = "broker"
	SourceSnapshot = "snapshot"
)

var errNoAccount = errors.New("no account from broker and no snapshot")

// Book is the account state used for one decision.
type Book struct {
	Account       broker.Account    `json:"account"`
	Positions     []broker.Position `json:"positions"`
	Source        string            `json:"source"`
	PositionsLive bool              `json:"-"`
	SnapshotAt    *time.Time        `json:"snapshot_at,omitempty"`
}

// loadBook asks the broker first and falls back to the latest persisted
// snapshot for whatever the broker could not answer.
func (c *Coordinator) loadBook(ctx context.Context) (*Book, error) {
	bctx, cancel := c.withTimeout(ctx, c.cfg.Timeouts.Broker())
	defer cancel()

	acct := c.session.Account(bctx)
	positions, ok := c.session.Positions(bctx)
	if acct != nil && ok {
		return &Book{Account: *acct, Positions: positions, Source: SourceBroker, PositionsLive: true}, nil
	}

	snap, err := c.repo.LatestSnapshot(ctx)
	if err != nil {
		c.logger.Error("load portfolio snapshot", "error", err)
	}

	book := &Book{Source: SourceBroker, PositionsLive: ok, Positions: positions}
	if snap != nil {
		at := snap.CreatedAt
		book.SnapshotAt = &at
		if !ok {
			book.Positions = snap.BrokerPositions()
		}
	}

	switch {
	case acct != nil:
		book.Account = *acct
	case snap != nil:
		book.Account = snap.Account()
		book.Source = SourceSnapshot
	default:
		return nil, errNoAccount
	}
	if book.Positions == nil {
		book.Positions = []broker.Position{}
	}
	return book, nil
}

// Portfolio returns the live book, or the snapshot when the broker is down.
func (c *Coordinator) Portfolio(ctx context.Context) (*Book, error) {
	return c.loadBook(ctx)
}

// symbols is the watchlist plus every held symbol, sorted and deduplicated.
func (c *Coordinator) symbols(positions []broker.Position) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range c.cfg.Trading.Watchlist {
		add(s)
	}
	for _, p := range positions {
		if p.Quantity != 0 {
			add(p.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Coordinator) startOfDay() time.Time {
	loc := c.cfg.MarketLocation()
	y, m, d := c.now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC()
}

// riskState is rebuilt from storage every run. Read failures fail closed.
func (c *Coordinator) riskState(ctx context.Context, book *Book, log *logger.Logger) risk.State {
	trades, err := c.repo.CountTradesSince(ctx, c.startOfDay())
	if err != nil {
		log.Error("count today's trades, blocking new trades", "error", err)
		trades = c.cfg.Trading.MaxDailyTrades
	}
	kill, err := c.repo.KillSwitchActive(ctx)
	if err != nil {
		log.Error("read kill switch, treating as active", "error", err)
		kill = true
	}
	return risk.NewState(trades, kill, book.Account, book.Positions)
}

func (c *Coordinator) limits() risk.Limits {
	return risk.LimitsFromConfig(c.cfg.Trading)
}

// RiskStatus reports current utilisation of the risk limits.
func (c *Coordinator) RiskStatus(ctx context.Context) (*risk.Status, error) {
	book, err := c.loadBook(ctx)
	if err != nil {
		return nil, err
	}
	st := risk.CurrentStatus(book.Account, c.riskState(ctx, book, c.logger), c.limits())
	return &st, nil
}

// MarketHours asks the broker for the current session window.
func (c *Coordinator) MarketHours(ctx context.Context) *broker.MarketHours {
	mctx, cancel := c.withTimeout(ctx, c.cfg.Timeouts.MarketHours())
	defer cancel()
	return c.session.MarketHours(mctx)
}
