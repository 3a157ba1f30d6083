package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/camuig/autotrader/internal/config"
)

// Longport serves daily candlesticks over the LongPort quote API. The quote
// context is opened on first use and reopened after a failed dial.
type Longport struct {
	cfg    config.LongportConfig
	market string

	mu       sync.Mutex
	quoteCtx *quote.QuoteContext
}

func NewLongport(cfg config.LongportConfig) (*Longport, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" || cfg.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}
	return &Longport{cfg: cfg, market: "US"}, nil
}

func (l *Longport) Name() string {
	return "longport"
}

func (l *Longport) quotes() (*quote.QuoteContext, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.quoteCtx != nil {
		return l.quoteCtx, nil
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(l.cfg.AppKey, l.cfg.AppSecret, l.cfg.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("longport config: %w", err)
	}
	qc, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, fmt.Errorf("longport quote context: %w", err)
	}
	l.quoteCtx = qc
	return qc, nil
}

// lpSymbol adds the market suffix LongPort expects, e.g. AAPL -> AAPL.US.
func (l *Longport) lpSymbol(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + "." + l.market
}

func (l *Longport) Bars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	qc, err := l.quotes()
	if err != nil {
		return nil, err
	}

	days := int32(to.Sub(from).Hours()/24) + 1
	if days > 1000 {
		days = 1000
	}

	sticks, err := qc.Candlesticks(ctx, l.lpSymbol(symbol), quote.PeriodDay, days, quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("longport candlesticks %s: %w", symbol, err)
	}

	var bars []Bar
	for _, s := range sticks {
		at := time.Unix(s.Timestamp, 0).UTC()
		if at.Before(from) || at.After(to) {
			continue
		}
		closePrice, _ := s.Close.Float64()
		open, _ := s.Open.Float64()
		high, _ := s.High.Float64()
		low, _ := s.Low.Float64()
		bars = append(bars, Bar{
			Time:   at,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: float64(s.Volume),
		})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return sortBars(bars), nil
}
