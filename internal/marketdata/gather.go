package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/camuig/autotrader/internal/indicators"
	"github.com/camuig/autotrader/internal/logger"
)

// Gatherer fetches history for each symbol concurrently and reduces it to an
// indicator snapshot. A failing symbol is recorded in Result.Errors and left
// out of the snapshots; the rest of the batch continues.
type Gatherer struct {
	bars        Provider
	headlines   HeadlineSource
	lookback    time.Duration
	concurrency int
	timeout     time.Duration
	enabled     func(string) bool
	logger      *logger.Logger
	now         func() time.Time
}

type GathererOption func(*Gatherer)

func WithHeadlines(h HeadlineSource) GathererOption {
	return func(g *Gatherer) { g.headlines = h }
}

func WithIndicators(enabled func(string) bool) GathererOption {
	return func(g *Gatherer) { g.enabled = enabled }
}

func WithClock(now func() time.Time) GathererOption {
	return func(g *Gatherer) { g.now = now }
}

func NewGatherer(bars Provider, lookbackDays, concurrency int, timeout time.Duration, log *logger.Logger, opts ...GathererOption) *Gatherer {
	if concurrency <= 0 {
		concurrency = 8
	}
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	g := &Gatherer{
		bars:        bars,
		lookback:    time.Duration(lookbackDays) * 24 * time.Hour,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      log.Component("gather"),
		now:         time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gatherer) Gather(ctx context.Context, symbols []string) *Result {
	res := &Result{
		Snapshots: make(map[string]indicators.Snapshot),
		Errors:    make(map[string]string),
	}
	to := g.now()
	from := to.Add(-g.lookback)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, g.concurrency)
	)

	for _, symbol := range symbols {
		wg.Add(1)
		sem <- struct{}{}

		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()

			snap, err := g.one(ctx, sym, from, to)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				g.logger.Warn("symbol data unavailable", "symbol", sym, "error", err)
				res.Errors[sym] = err.Error()
				return
			}
			res.Snapshots[sym] = snap
		}(symbol)
	}

	if g.headlines != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hctx, cancel := g.withTimeout(ctx)
			defer cancel()
			h, err := g.headlines.Headlines(hctx, symbols)
			if err != nil {
				g.logger.Warn("headlines unavailable", "error", err)
				return
			}
			mu.Lock()
			res.Headlines = h
			mu.Unlock()
		}()
	}

	wg.Wait()
	return res
}

func (g *Gatherer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gatherer) one(ctx context.Context, symbol string, from, to time.Time) (snap indicators.Snapshot, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("provider panic: %v", p)
		}
	}()

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	bars, err := g.bars.Bars(ctx, symbol, from, to)
	if err != nil {
		return indicators.Snapshot{}, err
	}
	return indicators.Compute(symbol, toSeries(bars), g.enabled)
}
