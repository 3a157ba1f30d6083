package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/camuig/autotrader/internal/logger"
)

const defaultCooldown = 2 * time.Minute

// Chain asks providers in order and returns the first non-empty answer. A
// provider that errors (other than ErrNoData) is benched for a cooldown so a
// dead upstream does not slow every symbol. All providers share one rate limit.
type Chain struct {
	providers []Provider
	limiter   *rate.Limiter
	cooldown  time.Duration
	logger    *logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	benched map[string]time.Time
}

// NewChain limits requests to requestsPerMinute across providers; zero
// disables limiting.
func NewChain(providers []Provider, requestsPerMinute int, log *logger.Logger) *Chain {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		burst := requestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), burst)
	}
	return &Chain{
		providers: providers,
		limiter:   limiter,
		cooldown:  defaultCooldown,
		logger:    log.Component("marketdata"),
		now:       time.Now,
		benched:   make(map[string]time.Time),
	}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c *Chain) isBenched(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.benched[name]
	if !ok {
		return false
	}
	if c.now().After(until) {
		delete(c.benched, name)
		return false
	}
	return true
}

func (c *Chain) bench(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.benched[name] = c.now().Add(c.cooldown)
}

func (c *Chain) Bars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	var errs []error
	for _, p := range c.providers {
		if c.isBenched(p.Name()) {
			continue
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		bars, err := p.Bars(ctx, symbol, from, to)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err == nil {
			err = ErrNoData
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if !errors.Is(err, ErrNoData) {
			c.bench(p.Name())
			c.logger.Warn("provider failed, benched", "provider", p.Name(), "symbol", symbol,
				"cooldown", c.cooldown, "error", err)
		}
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%s: all providers cooling down", symbol)
	}
	return nil, errors.Join(errs...)
}

// LastPrice is the most recent close within the past two weeks.
func (c *Chain) LastPrice(ctx context.Context, symbol string) (float64, error) {
	to := c.now()
	bars, err := c.Bars(ctx, symbol, to.AddDate(0, 0, -14), to)
	if err != nil {
		return 0, err
	}
	return bars[len(bars)-1].Close, nil
}
