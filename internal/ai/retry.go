package ai

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy retries transient failures with exponential backoff and no
// jitter: with the defaults the waits are 5s, 15s, 45s.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Multiplier float64

	// Timer is used for the waits between attempts; nil means the real clock.
	Timer backoff.Timer
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Initial: 5 * time.Second, Multiplier: 3}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs op until it succeeds, returns a non-retryable error, or the retries
// run out. notify is called before every wait.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error, notify func(err error, wait time.Duration)) error {
	if p.Initial <= 0 {
		p.Initial = 5 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 3
	}

	operation := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Classify(err).Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.RetryNotifyWithTimer(operation, p.backOff(ctx), notify, p.Timer)
}
