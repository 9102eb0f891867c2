package gemini

import (
	"context"
	"time"

	"livechat/internal/config"

	"github.com/cenkalti/backoff/v4"
)

const maxRetryDelay = time.Minute

// RetryPolicy bounds the upstream call: at most MaxAttempts tries, waiting
// InitialDelay before the second and multiplying the wait each time after.
type RetryPolicy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	Multiplier     float64
	AttemptTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialDelay:   time.Second,
		Multiplier:     2,
		AttemptTimeout: 30 * time.Second,
	}
}

func RetryPolicyFromConfig(cfg config.GeminiConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoff > 0 {
		p.InitialDelay = cfg.InitialBackoff
	}
	if cfg.AttemptTimeout > 0 {
		p.AttemptTimeout = cfg.AttemptTimeout
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 2
	}
	b.RandomizationFactor = 0
	b.MaxInterval = maxRetryDelay
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs op until it succeeds or the attempts run out, returning the last
// error. Attempts are strictly sequential and numbered from 1; each one gets
// its own deadline when AttemptTimeout is set. A nil timer uses real time.
func (p RetryPolicy) Do(ctx context.Context, timer backoff.Timer, op func(ctx context.Context, attempt int) error) error {
	attempt := 0
	return backoff.RetryNotifyWithTimer(func() error {
		attempt++
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		defer cancel()
		return op(attemptCtx, attempt)
	}, p.backOff(ctx), nil, timer)
}
