package storefront

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
)

// RetryPolicy bounds how retryable calls are repeated.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxElapsed      time.Duration
	MaxRetries      uint64
}

// DefaultRetryPolicy is used by the storefront CLI.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 200 * time.Millisecond,
	MaxElapsed:      10 * time.Second,
	MaxRetries:      4,
}

// Retry runs op until it succeeds, fails with an error that is not
// ErrRetryable, or the policy is exhausted. Only failures where the server
// committed nothing are retried, so repeating an order submission is safe.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxElapsedTime = p.MaxElapsed

	var b backoff.BackOff = eb
	if p.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, p.MaxRetries)
	}

	var out T
	err := backoff.Retry(func() error {
		v, err := op(ctx)
		if err != nil {
			if errors.Is(err, ErrRetryable) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = v
		return nil
	}, backoff.WithContext(b, ctx))
	return out, err
}
