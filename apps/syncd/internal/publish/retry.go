package publish

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
)

// retryPolicy bounds how individual remote calls are retried. Only
// transport-class failures (network, timeout, 5xx, rate limit) retry;
// NotFound, Conflict, Validation and Auth rejections are permanent.
type retryPolicy struct {
	maxTries        uint
	initialInterval time.Duration
}

func withRetry[T any](ctx context.Context, rp retryPolicy, op func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rp.initialInterval

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		var transport *gitstore.TransportError
		if errors.As(err, &transport) {
			return v, err
		}
		return v, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(rp.maxTries))
}

// withRetryErr is withRetry for operations with no result value.
func withRetryErr(ctx context.Context, rp retryPolicy, op func(context.Context) error) error {
	_, err := withRetry(ctx, rp, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
