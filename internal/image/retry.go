package image

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmorgan81/imagine/internal/log"
)

// RetryingFetcher retries transient provider failures with exponential
// backoff. Invalid artifacts and client errors are returned immediately.
type RetryingFetcher struct {
	Next     Fetcher
	Retries  uint64
	Interval time.Duration
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (f *RetryingFetcher) Fetch(ctx context.Context, params Params) (*Artifact, error) {
	if f.Retries == 0 {
		return f.Next.Fetch(ctx, params)
	}

	log := log.FromContextOrDiscard(ctx)
	b := backoff.NewExponentialBackOff()
	if f.Interval > 0 {
		b.InitialInterval = f.Interval
	}

	attempt := 0
	var artifact *Artifact
	err := backoff.Retry(func() error {
		attempt++
		a, err := f.Next.Fetch(ctx, params)
		if err == nil {
			artifact = a
			return nil
		}
		if !transient(err) {
			return backoff.Permanent(err)
		}
		log.Warn("transient fetch failure", "attempt", attempt, "seed", params.Seed, "error", err)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, f.Retries), ctx))
	if err != nil {
		return nil, err
	}
	return artifact, nil
}
