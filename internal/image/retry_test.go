package image

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedFetcher struct {
	errs  []error
	calls int
}

func (f *scriptedFetcher) Fetch(_ context.Context, params Params) (*Artifact, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return &Artifact{Data: pngHeader, ContentType: "image/png", Seed: params.Seed}, nil
}

func TestRetryingFetcher(t *testing.T) {
	ctx := context.Background()
	refused := &net.OpError{Op: "dial", Err: errors.New("connection refused")}

	t.Run("retries transient failures", func(t *testing.T) {
		next := &scriptedFetcher{errs: []error{&StatusError{Code: 503}, refused}}
		f := &RetryingFetcher{Next: next, Retries: 2, Interval: time.Millisecond}
		a, err := f.Fetch(ctx, Params{Seed: 7})
		require.NoError(t, err)
		assert.Equal(t, int64(7), a.Seed)
		assert.Equal(t, 3, next.calls)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		next := &scriptedFetcher{errs: []error{refused, refused, refused, refused}}
		f := &RetryingFetcher{Next: next, Retries: 2, Interval: time.Millisecond}
		_, err := f.Fetch(ctx, Params{})
		assert.Equal(t, "NetworkError", Kind(err))
		assert.Equal(t, 3, next.calls)
	})

	t.Run("permanent failures are not retried", func(t *testing.T) {
		for _, perm := range []error{ErrInvalidArtifact, &StatusError{Code: 400}} {
			next := &scriptedFetcher{errs: []error{perm}}
			f := &RetryingFetcher{Next: next, Retries: 3, Interval: time.Millisecond}
			_, err := f.Fetch(ctx, Params{})
			assert.ErrorIs(t, err, perm)
			assert.Equal(t, 1, next.calls)
		}
	})

	t.Run("zero retries calls once", func(t *testing.T) {
		next := &scriptedFetcher{errs: []error{refused}}
		f := &RetryingFetcher{Next: next}
		_, err := f.Fetch(ctx, Params{})
		assert.Error(t, err)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		next := &scriptedFetcher{errs: []error{context.Canceled}}
		f := &RetryingFetcher{Next: next, Retries: 3, Interval: time.Millisecond}
		_, err := f.Fetch(ctx, Params{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, next.calls)
	})
}
