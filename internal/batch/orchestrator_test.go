package batch

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/dmorgan81/imagine/internal/seed"
	"github.com/dmorgan81/imagine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type recordingFetcher struct {
	mu     sync.Mutex
	calls  []image.Params
	result func(image.Params) (*image.Artifact, error)
}

func (f *recordingFetcher) Fetch(_ context.Context, params image.Params) (*image.Artifact, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	f.mu.Unlock()
	if f.result != nil {
		return f.result(params)
	}
	return &image.Artifact{Data: png, ContentType: "image/png", Seed: params.Seed}, nil
}

func (f *recordingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type countingEnhancer struct {
	calls atomic.Int32
	out   string
	err   error
}

func (e *countingEnhancer) Enhance(context.Context, string, prompt.Style) (string, error) {
	e.calls.Add(1)
	return e.out, e.err
}

func newStager(t *testing.T) (*store.Stager, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewStager(dir)
	require.NoError(t, err)
	return s, dir
}

func request(p string, count int) Request {
	return Request{
		Prompt: p,
		Style:  prompt.StyleNone,
		Model:  image.ModelFlux,
		Seed:   seed.Random,
		Width:  1024,
		Height: 1024,
		NoLogo: true,
		Count:  count,
	}
}

func stagedFiles(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestGenerateValidation(t *testing.T) {
	ctx := context.Background()
	stager, _ := newStager(t)

	tests := []struct {
		name  string
		req   func(Request) Request
		field string
		err   error
	}{
		{"empty prompt", func(r Request) Request { r.Prompt = ""; return r }, "prompt", ErrEmptyPrompt},
		{"blank prompt", func(r Request) Request { r.Prompt = " \t\n"; return r }, "prompt", ErrEmptyPrompt},
		{"zero count", func(r Request) Request { r.Count = 0; return r }, "count", ErrInvalidCount},
		{"unknown model", func(r Request) Request { r.Model = "dalle"; return r }, "model", image.ErrUnknownModel},
		{"unknown style", func(r Request) Request { r.Style = "Watercolor"; return r }, "style", prompt.ErrUnknownStyle},
		{"narrow width", func(r Request) Request { r.Width = 100; return r }, "width", ErrInvalidDimension},
		{"tall height", func(r Request) Request { r.Height = 4096; return r }, "height", ErrInvalidDimension},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &recordingFetcher{}
			enhancer := &countingEnhancer{out: "x"}
			o := &Orchestrator{Fetcher: fetcher, Enhancer: enhancer, Stager: stager}

			req := tt.req(request("a cat", 2))
			req.UseAIEnhancement = true
			res, err := o.Generate(ctx, req)
			assert.Nil(t, res)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, tt.err)
			assert.Zero(t, fetcher.count())
			assert.Zero(t, enhancer.calls.Load())
		})
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("fixed seeds increase by index in order", func(t *testing.T) {
		stager, dir := newStager(t)
		fetcher := &recordingFetcher{}
		o := &Orchestrator{Fetcher: fetcher, Stager: stager, Concurrency: 2}

		req := request("a cat", 3)
		req.Seed = 42
		res, err := o.Generate(ctx, req)
		require.NoError(t, err)

		assert.Len(t, res.Images, 3)
		assert.Empty(t, res.Failures)
		assert.NotEmpty(t, res.BatchID)
		assert.Equal(t, []int64{42, 43, 44}, res.Seeds())
		for i, a := range res.Attempts {
			assert.Equal(t, i, a.Index)
			assert.Equal(t, res.Images[i], a.Path)
			assert.FileExists(t, a.Path)
		}
		assert.Len(t, stagedFiles(t, dir), 3)
		assert.ElementsMatch(t, []int64{42, 43, 44}, []int64{fetcher.calls[0].Seed, fetcher.calls[1].Seed, fetcher.calls[2].Seed})
	})

	t.Run("random seeds stay in range", func(t *testing.T) {
		stager, _ := newStager(t)
		o := &Orchestrator{Fetcher: &recordingFetcher{}, Stager: stager}

		res, err := o.Generate(ctx, request("a cat", 4))
		require.NoError(t, err)
		for _, s := range res.Seeds() {
			assert.GreaterOrEqual(t, s, int64(0))
			assert.LessOrEqual(t, s, seed.Max)
		}
	})

	t.Run("request parameters reach the fetcher", func(t *testing.T) {
		stager, _ := newStager(t)
		fetcher := &recordingFetcher{}
		o := &Orchestrator{Fetcher: fetcher, Stager: stager}

		req := request("a cat", 1)
		req.Model = ""
		req.Width, req.Height = 1000, 300
		req.EnhanceImage, req.Private, req.Safe = true, true, true
		res, err := o.Generate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, image.ModelFlux, res.Request.Model)
		assert.Equal(t, 1024, res.Request.Width)
		assert.Equal(t, 320, res.Request.Height)

		require.Len(t, fetcher.calls, 1)
		p := fetcher.calls[0]
		assert.Equal(t, image.ModelFlux, p.Model)
		assert.Equal(t, 1024, p.Width)
		assert.Equal(t, 320, p.Height)
		assert.True(t, p.Enhance)
		assert.True(t, p.NoLogo)
		assert.True(t, p.Private)
		assert.True(t, p.Safe)
	})

	t.Run("style suffix without enhancement", func(t *testing.T) {
		stager, _ := newStager(t)
		fetcher := &recordingFetcher{}
		enhancer := &countingEnhancer{out: "ignored"}
		o := &Orchestrator{Fetcher: fetcher, Enhancer: enhancer, Stager: stager}

		req := request("a cat", 2)
		req.Style = prompt.StyleCyberpunk
		res, err := o.Generate(ctx, req)
		require.NoError(t, err)

		want := "a cat, cyberpunk style, neon colors, high-tech, dystopian, futuristic"
		for _, c := range fetcher.calls {
			assert.Equal(t, want, c.Prompt)
		}
		assert.Equal(t, "a cat", res.Prompt)
		assert.Zero(t, enhancer.calls.Load())
	})

	t.Run("enhancement runs once and replaces the style suffix", func(t *testing.T) {
		stager, _ := newStager(t)
		fetcher := &recordingFetcher{}
		enhancer := &countingEnhancer{out: "  a luminous cat in rain  "}
		o := &Orchestrator{Fetcher: fetcher, Enhancer: enhancer, Stager: stager, Concurrency: 4}

		req := request("a cat", 4)
		req.Style = prompt.StyleAnime
		req.UseAIEnhancement = true
		res, err := o.Generate(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, int32(1), enhancer.calls.Load())
		assert.Equal(t, "a luminous cat in rain", res.Prompt)
		require.Len(t, fetcher.calls, 4)
		for _, c := range fetcher.calls {
			assert.Equal(t, "a luminous cat in rain", c.Prompt)
		}
	})

	t.Run("failed enhancement falls back to the bare prompt", func(t *testing.T) {
		stager, _ := newStager(t)
		fetcher := &recordingFetcher{}
		enhancer := &countingEnhancer{err: errors.New("llm down")}
		o := &Orchestrator{Fetcher: fetcher, Enhancer: enhancer, Stager: stager}

		req := request("a cat", 2)
		req.Style = prompt.StyleGhibli
		req.UseAIEnhancement = true
		res, err := o.Generate(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, "a cat", res.Prompt)
		for _, c := range fetcher.calls {
			assert.Equal(t, "a cat", c.Prompt)
		}
	})

	t.Run("partial success keeps order and reports the failed index", func(t *testing.T) {
		stager, _ := newStager(t)
		fetcher := &recordingFetcher{result: func(p image.Params) (*image.Artifact, error) {
			if p.Seed == 1 {
				return nil, &image.StatusError{Code: 500, Body: "boom"}
			}
			return &image.Artifact{Data: png, ContentType: "image/png", Seed: p.Seed}, nil
		}}
		o := &Orchestrator{Fetcher: fetcher, Stager: stager}

		req := request("a cat", 3)
		req.Seed = 0
		res, err := o.Generate(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, []string{"Image 2 error: StatusError"}, res.Failures)
		require.Len(t, res.Images, 2)
		assert.Equal(t, res.Attempts[0].Path, res.Images[0])
		assert.Equal(t, res.Attempts[2].Path, res.Images[1])
		assert.Equal(t, []int64{0, 2}, res.Seeds())
	})

	t.Run("total failure joins every reason", func(t *testing.T) {
		stager, dir := newStager(t)
		fetcher := &recordingFetcher{result: func(p image.Params) (*image.Artifact, error) {
			if p.Seed == 0 {
				return nil, image.ErrInvalidArtifact
			}
			return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}}
		o := &Orchestrator{Fetcher: fetcher, Stager: stager}

		req := request("a cat", 2)
		req.Seed = 0
		res, err := o.Generate(ctx, req)
		assert.Nil(t, res)

		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, "Image 1 generation failed: Invalid data from API\nImage 2 error: NetworkError", err.Error())
		assert.Len(t, exhausted.Failures, 2)
		assert.Empty(t, stagedFiles(t, dir))
	})

	t.Run("nil artifact is invalid data", func(t *testing.T) {
		stager, _ := newStager(t)
		fetcher := &recordingFetcher{result: func(image.Params) (*image.Artifact, error) { return nil, nil }}
		o := &Orchestrator{Fetcher: fetcher, Stager: stager}

		_, err := o.Generate(ctx, request("a cat", 1))
		assert.EqualError(t, err, "Image 1 generation failed: Invalid data from API")
	})

	t.Run("empty files are removed", func(t *testing.T) {
		stager, dir := newStager(t)
		fetcher := &recordingFetcher{result: func(p image.Params) (*image.Artifact, error) {
			if p.Seed == 10 {
				return &image.Artifact{ContentType: "image/png", Seed: p.Seed}, nil
			}
			return &image.Artifact{Data: png, ContentType: "image/png", Seed: p.Seed}, nil
		}}
		o := &Orchestrator{Fetcher: fetcher, Stager: stager}

		req := request("a cat", 2)
		req.Seed = 10
		res, err := o.Generate(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, []string{"Image 1 failed: Output file is missing or empty (size: 0)"}, res.Failures)
		assert.Len(t, res.Images, 1)
		assert.Len(t, stagedFiles(t, dir), 1)
	})

	t.Run("missing files report size -1", func(t *testing.T) {
		stager, dir := newStager(t)
		o := &Orchestrator{Fetcher: &recordingFetcher{}, Stager: &vanishingStager{stager}}

		_, err := o.Generate(ctx, request("a cat", 1))
		assert.EqualError(t, err, "Image 1 failed: Output file is missing or empty (size: -1)")
		assert.Empty(t, stagedFiles(t, dir))
	})

	t.Run("save errors discard the file", func(t *testing.T) {
		stager, dir := newStager(t)
		o := &Orchestrator{Fetcher: &recordingFetcher{}, Stager: &brokenStager{stager}}

		_, err := o.Generate(ctx, request("a cat", 1))
		assert.EqualError(t, err, "Image 1 error: SaveError")
		assert.Empty(t, stagedFiles(t, dir))
	})

	t.Run("canceled context records every attempt", func(t *testing.T) {
		stager, _ := newStager(t)
		fetcher := &recordingFetcher{}
		o := &Orchestrator{Fetcher: fetcher, Stager: stager}

		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := o.Generate(ctx, request("a cat", 2))
		assert.EqualError(t, err, "Image 1 error: Canceled\nImage 2 error: Canceled")
		assert.Zero(t, fetcher.count())
	})

	t.Run("concurrency is bounded", func(t *testing.T) {
		stager, _ := newStager(t)
		var inFlight, peak atomic.Int32
		fetcher := &recordingFetcher{result: func(p image.Params) (*image.Artifact, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			return &image.Artifact{Data: png, ContentType: "image/png", Seed: p.Seed}, nil
		}}
		o := &Orchestrator{Fetcher: fetcher, Stager: stager, Concurrency: 2}

		res, err := o.Generate(ctx, request("a cat", 6))
		require.NoError(t, err)
		assert.Len(t, res.Images, 6)
		assert.LessOrEqual(t, peak.Load(), int32(2))
	})

	t.Run("rate limiter gates fetches", func(t *testing.T) {
		stager, _ := newStager(t)
		fetcher := &recordingFetcher{}
		o := &Orchestrator{
			Fetcher: fetcher,
			Stager:  stager,
			Limiter: rate.NewLimiter(rate.Every(time.Millisecond), 1),
		}

		res, err := o.Generate(ctx, request("a cat", 3))
		require.NoError(t, err)
		assert.Len(t, res.Images, 3)
		assert.Equal(t, 3, fetcher.count())
	})
}

type vanishingStager struct {
	*store.Stager
}

func (s *vanishingStager) Save(_ context.Context, _ *image.Artifact, path string) error {
	return os.Remove(path)
}

type brokenStager struct {
	*store.Stager
}

func (s *brokenStager) Save(context.Context, *image.Artifact, string) error {
	return errors.New("disk full")
}
