package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/dmorgan81/imagine/internal/seed"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const saveError = "SaveError"

// Stager allocates, writes and validates the files images are staged into.
type Stager interface {
	Allocate(ext string) (string, error)
	Save(ctx context.Context, artifact *image.Artifact, path string) error
	Inspect(path string) int64
	Discard(path string) error
}

type Attempt struct {
	Index  int    `json:"index"`
	Seed   int64  `json:"seed"`
	Prompt string `json:"prompt"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (a Attempt) OK() bool {
	return a.Path != ""
}

type Result struct {
	BatchID  string    `json:"batch_id"`
	Request  Request   `json:"request"`
	Images   []string  `json:"images"`
	Prompt   string    `json:"prompt"`
	Failures []string  `json:"failures"`
	Attempts []Attempt `json:"attempts"`
}

// Seeds lists the seeds of the successful attempts, aligned with Images.
func (r *Result) Seeds() []int64 {
	return lo.FilterMap(r.Attempts, func(a Attempt, _ int) (int64, bool) {
		return a.Seed, a.OK()
	})
}

type Orchestrator struct {
	Fetcher     image.Fetcher
	Enhancer    prompt.Enhancer
	Stager      Stager
	Concurrency int
	Limiter     *rate.Limiter
}

func NewOrchestrator(i *do.Injector) (*Orchestrator, error) {
	enhancer, err := do.Invoke[prompt.Enhancer](i)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		Fetcher:     do.MustInvoke[image.Fetcher](i),
		Enhancer:    enhancer,
		Stager:      do.MustInvoke[Stager](i),
		Concurrency: do.MustInvokeNamed[int](i, "batch-concurrency"),
		Limiter:     do.MustInvoke[*rate.Limiter](i),
	}, nil
}

func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := log.FromContextOrDiscard(ctx).WithGroup("batch").With("batch", id)
	log.Info("starting batch", "count", req.Count, "model", req.Model, "style", req.Style, "seed", req.Seed)

	working := req.Prompt
	if req.UseAIEnhancement {
		working = prompt.EnhanceOrKeep(ctx, o.Enhancer, req.Prompt, req.Style)
	}
	effective := prompt.Compose(working, req.Style, req.UseAIEnhancement, working)

	attempts := make([]Attempt, req.Count)
	var g errgroup.Group
	g.SetLimit(lo.Ternary(o.Concurrency > 0, o.Concurrency, req.Count))
	for i := range attempts {
		g.Go(func() error {
			attempts[i] = o.attempt(ctx, req, i, effective)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{
		BatchID:  id,
		Request:  req,
		Prompt:   working,
		Attempts: attempts,
		Images:   []string{},
		Failures: []string{},
	}
	for _, a := range attempts {
		if a.OK() {
			result.Images = append(result.Images, a.Path)
		} else {
			result.Failures = append(result.Failures, a.Reason)
		}
	}

	log.Info("finished batch", "images", len(result.Images), "failures", len(result.Failures))
	if len(result.Images) == 0 && len(result.Failures) > 0 {
		return nil, &ExhaustedError{Failures: result.Failures}
	}
	return result, nil
}

func (o *Orchestrator) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.Limiter == nil {
		return nil
	}
	if err := o.Limiter.Wait(ctx); err != nil {
		return lo.Ternary(ctx.Err() != nil, ctx.Err(), err)
	}
	return nil
}

func (o *Orchestrator) attempt(ctx context.Context, req Request, i int, effective string) Attempt {
	a := Attempt{Index: i, Prompt: effective}
	n := i + 1
	log := log.FromContextOrDiscard(ctx).WithGroup("batch").With("image", n)

	fail := func(format string, args ...any) Attempt {
		a.Reason = fmt.Sprintf(format, args...)
		log.Warn("image failed", "reason", a.Reason)
		return a
	}

	if err := o.wait(ctx); err != nil {
		return fail("Image %d error: %s", n, image.Kind(err))
	}

	a.Seed = seed.Derive(req.Seed, int64(i))
	artifact, err := o.Fetcher.Fetch(ctx, image.Params{
		Prompt:  effective,
		Model:   req.Model,
		Seed:    a.Seed,
		Width:   req.Width,
		Height:  req.Height,
		Enhance: req.EnhanceImage,
		NoLogo:  req.NoLogo,
		Private: req.Private,
		Safe:    req.Safe,
	})
	switch {
	case errors.Is(err, image.ErrInvalidArtifact), err == nil && artifact == nil:
		return fail("Image %d generation failed: Invalid data from API", n)
	case err != nil:
		log.Debug("fetch error", "error", err)
		return fail("Image %d error: %s", n, image.Kind(err))
	}

	path, err := o.Stager.Allocate(artifact.Extension())
	if err != nil {
		log.Debug("allocate error", "error", err)
		return fail("Image %d error: %s", n, saveError)
	}
	if err := o.Stager.Save(ctx, artifact, path); err != nil {
		log.Debug("save error", "error", err, "file", path)
		_ = o.Stager.Discard(path)
		return fail("Image %d error: %s", n, saveError)
	}

	if size := o.Stager.Inspect(path); size <= 0 {
		_ = o.Stager.Discard(path)
		return fail("Image %d failed: Output file is missing or empty (size: %d)", n, size)
	}

	a.Path = path
	log.Info("image staged", "file", path, "seed", a.Seed)
	return a
}
