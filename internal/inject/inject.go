package inject

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/imagine/internal/batch"
	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/feed"
	"github.com/dmorgan81/imagine/internal/handler"
	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/dmorgan81/imagine/internal/page"
	"github.com/dmorgan81/imagine/internal/param"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/dmorgan81/imagine/internal/store"
	"github.com/samber/do"
	"golang.org/x/time/rate"
)

func Setup(ctx context.Context, cfg *config.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})

	// AWS is only touched when a *_PARAM variable names an SSM parameter.
	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	fetcher := func() param.Fetcher {
		return do.MustInvoke[param.Fetcher](injector)
	}

	do.ProvideNamed[string](injector, "pollinations_token", func(i *do.Injector) (string, error) {
		return param.Resolve(ctx, fetcher, cfg.PollinationsToken, cfg.PollinationsTokenParam)
	})
	do.ProvideNamed[string](injector, "gemini_api_key", func(i *do.Injector) (string, error) {
		return param.Resolve(ctx, fetcher, cfg.GeminiAPIKey, cfg.GeminiAPIKeyParam)
	})
	do.ProvideNamed[[]string](injector, "prompts", func(i *do.Injector) ([]string, error) {
		return param.ResolveAll(ctx, fetcher, cfg.PromptsParam)
	})
	do.ProvideNamedValue[string](injector, "staging-dir", cfg.StagingDir)
	do.ProvideNamedValue[int](injector, "batch-concurrency", cfg.BatchConcurrency)

	do.ProvideValue[*http.Client](injector, &http.Client{Timeout: cfg.HTTPTimeout})
	do.Provide[*rate.Limiter](injector, func(i *do.Injector) (*rate.Limiter, error) {
		if cfg.FetchInterval <= 0 {
			return nil, nil
		}
		return rate.NewLimiter(rate.Every(cfg.FetchInterval), 1), nil
	})

	do.Provide[image.Fetcher](injector, func(i *do.Injector) (image.Fetcher, error) {
		return &image.RetryingFetcher{
			Next: &image.PollinationsFetcher{
				Client:   do.MustInvoke[*http.Client](i),
				BaseURL:  cfg.ImageBaseURL,
				Referrer: cfg.Referrer,
				Token:    do.MustInvokeNamed[string](i, "pollinations_token"),
			},
			Retries:  uint64(cfg.FetchRetries),
			Interval: cfg.FetchRetryInterval,
		}, nil
	})
	do.Provide[prompt.Enhancer](injector, func(i *do.Injector) (prompt.Enhancer, error) {
		return newEnhancer(ctx, i, cfg)
	})

	do.Provide[*store.Stager](injector, func(i *do.Injector) (*store.Stager, error) {
		return store.NewStager(do.MustInvokeNamed[string](i, "staging-dir"))
	})
	do.Provide[batch.Stager](injector, func(i *do.Injector) (batch.Stager, error) {
		return do.MustInvoke[*store.Stager](i), nil
	})

	do.Provide[*prompt.Randomizer](injector, prompt.NewRandomizer)
	do.Provide[*batch.Orchestrator](injector, batch.NewOrchestrator)
	do.Provide[*page.Templator](injector, page.NewTemplator)
	do.Provide[*feed.Generator](injector, feed.NewGenerator)
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}

func newEnhancer(ctx context.Context, i *do.Injector, cfg *config.Config) (prompt.Enhancer, error) {
	var enhancer prompt.Enhancer
	switch cfg.EnhancerProvider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderGemini:
		gemini, err := prompt.NewGeminiEnhancer(ctx, do.MustInvokeNamed[string](i, "gemini_api_key"), cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini enhancer: %w", err)
		}
		enhancer = gemini
	default:
		enhancer = &prompt.PollinationsEnhancer{
			Client:   do.MustInvoke[*http.Client](i),
			BaseURL:  cfg.TextBaseURL,
			Model:    cfg.TextModel,
			Referrer: cfg.Referrer,
			Token:    do.MustInvokeNamed[string](i, "pollinations_token"),
		}
	}
	if cfg.EnhanceCacheTTL > 0 {
		enhancer = prompt.NewCachingEnhancer(enhancer, cfg.EnhanceCacheTTL)
	}
	return enhancer, nil
}
