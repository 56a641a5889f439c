package prompt

import (
	"context"
	"time"

	"github.com/dmorgan81/imagine/internal/log"
	"github.com/patrickmn/go-cache"
)

// CachingEnhancer remembers successful rewrites per prompt and style.
// Failures pass through uncached so the next batch tries again.
type CachingEnhancer struct {
	next  Enhancer
	cache *cache.Cache
}

func NewCachingEnhancer(next Enhancer, ttl time.Duration) *CachingEnhancer {
	return &CachingEnhancer{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachingEnhancer) Enhance(ctx context.Context, prompt string, style Style) (string, error) {
	key := string(style) + "\x00" + prompt
	if v, ok := c.cache.Get(key); ok {
		if s, ok := v.(string); ok {
			log.FromContextOrDiscard(ctx).Debug("enhanced prompt served from cache", "style", style)
			return s, nil
		}
	}

	enhanced, err := c.next.Enhance(ctx, prompt, style)
	if err != nil {
		return "", err
	}
	if enhanced != "" {
		c.cache.Set(key, enhanced, cache.DefaultExpiration)
	}
	return enhanced, nil
}
