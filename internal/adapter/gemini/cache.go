package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/crop-advisor-service/internal/domain"
	"github.com/couchcryptid/crop-advisor-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

// CachedAdvisor wraps an Advisor with a size-bounded, time-limited answer cache.
type CachedAdvisor struct {
	inner   domain.Advisor
	cache   *lru.Cache[string, cachedAnswer]
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

type cachedAnswer struct {
	answer    string
	expiresAt time.Time
}

// NewCachedAdvisor creates a cache decorator around an advisor. Entries are
// keyed by the rendered prompt.
func NewCachedAdvisor(inner domain.Advisor, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) (*CachedAdvisor, error) {
	cache, err := lru.New[string, cachedAnswer](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create advice cache: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedAdvisor{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}, nil
}

func (c *CachedAdvisor) Advise(ctx context.Context, req domain.AdviceRequest) domain.Advice {
	key := req.Prompt()
	if entry, ok := c.cache.Get(key); ok {
		if c.clock.Now().Before(entry.expiresAt) {
			c.metrics.AdviceCache.WithLabelValues("hit").Inc()
			return domain.Advice{Answer: entry.answer, Source: domain.AdviceCached}
		}
		c.cache.Remove(key)
		c.metrics.AdviceCache.WithLabelValues("expired").Inc()
	} else {
		c.metrics.AdviceCache.WithLabelValues("miss").Inc()
	}

	advice := c.inner.Advise(ctx, req)
	// Fallbacks are not cached so a recovered upstream is used on the next request.
	if advice.Source == domain.AdviceRemote {
		c.cache.Add(key, cachedAnswer{answer: advice.Answer, expiresAt: c.clock.Now().Add(c.ttl)})
	}
	return advice
}

// Len reports the number of cached answers, including expired ones not yet evicted.
func (c *CachedAdvisor) Len() int {
	return c.cache.Len()
}
