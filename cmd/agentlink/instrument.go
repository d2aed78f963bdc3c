package main

import (
	"context"
	"time"

	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/card"
	"github.com/BaSui01/agentlink/internal/metrics"
)

// instrumentedCache records card cache hits and misses around an
// inner CardCache.
type instrumentedCache struct {
	inner     a2a.CardCache
	collector *metrics.Collector
	backend   string
}

func instrumentCache(inner a2a.CardCache, collector *metrics.Collector, backend string) a2a.CardCache {
	if backend == "" {
		backend = "memory"
	}
	return &instrumentedCache{inner: inner, collector: collector, backend: backend}
}

func (c *instrumentedCache) Get(ctx context.Context, url string) (*card.Card, bool) {
	got, ok := c.inner.Get(ctx, url)
	if ok {
		c.collector.RecordCardCacheHit(c.backend)
	} else {
		c.collector.RecordCardCacheMiss(c.backend)
	}
	return got, ok
}

func (c *instrumentedCache) Set(ctx context.Context, url string, card *card.Card) {
	c.inner.Set(ctx, url, card)
}

func (c *instrumentedCache) Purge(ctx context.Context) {
	c.inner.Purge(ctx)
}

// instrumentedResolver times card resolutions around an inner
// CardResolver.
type instrumentedResolver struct {
	inner     a2a.CardResolver
	collector *metrics.Collector
}

func instrumentResolver(inner a2a.CardResolver, collector *metrics.Collector) a2a.CardResolver {
	return &instrumentedResolver{inner: inner, collector: collector}
}

func (r *instrumentedResolver) Resolve(ctx context.Context, url string) (*card.Card, error) {
	start := time.Now()
	got, err := r.inner.Resolve(ctx, url)
	r.collector.RecordResolution(resolutionStatus(err), time.Since(start))
	return got, err
}

func (r *instrumentedResolver) ResolveCached(ctx context.Context, url string) (*card.Card, error) {
	start := time.Now()
	got, err := r.inner.ResolveCached(ctx, url)
	r.collector.RecordResolution(resolutionStatus(err), time.Since(start))
	return got, err
}

func resolutionStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var (
	_ a2a.CardCache    = (*instrumentedCache)(nil)
	_ a2a.CardResolver = (*instrumentedResolver)(nil)
)
