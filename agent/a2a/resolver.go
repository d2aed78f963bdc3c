package a2a

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentlink/agent/card"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CardResolver fetches capability cards from agents' well-known
// endpoints.
type CardResolver interface {
	// Resolve fetches the card fresh, bypassing any cache. Register
	// paths must use this.
	Resolve(ctx context.Context, url string) (*card.Card, error)
	// ResolveCached consults the TTL card cache first. Meant for the
	// peer-chain fallback scan, where a slightly stale card is fine.
	ResolveCached(ctx context.Context, url string) (*card.Card, error)
}

// ResolverConfig holds configuration for the card resolver.
type ResolverConfig struct {
	// Timeout bounds one card fetch. Resolution calls are short.
	Timeout time.Duration
	// WellKnownPath is the card endpoint path relative to the agent
	// base URL.
	WellKnownPath string
	// Headers are additional headers to include in requests.
	Headers map[string]string
}

// DefaultResolverConfig returns a ResolverConfig with sensible
// defaults.
func DefaultResolverConfig() *ResolverConfig {
	return &ResolverConfig{
		Timeout:       10 * time.Second,
		WellKnownPath: ".well-known/agent.json",
		Headers:       make(map[string]string),
	}
}

// HTTPResolver is the default CardResolver over HTTP. Concurrent
// resolves of the same URL are coalesced; there are no automatic
// retries.
type HTTPResolver struct {
	config     *ResolverConfig
	httpClient *http.Client
	cache      CardCache
	group      singleflight.Group
	logger     *zap.Logger
}

// NewHTTPResolver creates an HTTPResolver. A nil cache disables
// ResolveCached's cache layer (it degrades to Resolve).
func NewHTTPResolver(config *ResolverConfig, cache CardCache, logger *zap.Logger) *HTTPResolver {
	if config == nil {
		config = DefaultResolverConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPResolver{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache:  cache,
		logger: logger.With(zap.String("component", "card_resolver")),
	}
}

// Resolve fetches and decodes the capability card at url. All failure
// modes collapse to ErrResolveFailed with the underlying cause;
// resolution is all-or-nothing.
func (r *HTTPResolver) Resolve(ctx context.Context, url string) (*card.Card, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty url", ErrResolveFailed)
	}
	normalized := card.NormalizeURL(url)

	v, err, _ := r.group.Do(normalized, func() (any, error) {
		// Coalesced callers share one fetch, so it must not inherit
		// the initiating caller's cancellation. Detach and bound the
		// fetch by the configured timeout instead.
		timeout := r.config.Timeout
		if timeout <= 0 {
			timeout = DefaultResolverConfig().Timeout
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return r.fetch(fetchCtx, normalized)
	})
	if err != nil {
		return nil, err
	}
	return v.(*card.Card).Clone(), nil
}

// ResolveCached returns a cached card when present, fetching and
// caching on miss.
func (r *HTTPResolver) ResolveCached(ctx context.Context, url string) (*card.Card, error) {
	normalized := card.NormalizeURL(url)
	if r.cache != nil {
		if c, ok := r.cache.Get(ctx, normalized); ok {
			return c, nil
		}
	}

	c, err := r.Resolve(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, normalized, c)
	}
	return c, nil
}

func (r *HTTPResolver) fetch(ctx context.Context, normalized string) (*card.Card, error) {
	endpoint := normalized + strings.TrimPrefix(r.config.WellKnownPath, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d from %s", ErrResolveFailed, resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}

	c, err := card.Decode(body, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}

	r.logger.Debug("card resolved",
		zap.String("url", c.URL),
		zap.String("agent", c.Name),
		zap.Strings("skills", c.Skills),
	)
	return c, nil
}

// Ensure HTTPResolver implements CardResolver.
var _ CardResolver = (*HTTPResolver)(nil)
