package a2a

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/agentlink/agent/card"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/agent.json" {
			http.NotFound(w, r)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"name": "researcher",
			"description": "Finds facts",
			"url": "http://advertised.example.com",
			"version": "1.0.0",
			"skills": [
				{"id": "s1", "name": "Research", "tags": ["research", "facts"]},
				{"id": "s2", "name": "Summaries", "tags": ["summary", "facts"]}
			]
		}`))
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPResolver_Resolve(t *testing.T) {
	srv := cardServer(t, nil)

	resolver := NewHTTPResolver(nil, nil, nil)
	got, err := resolver.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)

	// Identity comes from the requested URL, not the advertised one.
	assert.Equal(t, card.NormalizeURL(srv.URL), got.URL)
	assert.Equal(t, "researcher", got.Name)
	assert.Equal(t, "Finds facts", got.Description)
	assert.Equal(t, []string{"facts", "research", "summary"}, got.Skills)
}

func TestHTTPResolver_Resolve_EmptyURL(t *testing.T) {
	resolver := NewHTTPResolver(nil, nil, nil)

	_, err := resolver.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrResolveFailed)
}

func TestHTTPResolver_Resolve_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	resolver := NewHTTPResolver(nil, nil, nil)
	_, err := resolver.Resolve(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrResolveFailed)
	assert.ErrorContains(t, err, "404")
}

func TestHTTPResolver_Resolve_MalformedCard(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `not json at all`},
		{name: "missing name", body: `{"description":"d","url":"http://x"}`},
		{name: "missing description", body: `{"name":"n","url":"http://x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			resolver := NewHTTPResolver(nil, nil, nil)
			_, err := resolver.Resolve(context.Background(), srv.URL)
			assert.Error(t, err)
		})
	}
}

func TestHTTPResolver_Resolve_TimeoutBound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	config := DefaultResolverConfig()
	config.Timeout = 100 * time.Millisecond

	resolver := NewHTTPResolver(config, nil, nil)

	start := time.Now()
	_, err := resolver.Resolve(context.Background(), srv.URL)
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Less(t, elapsed, 2*time.Second, "resolution must fail fast, not hang")
}

func TestHTTPResolver_Resolve_DetachedFromCallerCancel(t *testing.T) {
	srv := cardServer(t, nil)

	resolver := NewHTTPResolver(nil, nil, nil)

	// A coalesced fetch is shared across callers, so one caller's
	// cancellation must not abort it.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := resolver.Resolve(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "researcher", got.Name)
}

func TestHTTPResolver_Resolve_NoCacheAcrossCalls(t *testing.T) {
	var hits atomic.Int64
	srv := cardServer(t, &hits)

	resolver := NewHTTPResolver(nil, NewMemoryCardCache(time.Minute), nil)

	_, err := resolver.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = resolver.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, int64(2), hits.Load(), "Resolve must fetch fresh every time")
}

func TestHTTPResolver_ResolveCached(t *testing.T) {
	var hits atomic.Int64
	srv := cardServer(t, &hits)

	resolver := NewHTTPResolver(nil, NewMemoryCardCache(time.Minute), nil)

	first, err := resolver.ResolveCached(context.Background(), srv.URL)
	require.NoError(t, err)
	second, err := resolver.ResolveCached(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load(), "second lookup should come from cache")
	assert.Equal(t, first.Name, second.Name)

	// Cached copies are isolated from caller mutation.
	second.Skills[0] = "mutated"
	third, err := resolver.ResolveCached(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "facts", third.Skills[0])
}
