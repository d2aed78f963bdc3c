// Package testutil provides shared helpers for exercising registries,
// resolvers, and topologies against real local HTTP agents.
//
// Usage:
//
//	agent := testutil.StartAgent(t, "echo-agent", []string{"echo"}, testutil.EchoExecutor)
//	reg := testutil.StartRegistry(t)
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/card"
	"github.com/BaSui01/agentlink/agent/discovery"
)

// TestContext returns a context that expires with the test.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext returns an already-cancelled context.
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// AssertEventuallyTrue polls condition until it holds or timeout
// elapses.
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("condition did not become true within timeout")
}

// AssertJSONEqual compares the JSON renderings of two values.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual: %s", expectedJSON, actualJSON)
	}
}

// EchoExecutor replies with its input prefixed by "echo: ".
var EchoExecutor = a2a.ExecutorFunc(func(ctx context.Context, text string) (string, error) {
	return "echo: " + text, nil
})

// StaticExecutor replies with the same text for every invocation.
func StaticExecutor(reply string) a2a.Executor {
	return a2a.ExecutorFunc(func(ctx context.Context, text string) (string, error) {
		return reply, nil
	})
}

// Agent is one live local agent started by StartAgent.
type Agent struct {
	// URL is the agent base URL, already on the card.
	URL    string
	Server *a2a.AgentServer
}

// StartAgent hosts an agent on a local test listener. The card URL
// matches the listener address. The listener stops with the test.
func StartAgent(t *testing.T, name string, tags []string, exec a2a.Executor) *Agent {
	t.Helper()

	var handler http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	srv := a2a.NewAgentServer(
		&a2a.ServerConfig{
			BaseURL:        ts.URL,
			RequestTimeout: 30 * time.Second,
			Logger:         zap.NewNop(),
		},
		a2a.Identity{
			Name:        name,
			Description: name + " test agent",
			Version:     "0.0.1",
			Skills:      []card.Skill{{ID: name, Name: name, Tags: tags}},
		},
		exec,
	)
	handler = srv

	return &Agent{URL: ts.URL, Server: srv}
}

// Registry is a live local registry service started by StartRegistry.
type Registry struct {
	// URL is the registry service base URL.
	URL string
	// Registry is the in-process registry behind the service.
	Registry *discovery.Registry
}

// StartRegistry hosts a registry service on a local test listener with
// an HTTP resolver and an in-memory card cache.
func StartRegistry(t *testing.T) *Registry {
	t.Helper()

	resolver := a2a.NewHTTPResolver(a2a.DefaultResolverConfig(), a2a.NewMemoryCardCache(time.Minute), zap.NewNop())
	registry := discovery.NewRegistry(resolver, zap.NewNop())
	ts := httptest.NewServer(discovery.NewService(registry, zap.NewNop()))
	t.Cleanup(ts.Close)

	return &Registry{URL: ts.URL, Registry: registry}
}

// Card builds a capability card for tests that never resolve it over
// HTTP.
func Card(url, name string, skills ...string) *card.Card {
	return &card.Card{
		URL:         card.NormalizeURL(url),
		Name:        name,
		Description: name + " test card",
		Skills:      skills,
	}
}
