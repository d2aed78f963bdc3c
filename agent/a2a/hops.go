package a2a

import (
	"context"
	"net/http"
	"strconv"
)

// Headers carried on invocation requests.
const (
	// HopHeader transmits the peer-chain hop count between agents.
	HopHeader = "X-Agentlink-Hops"
	// AgentHeader identifies the calling agent.
	AgentHeader = "X-Agentlink-Agent"
)

type hopKey struct{}

// WithHops returns a context carrying the given hop count. The
// invocation client transmits it on the wire; the agent server
// restores it on the way in. Chain depth is otherwise unbounded, so
// this is the safety margin against delegation cycles.
func WithHops(ctx context.Context, hops int) context.Context {
	return context.WithValue(ctx, hopKey{}, hops)
}

// HopsFromContext extracts the hop count, zero when absent.
func HopsFromContext(ctx context.Context) int {
	if v, ok := ctx.Value(hopKey{}).(int); ok {
		return v
	}
	return 0
}

// hopsFromRequest reads the hop header, zero when absent or invalid.
func hopsFromRequest(r *http.Request) int {
	raw := r.Header.Get(HopHeader)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
