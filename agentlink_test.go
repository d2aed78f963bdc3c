package agentlink_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentlink"
	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/discovery"
)

func TestNewRequiresNameAndExecutor(t *testing.T) {
	_, err := agentlink.New()
	assert.Error(t, err)

	_, err = agentlink.New(agentlink.WithName("solo"))
	assert.Error(t, err)

	_, err = agentlink.New(
		agentlink.WithName("solo"),
		agentlink.WithExecutorFunc(func(ctx context.Context, text string) (string, error) {
			return "done", nil
		}),
	)
	assert.NoError(t, err)
}

func TestLinkServesCardAndJoinsRegistry(t *testing.T) {
	// The agent's handler is assigned after the listener exists, so
	// the card URL can match the test server address.
	var handler http.Handler
	agentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	defer agentSrv.Close()

	resolver := a2a.NewHTTPResolver(a2a.DefaultResolverConfig(), a2a.NewMemoryCardCache(time.Minute), nil)
	registry := discovery.NewRegistry(resolver, nil)
	registrySrv := httptest.NewServer(discovery.NewService(registry, nil))
	defer registrySrv.Close()

	link, err := agentlink.New(
		agentlink.WithName("echo-agent"),
		agentlink.WithDescription("echoes input"),
		agentlink.WithBaseURL(agentSrv.URL),
		agentlink.WithRegistry(registrySrv.URL),
		agentlink.WithSkill("echo", "Echo", "echo"),
		agentlink.WithExecutorFunc(func(ctx context.Context, text string) (string, error) {
			return "echo: " + text, nil
		}),
	)
	require.NoError(t, err)
	handler = link.Handler()

	c := link.Card()
	assert.Equal(t, "echo-agent", c.Name)
	assert.Contains(t, c.Skills, "echo")

	joined, err := link.Join(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "echo-agent", joined.Name)
	assert.Equal(t, 1, registry.Count())

	agents, err := link.Directory().Agents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "echo-agent", agents[0].Name)

	caller := a2a.NewHTTPCaller(a2a.DefaultClientConfig(), nil)
	reply := caller.InvokeText(context.Background(), agents[0], "hello")
	assert.Equal(t, "echo: hello", reply)

	require.NoError(t, link.Leave(context.Background()))
	assert.Equal(t, 0, registry.Count())
}
