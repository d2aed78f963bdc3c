package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectoryClient(t *testing.T) (*DirectoryClient, *Registry) {
	t.Helper()

	service, registry := serviceFixture(t)
	cfg := DefaultDirectoryClientConfig()
	cfg.BaseURL = service.URL
	return NewDirectoryClient(cfg, nil), registry
}

func TestDirectoryClient_RegisterSelf(t *testing.T) {
	client, registry := newTestDirectoryClient(t)
	agent := fakeAgent(t, "alpha", "research")

	stored, err := client.RegisterSelf(context.Background(), agent.URL)
	require.NoError(t, err)
	assert.Equal(t, "alpha", stored.Name)
	assert.Equal(t, []string{"research"}, stored.Skills)
	assert.Equal(t, 1, registry.Count())
}

func TestDirectoryClient_RegisterSelf_UnreachableAgent(t *testing.T) {
	client, _ := newTestDirectoryClient(t)

	_, err := client.RegisterSelf(context.Background(), "http://127.0.0.1:1/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestDirectoryClient_RegisterSelf_NoService(t *testing.T) {
	cfg := DefaultDirectoryClientConfig()
	cfg.BaseURL = "http://127.0.0.1:1"
	client := NewDirectoryClient(cfg, nil)

	_, err := client.RegisterSelf(context.Background(), "http://whatever:1/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestDirectoryClient_Unregister(t *testing.T) {
	client, registry := newTestDirectoryClient(t)
	agent := fakeAgent(t, "alpha", "research")

	_, err := client.RegisterSelf(context.Background(), agent.URL)
	require.NoError(t, err)

	require.NoError(t, client.Unregister(context.Background(), agent.URL))
	assert.Equal(t, 0, registry.Count())
}

func TestDirectoryClient_Unregister_Unknown(t *testing.T) {
	client, _ := newTestDirectoryClient(t)

	err := client.Unregister(context.Background(), "http://ghost:1/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestDirectoryClient_AgentsAndURLs(t *testing.T) {
	client, _ := newTestDirectoryClient(t)
	ctx := context.Background()

	alpha := fakeAgent(t, "alpha", "research")
	beta := fakeAgent(t, "beta", "writing")
	_, err := client.RegisterSelf(ctx, alpha.URL)
	require.NoError(t, err)
	_, err = client.RegisterSelf(ctx, beta.URL)
	require.NoError(t, err)

	cards, err := client.Agents(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "alpha", cards[0].Name)
	assert.Equal(t, "beta", cards[1].Name)

	urls, err := client.AgentURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{cards[0].URL, cards[1].URL}, urls)
}

func TestDirectoryClient_AgentsBySkill(t *testing.T) {
	client, _ := newTestDirectoryClient(t)
	ctx := context.Background()

	alpha := fakeAgent(t, "alpha", "research")
	_, err := client.RegisterSelf(ctx, alpha.URL)
	require.NoError(t, err)

	cards, err := client.AgentsBySkill(ctx, "research")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "alpha", cards[0].Name)

	none, err := client.AgentsBySkill(ctx, "nothing")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDirectoryClient_Health(t *testing.T) {
	client, _ := newTestDirectoryClient(t)

	h, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 0, h.RegisteredAgents)
}
