package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/card"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent serves a capability card at the well-known path.
func fakeAgent(t *testing.T, name string, tags ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/agent.json" {
			http.NotFound(w, r)
			return
		}
		payload := card.Payload{
			Name:        name,
			Description: name + " agent",
			URL:         "http://" + r.Host + "/",
			Version:     "1.0.0",
			Skills:      []card.Skill{{ID: "s1", Name: name, Tags: tags}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// serviceFixture is a running registry service backed by a real
// resolver.
func serviceFixture(t *testing.T) (*httptest.Server, *Registry) {
	t.Helper()

	resolver := a2a.NewHTTPResolver(nil, nil, nil)
	registry := NewRegistry(resolver, nil)
	srv := httptest.NewServer(NewService(registry, nil))
	t.Cleanup(srv.Close)
	return srv, registry
}

func registerURL(t *testing.T, service *httptest.Server, agentURL string) *http.Response {
	t.Helper()

	body, err := json.Marshal(map[string]string{"url": agentURL})
	require.NoError(t, err)

	resp, err := http.Post(service.URL+"/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestService_RegisterAndList(t *testing.T) {
	service, _ := serviceFixture(t)
	agent := fakeAgent(t, "alpha", "research")

	resp := registerURL(t, service, agent.URL)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored card.Card
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Equal(t, card.NormalizeURL(agent.URL), stored.URL)
	assert.Equal(t, "alpha", stored.Name)
	assert.Equal(t, []string{"research"}, stored.Skills)

	listResp, err := http.Get(service.URL + "/agents")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var cards []*card.Card
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "alpha", cards[0].Name)
}

func TestService_Register_UnreachableAgent(t *testing.T) {
	service, registry := serviceFixture(t)

	// A server that immediately closed: card fetch must fail with 400.
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	resp := registerURL(t, service, dead.URL)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errBody map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Contains(t, errBody["error"], "could not fetch capability card")
	assert.Equal(t, 0, registry.Count())
}

func TestService_Register_BadBody(t *testing.T) {
	service, _ := serviceFixture(t)

	resp, err := http.Post(service.URL+"/register", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestService_Unregister(t *testing.T) {
	service, _ := serviceFixture(t)
	agent := fakeAgent(t, "alpha", "research")

	resp := registerURL(t, service, agent.URL)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, service.URL+"/unregister?url="+agent.URL, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()

	require.Equal(t, http.StatusOK, delResp.StatusCode)
	var body unregisterResponse
	require.NoError(t, json.NewDecoder(delResp.Body).Decode(&body))
	assert.Equal(t, "unregistered", body.Status)
	assert.Equal(t, "alpha", body.Agent)

	// Second delete: the entry is gone.
	again, err := http.NewRequest(http.MethodDelete, service.URL+"/unregister?url="+agent.URL, nil)
	require.NoError(t, err)
	againResp, err := http.DefaultClient.Do(again)
	require.NoError(t, err)
	defer againResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, againResp.StatusCode)
}

func TestService_AgentsBySkill(t *testing.T) {
	service, _ := serviceFixture(t)
	research := fakeAgent(t, "alpha", "research")
	writer := fakeAgent(t, "beta", "writing")

	require.Equal(t, http.StatusOK, registerURL(t, service, research.URL).StatusCode)
	require.Equal(t, http.StatusOK, registerURL(t, service, writer.URL).StatusCode)

	resp, err := http.Get(service.URL + "/agents/by-skill/research")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cards []*card.Card
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "alpha", cards[0].Name)

	// Unknown tag: empty JSON array, still 200.
	emptyResp, err := http.Get(service.URL + "/agents/by-skill/unknown")
	require.NoError(t, err)
	defer emptyResp.Body.Close()
	require.Equal(t, http.StatusOK, emptyResp.StatusCode)

	var empty []*card.Card
	require.NoError(t, json.NewDecoder(emptyResp.Body).Decode(&empty))
	assert.Empty(t, empty)
}

func TestService_Health(t *testing.T) {
	service, _ := serviceFixture(t)
	agent := fakeAgent(t, "alpha", "research")
	require.Equal(t, http.StatusOK, registerURL(t, service, agent.URL).StatusCode)

	resp, err := http.Get(service.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 1, h.RegisteredAgents)
}

func TestService_UnknownRoute(t *testing.T) {
	service, _ := serviceFixture(t)

	resp, err := http.Get(service.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestService_Events(t *testing.T) {
	service, _ := serviceFixture(t)
	agent := fakeAgent(t, "alpha", "research")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, service.URL+"/events", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Equal(t, http.StatusOK, registerURL(t, service, agent.URL).StatusCode)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var e Event
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, EventRegistered, e.Type)
	assert.Equal(t, card.NormalizeURL(agent.URL), e.URL)
	assert.Equal(t, "alpha", e.Agent)
}

func TestService_Events_MultipleSubscribers(t *testing.T) {
	service, _ := serviceFixture(t)
	agent := fakeAgent(t, "alpha", "research")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := make([]*websocket.Conn, 0, 2)
	for i := 0; i < 2; i++ {
		conn, _, err := websocket.Dial(ctx, service.URL+"/events", nil)
		require.NoError(t, err, "subscriber %d", i)
		defer conn.CloseNow()
		conns = append(conns, conn)
	}

	require.Equal(t, http.StatusOK, registerURL(t, service, agent.URL).StatusCode)

	for i, conn := range conns {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "subscriber %d", i)

		var e Event
		require.NoError(t, json.Unmarshal(data, &e))
		assert.Equal(t, EventRegistered, e.Type, "subscriber %d", i)
	}
}

func TestService_RegisterOrderStableUnderOverwrite(t *testing.T) {
	service, registry := serviceFixture(t)
	first := fakeAgent(t, "alpha", "research")
	second := fakeAgent(t, "beta", "writing")

	require.Equal(t, http.StatusOK, registerURL(t, service, first.URL).StatusCode)
	require.Equal(t, http.StatusOK, registerURL(t, service, second.URL).StatusCode)
	// Overwrite the first; it keeps position 0.
	require.Equal(t, http.StatusOK, registerURL(t, service, first.URL).StatusCode)

	list := registry.List(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, fmt.Sprintf("%s/", first.URL), list[0].URL)
	assert.Equal(t, fmt.Sprintf("%s/", second.URL), list[1].URL)
}
