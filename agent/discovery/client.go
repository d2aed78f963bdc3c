package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/agentlink/agent/card"
	"go.uber.org/zap"
)

// DirectoryClientConfig holds configuration for the directory client.
type DirectoryClientConfig struct {
	// BaseURL is the registry service address.
	BaseURL string
	// Timeout bounds one directory call.
	Timeout time.Duration
	// Headers are additional headers to include in requests.
	Headers map[string]string
}

// DefaultDirectoryClientConfig returns a DirectoryClientConfig with
// sensible defaults.
func DefaultDirectoryClientConfig() *DirectoryClientConfig {
	return &DirectoryClientConfig{
		BaseURL: "http://localhost:9999",
		Timeout: 10 * time.Second,
		Headers: make(map[string]string),
	}
}

// DirectoryClient talks to a registry Service over HTTP. Agents use it
// to register themselves on startup; peers use it for lookups.
type DirectoryClient struct {
	config     *DirectoryClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDirectoryClient creates a client for the registry service at
// config.BaseURL.
func NewDirectoryClient(config *DirectoryClientConfig, logger *zap.Logger) *DirectoryClient {
	if config == nil {
		config = DefaultDirectoryClientConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.With(zap.String("component", "directory_client")),
	}
}

// RegisterSelf asks the registry to register agentURL. The registry
// fetches the card from that url itself, so the agent must already be
// serving its well-known endpoint when it calls this.
func (c *DirectoryClient) RegisterSelf(ctx context.Context, agentURL string) (*card.Card, error) {
	body, err := json.Marshal(registerRequest{URL: agentURL})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	var stored card.Card
	if err := c.do(ctx, http.MethodPost, "/register", bytes.NewReader(body), &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	c.logger.Info("registered with directory",
		zap.String("url", stored.URL),
		zap.String("agent", stored.Name),
	)
	return &stored, nil
}

// Unregister removes agentURL from the registry. An unknown url yields
// ErrAgentNotFound.
func (c *DirectoryClient) Unregister(ctx context.Context, agentURL string) error {
	path := "/unregister?url=" + url.QueryEscape(agentURL)
	var resp unregisterResponse
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return err
	}

	c.logger.Info("unregistered from directory",
		zap.String("url", agentURL),
		zap.String("agent", resp.Agent),
	)
	return nil
}

// Agents returns all registered cards in registration order.
func (c *DirectoryClient) Agents(ctx context.Context) ([]*card.Card, error) {
	var cards []*card.Card
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// AgentsBySkill returns the cards advertising tag. No match is a
// normal empty result.
func (c *DirectoryClient) AgentsBySkill(ctx context.Context, tag string) ([]*card.Card, error) {
	var cards []*card.Card
	if err := c.do(ctx, http.MethodGet, "/agents/by-skill/"+url.PathEscape(tag), nil, &cards); err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []*card.Card{}
	}
	return cards, nil
}

// AgentURLs returns the registered urls in registration order.
func (c *DirectoryClient) AgentURLs(ctx context.Context) ([]string, error) {
	cards, err := c.Agents(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(cards))
	for _, cd := range cards {
		urls = append(urls, cd.URL)
	}
	return urls, nil
}

// Health fetches the directory health snapshot.
func (c *DirectoryClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// errorResponse is the service error body.
type errorResponse struct {
	Error string `json:"error"`
}

// do performs one request against the service and decodes the JSON
// response into out. Non-2xx responses become errors carrying the
// service's message; 404 maps to ErrAgentNotFound.
func (c *DirectoryClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		message := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrAgentNotFound, message)
		}
		return fmt.Errorf("directory service returned status %d: %s", resp.StatusCode, message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", ErrDirectoryUnavailable, err)
	}
	return nil
}

// Ensure DirectoryClient implements Directory.
var _ Directory = (*DirectoryClient)(nil)
