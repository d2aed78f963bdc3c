package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/agentlink/agent/card"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RemoteCaller is the outbound invocation capability. It is
// implemented once by HTTPCaller and injected into every component
// that needs agent-to-agent calls; node roles compose it instead of
// inheriting it.
type RemoteCaller interface {
	// Invoke sends a fresh envelope to the card's agent and returns the
	// normalized response text, or an invocation error on timeout or
	// transport failure.
	Invoke(ctx context.Context, c *card.Card, text string) (string, error)
	// InvokeText is Invoke with failures rendered as visible text
	// instead of an error, so workflow output carries "agent X failed"
	// for downstream decision-makers to see.
	InvokeText(ctx context.Context, c *card.Card, text string) string
}

// InvokeObserver receives the outcome of each invocation. Wired to the
// metrics collector by the process that owns one.
type InvokeObserver func(agent, outcome string, elapsed time.Duration)

// ClientConfig holds configuration for the invocation client.
type ClientConfig struct {
	// Timeout bounds one invocation. Invocations are long: the remote
	// agent may drive model inference before replying.
	Timeout time.Duration
	// MessagePath is the invocation endpoint path relative to the
	// agent base URL.
	MessagePath string
	// Headers are additional headers to include in requests.
	Headers map[string]string
	// AgentID identifies the local caller to remote agents.
	AgentID string
	// RPS enables client-side rate limiting when > 0.
	RPS float64
	// Burst is the limiter burst size when RPS is enabled.
	Burst int
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:     120 * time.Second,
		MessagePath: "a2a/messages",
		Headers:     make(map[string]string),
		AgentID:     "agentlink-client",
	}
}

// HTTPCaller is the default RemoteCaller over HTTP.
type HTTPCaller struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	observer   InvokeObserver
}

// NewHTTPCaller creates an HTTPCaller with the given configuration.
func NewHTTPCaller(config *ClientConfig, logger *zap.Logger) *HTTPCaller {
	if config == nil {
		config = DefaultClientConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if config.RPS > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RPS), burst)
	}

	return &HTTPCaller{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: limiter,
		logger:  logger.With(zap.String("component", "invocation_client")),
	}
}

// SetObserver installs the invocation outcome hook.
func (c *HTTPCaller) SetObserver(obs InvokeObserver) {
	c.observer = obs
}

// Invoke builds a fresh envelope, POSTs it to the card's message
// endpoint, and normalizes whatever comes back. There are no automatic
// retries; on failure the error wraps ErrInvokeFailed with the cause.
func (c *HTTPCaller) Invoke(ctx context.Context, target *card.Card, text string) (string, error) {
	start := time.Now()
	out, err := c.invoke(ctx, target, text)
	if c.observer != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.observer(agentLabel(target), outcome, time.Since(start))
	}
	return out, err
}

func (c *HTTPCaller) invoke(ctx context.Context, target *card.Card, text string) (string, error) {
	if target == nil || target.URL == "" {
		return "", fmt.Errorf("%w: missing target url", ErrInvokeFailed)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvokeFailed, err)
		}
	}

	env := NewEnvelope(text)
	body, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	endpoint := card.NormalizeURL(target.URL) + strings.TrimPrefix(c.config.MessagePath, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvokeFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.AgentID != "" {
		req.Header.Set(AgentHeader, c.config.AgentID)
	}
	if hops := HopsFromContext(ctx); hops > 0 {
		req.Header.Set(HopHeader, strconv.Itoa(hops))
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("invoking agent",
		zap.String("agent", agentLabel(target)),
		zap.String("envelope_id", env.ID),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvokeFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvokeFailed, err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %d, body: %s", ErrInvokeFailed, resp.StatusCode, truncate(string(respBody), 512))
	}

	return NormalizeBody(respBody), nil
}

// InvokeText renders invocation failures as visible text in the same
// stream as successful output, never raising them to the caller.
func (c *HTTPCaller) InvokeText(ctx context.Context, target *card.Card, text string) string {
	out, err := c.Invoke(ctx, target, text)
	if err != nil {
		c.logger.Warn("invocation failed",
			zap.String("agent", agentLabel(target)),
			zap.Error(err),
		)
		return fmt.Sprintf("Error calling %s: %v", agentLabel(target), err)
	}
	return out
}

func agentLabel(c *card.Card) string {
	if c == nil {
		return "unknown agent"
	}
	if c.Name != "" {
		return c.Name
	}
	return c.URL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Ensure HTTPCaller implements RemoteCaller.
var _ RemoteCaller = (*HTTPCaller)(nil)
