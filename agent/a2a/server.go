package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentlink/agent/card"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Executor is the unit of agent work behind the invocation endpoint.
// The substrate treats it as opaque: it gets the envelope text and
// returns the reply text.
type Executor interface {
	Execute(ctx context.Context, text string) (string, error)
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(ctx context.Context, text string) (string, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Canceler is optionally implemented by executors that can cancel
// in-flight work.
type Canceler interface {
	Cancel(ctx context.Context, taskID string) CancelResult
}

// CancelOutcome tags a cancellation result.
type CancelOutcome string

const (
	// CancelAccepted means the cancellation was carried out.
	CancelAccepted CancelOutcome = "accepted"
	// CancelNotSupported means the agent does not implement
	// cancellation. This is an ordinary result, not an error.
	CancelNotSupported CancelOutcome = "not_supported"
)

// CancelResult is the explicit outcome of a cancel request. Callers
// branch on Outcome as ordinary control flow.
type CancelResult struct {
	Outcome CancelOutcome `json:"outcome"`
	Reason  string        `json:"reason,omitempty"`
}

// NotSupported builds the CancelResult for agents without
// cancellation.
func NotSupported(reason string) CancelResult {
	return CancelResult{Outcome: CancelNotSupported, Reason: reason}
}

// Identity describes the agent an AgentServer fronts: the material for
// its capability card.
type Identity struct {
	Name        string
	Description string
	Version     string
	Skills      []card.Skill
}

// ServerConfig holds configuration for the agent server.
type ServerConfig struct {
	// BaseURL is the base URL where this agent is reachable; it
	// becomes the card's url.
	BaseURL string
	// RequestTimeout bounds executor work per request.
	RequestTimeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		BaseURL:        "http://localhost:8080",
		RequestTimeout: 120 * time.Second,
		Logger:         zap.NewNop(),
	}
}

// AgentServer serves one agent over HTTP: its capability card at the
// well-known path, the invocation endpoint, and the cancel endpoint.
type AgentServer struct {
	config   *ServerConfig
	logger   *zap.Logger
	payload  card.Payload
	executor Executor
}

// NewAgentServer creates an AgentServer for the given identity and
// executor.
func NewAgentServer(config *ServerConfig, id Identity, exec Executor) *AgentServer {
	if config == nil {
		config = DefaultServerConfig()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 120 * time.Second
	}

	return &AgentServer{
		config: config,
		logger: config.Logger.With(
			zap.String("component", "agent_server"),
			zap.String("agent", id.Name),
		),
		payload: card.Payload{
			Name:        id.Name,
			Description: id.Description,
			URL:         card.NormalizeURL(config.BaseURL),
			Version:     id.Version,
			Skills:      id.Skills,
		},
		executor: exec,
	}
}

// Card returns the capability card this server advertises.
func (s *AgentServer) Card() *card.Card {
	tags := make([]string, 0, len(s.payload.Skills))
	for _, sk := range s.payload.Skills {
		tags = append(tags, sk.Tags...)
	}
	return card.New(s.payload.URL, s.payload.Name, s.payload.Description, tags)
}

// ServeHTTP implements http.Handler for serving agent requests.
func (s *AgentServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/.well-known/agent.json" && method == http.MethodGet:
		s.handleCard(w, r)
	case path == "/a2a/messages" && method == http.MethodPost:
		s.handleMessage(w, r)
	case strings.HasPrefix(path, "/a2a/tasks/") && strings.HasSuffix(path, "/cancel") && method == http.MethodPost:
		s.handleCancel(w, r)
	default:
		s.writeError(w, http.StatusNotFound, fmt.Errorf("endpoint not found: %s %s", method, path))
	}
}

// handleCard handles GET /.well-known/agent.json
func (s *AgentServer) handleCard(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.payload)
}

// Reply is the wire response for a successful invocation.
type Reply struct {
	ID     string      `json:"id"`
	Result ReplyResult `json:"result"`
}

// ReplyResult carries the reply parts.
type ReplyResult struct {
	Parts []Part `json:"parts"`
}

// NewReply wraps reply text in the wire response shape.
func NewReply(text string) Reply {
	return Reply{
		ID:     uuid.New().String(),
		Result: ReplyResult{Parts: []Part{{Text: text}}},
	}
}

// handleMessage handles POST /a2a/messages
func (s *AgentServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
		return
	}
	defer r.Body.Close()

	env, err := ParseEnvelope(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if s.executor == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("no executor configured"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()
	if hops := hopsFromRequest(r); hops > 0 {
		ctx = WithHops(ctx, hops)
	}

	s.logger.Info("executing envelope",
		zap.String("envelope_id", env.ID),
		zap.String("from", r.Header.Get(AgentHeader)),
	)

	start := time.Now()
	out, err := s.executor.Execute(ctx, env.Text())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("envelope completed",
		zap.String("envelope_id", env.ID),
		zap.Duration("duration", time.Since(start)),
	)

	s.writeJSON(w, http.StatusOK, NewReply(out))
}

// handleCancel handles POST /a2a/tasks/{taskID}/cancel. Cancellation
// yields an explicit result variant, not an error: agents without
// cancel support return NotSupported with HTTP 200.
func (s *AgentServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/a2a/tasks/"), "/cancel")
	if taskID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("missing task_id"))
		return
	}

	result := NotSupported("this agent does not implement cancellation")
	if c, ok := s.executor.(Canceler); ok {
		result = c.Cancel(r.Context(), taskID)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"task_id": taskID,
		"outcome": result.Outcome,
		"reason":  result.Reason,
	})
}

// writeJSON writes a JSON response.
func (s *AgentServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

// writeError writes an error response.
func (s *AgentServer) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request error",
		zap.Int("status", status),
		zap.Error(err),
	)

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
