package discovery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentlink/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// eventBufSize is the per-connection event queue. When a WebSocket
// consumer falls behind, events are dropped rather than blocking the
// registry.
const eventBufSize = 64

// Service exposes the registry over HTTP:
//
//	POST   /register             {"url": ...} → stored card
//	DELETE /unregister?url=...   → {"status":"unregistered","agent":...}
//	GET    /agents               → card array
//	GET    /agents/by-skill/{tag} → card array, possibly empty
//	GET    /health               → {"status":"healthy","registered_agents":n}
//	GET    /events               → WebSocket stream of registry events
type Service struct {
	registry     *Registry
	logger       *zap.Logger
	writeTimeout time.Duration
}

// NewService creates the HTTP surface for registry.
func NewService(registry *Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:     registry,
		logger:       logger.With(zap.String("component", "registry_service")),
		writeTimeout: 5 * time.Second,
	}
}

// registerRequest is the POST /register body.
type registerRequest struct {
	URL string `json:"url"`
}

// unregisterResponse is the DELETE /unregister success body.
type unregisterResponse struct {
	Status string `json:"status"`
	Agent  string `json:"agent"`
}

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/register" && method == http.MethodPost:
		s.handleRegister(w, r)
	case path == "/unregister" && method == http.MethodDelete:
		s.handleUnregister(w, r)
	case path == "/agents" && method == http.MethodGet:
		s.handleAgents(w, r)
	case strings.HasPrefix(path, "/agents/by-skill/") && method == http.MethodGet:
		s.handleAgentsBySkill(w, r)
	case path == "/health" && method == http.MethodGet:
		s.handleHealth(w, r)
	case path == "/events" && method == http.MethodGet:
		s.handleEvents(w, r)
	default:
		s.writeError(w, http.StatusNotFound, "endpoint not found: "+method+" "+path)
	}
}

// handleRegister handles POST /register. The registry fetches the
// card from the submitted url; a failed fetch is the caller's 400.
func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req registerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid register request body")
		return
	}

	c, err := s.registry.Register(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, types.HTTPStatusOf(err, http.StatusInternalServerError), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

// handleUnregister handles DELETE /unregister?url=...
func (s *Service) handleUnregister(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}

	c, err := s.registry.Unregister(r.Context(), url)
	if err != nil {
		s.writeError(w, types.HTTPStatusOf(err, http.StatusInternalServerError), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, unregisterResponse{Status: "unregistered", Agent: c.Name})
}

// handleAgents handles GET /agents. Never fails.
func (s *Service) handleAgents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List(r.Context()))
}

// handleAgentsBySkill handles GET /agents/by-skill/{tag}. An unknown
// tag is a normal empty result, not an error.
func (s *Service) handleAgentsBySkill(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimPrefix(r.URL.Path, "/agents/by-skill/")
	if tag == "" {
		s.writeError(w, http.StatusNotFound, "missing skill tag")
		return
	}
	s.writeJSON(w, http.StatusOK, s.registry.FindBySkill(r.Context(), tag))
}

// handleHealth handles GET /health. Never fails.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.Health())
}

// handleEvents upgrades to WebSocket and streams registry events as
// JSON text messages until the client goes away.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so a register racing
	// the connection setup is not lost.
	events := make(chan *Event, eventBufSize)
	subID := s.registry.Subscribe(func(e *Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer s.registry.Unsubscribe(subID)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	s.logger.Info("event stream opened",
		zap.String("subscription", subID),
		zap.String("remote", r.RemoteAddr),
	)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server closing")
			return
		case e := <-events:
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Debug("event stream closed",
					zap.String("subscription", subID),
					zap.Error(err),
				)
				conn.CloseNow()
				return
			}
		}
	}
}

// writeJSON writes a JSON response.
func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

// writeError writes an error response.
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.logger.Warn("request error",
		zap.Int("status", status),
		zap.String("message", message),
	)

	s.writeJSON(w, status, map[string]string{"error": message})
}
