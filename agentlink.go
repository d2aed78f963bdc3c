// Package agentlink provides a top-level convenience entry point for
// hosting an agent and joining a registry with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/agentlink"
//
//	link, err := agentlink.New(
//		agentlink.WithName("research-agent"),
//		agentlink.WithSkill("research", "Research", "research"),
//		agentlink.WithBaseURL("http://localhost:9001"),
//		agentlink.WithExecutor(myExecutor),
//	)
//
// The returned Link serves the capability card and invocation
// endpoints; Join registers it with a running registry service.
package agentlink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/card"
	"github.com/BaSui01/agentlink/agent/discovery"
)

// Link bundles one hosted agent: its HTTP surface and its registry
// membership.
type Link struct {
	server *a2a.AgentServer
	client *discovery.DirectoryClient
	config linkConfig
	logger *zap.Logger
}

type linkConfig struct {
	name        string
	description string
	version     string
	baseURL     string
	registryURL string
	skills      []card.Skill
	executor    a2a.Executor
	logger      *zap.Logger
}

// Option configures the Link created by [New].
type Option func(*linkConfig)

// WithName sets the agent name shown on its capability card.
func WithName(name string) Option {
	return func(c *linkConfig) { c.name = name }
}

// WithDescription sets the card description.
func WithDescription(description string) Option {
	return func(c *linkConfig) { c.description = description }
}

// WithVersion sets the card version.
func WithVersion(version string) Option {
	return func(c *linkConfig) { c.version = version }
}

// WithBaseURL sets the URL where this agent is reachable; it becomes
// the card's url.
func WithBaseURL(baseURL string) Option {
	return func(c *linkConfig) { c.baseURL = baseURL }
}

// WithRegistry sets the registry service address used by [Link.Join].
func WithRegistry(registryURL string) Option {
	return func(c *linkConfig) { c.registryURL = registryURL }
}

// WithSkill adds one skill to the card.
func WithSkill(id, name string, tags ...string) Option {
	return func(c *linkConfig) {
		c.skills = append(c.skills, card.Skill{ID: id, Name: name, Tags: tags})
	}
}

// WithExecutor sets the function that handles invocations.
func WithExecutor(exec a2a.Executor) Option {
	return func(c *linkConfig) { c.executor = exec }
}

// WithExecutorFunc is [WithExecutor] for a plain function.
func WithExecutorFunc(fn func(ctx context.Context, text string) (string, error)) Option {
	return func(c *linkConfig) { c.executor = a2a.ExecutorFunc(fn) }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *linkConfig) { c.logger = logger }
}

// New assembles a hosted agent. At minimum a name and an executor must
// be provided.
func New(opts ...Option) (*Link, error) {
	cfg := linkConfig{
		version:     "1.0.0",
		baseURL:     "http://localhost:8080",
		registryURL: "http://localhost:9999",
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.name == "" {
		return nil, fmt.Errorf("agentlink: agent name is required")
	}
	if cfg.executor == nil {
		return nil, fmt.Errorf("agentlink: executor is required")
	}

	server := a2a.NewAgentServer(
		&a2a.ServerConfig{
			BaseURL:        cfg.baseURL,
			RequestTimeout: a2a.DefaultServerConfig().RequestTimeout,
			Logger:         cfg.logger,
		},
		a2a.Identity{
			Name:        cfg.name,
			Description: cfg.description,
			Version:     cfg.version,
			Skills:      cfg.skills,
		},
		cfg.executor,
	)

	clientCfg := discovery.DefaultDirectoryClientConfig()
	clientCfg.BaseURL = cfg.registryURL

	return &Link{
		server: server,
		client: discovery.NewDirectoryClient(clientCfg, cfg.logger),
		config: cfg,
		logger: cfg.logger,
	}, nil
}

// Handler returns the agent's HTTP surface: the well-known card path
// and the invocation endpoints. Mount it on any listener.
func (l *Link) Handler() *a2a.AgentServer { return l.server }

// Card returns the capability card this agent serves.
func (l *Link) Card() *card.Card { return l.server.Card() }

// Join registers this agent with the configured registry service. The
// registry fetches the card from the agent's base URL, so the agent
// must already be listening.
func (l *Link) Join(ctx context.Context) (*card.Card, error) {
	return l.client.RegisterSelf(ctx, l.config.baseURL)
}

// Leave removes this agent from the registry.
func (l *Link) Leave(ctx context.Context) error {
	return l.client.Unregister(ctx, l.config.baseURL)
}

// Directory exposes the registry as a lookup surface for topologies.
func (l *Link) Directory() discovery.Directory { return l.client }
