package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/discovery"
	"github.com/BaSui01/agentlink/config"
	"github.com/BaSui01/agentlink/internal/metrics"
	"github.com/BaSui01/agentlink/internal/server"
	"github.com/BaSui01/agentlink/internal/telemetry"
)

// Server wires the registry service: resolver, card cache, registry,
// HTTP surface, and the ambient concerns around them.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	registry  *discovery.Registry
	service   *discovery.Service
	collector *metrics.Collector
	cache     a2a.CardCache
	telemetry *telemetry.Providers

	httpManager       *server.Manager
	rateLimiterCancel context.CancelFunc
}

// NewServer builds the full wiring from cfg. Nothing listens until
// Start.
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) (*Server, error) {
	collector := metrics.NewCollector("agentlink", prometheus.DefaultRegisterer, logger)

	cache, err := buildCardCache(cfg.Resolution, logger)
	if err != nil {
		return nil, fmt.Errorf("card cache: %w", err)
	}

	resolverCfg := a2a.DefaultResolverConfig()
	resolverCfg.Timeout = cfg.Resolution.Timeout
	resolver := a2a.NewHTTPResolver(
		resolverCfg,
		instrumentCache(cache, collector, cfg.Resolution.CacheBackend),
		logger,
	)

	registry := discovery.NewRegistry(instrumentResolver(resolver, collector), logger)
	service := discovery.NewService(registry, logger)

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		service:   service,
		collector: collector,
		cache:     cache,
		telemetry: otel,
	}

	// Registry events drive the registration metrics.
	registry.Subscribe(func(e *discovery.Event) {
		collector.RecordRegistration(string(e.Type), "success")
		collector.SetRegisteredAgents(registry.Count())
	})

	return s, nil
}

func buildCardCache(cfg config.ResolutionConfig, logger *zap.Logger) (a2a.CardCache, error) {
	switch cfg.CacheBackend {
	case "", "memory":
		return a2a.NewMemoryCardCache(cfg.CacheTTL), nil
	case "redis":
		redisCfg := a2a.DefaultRedisCardCacheConfig()
		redisCfg.Addr = cfg.Redis.Addr
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.KeyPrefix != "" {
			redisCfg.KeyPrefix = cfg.Redis.KeyPrefix
		}
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		redisCfg.TTL = cfg.CacheTTL
		return a2a.NewRedisCardCache(redisCfg, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.CacheBackend)
	}
}

// Start binds the registry listener.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/version", s.handleVersion)
	mux.Handle("/", s.service)

	rlCtx, rlCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rlCancel

	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		RateLimiter(rlCtx, s.cfg.Registry.RPS, s.cfg.Registry.Burst, s.logger),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            s.cfg.Registry.ListenAddr,
		ReadTimeout:     s.cfg.Registry.ReadTimeout,
		WriteTimeout:    s.cfg.Registry.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Registry.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Registry.ShutdownTimeout,
	}, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("registry service started",
		zap.String("addr", s.cfg.Registry.ListenAddr),
		zap.String("base_url", s.cfg.Registry.BaseURL),
		zap.String("cache_backend", s.cfg.Resolution.CacheBackend),
	)
	return nil
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"version":%q,"build_time":%q,"git_commit":%q}`, Version, BuildTime, GitCommit)
}

// WaitForShutdown blocks until the process is signalled, then cleans
// up.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown releases everything Start acquired.
func (s *Server) Shutdown() {
	ctx := context.Background()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("http shutdown error", zap.Error(err))
		}
	}
	if closer, ok := s.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("cache close error", zap.Error(err))
		}
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("graceful shutdown completed")
}
