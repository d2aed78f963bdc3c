package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/card"
	"github.com/BaSui01/agentlink/agent/discovery"
	"github.com/BaSui01/agentlink/agent/topology"
	"github.com/BaSui01/agentlink/config"
	"github.com/BaSui01/agentlink/internal/database"
	"github.com/BaSui01/agentlink/internal/history"
	"github.com/BaSui01/agentlink/internal/metrics"
	"github.com/BaSui01/agentlink/internal/migration"
	"github.com/BaSui01/agentlink/internal/server"
)

// demoAgent describes one locally hosted agent in the demo fleet.
type demoAgent struct {
	port     int
	identity a2a.Identity
	execute  a2a.ExecutorFunc
}

func demoFleet() []demoAgent {
	return []demoAgent{
		{
			port: 9001,
			identity: a2a.Identity{
				Name:        "research-agent",
				Description: "Collects background findings on a topic",
				Version:     "1.0.0",
				Skills: []card.Skill{{
					ID:   "research",
					Name: "Research",
					Tags: []string{"research", "analysis"},
				}},
			},
			execute: func(ctx context.Context, text string) (string, error) {
				return "FINDINGS:\n- demo finding one\n- demo finding two\n\nfor task: " + text, nil
			},
		},
		{
			port: 9002,
			identity: a2a.Identity{
				Name:        "writer-agent",
				Description: "Drafts a structured report from findings",
				Version:     "1.0.0",
				Skills: []card.Skill{{
					ID:   "writing",
					Name: "Writing",
					Tags: []string{"writing", "drafting"},
				}},
			},
			execute: func(ctx context.Context, text string) (string, error) {
				return "DRAFT REPORT\n============\nBased on the provided findings, this demo report was drafted.\n\n" + text, nil
			},
		},
		{
			port: 9003,
			identity: a2a.Identity{
				Name:        "security-agent",
				Description: "Reviews a draft for sensitive content",
				Version:     "1.0.0",
				Skills: []card.Skill{{
					ID:   "security",
					Name: "Security Review",
					Tags: []string{"security", "review"},
				}},
			},
			execute: func(ctx context.Context, text string) (string, error) {
				return "SECURITY REVIEW: no sensitive content found. Draft approved.", nil
			},
		},
	}
}

// runDemo hosts three agents locally, registers them, and drives the
// skill pipeline across them.
func runDemo(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	task := fs.String("task", "Write a short report about agent interoperability", "Task for the pipeline")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	collector := metrics.NewCollector("agentlink", prometheus.DefaultRegisterer, logger)
	cache := instrumentCache(a2a.NewMemoryCardCache(cfg.Resolution.CacheTTL), collector, "memory")
	resolver := a2a.NewHTTPResolver(a2a.DefaultResolverConfig(), cache, logger)
	registry := discovery.NewRegistry(instrumentResolver(resolver, collector), logger)

	// Host the fleet.
	managers := make([]*server.Manager, 0, len(demoFleet()))
	for _, da := range demoFleet() {
		baseURL := fmt.Sprintf("http://localhost:%d", da.port)
		agentSrv := a2a.NewAgentServer(&a2a.ServerConfig{
			BaseURL:        baseURL,
			RequestTimeout: cfg.Invocation.Timeout,
			Logger:         logger,
		}, da.identity, da.execute)

		srvCfg := server.DefaultConfig()
		srvCfg.Addr = fmt.Sprintf(":%d", da.port)
		m := server.NewManager(agentSrv, srvCfg, logger)
		if err := m.Start(); err != nil {
			logger.Fatal("demo agent start failed",
				zap.String("agent", da.identity.Name),
				zap.Error(err),
			)
		}
		managers = append(managers, m)

		if _, err := registry.Register(ctx, baseURL); err != nil {
			logger.Fatal("demo agent registration failed",
				zap.String("agent", da.identity.Name),
				zap.Error(err),
			)
		}
		logger.Info("demo agent registered",
			zap.String("agent", da.identity.Name),
			zap.String("url", baseURL),
		)
	}
	defer func() {
		for _, m := range managers {
			_ = m.Shutdown(context.Background())
		}
	}()

	// Run the pipeline across the fleet.
	callerCfg := a2a.DefaultClientConfig()
	callerCfg.Timeout = cfg.Invocation.Timeout
	callerCfg.AgentID = "demo-orchestrator"
	caller := a2a.NewHTTPCaller(callerCfg, logger)
	caller.SetObserver(collector.RecordInvocation)

	pipeline := topology.NewPipeline(topology.DefaultStages(), registry, caller, logger)
	start := time.Now()
	report := pipeline.Run(ctx, *task)
	collector.RecordRun("pipeline", string(report.Outcome), executedStages(report), time.Since(start))

	fmt.Println(report.Report)

	if cfg.History.Enabled {
		archiveDemoRun(ctx, cfg, logger, report)
	}
}

// executedStages counts the stages a run actually invoked.
func executedStages(report *topology.PipelineReport) int {
	n := 0
	for _, s := range report.Stages {
		if !s.Skipped {
			n++
		}
	}
	return n
}

// archiveDemoRun stores the pipeline report in the run-history
// database, migrating the schema first.
func archiveDemoRun(ctx context.Context, cfg *config.Config, logger *zap.Logger, report *topology.PipelineReport) {
	db, err := database.Open(cfg.History, logger)
	if err != nil {
		logger.Warn("history unavailable, run not archived", zap.Error(err))
		return
	}
	defer database.Close(db)

	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("history unavailable, run not archived", zap.Error(err))
		return
	}
	mg, err := migration.New(sqlDB, cfg.History.Driver, logger)
	if err != nil {
		logger.Warn("history migration failed, run not archived", zap.Error(err))
		return
	}
	if err := mg.Up(); err != nil {
		logger.Warn("history migration failed, run not archived", zap.Error(err))
		return
	}

	store := history.NewStore(db, logger)
	rec, err := store.Archive(ctx, "pipeline", report.Task, string(report.Outcome), report.Report, report.Stages)
	if err != nil {
		logger.Warn("run archive failed", zap.Error(err))
		return
	}
	fmt.Fprintf(os.Stderr, "run archived: %s\n", rec.ID)
}
