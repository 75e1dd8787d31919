package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shellmind/internal/agent"
	"shellmind/internal/config"
	"shellmind/internal/embedding"
	"shellmind/internal/logging"
	"shellmind/internal/memory"
	"shellmind/internal/oracle"
	"shellmind/internal/store"
	"shellmind/internal/tools"
	"shellmind/internal/tools/core"
	"shellmind/internal/tools/memorytools"
	"shellmind/internal/tools/shell"
	"shellmind/internal/tools/vision"
)

// app is the assembled agent: configuration, tool registry, store,
// session memory, and the reflection loop on top.
type app struct {
	cfg       *config.Config
	sessionID string
	started   time.Time

	registry *tools.Registry
	ec       *tools.ExecutionContext
	store    *store.LocalStore
	session  *memory.Manager
	loop     *agent.Loop
}

// newApp loads config and wires every component. interactive chooses
// the terminal confirmer; non-interactive callers supply their own.
func newApp(confirmer agent.Confirmer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	if err := logging.InitAudit(); err != nil {
		return nil, fmt.Errorf("initialize audit trail: %w", err)
	}

	dir := cfg.Execution.WorkingDirectory
	if workDir != "" {
		dir = workDir
	}
	ec, err := tools.NewExecutionContext(dir)
	if err != nil {
		return nil, err
	}

	engine, err := embedding.NewEngine(embedding.Config{
		Backend:    cfg.Embedding.Backend,
		Model:      cfg.Embedding.Model,
		Endpoint:   cfg.Embedding.Endpoint,
		APIKey:     cfg.EmbeddingAPIKey(),
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding engine: %w", err)
	}

	st, err := store.NewLocalStore(cfg.Store.DatabasePath, engine)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	session := memory.NewManager(sessionID, cfg.Memory.MaxSessionMessages, st)

	registry := tools.NewRegistry()
	if err := core.RegisterAll(registry, ec); err != nil {
		return nil, fmt.Errorf("register core tools: %w", err)
	}
	if err := shell.RegisterAll(registry, ec, shell.Options{
		Timeout:        cfg.GetShellTimeout(),
		MaxOutputBytes: cfg.Execution.MaxOutputBytes,
	}); err != nil {
		return nil, fmt.Errorf("register shell tools: %w", err)
	}
	vision.RegisterAll(registry, ec, vision.NewHTTPClassifier(vision.Options{
		Endpoint: cfg.Vision.Endpoint,
		Model:    cfg.Vision.Model,
	}))
	memorytools.RegisterAll(registry, st, cfg.Memory.RecallLimit, cfg.Memory.MinSimilarity)

	oracleClient := oracle.NewClient(oracle.ClientConfig{
		BaseURL:     cfg.Oracle.BaseURL,
		APIKey:      cfg.APIKey(),
		Model:       cfg.Oracle.Model,
		Temperature: cfg.Oracle.Temperature,
		Timeout:     cfg.GetOracleTimeout(),
		MaxRetries:  cfg.Oracle.MaxRetries,
	})

	executor := agent.NewExecutor(registry, ec, confirmer)
	loop := agent.NewLoop(oracleClient, executor, registry, session, st, agent.LoopConfig{
		MaxReplans:    cfg.ReplanCeiling(),
		RecallLimit:   cfg.Memory.RecallLimit,
		MinSimilarity: cfg.Memory.MinSimilarity,
	})

	logging.Audit().SessionStart(sessionID)
	logger.Debug("agent assembled",
		zap.String("session", sessionID),
		zap.String("model", cfg.Oracle.Model),
		zap.Int("tools", registry.Count()))

	return &app{
		cfg:       cfg,
		sessionID: sessionID,
		started:   time.Now(),
		registry:  registry,
		ec:        ec,
		store:     st,
		session:   session,
		loop:      loop,
	}, nil
}

// close flushes the session window to the store and closes it.
func (a *app) close() {
	if a.session != nil {
		if err := a.session.Flush(context.Background()); err != nil {
			logger.Warn("session flush failed", zap.Error(err))
		}
	}
	logging.Audit().SessionEnd(a.sessionID, a.session.Len(), time.Since(a.started).Milliseconds())
	if a.store != nil {
		a.store.Close()
	}
}
