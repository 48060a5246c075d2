package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/luxury-studio/internal/agents"
	"github.com/jonathan/luxury-studio/internal/artifacts"
	"github.com/jonathan/luxury-studio/internal/batch"
	"github.com/jonathan/luxury-studio/internal/config"
	"github.com/jonathan/luxury-studio/internal/db"
	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/workflow"
)

// app wires the pipeline and its storage from one configuration.
type app struct {
	gateway llm.Gateway
	store   artifacts.Store
	history *db.DB
	runner  *batch.Runner
}

// llmConfig maps the process configuration onto the gateway configuration.
func llmConfig(cfg *config.Config) *llm.Config {
	return &llm.Config{
		Provider: llm.ProviderGemini,
		Models: map[llm.ModelRole]string{
			llm.RoleAnalyst:  cfg.Models.Analyst,
			llm.RoleDirector: cfg.Models.Director,
			llm.RoleProducer: cfg.Models.Producer,
			llm.RoleInpaint:  cfg.Models.Inpaint,
			llm.RoleJudge:    cfg.Models.Judge,
		},
		CallTimeout: cfg.Timeout(),
	}
}

// newStore selects the S3 store when a bucket is configured, else local disk.
func newStore(ctx context.Context, cfg *config.Config) (artifacts.Store, error) {
	if cfg.OutputBucket != "" {
		log.Info().Str("bucket", cfg.OutputBucket).Str("prefix", cfg.OutputPrefix).Msg("Using S3 artifact store")
		return artifacts.NewS3Store(ctx, cfg.OutputBucket, cfg.OutputPrefix)
	}
	log.Info().Str("dir", cfg.OutputDir).Msg("Using local artifact store")
	return artifacts.NewLocalStore(cfg.OutputDir)
}

// newAgents builds the four stage implementations over one gateway.
func newAgents(gateway llm.Gateway, cfg *config.Config) (workflow.Agents, error) {
	mode, err := agents.ParseRevisionMode(cfg.DirectorRevision)
	if err != nil {
		return workflow.Agents{}, err
	}
	return workflow.Agents{
		Analyst: agents.NewAnalyst(gateway),
		Director: agents.NewDirector(gateway, agents.DirectorOptions{
			Revision: mode,
			Width:    cfg.ImageWidth,
			Height:   cfg.ImageHeight,
		}),
		Producer: agents.NewProducer(gateway, agents.ProducerOptions{Width: cfg.ImageWidth, Height: cfg.ImageHeight}),
		Judge:    agents.NewJudge(gateway),
	}, nil
}

// newApp connects to the backend and the configured stores.
// A nil onProgress logs progress at debug level.
func newApp(ctx context.Context, cfg *config.Config, onProgress workflow.ProgressCallback) (*app, error) {
	if onProgress == nil {
		onProgress = logProgress
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	gateway, err := llm.NewGateway(ctx, llmConfig(cfg), cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create model gateway: %w", err)
	}
	a := &app{gateway: gateway}

	stageAgents, err := newAgents(gateway, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	orchestrator, err := workflow.New(stageAgents, workflow.Options{
		Threshold:  cfg.MinAcceptedScore,
		MaxRetries: cfg.MaxRetries,
		OnProgress: onProgress,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store, err = newStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var history batch.History
	if cfg.DatabaseURL != "" {
		a.history, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := a.history.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		history = a.history
	}

	a.runner = batch.NewRunner(orchestrator, a.store, history, batch.Options{
		Concurrency:       cfg.BatchConcurrency,
		MaxImageDimension: cfg.MaxImageDimension,
	})
	return a, nil
}

// Close releases the gateway and database pool.
func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
	if a.gateway != nil {
		if err := a.gateway.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close model gateway")
		}
	}
}

func logProgress(event workflow.ProgressEvent) {
	log.Debug().
		Str("run_id", event.RunID).
		Str("file", event.File).
		Str("step", event.Step).
		Str("stage", event.Stage).
		Msg(event.Message)
}
