package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonathan/reply-coach/internal/config"
	"github.com/jonathan/reply-coach/internal/llm"
	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/remote"
	"github.com/jonathan/reply-coach/internal/store"
	"github.com/jonathan/reply-coach/internal/strategy"
)

// newLogger builds the process logger from the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildPipeline wires the pipeline from configuration. Sink failures
// degrade: the pipeline still runs, it just stops persisting to the broken
// sink. The returned cleanup closes whatever was opened.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, func(), error) {
	client, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.APIKey())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	closers := []func(){func() { client.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	strategies := strategy.Default()
	if cfg.StrategiesPath != "" {
		strategies, err = strategy.Load(cfg.StrategiesPath)
		if err != nil {
			logger.Warn("strategies file unavailable, continuing with an empty strategy set", "path", cfg.StrategiesPath, "error", err)
			strategies = strategy.Empty()
		}
	}

	deps := pipeline.Deps{
		LLM:        client,
		Strategies: strategies,
		Logger:     logger,
	}

	records, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Warn("record store unavailable, runs will not be persisted", "path", cfg.DatabasePath, "error", err)
	} else {
		closers = append(closers, func() { records.Close() })
		deps.Records = records
	}

	var mirrors pipeline.MultiMirror
	if cfg.MirrorCSVPath != "" {
		mirrors = append(mirrors, store.NewCSVMirror(cfg.MirrorCSVPath))
	}
	if cfg.MirrorDatabaseURL != "" {
		mirror, err := remote.Connect(ctx, cfg.MirrorDatabaseURL)
		if err != nil {
			logger.Warn("remote mirror unavailable, continuing without it", "error", err)
		} else {
			closers = append(closers, mirror.Close)
			mirrors = append(mirrors, mirror)
		}
	}
	if len(mirrors) > 0 {
		deps.Mirror = mirrors
	}

	opts := pipeline.Options{
		Rebuttal:   cfg.EnableRebuttal,
		Evaluation: cfg.EnableEvaluation,
	}

	return pipeline.New(deps, opts), cleanup, nil
}
