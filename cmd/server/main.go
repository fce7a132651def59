// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for the Insights server.
//
// Insights is the internal analytics dashboard backend for MindCanvas: it
// reads the product's event store (DuckDB) and serves behavioral cohorts,
// retention curves, account health scores, and user journey timelines to the
// customer-success dashboard. An optional LLM advisor turns the aggregated
// metrics into retention recommendations.
//
// The server initializes components in order:
//
//  1. Configuration: Koanf v2 with layered sources (defaults, YAML, env)
//  2. Logging: zerolog, JSON or console format
//  3. Store: DuckDB event store, optionally seeded with mock data
//  4. Analytics: the computation core with bounded query fan-out
//  5. Advisor (optional): OpenAI-backed recommendation engine with a
//     circuit breaker and a supervised periodic refresher
//  6. HTTP API: chi router served under a suture supervision tree
//
// Graceful shutdown on SIGINT/SIGTERM: the supervisor drains the HTTP
// server, then the store is closed.
//
// Example:
//
//	export DUCKDB_PATH=/data/insights.duckdb
//	export SEED_MOCK_DATA=true
//	export OPENAI_API_KEY=sk-...
//	export ADVISOR_ENABLED=true
//	./insights
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mindcanvas/insights/internal/advisor"
	"github.com/mindcanvas/insights/internal/analytics"
	"github.com/mindcanvas/insights/internal/api"
	"github.com/mindcanvas/insights/internal/cache"
	"github.com/mindcanvas/insights/internal/config"
	"github.com/mindcanvas/insights/internal/logging"
	"github.com/mindcanvas/insights/internal/store"
	"github.com/mindcanvas/insights/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Int("port", cfg.Server.Port).
		Bool("advisor_enabled", cfg.Advisor.Enabled).
		Msg("Starting Insights")

	st, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open event store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event store")
		}
	}()

	if cfg.Database.SeedMockData {
		logging.Info().Msg("Mock data seeding enabled (SEED_MOCK_DATA=true)")
		if err := st.SeedMockData(context.Background()); err != nil {
			logging.Fatal().Err(err).Msg("Failed to seed mock data")
		}
	}

	analyticsSvc := analytics.NewService(st, cfg.Analytics)
	responseCache := cache.New(cfg.Analytics.CacheTTL)
	defer responseCache.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	// The advisor is optional: without an API key the endpoints return 503
	// and no LLM traffic ever leaves the service.
	var advisorEngine api.AdvisorEngine
	if cfg.Advisor.Enabled {
		engine := advisor.NewEngine(analyticsSvc, advisor.NewClient(cfg.Advisor), cfg.Advisor)
		advisorEngine = engine
		tree.AddBackgroundService(advisor.NewRefresher(engine, cfg.Advisor.RefreshInterval))
		logging.Info().
			Str("model", cfg.Advisor.Model).
			Dur("refresh_interval", cfg.Advisor.RefreshInterval).
			Msg("Advisor enabled")
	} else {
		logging.Info().Msg("Advisor disabled")
	}

	handlers := api.NewHandlers(analyticsSvc, advisorEngine, st, responseCache, cfg.Analytics)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers, cfg.Server),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Insights listening")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services missed the shutdown timeout")
	}
	logging.Info().Msg("Insights stopped")
}
