// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the read layer over the DuckDB analytics database. It
// parses raw rows into typed models at the boundary and offers both a generic
// filtered query contract and the typed accessors the analytics core uses.
//
// The store never writes product data; the only writes are schema creation
// and the optional development mock-data seeder.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/mindcanvas/insights/internal/config"
	"github.com/mindcanvas/insights/internal/logging"
)

// ErrNotFound indicates the requested entity record does not exist.
var ErrNotFound = errors.New("record not found")

// Collection names, used by the generic Query contract.
const (
	CollectionEvents         = "analytics_events"
	CollectionUsers          = "users"
	CollectionWeeklyActivity = "user_weekly_activity"
	CollectionMindmaps       = "mindmaps"
	CollectionSubscriptions  = "subscription_events"
)

// Store wraps the DuckDB connection.
type Store struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the DuckDB database at cfg.Path and ensures the schema exists.
func New(cfg *config.DatabaseConfig) (*Store, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// 0750 per gosec G301
	if dbDir := filepath.Dir(cfg.Path); dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{conn: conn, cfg: cfg}
	if err := s.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", numThreads).Msg("Analytics store opened")
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id VARCHAR PRIMARY KEY,
			event_type VARCHAR NOT NULL,
			user_id VARCHAR NOT NULL,
			workspace_id VARCHAR,
			ts TIMESTAMP NOT NULL,
			funnel_step VARCHAR,
			status VARCHAR,
			token_units BIGINT NOT NULL DEFAULT 0,
			plan VARCHAR,
			metadata VARCHAR
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_ts ON analytics_events (user_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_workspace_ts ON analytics_events (workspace_id, ts)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR PRIMARY KEY,
			email VARCHAR,
			plan VARCHAR NOT NULL DEFAULT 'free',
			signup_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_weekly_activity (
			user_id VARCHAR NOT NULL,
			week_start TIMESTAMP NOT NULL,
			logins INTEGER NOT NULL DEFAULT 0,
			views INTEGER NOT NULL DEFAULT 0,
			creates INTEGER NOT NULL DEFAULT 0,
			edits INTEGER NOT NULL DEFAULT 0,
			exports INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, week_start)
		)`,
		`CREATE TABLE IF NOT EXISTS mindmaps (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			workspace_id VARCHAR,
			title VARCHAR,
			created_at TIMESTAMP NOT NULL,
			sentiment DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS subscription_events (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			workspace_id VARCHAR,
			from_plan VARCHAR NOT NULL,
			to_plan VARCHAR NOT NULL,
			ts TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// nullTime converts a sql.NullTime to a zero-or-value time.
func nullTime(t sql.NullTime) time.Time {
	if t.Valid {
		return t.Time
	}
	return time.Time{}
}

// nullString converts a sql.NullString to a plain string.
func nullString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return ""
}
