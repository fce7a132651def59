// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates the Insights service configuration via
// Koanf v2 with layered sources: built-in defaults, an optional YAML file,
// then environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Insights service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Advisor   AdvisorConfig   `koanf:"advisor"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig configures the DuckDB analytics store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB thread count; 0 means runtime.NumCPU().
	Threads      int  `koanf:"threads"`
	SeedMockData bool `koanf:"seed_mock_data"`
}

// AnalyticsConfig tunes the analytics core.
type AnalyticsConfig struct {
	// MaxWeeks is the default retention horizon when a request does not
	// specify one.
	MaxWeeks int `koanf:"max_weeks"`

	// SignupWindowDays bounds the signup window used to build cohort member
	// sets for the retention endpoint.
	SignupWindowDays int `koanf:"signup_window_days"`

	// Concurrency caps the fan-out of per-member and per-user store queries.
	Concurrency int `koanf:"concurrency"`

	// CacheTTL is how long computed analytics responses stay cached.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// QuotaTokenThreshold is the token_burn level that surfaces as a
	// quota-hit journey event.
	QuotaTokenThreshold int64 `koanf:"quota_token_threshold"`
}

// AdvisorConfig configures the LLM-backed advisor. Disabled by default; the
// advisor endpoints return 503 until enabled with a valid API key.
type AdvisorConfig struct {
	Enabled         bool          `koanf:"enabled"`
	APIKey          string        `koanf:"api_key"`
	BaseURL         string        `koanf:"base_url"`
	Model           string        `koanf:"model"`
	MaxTokens       int           `koanf:"max_tokens"`
	Timeout         time.Duration `koanf:"timeout"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8419,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:         "/data/insights.duckdb",
			MaxMemory:    "2GB",
			Threads:      0,
			SeedMockData: false,
		},
		Analytics: AnalyticsConfig{
			MaxWeeks:            12,
			SignupWindowDays:    90,
			Concurrency:         8,
			CacheTTL:            5 * time.Minute,
			QuotaTokenThreshold: 100_000,
		},
		Advisor: AdvisorConfig{
			Enabled:         false,
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-4o-mini",
			MaxTokens:       800,
			Timeout:         30 * time.Second,
			RefreshInterval: 6 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Analytics.MaxWeeks < 1 || c.Analytics.MaxWeeks > 52 {
		return fmt.Errorf("analytics.max_weeks must be in 1..52, got %d", c.Analytics.MaxWeeks)
	}
	if c.Analytics.Concurrency < 1 {
		return fmt.Errorf("analytics.concurrency must be at least 1, got %d", c.Analytics.Concurrency)
	}
	if c.Analytics.QuotaTokenThreshold <= 0 {
		return fmt.Errorf("analytics.quota_token_threshold must be positive, got %d", c.Analytics.QuotaTokenThreshold)
	}
	if c.Advisor.Enabled {
		if c.Advisor.APIKey == "" {
			return fmt.Errorf("advisor.api_key is required when advisor.enabled is true")
		}
		if c.Advisor.Model == "" {
			return fmt.Errorf("advisor.model must not be empty")
		}
		if c.Advisor.RefreshInterval < time.Minute {
			return fmt.Errorf("advisor.refresh_interval must be at least 1m, got %s", c.Advisor.RefreshInterval)
		}
	}
	return nil
}
