// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	mutate := func(fn func(*Config)) *Config {
		cfg := defaultConfig()
		fn(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid defaults",
			cfg:     defaultConfig(),
			wantErr: false,
		},
		{
			name:    "port out of range",
			cfg:     mutate(func(c *Config) { c.Server.Port = 0 }),
			wantErr: true,
		},
		{
			name:    "empty database path",
			cfg:     mutate(func(c *Config) { c.Database.Path = "" }),
			wantErr: true,
		},
		{
			name:    "max_weeks too large",
			cfg:     mutate(func(c *Config) { c.Analytics.MaxWeeks = 53 }),
			wantErr: true,
		},
		{
			name:    "zero concurrency",
			cfg:     mutate(func(c *Config) { c.Analytics.Concurrency = 0 }),
			wantErr: true,
		},
		{
			name:    "advisor enabled without api key",
			cfg:     mutate(func(c *Config) { c.Advisor.Enabled = true }),
			wantErr: true,
		},
		{
			name: "advisor enabled with api key",
			cfg: mutate(func(c *Config) {
				c.Advisor.Enabled = true
				c.Advisor.APIKey = "sk-test"
			}),
			wantErr: false,
		},
		{
			name: "advisor refresh interval too short",
			cfg: mutate(func(c *Config) {
				c.Advisor.Enabled = true
				c.Advisor.APIKey = "sk-test"
				c.Advisor.RefreshInterval = time.Second
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env      string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"DUCKDB_PATH", "database.path"},
		{"ANALYTICS_MAX_WEEKS", "analytics.max_weeks"},
		{"OPENAI_API_KEY", "advisor.api_key"},
		{"LOG_LEVEL", "logging.level"},
		{"SOME_RANDOM_VAR", ""},
		{"PATH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.expected)
			}
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "9001")
	t.Setenv("ANALYTICS_MAX_WEEKS", "8")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Analytics.MaxWeeks != 8 {
		t.Errorf("expected max_weeks 8, got %d", cfg.Analytics.MaxWeeks)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("expected two trimmed CORS origins, got %v", cfg.Server.CORSOrigins)
	}
}
