// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/mindcanvas/insights/internal/config"
	"github.com/mindcanvas/insights/internal/logging"
	"github.com/mindcanvas/insights/internal/metrics"
	"github.com/mindcanvas/insights/internal/models"
)

// ErrNoReport is returned by Latest before the first successful refresh.
var ErrNoReport = errors.New("advisor: no report generated yet")

const systemPrompt = `You are a customer success advisor for MindCanvas, a SaaS mindmapping product.
You receive aggregated usage metrics: cohort sizes, retention rates, and account health distribution.
Respond with a JSON object of the form
{"recommendations": [{"title": "...", "severity": "low|medium|high", "rationale": "...", "action": "..."}]}
containing 3 to 5 concrete retention recommendations. Base every recommendation
only on the metrics provided. Respond with JSON only.`

// Analytics is the slice of the analytics service the advisor consumes.
type Analytics interface {
	UserIDs(ctx context.Context, since time.Time) ([]string, error)
	CohortMembers(ctx context.Context, since time.Time) (map[models.CohortKey][]string, []models.Degradation, error)
	CalculateCohortRetention(ctx context.Context, cohortKey models.CohortKey, memberIDs []string, maxWeeks int) (models.RetentionCurve, []models.Degradation, error)
	UsersHealthScores(ctx context.Context, userIDs []string) ([]models.HealthScore, []models.Degradation, error)
}

// Completer is the LLM call the engine depends on; *Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Engine aggregates metrics into a snapshot, asks the LLM for
// recommendations, and caches the resulting report for the API.
type Engine struct {
	analytics Analytics
	llm       Completer
	cfg       config.AdvisorConfig
	now       func() time.Time

	mu     sync.RWMutex
	latest *models.AdvisorReport
}

// NewEngine creates the advisor engine.
func NewEngine(analytics Analytics, llm Completer, cfg config.AdvisorConfig) *Engine {
	return &Engine{
		analytics: analytics,
		llm:       llm,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Latest returns the most recent report, or ErrNoReport before the first
// successful Refresh.
func (e *Engine) Latest() (*models.AdvisorReport, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.latest == nil {
		return nil, ErrNoReport
	}
	return e.latest, nil
}

// Refresh rebuilds the metrics snapshot, asks the LLM for recommendations,
// and replaces the cached report. The previous report stays served if
// anything fails.
func (e *Engine) Refresh(ctx context.Context) (*models.AdvisorReport, error) {
	snapshot, err := e.buildSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("advisor snapshot: %w", err)
	}

	userPrompt, err := renderPrompt(snapshot)
	if err != nil {
		return nil, err
	}

	content, err := e.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	recommendations, err := parseRecommendations(content)
	if err != nil {
		metrics.AdvisorCalls.WithLabelValues("parse_error").Inc()
		return nil, err
	}

	report := &models.AdvisorReport{
		GeneratedAt:     e.now(),
		Model:           e.cfg.Model,
		Snapshot:        snapshot,
		Recommendations: recommendations,
	}

	e.mu.Lock()
	e.latest = report
	e.mu.Unlock()

	logging.Info().
		Int("recommendations", len(recommendations)).
		Int("total_users", snapshot.TotalUsers).
		Msg("Advisor report refreshed")
	return report, nil
}

// buildSnapshot aggregates cohort, retention, and health data into the
// anonymized form the LLM is allowed to see.
func (e *Engine) buildSnapshot(ctx context.Context) (models.MetricsSnapshot, error) {
	snapshot := models.MetricsSnapshot{
		GeneratedAt:    e.now(),
		CohortSizes:    make(map[models.CohortKey]int, len(models.AllCohortKeys)),
		Week1Retention: make(map[models.CohortKey]float64, len(models.AllCohortKeys)),
		Week4Retention: make(map[models.CohortKey]float64, len(models.AllCohortKeys)),
	}

	members, _, err := e.analytics.CohortMembers(ctx, time.Time{})
	if err != nil {
		return snapshot, fmt.Errorf("cohort members: %w", err)
	}
	for key, ids := range members {
		snapshot.CohortSizes[key] = len(ids)

		curve, _, err := e.analytics.CalculateCohortRetention(ctx, key, ids, 4)
		if err != nil {
			return snapshot, fmt.Errorf("retention for %s: %w", key, err)
		}
		for _, wk := range curve.Weeks {
			switch wk.WeekNumber {
			case 1:
				snapshot.Week1Retention[key] = wk.RetentionRate
			case 4:
				snapshot.Week4Retention[key] = wk.RetentionRate
			}
		}
	}

	userIDs, err := e.analytics.UserIDs(ctx, time.Time{})
	if err != nil {
		return snapshot, fmt.Errorf("list users: %w", err)
	}
	snapshot.TotalUsers = len(userIDs)

	scores, _, err := e.analytics.UsersHealthScores(ctx, userIDs)
	if err != nil {
		return snapshot, fmt.Errorf("health scores: %w", err)
	}

	var sum int
	for _, score := range scores {
		sum += score.Score
		if score.Score < 50 {
			snapshot.AtRiskUsers++
		}
		if score.Score < 30 {
			snapshot.CriticalUsers++
		}
	}
	if len(scores) > 0 {
		snapshot.AverageScore = float64(sum) / float64(len(scores))
	}
	return snapshot, nil
}

// renderPrompt serializes the snapshot for the user message.
func renderPrompt(snapshot models.MetricsSnapshot) (string, error) {
	encoded, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return "Current product metrics:\n" + string(encoded), nil
}

// parseRecommendations decodes the LLM response strictly. Anything that is
// not the requested JSON shape is an error; the advisor never serves
// free-form LLM text.
func parseRecommendations(content string) ([]models.Recommendation, error) {
	// Some models wrap JSON in a markdown fence despite instructions.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("parse advisor response: %w", err)
	}
	if len(payload.Recommendations) == 0 {
		return nil, errors.New("advisor response contained no recommendations")
	}
	for i, rec := range payload.Recommendations {
		if rec.Title == "" || rec.Action == "" {
			return nil, fmt.Errorf("advisor recommendation %d missing title or action", i)
		}
	}
	return payload.Recommendations, nil
}
