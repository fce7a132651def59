// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/mindcanvas/insights/internal/logging"
	"github.com/mindcanvas/insights/internal/models"
)

// SeedMockData populates the store with realistic mock data so the dashboard
// runs standalone in development and demo environments. Gated behind
// database.seed_mock_data; never enabled in production.
func (s *Store) SeedMockData(ctx context.Context) error {
	var existing int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&existing); err != nil {
		return fmt.Errorf("check existing users: %w", err)
	}
	if existing > 0 {
		logging.Info().Int("users", existing).Msg("Store already has data, skipping mock seed")
		return nil
	}

	logging.Info().Msg("Seeding store with mock data...")

	rng := rand.New(rand.NewSource(42)) // deterministic demo data

	const (
		numUsers      = 40
		daysOfHistory = 90
	)

	names := []string{
		"alice", "bob", "charlie", "dana", "erin", "frank", "grace", "henry",
		"iris", "jonas", "kara", "liam", "mona", "nils", "oona", "pavel",
		"quinn", "rosa", "sven", "tara",
	}
	plans := []models.PlanTier{
		models.PlanFree, models.PlanFree, models.PlanFree,
		models.PlanPro, models.PlanPro, models.PlanTeam, models.PlanEnterprise,
	}
	now := time.Now().UTC().Truncate(time.Hour)

	for i := 0; i < numUsers; i++ {
		userID := uuid.NewString()
		name := names[i%len(names)]
		plan := plans[rng.Intn(len(plans))]
		signup := now.AddDate(0, 0, -rng.Intn(daysOfHistory)-7)

		if _, err := s.conn.ExecContext(ctx,
			"INSERT INTO users (id, email, plan, signup_at) VALUES (?, ?, ?, ?)",
			userID, fmt.Sprintf("%s%d@example.com", name, i), string(plan), signup); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}

		// Engagement persona drives event volume: a third of users go quiet
		// after week 1 so cohorts and at-risk lists have something to show.
		active := rng.Float64() > 0.33
		if err := s.seedUserEvents(ctx, rng, userID, signup, now, active); err != nil {
			return err
		}
		if err := s.seedWeeklyActivity(ctx, rng, userID, signup, now, active); err != nil {
			return err
		}
	}

	logging.Info().Int("users", numUsers).Msg("Mock data seeded")
	return nil
}

func (s *Store) seedUserEvents(ctx context.Context, rng *rand.Rand, userID string, signup, now time.Time, active bool) error {
	workspaceID := uuid.NewString()

	insertEvent := func(t models.EventType, ts time.Time, funnelStep, status string, tokens int64) error {
		_, err := s.conn.ExecContext(ctx,
			`INSERT INTO analytics_events (id, event_type, user_id, workspace_id, ts, funnel_step, status, token_units, plan, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)`,
			uuid.NewString(), string(t), userID, workspaceID, ts, funnelStep, status, tokens)
		if err != nil {
			return fmt.Errorf("seed event: %w", err)
		}
		return nil
	}

	horizon := now
	if !active {
		horizon = signup.AddDate(0, 0, 7)
	}

	// First-week burst: every user generates at least one map.
	firstMap := signup.Add(time.Duration(rng.Intn(48)) * time.Hour)
	if err := insertEvent(models.EventGeneration, firstMap, "", "", 0); err != nil {
		return err
	}
	if err := insertEvent(models.EventFunnel, firstMap.Add(-time.Minute), models.FunnelStepUpload, "", 0); err != nil {
		return err
	}

	for day := 0; ; day += 1 + rng.Intn(4) {
		ts := signup.AddDate(0, 0, day).Add(time.Duration(rng.Intn(12)) * time.Hour)
		if ts.After(horizon) {
			break
		}
		switch rng.Intn(6) {
		case 0:
			if err := insertEvent(models.EventGeneration, ts, "", "", 0); err != nil {
				return err
			}
		case 1, 2:
			if err := insertEvent(models.EventEdit, ts, "", "", 0); err != nil {
				return err
			}
		case 3:
			if err := insertEvent(models.EventExport, ts, "", "", 0); err != nil {
				return err
			}
		case 4:
			if err := insertEvent(models.EventCollaboration, ts, "", "", 0); err != nil {
				return err
			}
		case 5:
			tokens := int64(rng.Intn(150_000))
			if err := insertEvent(models.EventTokenBurn, ts, "", "", tokens); err != nil {
				return err
			}
		}
	}

	// Sprinkle a failed conversion for some users so journeys show errors.
	if rng.Intn(4) == 0 {
		ts := signup.Add(time.Duration(rng.Intn(72)) * time.Hour)
		if err := insertEvent(models.EventFileConversion, ts, "", models.ConversionStatusFailed, 0); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) seedWeeklyActivity(ctx context.Context, rng *rand.Rand, userID string, signup, now time.Time, active bool) error {
	weeks := int(now.Sub(signup).Hours() / (24 * 7))
	if !active && weeks > 1 {
		weeks = 1
	}
	for w := 0; w <= weeks; w++ {
		weekStart := signup.AddDate(0, 0, 7*w)
		if _, err := s.conn.ExecContext(ctx,
			`INSERT INTO user_weekly_activity (user_id, week_start, logins, views, creates, edits, exports)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, weekStart, 1+rng.Intn(7), rng.Intn(20), rng.Intn(3), rng.Intn(10), rng.Intn(2)); err != nil {
			return fmt.Errorf("seed weekly activity: %w", err)
		}
	}
	return nil
}
