// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mindcanvas/insights/internal/metrics"
	"github.com/mindcanvas/insights/internal/models"
)

// User fetches one user record. Returns ErrNotFound when the record does not
// exist.
func (s *Store) User(ctx context.Context, userID string) (*models.User, error) {
	began := time.Now()

	var (
		u        models.User
		email    sql.NullString
		signupAt sql.NullTime
	)
	err := s.conn.QueryRowContext(ctx,
		"SELECT id, email, plan, signup_at FROM users WHERE id = ?", userID).
		Scan(&u.ID, &email, &u.Plan, &signupAt)
	metrics.ObserveStoreQuery("select", CollectionUsers, began, err)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user %s: %w", userID, err)
	}

	u.Email = nullString(email)
	u.SignupAt = nullTime(signupAt)
	return &u, nil
}

// SignupDate resolves a user's signup timestamp. Returns ErrNotFound when the
// user does not exist or has no recorded signup time; callers treat that as
// "cannot classify", not as a failure.
func (s *Store) SignupDate(ctx context.Context, userID string) (time.Time, error) {
	began := time.Now()

	var signupAt sql.NullTime
	err := s.conn.QueryRowContext(ctx,
		"SELECT signup_at FROM users WHERE id = ?", userID).Scan(&signupAt)
	metrics.ObserveStoreQuery("select", CollectionUsers, began, err)
	if err == sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("signup date for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query signup date for %s: %w", userID, err)
	}
	if !signupAt.Valid {
		return time.Time{}, fmt.Errorf("signup date for %s: %w", userID, ErrNotFound)
	}
	return signupAt.Time, nil
}

// WeeklyActivity returns every stored weekly counter bucket for a user,
// oldest first. An empty slice is a valid result.
func (s *Store) WeeklyActivity(ctx context.Context, userID string) ([]models.WeeklyActivity, error) {
	began := time.Now()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT user_id, week_start, logins, views, creates, edits, exports
		 FROM user_weekly_activity WHERE user_id = ? ORDER BY week_start ASC`, userID)
	metrics.ObserveStoreQuery("select", CollectionWeeklyActivity, began, err)
	if err != nil {
		return nil, fmt.Errorf("query weekly activity for %s: %w", userID, err)
	}
	defer rows.Close()

	var buckets []models.WeeklyActivity
	for rows.Next() {
		var w models.WeeklyActivity
		if err := rows.Scan(&w.UserID, &w.WeekStart, &w.Logins, &w.Views, &w.Creates, &w.Edits, &w.Exports); err != nil {
			return nil, fmt.Errorf("scan weekly activity row: %w", err)
		}
		buckets = append(buckets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly activity rows: %w", err)
	}
	return buckets, nil
}

// SentimentValues returns the analyzed sentiment of each of the user's
// mindmaps that carries one, in [-1, 1]. Maps never analyzed are skipped.
func (s *Store) SentimentValues(ctx context.Context, userID string) ([]float64, error) {
	began := time.Now()

	rows, err := s.conn.QueryContext(ctx,
		"SELECT sentiment FROM mindmaps WHERE user_id = ? AND sentiment IS NOT NULL", userID)
	metrics.ObserveStoreQuery("select", CollectionMindmaps, began, err)
	if err != nil {
		return nil, fmt.Errorf("query sentiment for %s: %w", userID, err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan sentiment row: %w", err)
		}
		// Clamp malformed analyzer output rather than skewing the average.
		if v < -1 {
			v = -1
		} else if v > 1 {
			v = 1
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentiment rows: %w", err)
	}
	return values, nil
}

// SubscriptionEventsForUser returns a user's plan changes within the range,
// inclusive on both ends, ordered ascending.
func (s *Store) SubscriptionEventsForUser(ctx context.Context, userID string, rng models.DateRange) ([]models.SubscriptionEvent, error) {
	return s.subscriptionEvents(ctx, "user_id", userID, rng)
}

// SubscriptionEventsForWorkspace returns a workspace's plan changes within
// the range, inclusive on both ends, ordered ascending.
func (s *Store) SubscriptionEventsForWorkspace(ctx context.Context, workspaceID string, rng models.DateRange) ([]models.SubscriptionEvent, error) {
	return s.subscriptionEvents(ctx, "workspace_id", workspaceID, rng)
}

func (s *Store) subscriptionEvents(ctx context.Context, entityCol, entityID string, rng models.DateRange) ([]models.SubscriptionEvent, error) {
	began := time.Now()

	query := fmt.Sprintf(
		`SELECT id, user_id, workspace_id, from_plan, to_plan, ts
		 FROM subscription_events WHERE %s = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC`, entityCol)

	rows, err := s.conn.QueryContext(ctx, query, entityID, rng.Start, rng.End)
	metrics.ObserveStoreQuery("select", CollectionSubscriptions, began, err)
	if err != nil {
		return nil, fmt.Errorf("query subscription events for %s: %w", entityCol, err)
	}
	defer rows.Close()

	var events []models.SubscriptionEvent
	for rows.Next() {
		var (
			ev          models.SubscriptionEvent
			workspaceID sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &workspaceID, &ev.FromPlan, &ev.ToPlan, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan subscription event row: %w", err)
		}
		ev.WorkspaceID = nullString(workspaceID)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription event rows: %w", err)
	}
	return events, nil
}

// UserIDs lists the ids of users who signed up at or after since, for
// building cohort member sets and advisor aggregates. A zero since returns
// every user with a recorded signup.
func (s *Store) UserIDs(ctx context.Context, since time.Time) ([]string, error) {
	began := time.Now()

	rows, err := s.conn.QueryContext(ctx,
		"SELECT id FROM users WHERE signup_at IS NOT NULL AND signup_at >= ? ORDER BY signup_at ASC", since)
	metrics.ObserveStoreQuery("select", CollectionUsers, began, err)
	if err != nil {
		return nil, fmt.Errorf("query user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user id rows: %w", err)
	}
	return ids, nil
}
