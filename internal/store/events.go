// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mindcanvas/insights/internal/logging"
	"github.com/mindcanvas/insights/internal/metrics"
	"github.com/mindcanvas/insights/internal/models"
)

// eventColumns is the select list shared by every event query.
const eventColumns = "id, event_type, user_id, workspace_id, ts, funnel_step, status, token_units, plan, metadata"

// CountEvents counts events of the given types for a user in [start, end).
// The window is half-open so adjacent retention weeks never double-count.
func (s *Store) CountEvents(ctx context.Context, userID string, types []models.EventType, start, end time.Time) (int, error) {
	began := time.Now()

	typeClause, args := typeFilter(types)
	args = append([]any{userID, start, end}, args...)

	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM analytics_events WHERE user_id = ? AND ts >= ? AND ts < ?%s",
		typeClause)

	var count int
	err := s.conn.QueryRowContext(ctx, query, args...).Scan(&count)
	metrics.ObserveStoreQuery("count", CollectionEvents, began, err)
	if err != nil {
		// Fallback: fetch by user id alone and filter in memory.
		events, ferr := s.eventsByEntityFallback(ctx, "user_id", userID)
		if ferr != nil {
			return 0, fmt.Errorf("count events: %w", err)
		}
		return len(filterEvents(events, types, start, end, false)), nil
	}
	return count, nil
}

// HasEvent reports whether at least one event of the given types exists for a
// user in [start, end). The query short-circuits with LIMIT 1.
func (s *Store) HasEvent(ctx context.Context, userID string, types []models.EventType, start, end time.Time) (bool, error) {
	began := time.Now()

	typeClause, args := typeFilter(types)
	args = append([]any{userID, start, end}, args...)

	query := fmt.Sprintf(
		"SELECT 1 FROM analytics_events WHERE user_id = ? AND ts >= ? AND ts < ?%s LIMIT 1",
		typeClause)

	var one int
	err := s.conn.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		metrics.ObserveStoreQuery("exists", CollectionEvents, began, nil)
		return false, nil
	}
	metrics.ObserveStoreQuery("exists", CollectionEvents, began, err)
	if err != nil {
		events, ferr := s.eventsByEntityFallback(ctx, "user_id", userID)
		if ferr != nil {
			return false, fmt.Errorf("check event existence: %w", err)
		}
		return len(filterEvents(events, types, start, end, false)) > 0, nil
	}
	return true, nil
}

// FailedConversionCount counts file_conversion events that failed for a user
// in [start, end). Feeds the health score's support recommendation rule.
func (s *Store) FailedConversionCount(ctx context.Context, userID string, start, end time.Time) (int, error) {
	began := time.Now()

	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analytics_events
		 WHERE user_id = ? AND event_type = ? AND status = ? AND ts >= ? AND ts < ?`,
		userID, string(models.EventFileConversion), models.ConversionStatusFailed, start, end).Scan(&count)
	metrics.ObserveStoreQuery("count", CollectionEvents, began, err)
	if err != nil {
		events, ferr := s.eventsByEntityFallback(ctx, "user_id", userID)
		if ferr != nil {
			return 0, fmt.Errorf("count failed conversions: %w", err)
		}
		n := 0
		for _, ev := range filterEvents(events, []models.EventType{models.EventFileConversion}, start, end, false) {
			if ev.Status == models.ConversionStatusFailed {
				n++
			}
		}
		return n, nil
	}
	return count, nil
}

// EventsForUser returns all events for a user within the range, inclusive on
// both ends, ordered ascending by timestamp.
func (s *Store) EventsForUser(ctx context.Context, userID string, rng models.DateRange) ([]models.AnalyticsEvent, error) {
	return s.eventsForEntity(ctx, "user_id", userID, rng)
}

// EventsForWorkspace returns all events for a workspace within the range,
// inclusive on both ends, ordered ascending by timestamp.
func (s *Store) EventsForWorkspace(ctx context.Context, workspaceID string, rng models.DateRange) ([]models.AnalyticsEvent, error) {
	return s.eventsForEntity(ctx, "workspace_id", workspaceID, rng)
}

// eventsForEntity is the "entity id + time range" query pattern. If the
// filtered query fails, it falls back to fetching every event for the entity
// and filtering in memory; the fallback is logged and counted so operators
// can see the store limping.
func (s *Store) eventsForEntity(ctx context.Context, entityCol, entityID string, rng models.DateRange) ([]models.AnalyticsEvent, error) {
	began := time.Now()

	query := fmt.Sprintf(
		"SELECT %s FROM analytics_events WHERE %s = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC",
		eventColumns, entityCol)

	rows, err := s.conn.QueryContext(ctx, query, entityID, rng.Start, rng.End)
	metrics.ObserveStoreQuery("select", CollectionEvents, began, err)
	if err != nil {
		logging.Warn().Err(err).
			Str("entity", entityCol).
			Msg("Filtered event query failed, falling back to in-memory filter")

		events, ferr := s.eventsByEntityFallback(ctx, entityCol, entityID)
		if ferr != nil {
			return nil, fmt.Errorf("query events for %s: %w", entityCol, err)
		}
		return filterEvents(events, nil, rng.Start, rng.End, true), nil
	}
	defer rows.Close()

	return scanEvents(rows)
}

// eventsByEntityFallback fetches every event for one entity with no range
// predicate, for callers that filter in memory afterwards.
func (s *Store) eventsByEntityFallback(ctx context.Context, entityCol, entityID string) ([]models.AnalyticsEvent, error) {
	began := time.Now()
	metrics.StoreFallbacks.WithLabelValues(CollectionEvents).Inc()

	query := fmt.Sprintf("SELECT %s FROM analytics_events WHERE %s = ?", eventColumns, entityCol)
	rows, err := s.conn.QueryContext(ctx, query, entityID)
	metrics.ObserveStoreQuery("select_fallback", CollectionEvents, began, err)
	if err != nil {
		return nil, fmt.Errorf("fallback query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// filterEvents applies type and time-range predicates in memory and returns
// the survivors sorted ascending by timestamp. inclusiveEnd selects between
// the journey convention [start, end] and the window convention [start, end).
func filterEvents(events []models.AnalyticsEvent, types []models.EventType, start, end time.Time, inclusiveEnd bool) []models.AnalyticsEvent {
	typeSet := make(map[models.EventType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var out []models.AnalyticsEvent
	for _, ev := range events {
		if len(typeSet) > 0 && !typeSet[ev.Type] {
			continue
		}
		if ev.Timestamp.Before(start) {
			continue
		}
		if inclusiveEnd {
			if ev.Timestamp.After(end) {
				continue
			}
		} else if !ev.Timestamp.Before(end) {
			continue
		}
		out = append(out, ev)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// typeFilter renders an optional IN clause for event types.
func typeFilter(types []models.EventType) (string, []any) {
	if len(types) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(types))
	args := make([]any, len(types))
	for i, t := range types {
		placeholders[i] = "?"
		args[i] = string(t)
	}
	return fmt.Sprintf(" AND event_type IN (%s)", strings.Join(placeholders, ", ")), args
}

// scanEvents parses raw event rows into typed models. Events with an unknown
// type are dropped here so nothing downstream sees them.
func scanEvents(rows *sql.Rows) ([]models.AnalyticsEvent, error) {
	var events []models.AnalyticsEvent
	for rows.Next() {
		var (
			ev          models.AnalyticsEvent
			workspaceID sql.NullString
			funnelStep  sql.NullString
			status      sql.NullString
			plan        sql.NullString
			metadata    sql.NullString
			eventType   string
		)
		if err := rows.Scan(&ev.ID, &eventType, &ev.UserID, &workspaceID, &ev.Timestamp,
			&funnelStep, &status, &ev.TokenUnits, &plan, &metadata); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		ev.Type = models.EventType(eventType)
		if !knownEventType(ev.Type) {
			continue
		}
		ev.WorkspaceID = nullString(workspaceID)
		ev.FunnelStep = nullString(funnelStep)
		ev.Status = nullString(status)
		ev.Plan = models.PlanTier(nullString(plan))

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &ev.Metadata); err != nil {
				logging.Warn().Err(err).Str("event_id", ev.ID).Msg("Unparseable event metadata, dropping payload")
				ev.Metadata = nil
			}
		}

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}

func knownEventType(t models.EventType) bool {
	switch t {
	case models.EventGeneration, models.EventEdit, models.EventExport,
		models.EventCollaboration, models.EventFunnel, models.EventFileConversion,
		models.EventTokenBurn, models.EventSubscription:
		return true
	}
	return false
}
