// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/mindcanvas/insights/internal/logging"
	"github.com/mindcanvas/insights/internal/models"
)

// BuildUserJourney projects a user's raw events into a chronological timeline
// for the dashboard. The product event fetch is the primary query: if it
// fails, the whole build fails. The subscription fetch is secondary: its
// failure drops upgrade entries, records a degradation, and the timeline is
// still returned.
func (s *Service) BuildUserJourney(ctx context.Context, userID string, rng models.DateRange) ([]models.JourneyEvent, []models.Degradation, error) {
	events, err := s.store.EventsForUser(ctx, userID, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("build user journey: %w", err)
	}

	degraded := &collector{}
	timeline := s.projectEvents(events)

	subs, err := s.store.SubscriptionEventsForUser(ctx, userID, rng)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("Subscription fetch failed, journey omits upgrades")
		degraded.record("journey", "subscriptions_unavailable", err)
	} else {
		timeline = append(timeline, projectSubscriptions(subs)...)
	}

	sortTimeline(timeline)
	return timeline, degraded.take(), nil
}

// BuildTeamJourney is BuildUserJourney for a whole workspace: every member's
// events interleaved on one timeline.
func (s *Service) BuildTeamJourney(ctx context.Context, workspaceID string, rng models.DateRange) ([]models.JourneyEvent, []models.Degradation, error) {
	events, err := s.store.EventsForWorkspace(ctx, workspaceID, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("build team journey: %w", err)
	}

	degraded := &collector{}
	timeline := s.projectEvents(events)

	subs, err := s.store.SubscriptionEventsForWorkspace(ctx, workspaceID, rng)
	if err != nil {
		logging.Warn().Err(err).Str("workspace_id", workspaceID).Msg("Subscription fetch failed, journey omits upgrades")
		degraded.record("journey", "subscriptions_unavailable", err)
	} else {
		timeline = append(timeline, projectSubscriptions(subs)...)
	}

	sortTimeline(timeline)
	return timeline, degraded.take(), nil
}

// projectEvents maps raw analytics events onto journey entries. Types with no
// mapping are silently dropped; the timeline only carries entries the UI
// knows how to render.
func (s *Service) projectEvents(events []models.AnalyticsEvent) []models.JourneyEvent {
	timeline := make([]models.JourneyEvent, 0, len(events))
	for _, ev := range events {
		entry, ok := s.projectEvent(ev)
		if !ok {
			continue
		}
		timeline = append(timeline, entry)
	}
	return timeline
}

// projectEvent maps one raw event. The bool result is false for event shapes
// the timeline does not show: unknown funnel steps, successful conversions,
// token burns below the quota threshold, raw subscription rows (those come in
// through the subscription collection instead).
func (s *Service) projectEvent(ev models.AnalyticsEvent) (models.JourneyEvent, bool) {
	entry := models.JourneyEvent{
		ID:        ev.ID,
		Timestamp: ev.Timestamp,
		Metadata:  ev.Metadata,
	}

	switch ev.Type {
	case models.EventFunnel:
		switch ev.FunnelStep {
		case models.FunnelStepUpload:
			entry.Type = models.JourneyUpload
			entry.Description = "Uploaded a document"
		case models.FunnelStepGenerate:
			entry.Type = models.JourneyGenerate
			entry.Description = "Generated a mindmap"
		case models.FunnelStepEdit:
			entry.Type = models.JourneyEdit
			entry.Description = "Edited a mindmap"
		case models.FunnelStepExport:
			entry.Type = models.JourneyExport
			entry.Description = "Exported a mindmap"
		default:
			return models.JourneyEvent{}, false
		}

	case models.EventFileConversion:
		if ev.Status != models.ConversionStatusFailed {
			return models.JourneyEvent{}, false
		}
		entry.Type = models.JourneyError
		entry.Description = "File conversion failed"

	case models.EventCollaboration:
		entry.Type = models.JourneyCollaboration
		entry.Description = "Collaborated on a mindmap"

	case models.EventTokenBurn:
		if ev.TokenUnits < s.cfg.QuotaTokenThreshold {
			return models.JourneyEvent{}, false
		}
		entry.Type = models.JourneyQuotaHit
		entry.Description = fmt.Sprintf("Heavy token usage: %d units", ev.TokenUnits)

	default:
		return models.JourneyEvent{}, false
	}

	return entry, true
}

// projectSubscriptions maps plan changes onto upgrade entries.
func projectSubscriptions(subs []models.SubscriptionEvent) []models.JourneyEvent {
	timeline := make([]models.JourneyEvent, 0, len(subs))
	for _, sub := range subs {
		timeline = append(timeline, models.JourneyEvent{
			ID:          sub.ID,
			Type:        models.JourneyUpgrade,
			Timestamp:   sub.Timestamp,
			Description: fmt.Sprintf("Changed plan from %s to %s", sub.FromPlan, sub.ToPlan),
		})
	}
	return timeline
}

// sortTimeline orders entries ascending by timestamp, with the ID as a stable
// tiebreak for simultaneous events.
func sortTimeline(timeline []models.JourneyEvent) {
	sort.Slice(timeline, func(i, j int) bool {
		if !timeline[i].Timestamp.Equal(timeline[j].Timestamp) {
			return timeline[i].Timestamp.Before(timeline[j].Timestamp)
		}
		return timeline[i].ID < timeline[j].ID
	})
}
