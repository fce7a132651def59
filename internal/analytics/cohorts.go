// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mindcanvas/insights/internal/logging"
	"github.com/mindcanvas/insights/internal/models"
	"github.com/mindcanvas/insights/internal/store"
)

// week1Signals are the four behavior checks evaluated over a user's first
// seven days. Each check degrades independently: a failed sub-query defaults
// its signal to zero/false without aborting classification.
type week1Signals struct {
	exported     bool
	editCount    int
	mindmapCount int
	collaborated bool
}

// AssignUserToCohorts classifies one user into zero or more week-1 behavioral
// cohorts. A user with no resolvable signup timestamp cannot be classified
// and gets an empty list, not an error. The classification rules are
// independent; keys are returned in the stable models.AllCohortKeys order.
func (s *Service) AssignUserToCohorts(ctx context.Context, userID string) ([]models.CohortKey, []models.Degradation, error) {
	signup, err := s.store.SignupDate(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []models.CohortKey{}, nil, nil
		}
		return nil, nil, err
	}

	degraded := &collector{}
	signals := s.week1Signals(ctx, userID, signup, degraded)

	var keys []models.CohortKey
	if signals.exported {
		keys = append(keys, models.CohortExportersWeek1)
	}
	if signals.editCount >= 3 {
		keys = append(keys, models.CohortEditors3PlusWeek1)
	}
	if signals.mindmapCount == 1 && signals.editCount == 0 && !signals.exported {
		keys = append(keys, models.CohortOneAndDone)
	}
	if signals.collaborated {
		keys = append(keys, models.CohortCollaboratorsWeek1)
	}
	if keys == nil {
		keys = []models.CohortKey{}
	}
	return keys, degraded.take(), nil
}

// week1Signals fans out the four independent behavior checks over the
// [signup, signup+7d) window and awaits them all.
func (s *Service) week1Signals(ctx context.Context, userID string, signup time.Time, degraded *collector) week1Signals {
	start, end := signup, signup.Add(week)

	var signals week1Signals
	checks := []func(){
		func() {
			exported, err := s.store.HasEvent(ctx, userID, []models.EventType{models.EventExport}, start, end)
			if err != nil {
				degraded.record("cohorts", "export_check_failed", err)
				return
			}
			signals.exported = exported
		},
		func() {
			count, err := s.store.CountEvents(ctx, userID, []models.EventType{models.EventEdit}, start, end)
			if err != nil {
				degraded.record("cohorts", "edit_count_failed", err)
				return
			}
			signals.editCount = count
		},
		func() {
			count, err := s.store.CountEvents(ctx, userID, []models.EventType{models.EventGeneration}, start, end)
			if err != nil {
				degraded.record("cohorts", "mindmap_count_failed", err)
				return
			}
			signals.mindmapCount = count
		},
		func() {
			collaborated, err := s.store.HasEvent(ctx, userID, []models.EventType{models.EventCollaboration}, start, end)
			if err != nil {
				degraded.record("cohorts", "collaboration_check_failed", err)
				return
			}
			signals.collaborated = collaborated
		},
	}

	// The four writes touch distinct fields, so the fan-out needs no lock.
	s.forEach(len(checks), func(i int) { checks[i]() })
	return signals
}

// CohortMembers classifies every user who signed up at or after since and
// groups them by cohort. Users whose classification fails entirely are
// skipped with a degradation record.
func (s *Service) CohortMembers(ctx context.Context, since time.Time) (map[models.CohortKey][]string, []models.Degradation, error) {
	userIDs, err := s.store.UserIDs(ctx, since)
	if err != nil {
		return nil, nil, err
	}

	degraded := &collector{}
	members := make(map[models.CohortKey][]string, len(models.AllCohortKeys))
	for _, key := range models.AllCohortKeys {
		members[key] = []string{}
	}

	var mu sync.Mutex
	s.forEach(len(userIDs), func(i int) {
		userID := userIDs[i]
		keys, degs, err := s.AssignUserToCohorts(ctx, userID)
		if err != nil {
			logging.Warn().Err(err).Str("user_id", userID).Msg("Cohort classification failed, skipping user")
			degraded.record("cohorts", "classification_failed", err)
			return
		}
		degraded.merge(degs)

		mu.Lock()
		for _, key := range keys {
			members[key] = append(members[key], userID)
		}
		mu.Unlock()
	})

	// Stable member order regardless of fan-out completion order.
	for _, key := range models.AllCohortKeys {
		sort.Strings(members[key])
	}
	return members, degraded.take(), nil
}
