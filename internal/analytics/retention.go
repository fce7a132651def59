// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mindcanvas/insights/internal/models"
)

// CalculateCohortRetention computes the week-over-week retention curve for
// one cohort. Week windows are anchored to each member's own signup date, not
// calendar weeks: member m's week N is [signup(m)+7N days, signup(m)+7(N+1)
// days). Members whose signup date cannot be resolved are dropped before the
// cohort size is fixed, so rates stay in [0, 1].
//
// An empty member list returns {cohortKey, size: 0, weeks: []} — never a
// division by zero, never an error.
func (s *Service) CalculateCohortRetention(ctx context.Context, cohortKey models.CohortKey, memberIDs []string, maxWeeks int) (models.RetentionCurve, []models.Degradation, error) {
	curve := models.RetentionCurve{
		CohortKey: cohortKey,
		Weeks:     []models.RetentionWeek{},
	}
	if len(memberIDs) == 0 || maxWeeks < 1 {
		return curve, nil, nil
	}

	degraded := &collector{}

	// Resolve signup dates first: week windows depend on them, so this is
	// the one serialization point before the per-week fan-out.
	type member struct {
		id     string
		signup time.Time
	}
	resolved := make([]member, 0, len(memberIDs))
	var mu sync.Mutex
	s.forEach(len(memberIDs), func(i int) {
		signup, err := s.store.SignupDate(ctx, memberIDs[i])
		if err != nil {
			degraded.record("retention", "signup_unresolved", err)
			return
		}
		mu.Lock()
		resolved = append(resolved, member{id: memberIDs[i], signup: signup})
		mu.Unlock()
	})

	curve.Size = len(resolved)
	if curve.Size == 0 {
		return curve, degraded.take(), nil
	}

	// Per-member, per-week activity checks are all independent once signup
	// dates are known; fan them out in one flat batch.
	activeByWeek := make([]int64, maxWeeks+1)
	s.forEach(curve.Size*maxWeeks, func(i int) {
		m := resolved[i/maxWeeks]
		weekNumber := i%maxWeeks + 1

		start := m.signup.Add(time.Duration(weekNumber) * week)
		end := start.Add(week)

		active, err := s.store.HasEvent(ctx, m.id, models.ActivityEventTypes, start, end)
		if err != nil {
			// Member counts as inactive for this week only.
			degraded.record("retention", "activity_check_failed", err)
			return
		}
		if active {
			atomic.AddInt64(&activeByWeek[weekNumber], 1)
		}
	})

	curve.Weeks = make([]models.RetentionWeek, 0, maxWeeks)
	for weekNumber := 1; weekNumber <= maxWeeks; weekNumber++ {
		active := int(activeByWeek[weekNumber])
		curve.Weeks = append(curve.Weeks, models.RetentionWeek{
			WeekNumber:    weekNumber,
			ActiveUsers:   active,
			RetentionRate: round4(float64(active) / float64(curve.Size)),
		})
	}
	return curve, degraded.take(), nil
}

// round4 rounds to four decimal places.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
