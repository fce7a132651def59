// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mindcanvas/insights/internal/logging"
	"github.com/mindcanvas/insights/internal/models"
	"github.com/mindcanvas/insights/internal/store"
)

// paymentFactorByPlan is the fixed payment factor lookup.
var paymentFactorByPlan = map[models.PlanTier]float64{
	models.PlanFree:       0,
	models.PlanPro:        5,
	models.PlanTeam:       8,
	models.PlanEnterprise: 10,
}

// healthInputs are the raw signals the factor formulas consume. Each input
// degrades independently to zero/empty when its sub-query fails.
type healthInputs struct {
	totalWeeklyActivity int
	mindmaps30d         int
	edits30d            int
	exported30d         bool
	collaborated30d     bool
	sentiments          []float64
	errors30d           int
}

// CalculateUserHealthScore computes the composite 0-100 health score for one
// user. A missing user record is the single hard error (ErrUserNotFound);
// every other missing signal degrades to its neutral default.
func (s *Service) CalculateUserHealthScore(ctx context.Context, userID string) (*models.HealthScore, []models.Degradation, error) {
	user, err := s.store.User(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("health score for %s: %w", userID, ErrUserNotFound)
		}
		return nil, nil, err
	}

	degraded := &collector{}
	inputs := s.healthInputs(ctx, userID, degraded)

	factors := models.HealthFactors{
		Activity:     activityFactor(inputs.totalWeeklyActivity),
		Engagement:   engagementFactor(inputs.mindmaps30d, inputs.edits30d),
		FeatureUsage: featureUsageFactor(inputs.exported30d, inputs.collaborated30d, inputs.edits30d),
		Sentiment:    sentimentFactor(inputs.sentiments),
		Payment:      paymentFactorByPlan[user.Plan],
	}

	score := &models.HealthScore{
		UserID:     userID,
		Score:      int(math.Round(factors.Sum())),
		Factors:    factors,
		RiskLevel:  riskLevel(int(math.Round(factors.Sum()))),
		ComputedAt: s.now(),
	}
	score.Recommendations = recommendations(user.Plan, factors, score.Score, inputs.errors30d)

	return score, degraded.take(), nil
}

// healthInputs fans out the independent signal queries and awaits them all.
func (s *Service) healthInputs(ctx context.Context, userID string, degraded *collector) healthInputs {
	now := s.now()
	since30d := now.AddDate(0, 0, -30)

	var inputs healthInputs
	checks := []func(){
		func() {
			buckets, err := s.store.WeeklyActivity(ctx, userID)
			if err != nil {
				degraded.record("health_score", "weekly_activity_failed", err)
				return
			}
			for _, b := range buckets {
				inputs.totalWeeklyActivity += b.Total()
			}
		},
		func() {
			count, err := s.store.CountEvents(ctx, userID, []models.EventType{models.EventGeneration}, since30d, now)
			if err != nil {
				degraded.record("health_score", "mindmap_count_failed", err)
				return
			}
			inputs.mindmaps30d = count
		},
		func() {
			count, err := s.store.CountEvents(ctx, userID, []models.EventType{models.EventEdit}, since30d, now)
			if err != nil {
				degraded.record("health_score", "edit_count_failed", err)
				return
			}
			inputs.edits30d = count
		},
		func() {
			exported, err := s.store.HasEvent(ctx, userID, []models.EventType{models.EventExport}, since30d, now)
			if err != nil {
				degraded.record("health_score", "export_check_failed", err)
				return
			}
			inputs.exported30d = exported
		},
		func() {
			collaborated, err := s.store.HasEvent(ctx, userID, []models.EventType{models.EventCollaboration}, since30d, now)
			if err != nil {
				degraded.record("health_score", "collaboration_check_failed", err)
				return
			}
			inputs.collaborated30d = collaborated
		},
		func() {
			values, err := s.store.SentimentValues(ctx, userID)
			if err != nil {
				degraded.record("health_score", "sentiment_failed", err)
				return
			}
			inputs.sentiments = values
		},
		func() {
			count, err := s.store.FailedConversionCount(ctx, userID, since30d, now)
			if err != nil {
				degraded.record("health_score", "error_count_failed", err)
				return
			}
			inputs.errors30d = count
		},
	}

	// Each check writes a distinct field, so the fan-out needs no lock.
	s.forEach(len(checks), func(i int) { checks[i]() })
	return inputs
}

// activityFactor scores lifetime weekly-counter volume, capped at 25.
func activityFactor(totalWeeklyActivity int) float64 {
	return math.Min(models.MaxActivityFactor, float64(totalWeeklyActivity)/10*5)
}

// engagementFactor scores recent creation and editing, capped at 25.
func engagementFactor(mindmaps30d, edits30d int) float64 {
	raw := float64(mindmaps30d)/5*5 + float64(edits30d)/10*5
	return math.Min(models.MaxEngagementFactor, raw)
}

// featureUsageFactor scores breadth of feature adoption, capped at 25:
// 8 points each for exporting and collaborating, plus an edit component that
// is a flat 9 above five edits and edits*1.8 at or below five. The piecewise
// rule is deliberate; both branches meet at exactly 9 for five edits.
func featureUsageFactor(exported, collaborated bool, edits30d int) float64 {
	var factor float64
	if exported {
		factor += 8
	}
	if collaborated {
		factor += 8
	}
	if edits30d > 5 {
		factor += 9
	} else {
		factor += float64(edits30d) * 1.8
	}
	return factor
}

// sentimentFactor maps average mindmap sentiment from [-1, 1] onto [0, 15].
// No analyzed sentiment at all scores neutral (7.5).
func sentimentFactor(values []float64) float64 {
	if len(values) == 0 {
		return models.MaxSentimentFactor / 2
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return (avg + 1) / 2 * models.MaxSentimentFactor
}

// riskLevel buckets a score into a tier. Thresholds are evaluated low to
// high and do not overlap.
func riskLevel(score int) models.RiskLevel {
	switch {
	case score < 30:
		return models.RiskCritical
	case score < 50:
		return models.RiskHigh
	case score < 70:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// recommendations applies the conditional text rules in fixed insertion
// order; every applicable rule fires.
func recommendations(plan models.PlanTier, factors models.HealthFactors, score, errors30d int) []string {
	var recs []string
	if factors.Activity < 10 {
		recs = append(recs, "Low recent activity: reach out with a re-engagement campaign")
	}
	if factors.Engagement < 10 {
		recs = append(recs, "Low engagement: offer an onboarding session or template gallery tour")
	}
	if factors.FeatureUsage < 10 {
		recs = append(recs, "Narrow feature usage: highlight export and collaboration features")
	}
	if errors30d > 5 {
		recs = append(recs, "Repeated conversion errors: have support review their recent failures")
	}
	if plan == models.PlanFree && score > 60 {
		recs = append(recs, "Healthy free-tier user: good candidate for a pro upgrade offer")
	}
	if recs == nil {
		recs = []string{}
	}
	return recs
}

// UsersHealthScores computes health scores for a batch of users with bounded
// concurrency. One user's failure never aborts the batch: the user is logged,
// recorded as degraded, and skipped. Results are sorted ascending by score so
// the most at-risk users come first.
func (s *Service) UsersHealthScores(ctx context.Context, userIDs []string) ([]models.HealthScore, []models.Degradation, error) {
	degraded := &collector{}
	scores := make([]models.HealthScore, 0, len(userIDs))

	var mu sync.Mutex
	s.forEach(len(userIDs), func(i int) {
		userID := userIDs[i]
		score, degs, err := s.CalculateUserHealthScore(ctx, userID)
		if err != nil {
			logging.Warn().Err(err).Str("user_id", userID).Msg("Health score failed, skipping user")
			degraded.record("health_score", "user_failed", err)
			return
		}
		degraded.merge(degs)

		mu.Lock()
		scores = append(scores, *score)
		mu.Unlock()
	})

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score < scores[j].Score
		}
		return scores[i].UserID < scores[j].UserID
	})
	return scores, degraded.take(), nil
}

// AtRiskUsers returns up to limit users with scores below 50, most at-risk
// first, considering everyone with a recorded signup.
func (s *Service) AtRiskUsers(ctx context.Context, limit int) ([]models.HealthScore, []models.Degradation, error) {
	userIDs, err := s.store.UserIDs(ctx, time.Time{})
	if err != nil {
		return nil, nil, err
	}

	scores, degs, err := s.UsersHealthScores(ctx, userIDs)
	if err != nil {
		return nil, degs, err
	}

	atRisk := make([]models.HealthScore, 0, limit)
	for _, score := range scores {
		if score.Score >= 50 {
			break // sorted ascending, nothing at risk beyond this point
		}
		atRisk = append(atRisk, score)
		if limit > 0 && len(atRisk) >= limit {
			break
		}
	}
	return atRisk, degs, nil
}
