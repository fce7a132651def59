// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mindcanvas/insights/internal/models"
)

// seedRecent records count events of one type within the 30-day health
// window ending at testClock.
func seedRecent(fs *fakeStore, userID string, eventType models.EventType, count int) {
	for i := 0; i < count; i++ {
		fs.addEvent(models.AnalyticsEvent{
			Type:      eventType,
			UserID:    userID,
			Timestamp: testClock.AddDate(0, 0, -10).Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestCalculateUserHealthScore(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("u1", models.PlanPro, testClock.AddDate(0, -6, 0))
	// Weekly counters totaling 20 -> activity factor 10.
	fs.weekly["u1"] = []models.WeeklyActivity{
		{UserID: "u1", Logins: 5, Edits: 7},
		{UserID: "u1", Logins: 3, Creates: 2, Exports: 3},
	}
	// 6 generations and 20 edits in 30 days -> engagement 6 + 10 = 16.
	seedRecent(fs, "u1", models.EventGeneration, 6)
	seedRecent(fs, "u1", models.EventEdit, 20)
	// Export + collaboration + >5 edits -> feature usage 8 + 8 + 9 = 25.
	seedRecent(fs, "u1", models.EventExport, 1)
	seedRecent(fs, "u1", models.EventCollaboration, 1)
	// No sentiment -> neutral 7.5. Pro plan -> payment 5.
	// Total 63.5 rounds to 64, medium risk.

	svc := newTestService(fs)
	score, degraded, err := svc.CalculateUserHealthScore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CalculateUserHealthScore: %v", err)
	}
	if len(degraded) != 0 {
		t.Errorf("unexpected degradations: %+v", degraded)
	}

	want := models.HealthFactors{Activity: 10, Engagement: 16, FeatureUsage: 25, Sentiment: 7.5, Payment: 5}
	if score.Factors != want {
		t.Errorf("factors = %+v, want %+v", score.Factors, want)
	}
	if score.Score != 64 {
		t.Errorf("score = %d, want 64", score.Score)
	}
	if score.RiskLevel != models.RiskMedium {
		t.Errorf("risk = %s, want medium", score.RiskLevel)
	}
	if len(score.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %v", score.Recommendations)
	}
	if !score.ComputedAt.Equal(testClock) {
		t.Errorf("computed_at = %s, want test clock", score.ComputedAt)
	}
}

func TestCalculateUserHealthScoreUserNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, _, err := svc.CalculateUserHealthScore(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestCalculateUserHealthScoreDegradesToDefaults(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("u1", models.PlanEnterprise, testClock.AddDate(0, -6, 0))
	fs.failOp("WeeklyActivity")
	fs.failOp("CountEvents")
	fs.failOp("HasEvent")
	fs.failOp("SentimentValues")
	fs.failOp("FailedConversionCount")

	svc := newTestService(fs)
	score, degraded, err := svc.CalculateUserHealthScore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("signal failures should degrade, not error: %v", err)
	}
	// Everything defaults to zero except neutral sentiment and the plan.
	want := models.HealthFactors{Sentiment: 7.5, Payment: 10}
	if score.Factors != want {
		t.Errorf("factors = %+v, want %+v", score.Factors, want)
	}
	if score.Score != 18 {
		t.Errorf("score = %d, want 18", score.Score)
	}
	if score.RiskLevel != models.RiskCritical {
		t.Errorf("risk = %s, want critical", score.RiskLevel)
	}
	if len(degraded) != 7 {
		t.Errorf("got %d degradations, want one per failed signal: %+v", len(degraded), degraded)
	}
}

func TestFactorFormulas(t *testing.T) {
	t.Run("activity caps at 25", func(t *testing.T) {
		tests := []struct {
			total int
			want  float64
		}{
			{0, 0},
			{10, 5},
			{20, 10},
			{50, 25},
			{500, 25},
		}
		for _, tt := range tests {
			if got := activityFactor(tt.total); got != tt.want {
				t.Errorf("activityFactor(%d) = %v, want %v", tt.total, got, tt.want)
			}
		}
	})

	t.Run("engagement caps at 25", func(t *testing.T) {
		tests := []struct {
			maps, edits int
			want        float64
		}{
			{0, 0, 0},
			{5, 0, 5},
			{0, 10, 5},
			{6, 20, 16},
			{100, 100, 25},
		}
		for _, tt := range tests {
			if got := engagementFactor(tt.maps, tt.edits); got != tt.want {
				t.Errorf("engagementFactor(%d, %d) = %v, want %v", tt.maps, tt.edits, got, tt.want)
			}
		}
	})

	t.Run("feature usage edit component is piecewise", func(t *testing.T) {
		tests := []struct {
			exported, collaborated bool
			edits                  int
			want                   float64
		}{
			{false, false, 0, 0},
			{false, false, 5, 9},  // 5 * 1.8
			{false, false, 6, 9},  // flat branch
			{false, false, 50, 9}, // still flat
			{true, false, 2, 11.6},
			{true, true, 20, 25},
		}
		for _, tt := range tests {
			if got := featureUsageFactor(tt.exported, tt.collaborated, tt.edits); got != tt.want {
				t.Errorf("featureUsageFactor(%v, %v, %d) = %v, want %v",
					tt.exported, tt.collaborated, tt.edits, got, tt.want)
			}
		}
	})

	t.Run("sentiment maps [-1,1] to [0,15]", func(t *testing.T) {
		tests := []struct {
			values []float64
			want   float64
		}{
			{nil, 7.5},
			{[]float64{-1}, 0},
			{[]float64{1}, 15},
			{[]float64{0}, 7.5},
			{[]float64{-1, 1}, 7.5},
			{[]float64{0.5, 0.5}, 11.25},
		}
		for _, tt := range tests {
			if got := sentimentFactor(tt.values); got != tt.want {
				t.Errorf("sentimentFactor(%v) = %v, want %v", tt.values, got, tt.want)
			}
		}
	})
}

func TestRiskLevels(t *testing.T) {
	tests := []struct {
		score int
		want  models.RiskLevel
	}{
		{0, models.RiskCritical},
		{29, models.RiskCritical},
		{30, models.RiskHigh},
		{49, models.RiskHigh},
		{50, models.RiskMedium},
		{69, models.RiskMedium},
		{70, models.RiskLow},
		{100, models.RiskLow},
	}
	for _, tt := range tests {
		if got := riskLevel(tt.score); got != tt.want {
			t.Errorf("riskLevel(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name      string
		plan      models.PlanTier
		factors   models.HealthFactors
		score     int
		errors30d int
		wantCount int
	}{
		{
			name:      "healthy paying user gets nothing",
			plan:      models.PlanPro,
			factors:   models.HealthFactors{Activity: 20, Engagement: 20, FeatureUsage: 20},
			score:     75,
			wantCount: 0,
		},
		{
			name:      "all low factors fire all factor rules",
			plan:      models.PlanTeam,
			factors:   models.HealthFactors{Activity: 5, Engagement: 5, FeatureUsage: 5},
			score:     25,
			wantCount: 3,
		},
		{
			name:      "repeated errors fire support rule",
			plan:      models.PlanPro,
			factors:   models.HealthFactors{Activity: 20, Engagement: 20, FeatureUsage: 20},
			score:     75,
			errors30d: 6,
			wantCount: 1,
		},
		{
			name:      "five errors is not enough",
			plan:      models.PlanPro,
			factors:   models.HealthFactors{Activity: 20, Engagement: 20, FeatureUsage: 20},
			score:     75,
			errors30d: 5,
			wantCount: 0,
		},
		{
			name:      "healthy free user gets upgrade prompt",
			plan:      models.PlanFree,
			factors:   models.HealthFactors{Activity: 20, Engagement: 20, FeatureUsage: 20},
			score:     61,
			wantCount: 1,
		},
		{
			name:      "free user at 60 does not",
			plan:      models.PlanFree,
			factors:   models.HealthFactors{Activity: 20, Engagement: 20, FeatureUsage: 20},
			score:     60,
			wantCount: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recommendations(tt.plan, tt.factors, tt.score, tt.errors30d)
			if len(got) != tt.wantCount {
				t.Errorf("got %d recommendations, want %d: %v", len(got), tt.wantCount, got)
			}
		})
	}
}

func TestUsersHealthScoresBatch(t *testing.T) {
	fs := newFakeStore()
	signup := testClock.AddDate(0, -6, 0)
	// healthy: high activity; quiet: none; ghost: no record at all.
	fs.addUser("healthy", models.PlanEnterprise, signup)
	fs.addUser("quiet", models.PlanFree, signup)
	fs.weekly["healthy"] = []models.WeeklyActivity{{UserID: "healthy", Logins: 100}}
	seedRecent(fs, "healthy", models.EventGeneration, 30)
	seedRecent(fs, "healthy", models.EventEdit, 30)
	seedRecent(fs, "healthy", models.EventExport, 2)
	seedRecent(fs, "healthy", models.EventCollaboration, 2)

	svc := newTestService(fs)
	scores, degraded, err := svc.UsersHealthScores(context.Background(), []string{"healthy", "ghost", "quiet"})
	if err != nil {
		t.Fatalf("UsersHealthScores: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("got %d scores, want 2 (ghost skipped)", len(scores))
	}
	if scores[0].UserID != "quiet" || scores[1].UserID != "healthy" {
		t.Errorf("order = [%s, %s], want ascending by score", scores[0].UserID, scores[1].UserID)
	}
	if len(degraded) != 1 || degraded[0].Reason != "user_failed" {
		t.Errorf("degradations = %+v, want one user_failed", degraded)
	}
}

func TestAtRiskUsers(t *testing.T) {
	fs := newFakeStore()
	signup := testClock.AddDate(0, -6, 0)
	fs.addUser("healthy", models.PlanEnterprise, signup)
	fs.addUser("quiet1", models.PlanFree, signup)
	fs.addUser("quiet2", models.PlanFree, signup)
	fs.weekly["healthy"] = []models.WeeklyActivity{{UserID: "healthy", Logins: 100}}
	seedRecent(fs, "healthy", models.EventGeneration, 30)
	seedRecent(fs, "healthy", models.EventEdit, 30)
	seedRecent(fs, "healthy", models.EventExport, 2)
	seedRecent(fs, "healthy", models.EventCollaboration, 2)

	svc := newTestService(fs)

	t.Run("only sub-50 scores qualify", func(t *testing.T) {
		atRisk, _, err := svc.AtRiskUsers(context.Background(), 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(atRisk) != 2 {
			t.Fatalf("got %d at-risk users, want 2", len(atRisk))
		}
		for _, score := range atRisk {
			if score.Score >= 50 {
				t.Errorf("user %s with score %d is not at risk", score.UserID, score.Score)
			}
		}
	})

	t.Run("limit truncates", func(t *testing.T) {
		atRisk, _, err := svc.AtRiskUsers(context.Background(), 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(atRisk) != 1 {
			t.Fatalf("got %d at-risk users, want 1", len(atRisk))
		}
	})
}
