// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// CohortKey names a week-1 behavioral cohort. Users are classified into zero
// or more cohorts based on their first seven days of activity.
type CohortKey string

// Behavioral cohorts. The rules are evaluated independently; a user may land
// in several (ONE_AND_DONE and EDITORS_3PLUS_WEEK1 are mutually exclusive by
// construction, the rest can overlap freely).
const (
	CohortExportersWeek1     CohortKey = "EXPORTERS_WEEK1"
	CohortEditors3PlusWeek1  CohortKey = "EDITORS_3PLUS_WEEK1"
	CohortOneAndDone         CohortKey = "ONE_AND_DONE"
	CohortCollaboratorsWeek1 CohortKey = "COLLABORATORS_WEEK1"
)

// AllCohortKeys lists every cohort in a stable order.
var AllCohortKeys = []CohortKey{
	CohortExportersWeek1,
	CohortEditors3PlusWeek1,
	CohortOneAndDone,
	CohortCollaboratorsWeek1,
}

// ValidCohortKey reports whether key names a known cohort.
func ValidCohortKey(key CohortKey) bool {
	for _, k := range AllCohortKeys {
		if k == key {
			return true
		}
	}
	return false
}

// RetentionWeek is one point on a retention curve. RetentionRate is
// ActiveUsers divided by the cohort size, rounded to four decimal places,
// always in [0, 1].
type RetentionWeek struct {
	WeekNumber    int     `json:"week_number"`
	ActiveUsers   int     `json:"active_users"`
	RetentionRate float64 `json:"retention_rate"`
}

// RetentionCurve is the week-over-week retention of one cohort. Size is fixed
// when the curve is computed: members whose signup date cannot be resolved do
// not count. Weeks is ordered by ascending WeekNumber with one entry per week
// from 1 to the requested maximum, no gaps.
type RetentionCurve struct {
	CohortKey CohortKey       `json:"cohort_key"`
	Size      int             `json:"size"`
	Weeks     []RetentionWeek `json:"weeks"`
}

// RiskLevel buckets a health score into an at-risk tier.
type RiskLevel string

// Risk tiers, most severe first.
const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// Factor caps. Each factor contributes at most its cap to the total score,
// so the sum is bounded by 100.
const (
	MaxActivityFactor     = 25.0
	MaxEngagementFactor   = 25.0
	MaxFeatureUsageFactor = 25.0
	MaxSentimentFactor    = 15.0
	MaxPaymentFactor      = 10.0
)

// HealthFactors are the weighted components of a health score.
type HealthFactors struct {
	Activity     float64 `json:"activity"`
	Engagement   float64 `json:"engagement"`
	FeatureUsage float64 `json:"feature_usage"`
	Sentiment    float64 `json:"sentiment"`
	Payment      float64 `json:"payment"`
}

// Sum returns the raw factor total before rounding.
func (f HealthFactors) Sum() float64 {
	return f.Activity + f.Engagement + f.FeatureUsage + f.Sentiment + f.Payment
}

// HealthScore is the composite 0-100 churn-risk estimate for one user.
// Score is always round(Factors.Sum()).
type HealthScore struct {
	UserID          string        `json:"user_id"`
	Score           int           `json:"score"`
	Factors         HealthFactors `json:"factors"`
	RiskLevel       RiskLevel     `json:"risk_level"`
	Recommendations []string      `json:"recommendations"`
	ComputedAt      time.Time     `json:"computed_at"`
}

// JourneyEventType classifies a timeline entry for the UI.
type JourneyEventType string

// Journey event types.
const (
	JourneyUpload        JourneyEventType = "upload"
	JourneyGenerate      JourneyEventType = "generate"
	JourneyEdit          JourneyEventType = "edit"
	JourneyExport        JourneyEventType = "export"
	JourneyError         JourneyEventType = "error"
	JourneyCollaboration JourneyEventType = "collaboration"
	JourneyQuotaHit      JourneyEventType = "quotaHit"
	JourneyUpgrade       JourneyEventType = "upgrade"
)

// JourneyEvent is one UI-facing timeline entry, projected from a raw
// analytics event or a subscription change.
type JourneyEvent struct {
	ID          string           `json:"id"`
	Type        JourneyEventType `json:"type"`
	Timestamp   time.Time        `json:"timestamp"`
	Description string           `json:"description"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// DateRange bounds a journey or aggregation query, inclusive on both ends.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the range is empty or inverted.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start)
}
