// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// MetricsSnapshot is the aggregated view of the product's health that gets
// forwarded to the advisor LLM. Everything here is already anonymized and
// aggregated; no per-user data leaves the service.
type MetricsSnapshot struct {
	GeneratedAt    time.Time             `json:"generated_at"`
	TotalUsers     int                   `json:"total_users"`
	AtRiskUsers    int                   `json:"at_risk_users"`
	CriticalUsers  int                   `json:"critical_users"`
	AverageScore   float64               `json:"average_score"`
	CohortSizes    map[CohortKey]int     `json:"cohort_sizes"`
	Week1Retention map[CohortKey]float64 `json:"week1_retention"`
	Week4Retention map[CohortKey]float64 `json:"week4_retention"`
}

// Recommendation is one structured suggestion produced by the advisor.
type Recommendation struct {
	Title     string `json:"title"`
	Severity  string `json:"severity"`
	Rationale string `json:"rationale"`
	Action    string `json:"action"`
}

// AdvisorReport is the cached advisor output served to the dashboard.
type AdvisorReport struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	Model           string           `json:"model"`
	Snapshot        MetricsSnapshot  `json:"snapshot"`
	Recommendations []Recommendation `json:"recommendations"`
}
