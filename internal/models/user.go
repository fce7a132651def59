// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// PlanTier is a user's subscription plan.
type PlanTier string

// Plan tiers, lowest to highest.
const (
	PlanFree       PlanTier = "free"
	PlanPro        PlanTier = "pro"
	PlanTeam       PlanTier = "team"
	PlanEnterprise PlanTier = "enterprise"
)

// User is the read-only projection of a product user. Activity counters are
// mutated by the ingestion pipeline outside this service; Insights only reads
// them.
type User struct {
	ID       string    `json:"id"`
	Email    string    `json:"email,omitempty"`
	Plan     PlanTier  `json:"plan"`
	SignupAt time.Time `json:"signup_at"`
}

// WeeklyActivity is one per-user weekly counter bucket. WeekStart is the
// Monday of the bucket's week.
type WeeklyActivity struct {
	UserID    string    `json:"user_id"`
	WeekStart time.Time `json:"week_start"`
	Logins    int       `json:"logins"`
	Views     int       `json:"views"`
	Creates   int       `json:"creates"`
	Edits     int       `json:"edits"`
	Exports   int       `json:"exports"`
}

// Total sums all counters in the bucket.
func (w WeeklyActivity) Total() int {
	return w.Logins + w.Views + w.Creates + w.Edits + w.Exports
}

// Mindmap is the artifact entity. Sentiment is the optional analyzed
// sentiment of the map's content in [-1, 1]; nil when never analyzed.
type Mindmap struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Sentiment   *float64  `json:"sentiment,omitempty"`
}
