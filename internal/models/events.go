// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models defines the typed records shared between the store, the
// analytics core, and the HTTP API. Raw document-store rows are parsed into
// these types at the store boundary; nothing downstream branches on untyped
// payload shapes.
package models

import "time"

// EventType identifies the kind of analytics event. The vocabulary is fixed;
// events with unknown types are dropped at the store boundary.
type EventType string

// Analytics event vocabulary.
const (
	EventGeneration     EventType = "mindmap_generation"
	EventEdit           EventType = "mindmap_edit"
	EventExport         EventType = "mindmap_export"
	EventCollaboration  EventType = "collaboration"
	EventFunnel         EventType = "mindmap_funnel"
	EventFileConversion EventType = "file_conversion"
	EventTokenBurn      EventType = "token_burn"
	EventSubscription   EventType = "subscription"
)

// ActivityEventTypes are the event types that count as "activity" for
// retention purposes: a user touching their mindmaps in any meaningful way.
var ActivityEventTypes = []EventType{
	EventGeneration,
	EventEdit,
	EventExport,
	EventCollaboration,
}

// Funnel step values carried in mindmap_funnel payloads.
const (
	FunnelStepUpload   = "upload"
	FunnelStepGenerate = "generate"
	FunnelStepEdit     = "edit"
	FunnelStepExport   = "export"
)

// ConversionStatusFailed marks a file_conversion event that did not complete.
const ConversionStatusFailed = "failed"

// AnalyticsEvent is one immutable product event. Type-specific payload fields
// (FunnelStep, Status, TokenUnits, Plan) are populated during parsing for the
// event types that carry them and are zero-valued otherwise. Metadata holds
// the residual payload for UI display.
type AnalyticsEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	UserID      string         `json:"user_id"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	FunnelStep  string         `json:"funnel_step,omitempty"`
	Status      string         `json:"status,omitempty"`
	TokenUnits  int64          `json:"token_units,omitempty"`
	Plan        PlanTier       `json:"plan,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SubscriptionEvent is one plan change for a user or workspace, kept in its
// own collection because the billing pipeline writes it separately from
// product events.
type SubscriptionEvent struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	FromPlan    PlanTier  `json:"from_plan"`
	ToPlan      PlanTier  `json:"to_plan"`
	Timestamp   time.Time `json:"timestamp"`
}
