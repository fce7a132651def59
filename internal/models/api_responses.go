// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// APIResponse is the standardized envelope for every HTTP endpoint.
//
// Status is "success" or "error". Data carries the payload on success; Error
// is populated only on failure. Metadata is always present.
//
//	{
//	  "status": "success",
//	  "data": {...},
//	  "metadata": {"timestamp": "...", "query_time_ms": 12}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields. Degradations lists the
// sub-queries that fell back to neutral defaults while computing the payload,
// so the dashboard can badge partial data instead of failing the widget.
type Metadata struct {
	Timestamp    time.Time     `json:"timestamp"`
	QueryTimeMS  int64         `json:"query_time_ms"`
	Cached       bool          `json:"cached,omitempty"`
	Degradations []Degradation `json:"degradations,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Degradation records one sub-query that failed and was substituted with a
// neutral default. Component names the computation ("retention",
// "health_score", ...), Reason is a stable machine-readable cause.
type Degradation struct {
	Component string `json:"component"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}
