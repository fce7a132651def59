// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"testing"
	"time"

	"github.com/mindcanvas/insights/internal/models"
)

func TestBuildWhere(t *testing.T) {
	tests := []struct {
		name     string
		coll     string
		filters  []Filter
		expected string
		wantArgs int
		wantErr  bool
	}{
		{
			name:     "no filters",
			coll:     CollectionEvents,
			filters:  nil,
			expected: "1=1",
			wantArgs: 0,
		},
		{
			name: "equality and range",
			coll: CollectionEvents,
			filters: []Filter{
				{Field: "user_id", Op: OpEq, Value: "u1"},
				{Field: "ts", Op: OpGte, Value: time.Now()},
				{Field: "ts", Op: OpLte, Value: time.Now()},
			},
			expected: "1=1 AND user_id = ? AND ts >= ? AND ts <= ?",
			wantArgs: 3,
		},
		{
			name:    "unknown collection",
			coll:    "secrets",
			wantErr: true,
		},
		{
			name:    "unknown field rejected",
			coll:    CollectionEvents,
			filters: []Filter{{Field: "password", Op: OpEq, Value: "x"}},
			wantErr: true,
		},
		{
			name:    "unsupported operator rejected",
			coll:    CollectionEvents,
			filters: []Filter{{Field: "user_id", Op: "LIKE", Value: "%"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := buildWhere(tt.coll, tt.filters)
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildWhere() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if where != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, where)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("expected %d args, got %d", tt.wantArgs, len(args))
			}
		})
	}
}

func TestFilterEvents(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id string, t models.EventType, offset time.Duration) models.AnalyticsEvent {
		return models.AnalyticsEvent{ID: id, Type: t, Timestamp: base.Add(offset)}
	}

	events := []models.AnalyticsEvent{
		mk("e3", models.EventEdit, 48*time.Hour),
		mk("e1", models.EventGeneration, 0),
		mk("e2", models.EventExport, 24*time.Hour),
		mk("e4", models.EventTokenBurn, 72*time.Hour),
	}

	t.Run("half-open window excludes end", func(t *testing.T) {
		got := filterEvents(events, nil, base, base.Add(48*time.Hour), false)
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].ID != "e1" || got[1].ID != "e2" {
			t.Errorf("expected sorted [e1 e2], got [%s %s]", got[0].ID, got[1].ID)
		}
	})

	t.Run("inclusive window includes end", func(t *testing.T) {
		got := filterEvents(events, nil, base, base.Add(48*time.Hour), true)
		if len(got) != 3 {
			t.Fatalf("expected 3 events, got %d", len(got))
		}
	})

	t.Run("type filter applies", func(t *testing.T) {
		got := filterEvents(events, []models.EventType{models.EventEdit, models.EventExport}, base, base.Add(96*time.Hour), true)
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		for _, ev := range got {
			if ev.Type != models.EventEdit && ev.Type != models.EventExport {
				t.Errorf("unexpected type %s", ev.Type)
			}
		}
	})

	t.Run("output sorted ascending", func(t *testing.T) {
		got := filterEvents(events, nil, base, base.Add(96*time.Hour), true)
		for i := 1; i < len(got); i++ {
			if got[i].Timestamp.Before(got[i-1].Timestamp) {
				t.Errorf("events not sorted at index %d", i)
			}
		}
	})
}

func TestTypeFilter(t *testing.T) {
	clause, args := typeFilter(nil)
	if clause != "" || len(args) != 0 {
		t.Errorf("empty types should produce no clause, got %q", clause)
	}

	clause, args = typeFilter([]models.EventType{models.EventEdit, models.EventExport})
	if clause != " AND event_type IN (?, ?)" {
		t.Errorf("unexpected clause %q", clause)
	}
	if len(args) != 2 || args[0] != "mindmap_edit" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestKnownEventType(t *testing.T) {
	for _, typ := range []models.EventType{
		models.EventGeneration, models.EventEdit, models.EventExport,
		models.EventCollaboration, models.EventFunnel, models.EventFileConversion,
		models.EventTokenBurn, models.EventSubscription,
	} {
		if !knownEventType(typ) {
			t.Errorf("%s should be known", typ)
		}
	}
	if knownEventType("page_view") {
		t.Error("unknown type should be rejected")
	}
}
