// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/mindcanvas/insights/internal/models"
)

func TestCalculateCohortRetentionEmptyCohort(t *testing.T) {
	svc := newTestService(newFakeStore())

	curve, degraded, err := svc.CalculateCohortRetention(context.Background(), models.CohortExportersWeek1, nil, 4)
	if err != nil {
		t.Fatalf("empty cohort should not error: %v", err)
	}
	if curve.Size != 0 {
		t.Errorf("size = %d, want 0", curve.Size)
	}
	if len(curve.Weeks) != 0 {
		t.Errorf("weeks = %v, want empty", curve.Weeks)
	}
	if len(degraded) != 0 {
		t.Errorf("unexpected degradations: %+v", degraded)
	}
}

func TestCalculateCohortRetentionCurveShape(t *testing.T) {
	// Two members with different signup dates. alice is active in her weeks 1
	// and 2, bob only in his week 1. Windows are anchored per member.
	aliceSignup := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bobSignup := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

	fs := newFakeStore()
	fs.addUser("alice", models.PlanFree, aliceSignup)
	fs.addUser("bob", models.PlanFree, bobSignup)
	fs.addEvent(models.AnalyticsEvent{Type: models.EventEdit, UserID: "alice", Timestamp: aliceSignup.AddDate(0, 0, 8)})
	fs.addEvent(models.AnalyticsEvent{Type: models.EventExport, UserID: "alice", Timestamp: aliceSignup.AddDate(0, 0, 15)})
	fs.addEvent(models.AnalyticsEvent{Type: models.EventGeneration, UserID: "bob", Timestamp: bobSignup.AddDate(0, 0, 9)})

	svc := newTestService(fs)
	curve, degraded, err := svc.CalculateCohortRetention(context.Background(), models.CohortExportersWeek1, []string{"alice", "bob"}, 3)
	if err != nil {
		t.Fatalf("CalculateCohortRetention: %v", err)
	}
	if len(degraded) != 0 {
		t.Errorf("unexpected degradations: %+v", degraded)
	}
	if curve.Size != 2 {
		t.Fatalf("size = %d, want 2", curve.Size)
	}
	if len(curve.Weeks) != 3 {
		t.Fatalf("got %d weeks, want 3", len(curve.Weeks))
	}

	for i, wk := range curve.Weeks {
		if wk.WeekNumber != i+1 {
			t.Errorf("week %d has number %d, gaps are not allowed", i, wk.WeekNumber)
		}
		if wk.RetentionRate < 0 || wk.RetentionRate > 1 {
			t.Errorf("week %d rate %f out of [0,1]", wk.WeekNumber, wk.RetentionRate)
		}
	}

	if curve.Weeks[0].ActiveUsers != 2 || curve.Weeks[0].RetentionRate != 1.0 {
		t.Errorf("week 1 = %+v, want 2 active at rate 1", curve.Weeks[0])
	}
	if curve.Weeks[1].ActiveUsers != 1 || curve.Weeks[1].RetentionRate != 0.5 {
		t.Errorf("week 2 = %+v, want 1 active at rate 0.5", curve.Weeks[1])
	}
	if curve.Weeks[2].ActiveUsers != 0 || curve.Weeks[2].RetentionRate != 0 {
		t.Errorf("week 3 = %+v, want 0 active", curve.Weeks[2])
	}
}

func TestCalculateCohortRetentionUnresolvedSignupDropped(t *testing.T) {
	signup := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	fs := newFakeStore()
	fs.addUser("alice", models.PlanFree, signup)
	fs.addEvent(models.AnalyticsEvent{Type: models.EventEdit, UserID: "alice", Timestamp: signup.AddDate(0, 0, 8)})

	svc := newTestService(fs)
	curve, degraded, err := svc.CalculateCohortRetention(context.Background(), models.CohortEditors3PlusWeek1, []string{"alice", "ghost"}, 1)
	if err != nil {
		t.Fatalf("CalculateCohortRetention: %v", err)
	}
	if curve.Size != 1 {
		t.Errorf("size = %d, want 1 (ghost dropped)", curve.Size)
	}
	if curve.Weeks[0].RetentionRate != 1.0 {
		t.Errorf("rate = %f, want 1 of the resolvable member", curve.Weeks[0].RetentionRate)
	}
	if len(degraded) != 1 || degraded[0].Reason != "signup_unresolved" {
		t.Errorf("degradations = %+v, want one signup_unresolved", degraded)
	}
}

func TestCalculateCohortRetentionWeekCheckFailureCountsInactive(t *testing.T) {
	signup := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	fs := newFakeStore()
	fs.addUser("alice", models.PlanFree, signup)
	fs.addEvent(models.AnalyticsEvent{Type: models.EventEdit, UserID: "alice", Timestamp: signup.AddDate(0, 0, 8)})
	fs.failOp("HasEvent")

	svc := newTestService(fs)
	curve, degraded, err := svc.CalculateCohortRetention(context.Background(), models.CohortEditors3PlusWeek1, []string{"alice"}, 2)
	if err != nil {
		t.Fatalf("per-week failure should degrade, not error: %v", err)
	}
	if curve.Size != 1 {
		t.Errorf("size = %d, want 1", curve.Size)
	}
	for _, wk := range curve.Weeks {
		if wk.ActiveUsers != 0 {
			t.Errorf("week %d counted %d active despite failing checks", wk.WeekNumber, wk.ActiveUsers)
		}
	}
	if len(degraded) != 2 {
		t.Errorf("got %d degradations, want one per failed week check: %+v", len(degraded), degraded)
	}
}

func TestCalculateCohortRetentionRateRounding(t *testing.T) {
	// One active member out of three: 1/3 rounds to 0.3333.
	signup := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	fs := newFakeStore()
	for _, id := range []string{"a", "b", "c"} {
		fs.addUser(id, models.PlanFree, signup)
	}
	fs.addEvent(models.AnalyticsEvent{Type: models.EventGeneration, UserID: "a", Timestamp: signup.AddDate(0, 0, 10)})

	svc := newTestService(fs)
	curve, _, err := svc.CalculateCohortRetention(context.Background(), models.CohortOneAndDone, []string{"a", "b", "c"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := curve.Weeks[0].RetentionRate; got != 0.3333 {
		t.Errorf("rate = %v, want 0.3333", got)
	}
}

func TestRound4(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1, 1},
		{1.0 / 3.0, 0.3333},
		{2.0 / 3.0, 0.6667},
		{0.00004, 0},
		{0.00005, 0.0001},
	}
	for _, tt := range tests {
		if got := round4(tt.in); got != tt.want {
			t.Errorf("round4(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
