// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mindcanvas/insights/internal/config"
	"github.com/mindcanvas/insights/internal/models"
	"github.com/mindcanvas/insights/internal/store"
)

// fakeStore is an in-memory Store for tests. It mirrors the real store's
// window conventions: counts and existence checks are half-open [start, end),
// event and subscription fetches are inclusive on both ends. Individual
// operations can be forced to fail via the fail map.
type fakeStore struct {
	mu            sync.Mutex
	users         map[string]*models.User
	events        []models.AnalyticsEvent
	weekly        map[string][]models.WeeklyActivity
	sentiments    map[string][]float64
	subscriptions []models.SubscriptionEvent

	// fail maps an operation name to the error it should return.
	fail map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]*models.User),
		weekly:     make(map[string][]models.WeeklyActivity),
		sentiments: make(map[string][]float64),
		fail:       make(map[string]error),
	}
}

func (f *fakeStore) addUser(id string, plan models.PlanTier, signup time.Time) {
	f.users[id] = &models.User{ID: id, Plan: plan, SignupAt: signup}
}

func (f *fakeStore) addEvent(ev models.AnalyticsEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("evt-%d", len(f.events)+1)
	}
	f.events = append(f.events, ev)
}

func (f *fakeStore) failOp(op string) {
	f.fail[op] = fmt.Errorf("injected %s failure", op)
}

func (f *fakeStore) failure(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op]
}

func (f *fakeStore) User(_ context.Context, userID string) (*models.User, error) {
	if err := f.failure("User"); err != nil {
		return nil, err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	return u, nil
}

func (f *fakeStore) SignupDate(_ context.Context, userID string) (time.Time, error) {
	if err := f.failure("SignupDate"); err != nil {
		return time.Time{}, err
	}
	u, ok := f.users[userID]
	if !ok || u.SignupAt.IsZero() {
		return time.Time{}, fmt.Errorf("signup date for %s: %w", userID, store.ErrNotFound)
	}
	return u.SignupAt, nil
}

func (f *fakeStore) CountEvents(_ context.Context, userID string, types []models.EventType, start, end time.Time) (int, error) {
	if err := f.failure("CountEvents"); err != nil {
		return 0, err
	}
	return len(f.matchEvents(userID, types, start, end)), nil
}

func (f *fakeStore) HasEvent(_ context.Context, userID string, types []models.EventType, start, end time.Time) (bool, error) {
	if err := f.failure("HasEvent"); err != nil {
		return false, err
	}
	return len(f.matchEvents(userID, types, start, end)) > 0, nil
}

func (f *fakeStore) FailedConversionCount(_ context.Context, userID string, start, end time.Time) (int, error) {
	if err := f.failure("FailedConversionCount"); err != nil {
		return 0, err
	}
	n := 0
	for _, ev := range f.matchEvents(userID, []models.EventType{models.EventFileConversion}, start, end) {
		if ev.Status == models.ConversionStatusFailed {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) WeeklyActivity(_ context.Context, userID string) ([]models.WeeklyActivity, error) {
	if err := f.failure("WeeklyActivity"); err != nil {
		return nil, err
	}
	return f.weekly[userID], nil
}

func (f *fakeStore) SentimentValues(_ context.Context, userID string) ([]float64, error) {
	if err := f.failure("SentimentValues"); err != nil {
		return nil, err
	}
	return f.sentiments[userID], nil
}

func (f *fakeStore) EventsForUser(_ context.Context, userID string, rng models.DateRange) ([]models.AnalyticsEvent, error) {
	if err := f.failure("EventsForUser"); err != nil {
		return nil, err
	}
	return f.rangeEvents(func(ev models.AnalyticsEvent) bool { return ev.UserID == userID }, rng), nil
}

func (f *fakeStore) EventsForWorkspace(_ context.Context, workspaceID string, rng models.DateRange) ([]models.AnalyticsEvent, error) {
	if err := f.failure("EventsForWorkspace"); err != nil {
		return nil, err
	}
	return f.rangeEvents(func(ev models.AnalyticsEvent) bool { return ev.WorkspaceID == workspaceID }, rng), nil
}

func (f *fakeStore) SubscriptionEventsForUser(_ context.Context, userID string, rng models.DateRange) ([]models.SubscriptionEvent, error) {
	if err := f.failure("SubscriptionEventsForUser"); err != nil {
		return nil, err
	}
	return f.rangeSubs(func(sub models.SubscriptionEvent) bool { return sub.UserID == userID }, rng), nil
}

func (f *fakeStore) SubscriptionEventsForWorkspace(_ context.Context, workspaceID string, rng models.DateRange) ([]models.SubscriptionEvent, error) {
	if err := f.failure("SubscriptionEventsForWorkspace"); err != nil {
		return nil, err
	}
	return f.rangeSubs(func(sub models.SubscriptionEvent) bool { return sub.WorkspaceID == workspaceID }, rng), nil
}

func (f *fakeStore) UserIDs(_ context.Context, since time.Time) ([]string, error) {
	if err := f.failure("UserIDs"); err != nil {
		return nil, err
	}
	var ids []string
	for id, u := range f.users {
		if !u.SignupAt.Before(since) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) matchEvents(userID string, types []models.EventType, start, end time.Time) []models.AnalyticsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	typeSet := make(map[models.EventType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var out []models.AnalyticsEvent
	for _, ev := range f.events {
		if ev.UserID != userID {
			continue
		}
		if len(typeSet) > 0 && !typeSet[ev.Type] {
			continue
		}
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(end) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (f *fakeStore) rangeEvents(match func(models.AnalyticsEvent) bool, rng models.DateRange) []models.AnalyticsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.AnalyticsEvent
	for _, ev := range f.events {
		if !match(ev) {
			continue
		}
		if ev.Timestamp.Before(rng.Start) || ev.Timestamp.After(rng.End) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (f *fakeStore) rangeSubs(match func(models.SubscriptionEvent) bool, rng models.DateRange) []models.SubscriptionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.SubscriptionEvent
	for _, sub := range f.subscriptions {
		if !match(sub) {
			continue
		}
		if sub.Timestamp.Before(rng.Start) || sub.Timestamp.After(rng.End) {
			continue
		}
		out = append(out, sub)
	}
	return out
}

// testClock is the fixed "now" every analytics test anchors its windows to.
var testClock = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService(fs *fakeStore) *Service {
	cfg := config.AnalyticsConfig{
		MaxWeeks:            12,
		SignupWindowDays:    90,
		Concurrency:         4,
		QuotaTokenThreshold: 100_000,
	}
	return NewService(fs, cfg, WithClock(func() time.Time { return testClock }))
}

func TestForEachBoundedAndComplete(t *testing.T) {
	svc := newTestService(newFakeStore())

	var mu sync.Mutex
	seen := make(map[int]bool)
	svc.forEach(100, func(i int) {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
	})

	if len(seen) != 100 {
		t.Fatalf("forEach visited %d indexes, want 100", len(seen))
	}
}

func TestCollector(t *testing.T) {
	c := &collector{}
	if got := c.take(); len(got) != 0 {
		t.Fatalf("empty collector returned %d records", len(got))
	}

	c.record("cohorts", "export_check_failed", fmt.Errorf("boom"))
	c.merge([]models.Degradation{{Component: "retention", Reason: "signup_unresolved"}})

	got := c.take()
	if len(got) != 2 {
		t.Fatalf("got %d degradations, want 2", len(got))
	}
	if got[0].Component != "cohorts" || got[0].Detail != "boom" {
		t.Errorf("unexpected first record: %+v", got[0])
	}
}
