// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package analytics is the reporting core of Insights: behavior cohort
// assignment, per-cohort retention curves, composite user health scores, and
// journey timelines. Every computation is a pure read over the store; the
// package holds no state between requests.
//
// Failure policy: only a missing primary entity is an error (the health score
// calculator's user lookup). Every other sub-query failure degrades to a
// neutral default and is reported as a models.Degradation alongside the
// result, so the dashboard renders partial data instead of a broken widget.
package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mindcanvas/insights/internal/config"
	"github.com/mindcanvas/insights/internal/metrics"
	"github.com/mindcanvas/insights/internal/models"
)

// ErrUserNotFound is returned when the primary user record of a computation
// does not exist. It is the only error the package propagates for missing
// data; missing sub-records degrade to defaults instead.
var ErrUserNotFound = errors.New("user not found")

// week is the fixed cohort week length.
const week = 7 * 24 * time.Hour

// Store is the read-only data access the analytics core needs. *store.Store
// satisfies it; tests use an in-memory fake.
type Store interface {
	User(ctx context.Context, userID string) (*models.User, error)
	SignupDate(ctx context.Context, userID string) (time.Time, error)
	CountEvents(ctx context.Context, userID string, types []models.EventType, start, end time.Time) (int, error)
	HasEvent(ctx context.Context, userID string, types []models.EventType, start, end time.Time) (bool, error)
	FailedConversionCount(ctx context.Context, userID string, start, end time.Time) (int, error)
	WeeklyActivity(ctx context.Context, userID string) ([]models.WeeklyActivity, error)
	SentimentValues(ctx context.Context, userID string) ([]float64, error)
	EventsForUser(ctx context.Context, userID string, rng models.DateRange) ([]models.AnalyticsEvent, error)
	EventsForWorkspace(ctx context.Context, workspaceID string, rng models.DateRange) ([]models.AnalyticsEvent, error)
	SubscriptionEventsForUser(ctx context.Context, userID string, rng models.DateRange) ([]models.SubscriptionEvent, error)
	SubscriptionEventsForWorkspace(ctx context.Context, workspaceID string, rng models.DateRange) ([]models.SubscriptionEvent, error)
	UserIDs(ctx context.Context, since time.Time) ([]string, error)
}

// Service computes all analytics. Safe for concurrent use.
type Service struct {
	store Store
	cfg   config.AnalyticsConfig

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the analytics service.
func NewService(st Store, cfg config.AnalyticsConfig, opts ...Option) *Service {
	s := &Service{
		store: st,
		cfg:   cfg,
		now:   time.Now,
	}
	if s.cfg.Concurrency < 1 {
		s.cfg.Concurrency = 1
	}
	if s.cfg.QuotaTokenThreshold <= 0 {
		s.cfg.QuotaTokenThreshold = 100_000
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserIDs lists every user who signed up at or after since. A zero since
// lists everyone.
func (s *Service) UserIDs(ctx context.Context, since time.Time) ([]string, error) {
	return s.store.UserIDs(ctx, since)
}

// forEach runs fn for every index in 0..n-1 with bounded concurrency and
// waits for all of them. fn must handle its own errors; forEach never fails.
func (s *Service) forEach(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}

// collector accumulates degradation records from concurrent sub-queries.
type collector struct {
	mu   sync.Mutex
	list []models.Degradation
}

// record notes one degraded sub-query and bumps the Prometheus counter.
func (c *collector) record(component, reason string, err error) {
	metrics.DegradedChecks.WithLabelValues(component, reason).Inc()

	d := models.Degradation{Component: component, Reason: reason}
	if err != nil {
		d.Detail = err.Error()
	}
	c.mu.Lock()
	c.list = append(c.list, d)
	c.mu.Unlock()
}

// merge appends another collector's records.
func (c *collector) merge(other []models.Degradation) {
	if len(other) == 0 {
		return
	}
	c.mu.Lock()
	c.list = append(c.list, other...)
	c.mu.Unlock()
}

// take returns the accumulated records.
func (c *collector) take() []models.Degradation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list
}
