// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package advisor

import (
	"context"
	"errors"
	"time"

	"github.com/mindcanvas/insights/internal/logging"
)

// Refresher periodically rebuilds the advisor report so the dashboard always
// serves a recent one without paying LLM latency on request. It implements
// suture.Service and is restarted by the supervisor if it panics.
type Refresher struct {
	engine   *Engine
	interval time.Duration
}

// NewRefresher creates a refresher that rebuilds the report every interval.
func NewRefresher(engine *Engine, interval time.Duration) *Refresher {
	return &Refresher{engine: engine, interval: interval}
}

// Serve implements suture.Service. It refreshes once at startup, then on
// every tick. A failed refresh is logged and retried at the next tick; the
// previously cached report keeps serving in the meantime.
func (r *Refresher) Serve(ctx context.Context) error {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	_, err := r.engine.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrBreakerOpen):
		logging.Warn().Msg("Advisor refresh skipped, circuit breaker open")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		logging.Err(err).Msg("Advisor refresh failed")
	}
}

// String names the service in supervisor logs.
func (r *Refresher) String() string {
	return "advisor-refresher"
}
