// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api exposes the Insights analytics over HTTP using chi. Every
// response uses the models.APIResponse envelope; partial results carry their
// degradation records in the metadata so the dashboard can badge them.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mindcanvas/insights/internal/advisor"
	"github.com/mindcanvas/insights/internal/analytics"
	"github.com/mindcanvas/insights/internal/cache"
	"github.com/mindcanvas/insights/internal/config"
	"github.com/mindcanvas/insights/internal/models"
)

// AnalyticsService is the analytics surface the handlers consume.
// *analytics.Service satisfies it.
type AnalyticsService interface {
	UserIDs(ctx context.Context, since time.Time) ([]string, error)
	AssignUserToCohorts(ctx context.Context, userID string) ([]models.CohortKey, []models.Degradation, error)
	CohortMembers(ctx context.Context, since time.Time) (map[models.CohortKey][]string, []models.Degradation, error)
	CalculateCohortRetention(ctx context.Context, cohortKey models.CohortKey, memberIDs []string, maxWeeks int) (models.RetentionCurve, []models.Degradation, error)
	CalculateUserHealthScore(ctx context.Context, userID string) (*models.HealthScore, []models.Degradation, error)
	UsersHealthScores(ctx context.Context, userIDs []string) ([]models.HealthScore, []models.Degradation, error)
	AtRiskUsers(ctx context.Context, limit int) ([]models.HealthScore, []models.Degradation, error)
	BuildUserJourney(ctx context.Context, userID string, rng models.DateRange) ([]models.JourneyEvent, []models.Degradation, error)
	BuildTeamJourney(ctx context.Context, workspaceID string, rng models.DateRange) ([]models.JourneyEvent, []models.Degradation, error)
}

// AdvisorEngine is the advisor surface; *advisor.Engine satisfies it. Nil
// when the advisor is disabled.
type AdvisorEngine interface {
	Latest() (*models.AdvisorReport, error)
	Refresh(ctx context.Context) (*models.AdvisorReport, error)
}

// Pinger reports store liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	analytics AnalyticsService
	advisor   AdvisorEngine
	store     Pinger
	cache     *cache.Cache
	cfg       config.AnalyticsConfig
	now       func() time.Time
}

// NewHandlers creates the handler set. advisorEngine may be nil when the
// advisor feature is disabled; its endpoints then return 503.
func NewHandlers(analyticsSvc AnalyticsService, advisorEngine AdvisorEngine, store Pinger, responseCache *cache.Cache, cfg config.AnalyticsConfig) *Handlers {
	return &Handlers{
		analytics: analyticsSvc,
		advisor:   advisorEngine,
		store:     store,
		cache:     responseCache,
		cfg:       cfg,
		now:       time.Now,
	}
}

// cachedResult pairs a payload with the degradations recorded while
// computing it, so cache hits replay them in the metadata.
type cachedResult struct {
	Data         any
	Degradations []models.Degradation
}

// HealthLive reports process liveness.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string]string{"status": "alive"}, h.now(), false, nil)
}

// HealthReady reports readiness: the store must answer a ping.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	began := h.now()
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "event store is not reachable", err)
		return
	}
	respondSuccess(w, map[string]string{"status": "ready"}, began, false, nil)
}

// Cohorts returns the week-1 behavioral cohorts for one user.
//
//	GET /api/v1/analytics/cohorts/{userID}
func (h *Handlers) Cohorts(w http.ResponseWriter, r *http.Request) {
	began := h.now()
	userID := chi.URLParam(r, "userID")

	cohorts, degradations, err := h.analytics.AssignUserToCohorts(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "COHORT_ERROR", "failed to classify user", err)
		return
	}

	respondSuccess(w, map[string]any{
		"user_id": userID,
		"cohorts": cohorts,
	}, began, false, degradations)
}

type retentionRequest struct {
	Cohort string `validate:"omitempty,cohortkey"`
	Weeks  int    `validate:"min=1,max=52"`
}

// Retention returns retention curves for all cohorts, or one cohort when
// ?cohort= is given. Results are cached.
//
//	GET /api/v1/analytics/retention?cohort=EXPORTERS_WEEK1&weeks=12
func (h *Handlers) Retention(w http.ResponseWriter, r *http.Request) {
	began := h.now()

	req := retentionRequest{
		Cohort: r.URL.Query().Get("cohort"),
		Weeks:  getIntParam(r, "weeks", h.cfg.MaxWeeks),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	cacheKey := cache.GenerateKey("retention", req)
	if hit, ok := h.cache.Get(cacheKey); ok {
		result := hit.(cachedResult)
		respondSuccess(w, result.Data, began, true, result.Degradations)
		return
	}

	since := h.now().AddDate(0, 0, -h.cfg.SignupWindowDays)
	members, degradations, err := h.analytics.CohortMembers(r.Context(), since)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RETENTION_ERROR", "failed to build cohort members", err)
		return
	}

	keys := models.AllCohortKeys
	if req.Cohort != "" {
		keys = []models.CohortKey{models.CohortKey(req.Cohort)}
	}

	curves := make([]models.RetentionCurve, 0, len(keys))
	for _, key := range keys {
		curve, degs, err := h.analytics.CalculateCohortRetention(r.Context(), key, members[key], req.Weeks)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "RETENTION_ERROR", "failed to compute retention curve", err)
			return
		}
		degradations = append(degradations, degs...)
		curves = append(curves, curve)
	}

	data := map[string]any{"curves": curves}
	h.cache.Set(cacheKey, cachedResult{Data: data, Degradations: degradations})
	respondSuccess(w, data, began, false, degradations)
}

// HealthScore returns one user's composite health score. Unknown users are a
// 404; this is the one analytics operation that does not degrade.
//
//	GET /api/v1/analytics/health/{userID}
func (h *Handlers) HealthScore(w http.ResponseWriter, r *http.Request) {
	began := h.now()
	userID := chi.URLParam(r, "userID")

	score, degradations, err := h.analytics.CalculateUserHealthScore(r.Context(), userID)
	if err != nil {
		if errors.Is(err, analytics.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "no such user", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "HEALTH_SCORE_ERROR", "failed to compute health score", err)
		return
	}

	respondSuccess(w, score, began, false, degradations)
}

type batchHealthRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=500,dive,required"`
}

// HealthBatch computes health scores for a list of users, worst first.
//
//	POST /api/v1/analytics/health/batch {"user_ids": ["u1", "u2"]}
func (h *Handlers) HealthBatch(w http.ResponseWriter, r *http.Request) {
	began := h.now()

	var req batchHealthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with user_ids", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	scores, degradations, err := h.analytics.UsersHealthScores(r.Context(), req.UserIDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HEALTH_SCORE_ERROR", "failed to compute batch health scores", err)
		return
	}

	respondSuccess(w, map[string]any{"scores": scores}, began, false, degradations)
}

// AtRisk returns the users most likely to churn (score below 50), worst
// first. Results are cached.
//
//	GET /api/v1/analytics/health/at-risk?limit=20
func (h *Handlers) AtRisk(w http.ResponseWriter, r *http.Request) {
	began := h.now()

	limit := getIntParam(r, "limit", 20)
	if limit < 1 || limit > 500 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be in 1..500", nil)
		return
	}

	cacheKey := cache.GenerateKey("at-risk", limit)
	if hit, ok := h.cache.Get(cacheKey); ok {
		result := hit.(cachedResult)
		respondSuccess(w, result.Data, began, true, result.Degradations)
		return
	}

	scores, degradations, err := h.analytics.AtRiskUsers(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HEALTH_SCORE_ERROR", "failed to compute at-risk users", err)
		return
	}

	data := map[string]any{"users": scores}
	h.cache.Set(cacheKey, cachedResult{Data: data, Degradations: degradations})
	respondSuccess(w, data, began, false, degradations)
}

// UserJourney returns one user's event timeline.
//
//	GET /api/v1/analytics/journey/user/{userID}?start=...&end=...
func (h *Handlers) UserJourney(w http.ResponseWriter, r *http.Request) {
	h.journey(w, r, chi.URLParam(r, "userID"), h.analytics.BuildUserJourney)
}

// TeamJourney returns a workspace's combined event timeline.
//
//	GET /api/v1/analytics/journey/team/{workspaceID}?start=...&end=...
func (h *Handlers) TeamJourney(w http.ResponseWriter, r *http.Request) {
	h.journey(w, r, chi.URLParam(r, "workspaceID"), h.analytics.BuildTeamJourney)
}

func (h *Handlers) journey(w http.ResponseWriter, r *http.Request, entityID string,
	build func(context.Context, string, models.DateRange) ([]models.JourneyEvent, []models.Degradation, error)) {
	began := h.now()

	end, err := getTimeParam(r, "end", h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	start, err := getTimeParam(r, "start", end.AddDate(0, 0, -30))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	rng := models.DateRange{Start: start, End: end}
	if rng.IsZero() {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "start must not be after end", nil)
		return
	}

	timeline, degradations, err := build(r.Context(), entityID, rng)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "JOURNEY_ERROR", "failed to build journey", err)
		return
	}

	respondSuccess(w, map[string]any{
		"id":     entityID,
		"range":  rng,
		"events": timeline,
	}, began, false, degradations)
}

// AdvisorRecommendations serves the latest cached advisor report.
//
//	GET /api/v1/analytics/advisor/recommendations
func (h *Handlers) AdvisorRecommendations(w http.ResponseWriter, r *http.Request) {
	began := h.now()

	if h.advisor == nil {
		respondError(w, http.StatusServiceUnavailable, "ADVISOR_DISABLED", "advisor is not enabled", nil)
		return
	}

	report, err := h.advisor.Latest()
	if err != nil {
		if errors.Is(err, advisor.ErrNoReport) {
			respondError(w, http.StatusServiceUnavailable, "ADVISOR_NOT_READY", "no advisor report generated yet", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "ADVISOR_ERROR", "failed to load advisor report", err)
		return
	}

	respondSuccess(w, report, began, true, nil)
}

// AdvisorRefresh forces a report rebuild, bypassing the refresh interval.
//
//	POST /api/v1/analytics/advisor/refresh
func (h *Handlers) AdvisorRefresh(w http.ResponseWriter, r *http.Request) {
	began := h.now()

	if h.advisor == nil {
		respondError(w, http.StatusServiceUnavailable, "ADVISOR_DISABLED", "advisor is not enabled", nil)
		return
	}

	report, err := h.advisor.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, advisor.ErrBreakerOpen) {
			respondError(w, http.StatusServiceUnavailable, "ADVISOR_UNAVAILABLE", "LLM circuit breaker is open", nil)
			return
		}
		respondError(w, http.StatusBadGateway, "ADVISOR_ERROR", "advisor refresh failed", err)
		return
	}

	respondSuccess(w, report, began, false, nil)
}
