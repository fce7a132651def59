// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mindcanvas/insights/internal/logging"
	"github.com/mindcanvas/insights/internal/models"
	"github.com/mindcanvas/insights/internal/validation"
)

// sanitizeLogValue strips control characters so attacker-supplied strings
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON writes the standard response envelope with an ETag so the
// dashboard's polling can short-circuit on 304s at the proxy. Cache-Control
// is left to the caller: success payloads are cacheable, errors are not.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Vary", "Accept-Encoding")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag hashes the payload with FNV-1a.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// respondError writes an error envelope. Errors are never cacheable.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	w.Header().Set("Cache-Control", "no-store")
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondSuccess writes a success envelope with timing and degradation
// metadata. Responses carry per-user data, so shared proxies must not
// cache them.
func respondSuccess(w http.ResponseWriter, data any, began time.Time, cached bool, degradations []models.Degradation) {
	w.Header().Set("Cache-Control", "private, max-age=60")
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:    time.Now(),
			QueryTimeMS:  time.Since(began).Milliseconds(),
			Cached:       cached,
			Degradations: degradations,
		},
	})
}

// validateRequest validates a request struct and converts failures into the
// VALIDATION_ERROR shape.
func validateRequest(v any) *models.APIError {
	err := validation.ValidateStruct(v)
	if err == nil {
		return nil
	}

	apiErr := &models.APIError{
		Code:    "VALIDATION_ERROR",
		Message: err.Error(),
	}

	var reqErr *validation.RequestError
	if errors.As(err, &reqErr) {
		apiErr.Details = make(map[string]string, len(reqErr.Fields))
		for _, f := range reqErr.Fields {
			apiErr.Details[f.Field] = f.Message
		}
	}
	return apiErr
}

// getIntParam extracts an integer query parameter with a default.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getTimeParam parses an RFC3339 query parameter with a default.
func getTimeParam(r *http.Request, key string, defaultValue time.Time) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339: %w", key, err)
	}
	return t, nil
}
