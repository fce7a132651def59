// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package advisor turns aggregated product metrics into structured,
// LLM-generated retention recommendations. The LLM is strictly advisory: it
// only ever sees anonymized aggregates from a MetricsSnapshot, and every call
// goes through a circuit breaker so an OpenAI outage cannot take the rest of
// the dashboard with it.
package advisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mindcanvas/insights/internal/config"
	"github.com/mindcanvas/insights/internal/logging"
	"github.com/mindcanvas/insights/internal/metrics"
)

// ErrBreakerOpen is returned when the circuit breaker is rejecting calls.
var ErrBreakerOpen = errors.New("advisor: circuit breaker open")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client calls the OpenAI chat completions API behind a circuit breaker.
type Client struct {
	cfg        config.AdvisorConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[string]
}

// NewClient builds the advisor LLM client. The breaker opens after a 60%
// failure rate over at least 5 calls and probes again after one minute.
func NewClient(cfg config.AdvisorConfig) *Client {
	metrics.AdvisorBreakerState.Set(0)

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "advisor-llm",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Advisor breaker state change")
			metrics.AdvisorBreakerState.Set(breakerStateValue(to))
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Complete sends one chat completion request and returns the assistant text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	began := time.Now()

	content, err := c.breaker.Execute(func() (string, error) {
		return c.complete(ctx, systemPrompt, userPrompt)
	})
	metrics.AdvisorCallDuration.Observe(time.Since(began).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.AdvisorCalls.WithLabelValues("breaker_open").Inc()
		return "", ErrBreakerOpen
	case err != nil:
		metrics.AdvisorCalls.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.AdvisorCalls.WithLabelValues("success").Inc()
	return content, nil
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call chat completions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode chat response (status %d): %w", resp.StatusCode, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("chat completions: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completions: status %d", resp.StatusCode)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("chat completions: no choices returned")
	}
	return chatResp.Choices[0].Message.Content, nil
}
