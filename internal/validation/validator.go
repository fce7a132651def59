// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package validation wraps go-playground/validator v10 behind a thread-safe
// singleton with Insights-specific validators (cohort keys). Request structs
// carry validate tags; handlers call ValidateStruct and translate failures
// into 400 responses.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mindcanvas/insights/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed field with structured detail for API responses.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return e.Message }

// RequestError aggregates every failed field of one request.
type RequestError struct {
	Fields []FieldError
}

func (e *RequestError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// getValidator lazily builds the singleton. validator.Validate caches struct
// metadata internally, so one instance serves the whole process.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// cohortkey accepts only the known behavioral cohort names.
		_ = validate.RegisterValidation("cohortkey", func(fl validator.FieldLevel) bool {
			return models.ValidCohortKey(models.CohortKey(fl.Field().String()))
		})
	})
	return validate
}

// ValidateStruct validates s against its validate tags. On failure it returns
// a *RequestError listing every failed field.
func ValidateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("validation: %w", err)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	reqErr := &RequestError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		reqErr.Fields = append(reqErr.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: fieldMessage(fe),
		})
	}
	return reqErr
}

// fieldMessage renders a human-readable message per tag.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "cohortkey":
		return fmt.Sprintf("%s must be a known cohort key", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
