// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package apperrors defines the error taxonomy shared by the engine packages.
//
// Only validation and authorization errors are meant to reach callers.
// Dependency errors describe a failed durable or external call and are
// absorbed by the tiered lookup layer, which logs them and reports a miss.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input shape or range. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidation creates a ValidationError for field.
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// AuthorizationError reports a missing or rejected administrative credential.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "not authorized"
	}
	return "not authorized: " + e.Reason
}

// DependencyError wraps a failure of the durable or external tier.
type DependencyError struct {
	Tier string
	Err  error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s tier unavailable: %v", e.Tier, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuthorization reports whether err is or wraps an AuthorizationError.
func IsAuthorization(err error) bool {
	var a *AuthorizationError
	return errors.As(err, &a)
}
