package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"submission-portal-api/models"
)

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrRateLimited      = errors.New("too many submissions")
	ErrDuplicateTeam    = errors.New("team has already submitted a project")
	ErrInfrastructure   = errors.New("infrastructure failure")
)

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Fields []models.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// RateLimitError is returned when the source key exhausted its window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfterSeconds rounds the hint up to whole seconds, never below one.
func (e *RateLimitError) RetryAfterSeconds() int {
	return ceilSeconds(e.RetryAfter)
}

// InfrastructureError wraps a store, blob or network failure. Its message is
// for logs only.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func (e *InfrastructureError) Is(target error) bool { return target == ErrInfrastructure }

func infraError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &InfrastructureError{Op: op, Err: err}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
