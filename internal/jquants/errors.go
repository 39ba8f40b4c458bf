package jquants

import (
	"errors"
	"fmt"
	"time"

	"github.com/seenimoa/kabuai/pkg/models"
)

const refreshHint = "obtain a new refresh token from the J-Quants dashboard and set JQUANTS_REFRESH_TOKEN"

// InvalidCodeError is returned before any I/O when a company code is malformed.
type InvalidCodeError = models.InvalidCodeError

// AuthenticationError is returned when the provider rejects the credentials.
type AuthenticationError struct {
	Reason string
	Hint   string
}

func (e *AuthenticationError) Error() string {
	if e.Hint == "" {
		return "jquants authentication failed: " + e.Reason
	}
	return fmt.Sprintf("jquants authentication failed: %s (%s)", e.Reason, e.Hint)
}

// RateLimitExceeded is returned when 429 responses persist through every attempt.
type RateLimitExceeded struct {
	Attempts   int
	RetryAfter time.Duration
}

func (e *RateLimitExceeded) Error() string {
	msg := fmt.Sprintf("jquants rate limit exceeded after %d attempts", e.Attempts)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter)
	}
	return msg
}

// DataUnavailable is returned when the provider has no data for the request.
type DataUnavailable struct {
	Code models.CompanyCode
	What string
}

func (e *DataUnavailable) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("jquants: no %s available", e.What)
	}
	return fmt.Sprintf("jquants: no %s available for %s", e.What, e.Code)
}

// NetworkError is returned when transport failures, timeouts or server
// errors persist through every attempt.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("jquants network failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-retryable provider error response.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("jquants %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("jquants %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsRetryable reports whether a later attempt might succeed: exhausted
// rate limits and network failures are transient, everything else is not.
func IsRetryable(err error) bool {
	var (
		rl  *RateLimitExceeded
		net *NetworkError
	)
	return errors.As(err, &rl) || errors.As(err, &net)
}
