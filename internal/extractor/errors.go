package extractor

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitError indicates the provider returned HTTP 429. Retryable.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// AuthError indicates invalid or missing provider credentials. Fatal for the
// whole job; never retried.
type AuthError struct {
	Err      error
	Provider string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NetworkError indicates a transport-level failure. Retryable with backoff.
type NetworkError struct {
	Err      error
	Provider string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s network error: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// InvalidResponseError indicates the provider replied but the payload could
// not be parsed into rows. Retried once with a stricter reformatting
// instruction, then treated as an empty result.
type InvalidResponseError struct {
	Err      error
	Provider string
	Raw      string // truncated raw payload for diagnostics
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("%s returned an unparseable response: %v", e.Provider, e.Err)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

// ClassifyStatus maps a non-200 HTTP status to the error taxonomy.
func ClassifyStatus(provider string, status int, body string, retryAfterHeader string) error {
	base := fmt.Errorf("%s API error (status %d): %s", provider, status, truncate(body, 500))
	switch {
	case status == http.StatusTooManyRequests:
		return NewRateLimitError(provider, base, ParseRetryAfterHeader(retryAfterHeader))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Provider: provider, Err: base}
	case status >= 500:
		return &NetworkError{Provider: provider, Err: base}
	default:
		return &InvalidResponseError{Provider: provider, Err: base, Raw: truncate(body, 500)}
	}
}

// Retryable reports whether the orchestrator should retry the chunk with
// backoff (rate limits and transient network failures).
func Retryable(err error) bool {
	var rl *RateLimitError
	var ne *NetworkError
	return errors.As(err, &rl) || errors.As(err, &ne)
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
