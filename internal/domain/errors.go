package domain

import (
	"errors"
	"fmt"
)

// ErrProviderNotConfigured indicates a provider has no credentials and was
// skipped during wiring. Multi-provider fan-out silently excludes such
// providers; requesting one by name is a hard error.
var ErrProviderNotConfigured = errors.New("provider not configured")

// RateLimitError signals an HTTP 429 or a vendor-specific rate-limit/quota
// condition. It is one of the two error kinds the retry layer retries.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %s", e.Provider, e.Message)
}

// APIError signals a 5xx-class upstream server error. It is retryable.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether err is one of the two transient conditions
// the retry layer is allowed to retry.
func IsRetryable(err error) bool {
	var rateLimitErr *RateLimitError
	var apiErr *APIError
	return errors.As(err, &rateLimitErr) || errors.As(err, &apiErr)
}
