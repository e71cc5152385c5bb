// Package errors provides error categorization and retry strategies for
// backend calls.
//
// Errors are sorted into three buckets:
//   - Transient: retry with backoff will likely help (5xx, transport faults)
//   - Permanent: retry won't help (4xx, cancellation, unknown failures)
//   - Config: the caller's configuration is broken (bad templates); never retried
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: HTTP 5xx, connection refused, timeouts, DNS failures.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: HTTP 4xx, cancelled contexts, malformed responses.
	CategoryPermanent

	// CategoryConfig indicates the provider configuration is invalid.
	// Examples: request templates that don't produce valid JSON.
	CategoryConfig
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and call context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Attempts is the number of attempts that were made.
	Attempts int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Attempts)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Attempts)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var tmplErr *TemplateError
	if errors.As(err, &tmplErr) {
		return CategoryConfig
	}

	// Malformed model output is not retryable at the transport layer.
	var parseErr *JSONParseError
	if errors.As(err, &parseErr) {
		return CategoryPermanent
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	// Transport-level failures: connection refused, timeouts, DNS errors.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return CategoryTransient
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryTransient
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryPermanent
	}

	// Unknown errors are permanent (fail safe).
	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsConfig reports whether the error stems from invalid configuration.
func IsConfig(err error) bool {
	return Categorize(err) == CategoryConfig
}
