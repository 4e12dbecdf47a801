package shared

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrTaskNotFound       = fmt.Errorf("task not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// ErrorKind classifies provider call failures to drive retry behavior.
type ErrorKind int

const (
	// KindTransient covers network timeouts, 5xx responses, and other
	// momentary failures. Retryable with bounded exponential backoff.
	KindTransient ErrorKind = iota

	// KindQuotaExceeded is a provider-reported rate limit with a retry-after
	// duration. Retried once after the retry-after elapses.
	KindQuotaExceeded

	// KindPermanent covers invalid/expired credentials, malformed requests,
	// and not-found responses. Never retried.
	KindPermanent

	// KindDataError marks an unexpected or malformed provider response shape.
	// Never retried.
	KindDataError
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindPermanent:
		return "permanent"
	case KindDataError:
		return "data_error"
	default:
		return "unknown"
	}
}

// ProviderError wraps a failure from an external music provider with its
// classification and, for rate-limit rejections, the provider-specified
// retry-after duration.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError constructs a classified provider failure.
func NewProviderError(provider string, kind ErrorKind, statusCode int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, StatusCode: statusCode, Err: err}
}

// KindOf extracts the classification of err. Errors that do not carry a
// ProviderError are treated as transient, matching how an unclassified
// network failure should be retried.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// RetryAfterOf extracts the retry-after hint from a quota error, zero otherwise.
func RetryAfterOf(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Kind == KindQuotaExceeded {
		return pe.RetryAfter
	}
	return 0
}

// IsRetryable reports whether err may succeed on a subsequent attempt.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindQuotaExceeded:
		return true
	}
	return false
}
