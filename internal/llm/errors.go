package llm

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMissingKey
	KindQuotaExceeded
	KindNetworkFailure
	KindAuthFailure
	KindRateLimited
	KindAPIFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingKey:
		return "missing_key"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindNetworkFailure:
		return "network_failure"
	case KindAuthFailure:
		return "auth_failure"
	case KindRateLimited:
		return "rate_limited"
	case KindAPIFailure:
		return "api_failure"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by Send.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Quota   int
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingKey:
		return "Please enter your API key in settings"
	case KindQuotaExceeded:
		return fmt.Sprintf("You've reached the API call limit (%d calls). Increase the limit in settings or start a new session.", e.Quota)
	case KindNetworkFailure:
		return "Network error: Unable to connect to Anthropic API. Please check your internet connection and API key."
	case KindAuthFailure:
		return "Invalid API key. Please check your API key in settings."
	case KindRateLimited:
		return "Rate limit exceeded. Please wait a moment and try again."
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("API request failed (%d)", e.Status)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "API request failed"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind returns the kind of the first *Error in err's chain.
func Kind(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// Retryable reports whether repeating the same request could succeed
// without the user changing a setting first.
func Retryable(err error) bool {
	switch Kind(err) {
	case KindNetworkFailure, KindRateLimited, KindAPIFailure:
		return true
	default:
		return false
	}
}
