package llm

import (
	"errors"
	"fmt"
)

// Kind classifies LLM and pipeline failures so callers can decide whether to
// retry, fail over to the next provider, or give up.
type Kind string

const (
	KindTransportFailure Kind = "transport_failure"
	KindTimeout          Kind = "timeout"
	KindRateLimited      Kind = "rate_limited"
	KindBadLLMResponse   Kind = "bad_llm_response"
	KindInvalidDialogue  Kind = "invalid_dialogue"
	KindNotFound         Kind = "not_found"
	KindConfigError      Kind = "config_error"
)

// Error is a classified failure from an LLM provider or a stage that
// consumes LLM output.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind and the provider it came from.
func NewError(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// KindOf extracts the failure kind from err, or KindTransportFailure when
// err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransportFailure
}

// Retryable reports whether the same provider is worth retrying.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindRateLimited, KindTransportFailure:
		return true
	}
	return false
}
