package models

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why a provider call failed. The aggregator recovers
// these locally into the snapshot's failure map; only ErrNoProvidersSucceeded
// surfaces as a hard failure.
type FailureKind string

const (
	FailureUnauthorized      FailureKind = "unauthorized"
	FailureRateLimited       FailureKind = "rate-limited"
	FailureUnavailable       FailureKind = "unavailable"
	FailureMalformedResponse FailureKind = "malformed-response"
	FailureRejected          FailureKind = "rejected"
	FailureTransport         FailureKind = "transport"
	FailureTimeout           FailureKind = "timeout"
	FailureNotApplicable     FailureKind = "not-applicable"
)

// Retryable reports whether a failure of this kind may resolve on its own.
// Credential and quota problems do not, so retrying them wastes budget; the
// same goes for rejected requests, where the server has already answered
// definitively.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureUnavailable, FailureTransport, FailureTimeout:
		return true
	default:
		return false
	}
}

// ErrNoProvidersSucceeded is the terminal aggregate state: the success map is
// still empty after the fallback round.
var ErrNoProvidersSucceeded = errors.New("no weather providers succeeded")

// ProviderError carries the failure kind across the adapter boundary.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err with a provider id and failure kind.
func NewProviderError(provider string, kind FailureKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// ClassifyError extracts the failure kind from an adapter error, mapping
// deadline expiry to timeout and anything untyped to transport.
func ClassifyError(err error) FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureTransport
}
