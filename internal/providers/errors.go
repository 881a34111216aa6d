package providers

import (
	"errors"
	"fmt"
)

// ErrorKind classifies adapter failures so the orchestrator can decide
// whether a payment transitions, stays pending, or the caller should retry.
type ErrorKind string

const (
	// KindTransient covers network failures, timeouts and provider 5xx.
	// The payment stays pending and the caller may retry.
	KindTransient ErrorKind = "transient"
	// KindRejected means the provider reported the transaction as failed.
	KindRejected ErrorKind = "rejected"
	// KindMalformed means the provider response could not be understood.
	// The payment stays pending for manual follow-up.
	KindMalformed ErrorKind = "malformed"
)

// AdapterError wraps a failure from a provider call with its classification.
type AdapterError struct {
	Kind     ErrorKind
	Provider string
	Reason   string
	cause    error
}

func (e *AdapterError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s adapter %s: %s: %v", e.Provider, e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s adapter %s: %s", e.Provider, e.Kind, e.Reason)
}

func (e *AdapterError) Unwrap() error {
	return e.cause
}

// NewTransientError marks a retryable provider failure.
func NewTransientError(provider, reason string, cause error) *AdapterError {
	return &AdapterError{Kind: KindTransient, Provider: provider, Reason: reason, cause: cause}
}

// NewRejectedError marks a provider-reported transaction failure.
func NewRejectedError(provider, reason string) *AdapterError {
	return &AdapterError{Kind: KindRejected, Provider: provider, Reason: reason}
}

// NewMalformedError marks an unparseable or unexpected provider response.
func NewMalformedError(provider, reason string, cause error) *AdapterError {
	return &AdapterError{Kind: KindMalformed, Provider: provider, Reason: reason, cause: cause}
}

// KindOf extracts the classification from an adapter error chain, defaulting
// to transient for unclassified failures so callers never over-react.
func KindOf(err error) ErrorKind {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Kind
	}
	return KindTransient
}

// AsAdapterError returns the typed adapter error in the chain, if any.
func AsAdapterError(err error) *AdapterError {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr
	}
	return nil
}
