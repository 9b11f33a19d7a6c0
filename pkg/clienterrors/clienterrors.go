// Package clienterrors classifies model-provider errors into the three kinds
// the orchestrator needs to make retry and degradation decisions: Transient,
// Permanent, and Timeout. Every ModelClient adapter funnels its provider SDK
// errors through a classifier in this package instead of inventing its own
// ad-hoc status-code switch.
package clienterrors

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the closed set of error classifications a ModelClient may return.
type Kind string

const (
	// Transient covers network hiccups and HTTP 429/502/503 style failures.
	// StageRunner retries these, bounded by the configured backoff policy.
	Transient Kind = "transient"
	// Permanent covers 4xx (other than 429), malformed credentials, and
	// content-policy rejections. StageRunner never retries these.
	Permanent Kind = "permanent"
	// Timeout covers a model call that did not complete before its deadline.
	// StageRunner retries these the same as Transient.
	Timeout Kind = "timeout"
)

// ClassifiedError wraps a provider error with the kind the orchestrator
// should treat it as.
type ClassifiedError struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// New wraps err as a ClassifiedError of the given kind.
func New(provider string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Provider: provider, Err: err}
}

// TransientErr wraps err as a Transient ClassifiedError.
func TransientErr(provider string, err error) error {
	return New(provider, Transient, err)
}

// PermanentErr wraps err as a Permanent ClassifiedError.
func PermanentErr(provider string, err error) error {
	return New(provider, Permanent, err)
}

// TimeoutErr wraps err as a Timeout ClassifiedError.
func TimeoutErr(provider string, err error) error {
	return New(provider, Timeout, err)
}

// KindOf extracts the Kind from err, walking the error chain. An unclassified
// context deadline error is treated as Timeout; any other error with no
// ClassifiedError in its chain (context.Canceled included) is treated as
// Transient, since an adapter that forgot to classify should not silently
// become unretryable.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Transient
}

// IsRetryable reports whether StageRunner should retry an error: Transient
// and Timeout are retryable, Permanent is not.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case Transient, Timeout:
		return true
	default:
		return false
	}
}
