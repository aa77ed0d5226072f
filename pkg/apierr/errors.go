// Package apierr defines the error taxonomy shared across the orchestration
// runtime: every failure surfaced to a caller carries a Kind, a masked
// message, a retryable hint, and an optional documentation reference.
package apierr

import (
	"errors"
	"fmt"

	"github.com/coreflow-dev/agentcore/pkg/masking"
)

// Kind classifies a failure for disposition purposes (spec §7).
type Kind string

const (
	// KindValidation is bad input or bad configuration. Never retry.
	KindValidation Kind = "validation"
	// KindNotFound is an unknown id. Surface as-is.
	KindNotFound Kind = "not_found"
	// KindIllegalState is state-machine misuse (e.g. responding twice). Never retry.
	KindIllegalState Kind = "illegal_state"
	// KindQuotaExceeded is a tenant limit hit. Surfaced with a Retry-After hint.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindTimeout is a deadline reached. Caller may retry idempotently.
	KindTimeout Kind = "timeout"
	// KindTransient is an LLM/vector/network hiccup. Retried under policy, then surfaced.
	KindTransient Kind = "transient"
	// KindFatal is an invariant violation. Logged, state moves to failed, alert raised.
	KindFatal Kind = "fatal"
)

// retryable reports the default retry disposition for a Kind.
func (k Kind) retryable() bool {
	switch k {
	case KindTimeout, KindTransient, KindQuotaExceeded:
		return true
	default:
		return false
	}
}

// Error is the concrete error type returned across package boundaries.
// Its Error() string is pre-masked so it is always safe to log or return
// to a caller verbatim.
type Error struct {
	Kind           Kind
	Component      string // e.g. "executor", "hitl_queue", "tenant"
	ID             string // subject id (agent_id, request_id, tenant_id, ...), optional
	Message        string // human-readable, masked
	DocRef         string // documentation_ref, optional
	RetryAfterSecs int    // only meaningful when Kind == KindQuotaExceeded
	cause          error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s '%s': %s", e.Kind, e.Component, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Component, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the caller may retry this failure.
func (e *Error) Retryable() bool { return e.Kind.retryable() }

// New constructs a masked Error of the given kind.
func New(kind Kind, component, id, message string) *Error {
	return &Error{
		Kind:      kind,
		Component: component,
		ID:        id,
		Message:   masking.Default().MaskString(message),
	}
}

// Wrap constructs a masked Error carrying an underlying cause.
func Wrap(kind Kind, component, id string, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Kind:      kind,
		Component: component,
		ID:        id,
		Message:   masking.Default().MaskString(msg),
		cause:     cause,
	}
}

// WithDocRef sets the documentation reference and returns the same Error for chaining.
func (e *Error) WithDocRef(ref string) *Error {
	e.DocRef = ref
	return e
}

// WithRetryAfter sets the retry-after hint (seconds) for quota errors.
func (e *Error) WithRetryAfter(secs int) *Error {
	e.RetryAfterSecs = secs
	return e
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// NotFound, Validation, IllegalState, QuotaExceeded, Timeout, Transient, Fatal
// are convenience constructors used throughout the codebase.

func NotFound(component, id string) *Error {
	return New(KindNotFound, component, id, fmt.Sprintf("%s not found", component))
}

func Validation(component, id, message string) *Error {
	return New(KindValidation, component, id, message)
}

func IllegalState(component, id, message string) *Error {
	return New(KindIllegalState, component, id, message)
}

func QuotaExceeded(component, id, message string, retryAfterSecs int) *Error {
	return New(KindQuotaExceeded, component, id, message).WithRetryAfter(retryAfterSecs)
}

func Timeout(component, id, message string) *Error {
	return New(KindTimeout, component, id, message)
}

func Transient(component, id string, cause error) *Error {
	return Wrap(KindTransient, component, id, cause)
}

func Fatal(component, id string, cause error) *Error {
	return Wrap(KindFatal, component, id, cause)
}

// Envelope is the user-visible shape described in spec §7:
// {error_kind, message (secrets masked), retryable, documentation_ref}.
type Envelope struct {
	ErrorKind       Kind   `json:"error_kind"`
	Message         string `json:"message"`
	Retryable       bool   `json:"retryable"`
	DocumentationRef string `json:"documentation_ref,omitempty"`
}

// ToEnvelope converts any error into the user-visible envelope shape.
// Non-*Error values are treated as KindFatal with a generic message so that
// a raw internal error never leaks unmasked to a caller.
func ToEnvelope(err error) Envelope {
	var e *Error
	if errors.As(err, &e) {
		return Envelope{
			ErrorKind:        e.Kind,
			Message:          e.Message,
			Retryable:        e.Retryable(),
			DocumentationRef: e.DocRef,
		}
	}
	return Envelope{
		ErrorKind: KindFatal,
		Message:   masking.Default().MaskString(err.Error()),
		Retryable: false,
	}
}
