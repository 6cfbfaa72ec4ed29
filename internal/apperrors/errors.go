// Package apperrors defines the failure taxonomy shared by the authorization,
// membership, session, and simulation packages. Every failure produced by the
// core carries a Kind (how the API layer should classify it) and a message
// that is part of the service contract — callers and tests match these
// strings verbatim, so they must never be reworded casually.
package apperrors

import "errors"

// Kind classifies a core failure independently of any transport mapping.
type Kind int

const (
	// KindInternal covers unexpected failures (storage errors, codec errors).
	KindInternal Kind = iota
	// KindUnauthenticated means no resolvable identity in the session.
	KindUnauthenticated
	// KindAccessDenied means the identity resolved but the operation is not permitted.
	KindAccessDenied
	// KindNotFound means a referenced membership, project, or user does not exist.
	KindNotFound
	// KindInvariantViolation means the operation would break a tenant-integrity rule.
	KindInvariantViolation
	// KindBadRequest means structurally invalid input.
	KindBadRequest
)

// Error is the concrete error type produced by the core services.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }

// AccessDenied creates an access-denied error.
func AccessDenied(message string) *Error { return New(KindAccessDenied, message) }

// NotFound creates a not-found error.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// InvariantViolation creates an invariant-violation error.
func InvariantViolation(message string) *Error { return New(KindInvariantViolation, message) }

// BadRequest creates a bad-request error.
func BadRequest(message string) *Error { return New(KindBadRequest, message) }

// KindOf returns the Kind carried by err, or KindInternal when err is not a
// core error. Wrapped errors are unwrapped first.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
