package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every caller-visible failure wraps exactly one of these so the
// transport layer can map it with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a domain failure with a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Validationf returns an ErrInvalidInput failure.
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Conflictf returns an ErrConflict failure.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// InvalidStatef returns an ErrInvalidState failure.
func InvalidStatef(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns an ErrNotFound failure.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// PermissionDenied is returned by Authorize when the caller lacks resource.verb.
func PermissionDenied(resource, verb string) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf("you do not have permission to %s.%s", resource, verb)}
}

// Well-known failures.
var (
	ErrEventFull          error = &Error{Kind: ErrConflict, Message: "event is full"}
	ErrDuplicateEmail     error = &Error{Kind: ErrConflict, Message: "email already in use"}
	ErrDuplicateSlug      error = &Error{Kind: ErrConflict, Message: "role slug already in use"}
	ErrInvalidCredentials error = &Error{Kind: ErrUnauthorized, Message: "invalid email or password"}
	ErrInvalidToken       error = &Error{Kind: ErrUnauthorized, Message: "invalid or expired token"}

	// ErrNoActiveCredential means the stored user breaks the one-active-credential
	// invariant. It is internal and never reaches the caller as-is.
	ErrNoActiveCredential = errors.New("user has no active credential")
)

// Message returns the caller-visible message carried by err, or "" when err
// is not a domain failure.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
