package client

import (
	"errors"
	"fmt"
)

// Kind classifies a backend failure. Mutation rollback treats every kind
// the same; call sites use it for user-facing messaging.
type Kind string

const (
	KindNetwork    Kind = "network"    // transport unreachable
	KindTimeout    Kind = "timeout"    // request exceeded the mutation timeout
	KindValidation Kind = "validation" // backend rejected the payload
	KindNotFound   Kind = "not_found"  // referenced entity is gone
	KindConflict   Kind = "conflict"   // concurrent edit, routed to the resolver
	KindSocket     Kind = "socket"     // realtime connection loss
)

// APIError is the structured error every backend call returns on failure.
type APIError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"` // set for field-scoped validation errors
	Err     error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewError creates an APIError of the given kind.
func NewError(kind Kind, message string) *APIError {
	return &APIError{Kind: kind, Message: message}
}

// WrapError wraps an underlying error with a kind and message.
func WrapError(kind Kind, message string, err error) *APIError {
	return &APIError{Kind: kind, Message: message, Err: err}
}

func kindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found backend error.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool { return kindOf(err) == KindValidation }

// IsNetwork reports whether err is a transport or timeout failure.
func IsNetwork(err error) bool {
	k := kindOf(err)
	return k == KindNetwork || k == KindTimeout
}
