package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.  Kinds are themselves errors so callers
// can match them with errors.Is regardless of how deep the chain is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrResourceNotFound  Kind = "resource_not_found"
	ErrCapacityExceeded  Kind = "capacity_exceeded"
	ErrInvalidState      Kind = "invalid_state"
	ErrTemporalViolation Kind = "temporal_violation"
	ErrAlreadyProcessed  Kind = "already_processed"
	ErrInvalidResource   Kind = "invalid_resource"
	ErrInvalidInput      Kind = "invalid_input"
)

// Error is the structured error returned by the booking, check-in, rod and
// sharing services.  Details carries context for operators such as the
// booking id, pond name or the expected check-in window.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// With attaches a detail and returns e for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New builds an Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

// Wrap builds an Error of the given kind around err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain, or
// the empty kind when there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// DetailsOf returns the details of the first *Error in err's chain.
func DetailsOf(err error) map[string]any {
	var de *Error
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}

func IsNotFound(err error) bool         { return errors.Is(err, ErrResourceNotFound) }
func IsCapacityExceeded(err error) bool { return errors.Is(err, ErrCapacityExceeded) }
func IsInvalidState(err error) bool     { return errors.Is(err, ErrInvalidState) }
func IsAlreadyProcessed(err error) bool { return errors.Is(err, ErrAlreadyProcessed) }
