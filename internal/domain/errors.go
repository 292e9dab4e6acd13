package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity does not exist")
	// ErrAlreadyExists is returned when a contestant tries to buy the same card twice.
	ErrAlreadyExists = errors.New("entity already exists")
	// ErrLimitOverflow is returned when every problem slot of a contestant is occupied.
	ErrLimitOverflow = errors.New("action denied: possible limit overflow")
	// ErrInsufficientPoints is returned when a purchase would make the balance negative.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrPermissionDenied is returned for ownership violations and submissions on inactive problems.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrContestClosed is a permission error raised outside of the contest time window.
	ErrContestClosed = fmt.Errorf("contest is not open: %w", ErrPermissionDenied)
	// ErrInvalidArgument indicates malformed input (empty answer, negative price...).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotImplemented is returned for contest rule types without reward rules.
	ErrNotImplemented = errors.New("not implemented")
	// ErrUndefinedMapping indicates an enum value that the code does not know about.
	ErrUndefinedMapping = errors.New("undefined mapping")
)

// ErrorKind groups domain errors by how callers should react to them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindAlreadyExists
	KindForbidden
	KindInvalid
)

// KindOf classifies err. Unknown errors, ErrNotImplemented and ErrUndefinedMapping are internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrUndefinedMapping), errors.Is(err, ErrNotImplemented):
		return KindInternal
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrLimitOverflow),
		errors.Is(err, ErrInsufficientPoints),
		errors.Is(err, ErrPermissionDenied):
		return KindForbidden
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalid
	default:
		return KindInternal
	}
}

func undefined(kind, value string) error {
	return fmt.Errorf("%w: %s %q", ErrUndefinedMapping, kind, value)
}
