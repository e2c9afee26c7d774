package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected command.
type ErrorKind string

const (
	KindInvalidPhase           ErrorKind = "InvalidPhase"
	KindNotYourTurn            ErrorKind = "NotYourTurn"
	KindNotFound               ErrorKind = "NotFound"
	KindTableFull              ErrorKind = "TableFull"
	KindAlreadySeated          ErrorKind = "AlreadySeated"
	KindPowerAlreadyUsed       ErrorKind = "PowerAlreadyUsed"
	KindInvalidTarget          ErrorKind = "InvalidTarget"
	KindEmptyPile              ErrorKind = "EmptyPile"
	KindConcurrentModification ErrorKind = "ConcurrentModification"
	KindForbidden              ErrorKind = "Forbidden"
	KindInvalidArgument        ErrorKind = "InvalidArgument"
)

// Error is returned by every validation failure. A command that returns an
// Error has not mutated the table.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any *Error of the same kind when target carries no message,
// so errors.Is(err, ErrNotYourTurn) works for every NotYourTurn error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Retryable reports whether the caller may resubmit the same command.
func (e *Error) Retryable() bool { return e.Kind == KindConcurrentModification }

var (
	ErrInvalidPhase           = &Error{Kind: KindInvalidPhase}
	ErrNotYourTurn            = &Error{Kind: KindNotYourTurn}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrTableFull              = &Error{Kind: KindTableFull}
	ErrAlreadySeated          = &Error{Kind: KindAlreadySeated}
	ErrPowerAlreadyUsed       = &Error{Kind: KindPowerAlreadyUsed}
	ErrInvalidTarget          = &Error{Kind: KindInvalidTarget}
	ErrEmptyPile              = &Error{Kind: KindEmptyPile}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
	ErrForbidden              = &Error{Kind: KindForbidden}
	ErrInvalidArgument        = &Error{Kind: KindInvalidArgument}
)

func newError(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
