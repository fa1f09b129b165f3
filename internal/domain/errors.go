package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrValidation       = errors.New("validation error")
	ErrTransport        = errors.New("transport error")
	ErrServer           = errors.New("server error")
	ErrJobFailure       = errors.New("job failure")
	ErrProtocol         = errors.New("protocol error")
	ErrCancelled        = errors.New("cancelled")
)

// ErrorKind classifies a user-visible failure.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindTransport
	KindServer
	KindJobFailure
	KindProtocol
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindJobFailure:
		return "job_failure"
	case KindProtocol:
		return "protocol"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindTransport:
		return ErrTransport
	case KindServer:
		return ErrServer
	case KindJobFailure:
		return ErrJobFailure
	case KindProtocol:
		return ErrProtocol
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// Error is a failure that ends up in front of the user. Message is the exact
// display text; Err keeps the underlying cause for logs.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

// NewError builds an Error without an underlying cause.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches the sentinel for the error's kind, so errors.Is(err, ErrServer)
// works without unwrapping the cause.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DisplayMessage extracts the text to show for err. Errors that are not
// *Error fall back to err.Error().
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
