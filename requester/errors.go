package requester

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// TransportErrorCode classifies failures that happen before a response exists.
type TransportErrorCode int

const (
	// ErrCodeConnection covers refused connections, DNS and broken reads.
	ErrCodeConnection TransportErrorCode = iota
	// ErrCodeTimeout means the context or client deadline expired.
	ErrCodeTimeout
	// ErrCodeEncoding means the request could not be built.
	ErrCodeEncoding
)

func (c TransportErrorCode) String() string {
	switch c {
	case ErrCodeConnection:
		return "connection"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

// TransportError is returned by HTTPTransport when no response was received.
type TransportError struct {
	Code   TransportErrorCode
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("requester: %s: %s %s: %v", e.Code, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DeferredError is a transport failure whose real reason is produced later.
// The default OnTransportError hook replaces it with Reason, one level only:
// a Reason that is itself a DeferredError is returned as is.
type DeferredError interface {
	error
	Reason(ctx context.Context) error
}

// NestedError is a DeferredError whose reason is already known.
type NestedError struct {
	Err error
}

func (e *NestedError) Error() string {
	return fmt.Sprintf("requester: nested transport failure: %v", e.Err)
}

func (e *NestedError) Unwrap() error { return e.Err }

// Reason returns the wrapped error.
func (e *NestedError) Reason(context.Context) error { return e.Err }

// ApplicationError is a well-formed response with a non-2xx status other
// than 413.
type ApplicationError struct {
	StatusCode int
	// Body is the decoded JSON body, or the text body when it is not JSON.
	Body   any
	Header http.Header
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("requester: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsApplicationError reports whether err wraps an *ApplicationError.
func IsApplicationError(err error) bool {
	_, ok := AsApplicationError(err)
	return ok
}

// AsApplicationError extracts an *ApplicationError from err's chain.
func AsApplicationError(err error) (*ApplicationError, bool) {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsTimeout reports whether err wraps a timeout *TransportError.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Code == ErrCodeTimeout
}
