package crptapi

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDocument matches every *SerializationError.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("transport failure")

	// ErrNilLimiter is returned by New when no limiter is supplied.
	ErrNilLimiter = errors.New("limiter is required")
)

// SerializationError is returned when a document or envelope cannot be
// converted to or from wire format. Nothing is sent when encoding fails.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMalformedDocument, e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrMalformedDocument
}

// TransportError is returned when the request could not be delivered or the
// API answered with a non-2xx status. The rate limit permit is not refunded.
type TransportError struct {
	// StatusCode is zero when no response was received.
	StatusCode int

	// Body is the raw response body for non-2xx answers.
	Body string

	Err error // Underlying network error, if any
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %s", ErrTransport, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IsTransportError checks if an error is a TransportError.
func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// IsSerializationError checks if an error is a SerializationError.
func IsSerializationError(err error) bool {
	var sErr *SerializationError
	return errors.As(err, &sErr)
}
