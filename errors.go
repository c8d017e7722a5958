package webquery

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nlstn/go-webquery/internal/batch"
	"github.com/nlstn/go-webquery/internal/dataerrors"
	"github.com/nlstn/go-webquery/internal/request"
	"github.com/nlstn/go-webquery/internal/response"
)

// Sentinel errors. These can be used with errors.Is() for error handling.
var (
	// ErrConfiguration matches every error raised because a query or object
	// cannot be expressed for the target service.
	ErrConfiguration = dataerrors.ErrConfiguration

	// ErrMapping matches every error raised while mapping a response.
	ErrMapping = dataerrors.ErrMapping

	// ErrCountNotSupported is returned by Count for dialects without a
	// count endpoint.
	ErrCountNotSupported = request.ErrCountNotSupported

	// ErrEmptyBatch is returned when a batch has no requests.
	ErrEmptyBatch = batch.ErrEmptyBatch

	// ErrRemote matches every error reported by the remote service.
	ErrRemote = errors.New("webquery: remote error")

	// ErrNotFound indicates the remote service answered 404 Not Found.
	ErrNotFound = errors.New("webquery: not found")

	// ErrUnauthorized indicates the remote service answered 401 Unauthorized.
	ErrUnauthorized = errors.New("webquery: unauthorized")

	// ErrForbidden indicates the remote service answered 403 Forbidden.
	ErrForbidden = errors.New("webquery: forbidden")

	// ErrConflict indicates the remote service answered 409 Conflict.
	ErrConflict = errors.New("webquery: conflict")

	// ErrPreconditionFailed indicates the remote service answered 412
	// Precondition Failed.
	ErrPreconditionFailed = errors.New("webquery: precondition failed")
)

// ConfigError and MappingError carry the attribute, comparator, operator
// and navigation step that caused an error.
type (
	ConfigError  = dataerrors.ConfigError
	MappingError = dataerrors.MappingError
)

// ErrorDetail represents additional error information reported by the
// remote service.
type ErrorDetail = response.ErrorDetail

// RemoteError is a non-2xx answer of the remote service.
type RemoteError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Code is the service-defined error code, if any.
	Code string

	// Message is the error message reported by the service, or the status
	// text if the body carried none.
	Message string

	// Target optionally identifies the part of the request that caused the error.
	Target string

	// Details provides additional error information.
	Details []ErrorDetail

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("webquery: remote service returned %d", e.StatusCode)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is() and errors.As().
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is matches ErrRemote and the sentinel of the status code.
func (e *RemoteError) Is(target error) bool {
	if target == ErrRemote {
		return true
	}
	sentinel := statusSentinel(e.StatusCode)
	return sentinel != nil && target == sentinel
}

func statusSentinel(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	case http.StatusPreconditionFailed:
		return ErrPreconditionFailed
	}
	return nil
}

// newRemoteError builds a RemoteError from an error response.
func newRemoteError(status int, body []byte) *RemoteError {
	e := &RemoteError{StatusCode: status}
	if se := response.ParseError(body); se != nil {
		e.Code = se.Code
		e.Message = se.Message
		e.Target = se.Target
		e.Details = se.Details
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// IsConfigurationError reports whether err was caused by an object or query
// that cannot be expressed for the service.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsMappingError reports whether err was caused by a response that could not
// be mapped.
func IsMappingError(err error) bool {
	return errors.Is(err, ErrMapping)
}

// IsRemoteError reports whether err was reported by the remote service.
func IsRemoteError(err error) bool {
	return errors.Is(err, ErrRemote)
}

// errorType classifies err for metrics.
func errorType(err error) string {
	switch {
	case IsConfigurationError(err):
		return "configuration"
	case IsMappingError(err):
		return "mapping"
	case IsRemoteError(err):
		return "remote"
	}
	return "transport"
}
