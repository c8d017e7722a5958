package webquery

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteErrorMatching(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusConflict, ErrConflict},
		{http.StatusPreconditionFailed, ErrPreconditionFailed},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", newRemoteError(tt.status, nil))
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, ErrRemote)
			assert.True(t, IsRemoteError(err))
			assert.False(t, IsConfigurationError(err))
		})
	}

	err := newRemoteError(http.StatusInternalServerError, nil)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "webquery: remote service returned 500: Internal Server Error", err.Error())
}

func TestNewRemoteErrorParsesBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		code     string
		message  string
		target   string
		rendered string
	}{
		{
			name:     "v4",
			body:     `{"error":{"code":"E1","message":"Name is required","target":"Name","details":[{"code":"D1","message":"empty"}]}}`,
			code:     "E1",
			message:  "Name is required",
			target:   "Name",
			rendered: "webquery: remote service returned 400 (E1): Name is required",
		},
		{
			name:     "v2",
			body:     `{"error":{"code":"SY/530","message":{"lang":"en","value":"Resource not found"}}}`,
			code:     "SY/530",
			message:  "Resource not found",
			rendered: "webquery: remote service returned 400 (SY/530): Resource not found",
		},
		{
			name:     "plain text",
			body:     `Bad things happened`,
			message:  "Bad Request",
			rendered: "webquery: remote service returned 400: Bad Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newRemoteError(http.StatusBadRequest, []byte(tt.body))
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.target, err.Target)
			assert.Equal(t, tt.rendered, err.Error())
		})
	}

	err := newRemoteError(http.StatusBadRequest, []byte(`{"error":{"code":"E1","message":"m","details":[{"code":"D1","message":"empty"}]}}`))
	assert.Len(t, err.Details, 1)
}

func TestRemoteErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &RemoteError{StatusCode: http.StatusBadGateway, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), ": cause")
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "configuration", errorType(&ConfigError{Message: "x"}))
	assert.Equal(t, "mapping", errorType(&MappingError{Row: -1}))
	assert.Equal(t, "remote", errorType(newRemoteError(http.StatusBadRequest, nil)))
	assert.Equal(t, "transport", errorType(errors.New("dial tcp: refused")))
}
