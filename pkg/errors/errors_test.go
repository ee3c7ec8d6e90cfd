package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_StatusAndRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		status    int
		retryable bool
	}{
		{"bad request", NewBadRequestError("bad"), http.StatusBadRequest, false},
		{"validation", NewValidationError("query is required"), http.StatusBadRequest, false},
		{"not found", NewNotFoundError("Route"), http.StatusNotFound, false},
		{"unsupported media", NewAppError(CodeUnsupportedMedia, "json only", ""), http.StatusUnsupportedMediaType, false},
		{"rate limited", NewTooManyRequestsError(), http.StatusTooManyRequests, true},
		{"store unavailable", NewStoreUnavailableError(stderrors.New("timeout")), http.StatusServiceUnavailable, true},
		{"session store", NewSessionStoreError("load session", stderrors.New("redis down")), http.StatusServiceUnavailable, true},
		{"timeout", NewTimeoutError(context.DeadlineExceeded), http.StatusGatewayTimeout, true},
		{"internal", NewInternalError(""), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode())
			assert.Equal(t, tt.retryable, tt.err.Retryable())
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	store := NewStoreUnavailableError(stderrors.New("timeout"))
	wrapped := fmt.Errorf("search: %w", store)
	assert.Same(t, store, Wrap(wrapped, "ignored"))
	assert.True(t, Is(wrapped, CodeStoreUnavailable))

	cause := stderrors.New("boom")
	internal := Wrap(cause, "Search failed")
	require.NotNil(t, internal)
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, "Search failed", internal.Message)
	assert.ErrorIs(t, internal, cause)
	assert.Equal(t, CodeInternal, GetCode(cause))
}

func TestNewTimeoutError(t *testing.T) {
	err := NewTimeoutError(context.DeadlineExceeded)

	assert.Equal(t, CodeTimeout, err.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, true, err.Metadata["retryable"])
	assert.True(t, ToErrorResponse(err, "req-2").Error.Retryable)
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "query", Tag: "required_without", Message: "query is required"},
		{Field: "page_size", Tag: "lte", Value: 500, Message: "page_size must be at most 100"},
	})

	assert.Equal(t, CodeValidationFailed, err.Code)
	assert.Equal(t, "query is required; page_size must be at most 100", err.Details)
	assert.Len(t, err.Metadata["validation_errors"], 2)
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(NewStoreUnavailableError(stderrors.New("timeout")), "req-1")

	assert.False(t, resp.Success)
	assert.Equal(t, CodeStoreUnavailable, resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.NotEmpty(t, resp.Error.Timestamp)
	assert.Nil(t, resp.Partial)
}

func TestAppError_ErrorString(t *testing.T) {
	assert.Equal(t, "BAD_REQUEST: bad", NewBadRequestError("bad").Error())
	assert.Equal(t, "VALIDATION_FAILED: Validation failed (query is required)", NewValidationError("query is required").Error())
}
