package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrInsufficientCredits, http.StatusPaymentRequired},
		{ErrProviderFailed, http.StatusBadGateway},
		{ErrProviderTimeout, http.StatusGatewayTimeout},
		{ErrFetchFailed, http.StatusBadGateway},
		{ErrStoreWriteFailed, http.StatusInternalServerError},
		{ErrInternalServer, http.StatusInternalServerError},
	}
	for _, c := range cases {
		err := NewAPIError(c.code, "boom", nil)
		assert.Equal(t, c.want, MapErrorToHTTPStatus(err), string(c.code))
	}
}

func TestMapErrorToHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, MapErrorToHTTPStatus(errors.New("boom")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, NewAPIError(ErrProviderTimeout, "deadline elapsed", nil).Retryable())
	assert.True(t, NewAPIError(ErrFetchFailed, "fetch", nil).Retryable())
	assert.False(t, NewAPIError(ErrInsufficientCredits, "broke", nil).Retryable())
	assert.False(t, NewAPIError(ErrProviderFailed, "terminal", nil).Retryable())
}

func TestErrorString(t *testing.T) {
	err := NewAPIError(ErrNotFound, "record missing", nil)
	assert.Equal(t, "NOT_FOUND: record missing", err.Error())
}
