package apierror

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrForbidden      ErrorCode = "FORBIDDEN"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	// Policy fault: the account cannot afford the operation. Distinct from
	// infrastructure faults so clients can upsell instead of retrying.
	ErrInsufficientCredits ErrorCode = "INSUFFICIENT_CREDITS"

	// Provider and persistence faults of the job workflow.
	ErrProviderFailed   ErrorCode = "PROVIDER_FAILED"
	ErrProviderTimeout  ErrorCode = "PROVIDER_TIMEOUT"
	ErrFetchFailed      ErrorCode = "FETCH_FAILED"
	ErrStoreWriteFailed ErrorCode = "STORE_WRITE_FAILED"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Retryable reports whether a caller may safely retry the operation that
// produced this error. Timeouts are retryable with caution: the provider-side
// job may still complete after we gave up.
func (e APIError) Retryable() bool {
	switch e.Code {
	case ErrProviderTimeout, ErrFetchFailed, ErrStoreWriteFailed, ErrInternalServer:
		return true
	}
	return false
}

func MapErrorToHTTPStatus(err error) int {
	if apiErr, ok := err.(APIError); ok {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrForbidden:
			return http.StatusForbidden
		case ErrConflict:
			return http.StatusConflict
		case ErrInvalidInput, ErrBadRequest:
			return http.StatusBadRequest
		case ErrUnauthorized:
			return http.StatusUnauthorized
		case ErrInsufficientCredits:
			return http.StatusPaymentRequired
		case ErrProviderFailed, ErrFetchFailed:
			return http.StatusBadGateway
		case ErrProviderTimeout:
			return http.StatusGatewayTimeout
		case ErrStoreWriteFailed, ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
