package apierror

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	// Launch orchestration codes.
	ErrLaunchDisabled           ErrorCode = "LAUNCH_DISABLED"
	ErrAlreadyLaunched          ErrorCode = "ALREADY_LAUNCHED"
	ErrLaunchInProgress         ErrorCode = "LAUNCH_IN_PROGRESS"
	ErrLaunchFailedRetryBlocked ErrorCode = "LAUNCH_FAILED_RETRY_BLOCKED"
	ErrCapExceeded              ErrorCode = "CAP_EXCEEDED"
	ErrSlippageInvalid          ErrorCode = "SLIPPAGE_INVALID"
	ErrMintMismatch             ErrorCode = "MINT_MISMATCH"

	// Publish orchestration codes.
	ErrTelegramDisabled          ErrorCode = "TELEGRAM_DISABLED"
	ErrTelegramConfigMissing     ErrorCode = "TELEGRAM_CONFIG_MISSING"
	ErrTelegramNotReady          ErrorCode = "TELEGRAM_NOT_READY"
	ErrTelegramPublishInProgress ErrorCode = "TELEGRAM_PUBLISH_IN_PROGRESS"
	ErrTelegramRetryBlocked      ErrorCode = "TELEGRAM_RETRY_BLOCKED"
	ErrXDisabled                 ErrorCode = "X_DISABLED"
	ErrXConfigMissing            ErrorCode = "X_CONFIG_MISSING"
	ErrXNotReady                 ErrorCode = "X_NOT_READY"
	ErrXPublishInProgress        ErrorCode = "X_PUBLISH_IN_PROGRESS"
	ErrXRetryBlocked             ErrorCode = "X_RETRY_BLOCKED"

	// Remote dependency codes.
	ErrExternalCallFailed ErrorCode = "EXTERNAL_CALL_FAILED"
	ErrResponseInvalid    ErrorCode = "RESPONSE_INVALID"
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

// CapDetail carries the requested and configured maximum values for a
// CAP_EXCEEDED error so callers can self-diagnose without logs.
type CapDetail struct {
	Field     string  `json:"field"`
	Requested float64 `json:"requested"`
	Max       float64 `json:"max"`
}

// MissingKeysDetail names every configuration key absent from a
// *_CONFIG_MISSING error.
type MissingKeysDetail struct {
	MissingKeys []string `json:"missingKeys"`
}

func MapErrorToHTTPStatus(err error) int {
	if apiErr, ok := err.(APIError); ok {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict, ErrAlreadyLaunched, ErrLaunchInProgress, ErrLaunchFailedRetryBlocked,
			ErrTelegramPublishInProgress, ErrTelegramRetryBlocked,
			ErrXPublishInProgress, ErrXRetryBlocked:
			return http.StatusConflict
		case ErrLaunchDisabled, ErrTelegramDisabled, ErrXDisabled:
			return http.StatusForbidden
		case ErrInvalidInput, ErrBadRequest, ErrCapExceeded, ErrSlippageInvalid,
			ErrTelegramConfigMissing, ErrTelegramNotReady, ErrXConfigMissing, ErrXNotReady:
			return http.StatusBadRequest
		case ErrExternalCallFailed, ErrResponseInvalid, ErrMintMismatch:
			return http.StatusBadGateway
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
