package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorError(t *testing.T) {
	err := NewAPIError(ErrNotFound, "launchpack missing", nil)
	assert.Equal(t, "NOT_FOUND: launchpack missing", err.Error())
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrLaunchInProgress, http.StatusConflict},
		{ErrLaunchFailedRetryBlocked, http.StatusConflict},
		{ErrTelegramPublishInProgress, http.StatusConflict},
		{ErrXPublishInProgress, http.StatusConflict},
		{ErrLaunchDisabled, http.StatusForbidden},
		{ErrTelegramDisabled, http.StatusForbidden},
		{ErrXDisabled, http.StatusForbidden},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrCapExceeded, http.StatusBadRequest},
		{ErrSlippageInvalid, http.StatusBadRequest},
		{ErrTelegramConfigMissing, http.StatusBadRequest},
		{ErrExternalCallFailed, http.StatusBadGateway},
		{ErrResponseInvalid, http.StatusBadGateway},
		{ErrMintMismatch, http.StatusBadGateway},
		{ErrInternalServer, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		got := MapErrorToHTTPStatus(NewAPIError(tc.code, "msg", nil))
		assert.Equal(t, tc.want, got, "code %s", tc.code)
	}
}

func TestMapErrorToHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, MapErrorToHTTPStatus(errors.New("boom")))
}
