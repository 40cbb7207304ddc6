package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("LED_BIZ_001", "Insufficient balance", http.StatusUnprocessableEntity),
			expected: "[LED_BIZ_001] Insufficient balance",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("LED_VAL_001", "test", http.StatusBadRequest).Unwrap())
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("batch leg 2: %w", ErrInsufficientBalance())

	assert.True(t, errors.Is(err, ErrInsufficientBalance()))
	assert.False(t, errors.Is(err, ErrPaused()))
	assert.False(t, ErrPaused().Is(errors.New("plain")))
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"Unauthorized", ErrUnauthorized(), "LED_AUTH_001", 403},
		{"ZeroAddress", ErrZeroAddress(), "LED_VAL_001", 400},
		{"InvalidAmount", ErrInvalidAmount(), "LED_VAL_002", 400},
		{"ArrayLengthMismatch", ErrArrayLengthMismatch(), "LED_VAL_003", 400},
		{"EmptyBatch", ErrEmptyBatch(), "LED_VAL_004", 400},
		{"FeeRateTooHigh", ErrFeeRateTooHigh(), "LED_VAL_005", 400},
		{"InvalidAsset", ErrInvalidAsset(), "LED_VAL_006", 400},
		{"Overflow", ErrOverflow(), "LED_VAL_007", 422},
		{"AlreadyBlacklisted", ErrAlreadyBlacklisted(), "LED_STATE_001", 409},
		{"NotBlacklisted", ErrNotBlacklisted(), "LED_STATE_002", 409},
		{"AlreadyPaused", ErrAlreadyPaused(), "LED_STATE_003", 409},
		{"NotPaused", ErrNotPaused(), "LED_STATE_004", 409},
		{"InsufficientBalance", ErrInsufficientBalance(), "LED_BIZ_001", 422},
		{"SenderBlacklisted", ErrSenderBlacklisted(), "LED_BIZ_002", 403},
		{"RecipientBlacklisted", ErrRecipientBlacklisted(), "LED_BIZ_003", 403},
		{"BlacklistedAccount", ErrBlacklistedAccount(), "LED_BIZ_004", 403},
		{"Paused", ErrPaused(), "LED_BIZ_005", 503},
		{"InsufficientAllowance", ErrInsufficientAllowance(), "LED_BIZ_006", 422},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.False(t, seen[tt.code], "duplicate code %s", tt.code)
			seen[tt.code] = true
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	snapErr := ErrSnapshotFailure(inner)
	assert.Equal(t, "SYS_004", snapErr.Code)
	assert.True(t, errors.Is(snapErr, inner))

	assert.Equal(t, "SYS_001", InternalError(inner).Code)

	ahead := ErrMirrorAhead(41, 30)
	assert.Equal(t, "SYS_005", ahead.Code)
	assert.Contains(t, ahead.Message, "41")
	assert.Contains(t, ahead.Message, "30")
}

func TestRequestErrors(t *testing.T) {
	assert.Equal(t, 429, ErrRateLimitExceeded().HTTPStatus)
	assert.Equal(t, 401, ErrInvalidToken().HTTPStatus)

	nf := ErrNotFound("Account")
	assert.Contains(t, nf.Message, "Account")
	assert.Equal(t, 404, nf.HTTPStatus)

	inFlight := ErrRequestInFlight()
	assert.Equal(t, "REQ_003", inFlight.Code)
	assert.Equal(t, 409, inFlight.HTTPStatus)

	v := Validation("bad address")
	assert.Equal(t, "REQ_001", v.Code)
	assert.Equal(t, "bad address", v.Message)
}
