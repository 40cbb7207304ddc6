package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code, so callers can
// branch with errors.Is(err, apperror.ErrPaused()).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger authorization (LED_AUTH) ----

func ErrUnauthorized() *AppError {
	return New("LED_AUTH_001", "Caller lacks the required role", http.StatusForbidden)
}

// ---- Ledger validation (LED_VAL) ----

func ErrZeroAddress() *AppError {
	return New("LED_VAL_001", "Zero address is not allowed", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("LED_VAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrArrayLengthMismatch() *AppError {
	return New("LED_VAL_003", "Recipients and amounts length mismatch", http.StatusBadRequest)
}

func ErrEmptyBatch() *AppError {
	return New("LED_VAL_004", "Batch must contain at least one transfer", http.StatusBadRequest)
}

func ErrFeeRateTooHigh() *AppError {
	return New("LED_VAL_005", "Transfer fee rate exceeds maximum", http.StatusBadRequest)
}

func ErrInvalidAsset() *AppError {
	return New("LED_VAL_006", "Asset cannot be recovered", http.StatusBadRequest)
}

func ErrOverflow() *AppError {
	return New("LED_VAL_007", "Arithmetic overflow", http.StatusUnprocessableEntity)
}

// ---- Ledger state conflicts (LED_STATE) ----

func ErrAlreadyBlacklisted() *AppError {
	return New("LED_STATE_001", "Account is already blacklisted", http.StatusConflict)
}

func ErrNotBlacklisted() *AppError {
	return New("LED_STATE_002", "Account is not blacklisted", http.StatusConflict)
}

func ErrAlreadyPaused() *AppError {
	return New("LED_STATE_003", "Ledger is already paused", http.StatusConflict)
}

func ErrNotPaused() *AppError {
	return New("LED_STATE_004", "Ledger is not paused", http.StatusConflict)
}

// ---- Ledger business rules (LED_BIZ) ----

func ErrInsufficientBalance() *AppError {
	return New("LED_BIZ_001", "Insufficient balance", http.StatusUnprocessableEntity)
}

func ErrSenderBlacklisted() *AppError {
	return New("LED_BIZ_002", "Sender is blacklisted", http.StatusForbidden)
}

func ErrRecipientBlacklisted() *AppError {
	return New("LED_BIZ_003", "Recipient is blacklisted", http.StatusForbidden)
}

func ErrBlacklistedAccount() *AppError {
	return New("LED_BIZ_004", "Account is blacklisted", http.StatusForbidden)
}

func ErrPaused() *AppError {
	return New("LED_BIZ_005", "Transfers are paused", http.StatusServiceUnavailable)
}

func ErrInsufficientAllowance() *AppError {
	return New("LED_BIZ_006", "Insufficient allowance", http.StatusUnprocessableEntity)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrSnapshotFailure(err error) *AppError {
	return Wrap("SYS_004", "Snapshot store failure", http.StatusInternalServerError, err)
}

// ErrMirrorAhead reports a mirror holding events the ledger has not produced
// yet, which happens after restoring a snapshot older than the mirror.
func ErrMirrorAhead(lastSeq, nextSeq uint64) *AppError {
	return New("SYS_005",
		fmt.Sprintf("Event mirror holds seq %d but the ledger starts at %d", lastSeq, nextSeq),
		http.StatusInternalServerError)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrNotFound reports a missing entity.
func ErrNotFound(entity string) *AppError {
	return New("REQ_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrRequestInFlight reports an Idempotency-Key whose first request has not
// finished yet.
func ErrRequestInFlight() *AppError {
	return New("REQ_003", "A request with this Idempotency-Key is still in progress", http.StatusConflict)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}
