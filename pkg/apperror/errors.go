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

// ---- Order Lifecycle (ORD) ----

// ErrInvalidTransition signals an edge not permitted from the current
// state for the acting role. No mutation takes place.
func ErrInvalidTransition(from, to string) *AppError {
	return New("ORD_001", fmt.Sprintf("Transition %s -> %s not permitted", from, to), http.StatusConflict)
}

// ErrStaleState signals the optimistic precondition failed: a concurrent
// transition committed first. Retryable after re-reading the order.
func ErrStaleState() *AppError {
	return New("ORD_002", "Order state changed concurrently, re-read and retry", http.StatusConflict)
}

// ErrReasonTooShort rejects a cancellation whose reason annotation is
// below the minimum length.
func ErrReasonTooShort(min int) *AppError {
	return New("ORD_003", fmt.Sprintf("Cancellation reason must be at least %d characters", min), http.StatusBadRequest)
}

func ErrOrderNotFound() *AppError {
	return New("ORD_004", "Order not found", http.StatusNotFound)
}

func ErrEmptyOrder() *AppError {
	return New("ORD_005", "Order must contain at least one line item", http.StatusBadRequest)
}

// ---- Wallet & Ledger (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient wallet balance", http.StatusPaymentRequired)
}

// ErrDuplicateSettlement signals the (origin_ref, type) idempotency key
// already exists. Callers that retry treat this as success-already-applied.
func ErrDuplicateSettlement() *AppError {
	return New("WAL_002", "Transaction already applied for this origin", http.StatusConflict)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_003", "Invalid amount", http.StatusBadRequest)
}

func ErrAccountNotFound() *AppError {
	return New("WAL_004", "Wallet account not found", http.StatusNotFound)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_002", "Email already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_004", "Actor role not permitted for this operation", http.StatusForbidden)
}

func ErrAgentNotApproved() *AppError {
	return New("AUTH_005", "Delivery agent awaiting admin approval", http.StatusForbidden)
}

func ErrNotFound(entity string) *AppError {
	return New("AUTH_006", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
