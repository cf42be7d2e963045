package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by the store, service and transport layers.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidPaging      = errors.New("invalid paging parameter")
	ErrStoreUnavailable   = errors.New("document store unavailable")
	ErrPartialBulkFailure = errors.New("partial bulk failure")
	ErrInternal           = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, id string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with id %s already exists", resource, id),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// InvalidPagingParameter creates a 400 error for out-of-range page or size values.
func InvalidPagingParameter(message string) *AppError {
	return &AppError{
		Code:    "INVALID_PAGING_PARAMETER",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidPaging,
	}
}

// StoreUnavailable creates a 503 error. The cause is kept for logging and
// is never rendered to clients.
func StoreUnavailable(cause error) *AppError {
	return &AppError{
		Code:    "STORE_UNAVAILABLE",
		Message: "the document store is unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     errors.Join(ErrStoreUnavailable, cause),
	}
}

// PartialBulkFailure creates a 207 error for bulk requests where some items
// were rejected by the store.
func PartialBulkFailure(failed, total int) *AppError {
	return &AppError{
		Code:    "PARTIAL_BULK_FAILURE",
		Message: fmt.Sprintf("%d of %d documents were not indexed", failed, total),
		Status:  http.StatusMultiStatus,
		Err:     ErrPartialBulkFailure,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidPaging):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPartialBulkFailure):
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}
