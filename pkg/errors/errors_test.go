package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrInvalidPaging,
		ErrStoreUnavailable, ErrPartialBulkFailure, ErrInternal,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotErrorIs(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	withInner := &AppError{Code: "STORE_UNAVAILABLE", Message: "down", Err: inner}
	assert.Equal(t, "STORE_UNAVAILABLE: down: connection refused", withInner.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "product not found"}
	assert.Equal(t, "NOT_FOUND: product not found", bare.Error())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("product", "abc"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("product", "abc"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists},
		{"invalid input", InvalidInput("bad"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"invalid paging", InvalidPagingParameter("page must be >= 1"), "INVALID_PAGING_PARAMETER", http.StatusBadRequest, ErrInvalidPaging},
		{"store unavailable", StoreUnavailable(errors.New("dial tcp")), "STORE_UNAVAILABLE", http.StatusServiceUnavailable, ErrStoreUnavailable},
		{"partial bulk", PartialBulkFailure(2, 5), "PARTIAL_BULK_FAILURE", http.StatusMultiStatus, ErrPartialBulkFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestNotFound_MessageNamesResource(t *testing.T) {
	err := NotFound("product", "abc-123")
	assert.Contains(t, err.Message, "product")
	assert.Contains(t, err.Message, "abc-123")
}

func TestStoreUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("circuit breaker is open")
	err := StoreUnavailable(cause)

	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Message, "circuit")
}

func TestPartialBulkFailure_Message(t *testing.T) {
	assert.Equal(t, "2 of 5 documents were not indexed", PartialBulkFailure(2, 5).Message)
}

func TestInternal_WrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Internal(cause)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, cause)
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "get product")
	assert.Equal(t, "get product: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", fmt.Errorf("wrap: %w", InvalidPagingParameter("x")), http.StatusBadRequest},
		{"not found", fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{"already exists", ErrAlreadyExists, http.StatusConflict},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"invalid paging", ErrInvalidPaging, http.StatusBadRequest},
		{"store unavailable", fmt.Errorf("search: %w", ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"partial bulk", ErrPartialBulkFailure, http.StatusMultiStatus},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
