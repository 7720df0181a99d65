package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError(ErrCodeStorageFailed, "cannot save scan", cause)

	assert.Equal(t, "STORAGE_FAILED: cannot save scan (caused by: disk full)", err.Error())
	assert.Same(t, cause, stderrors.Unwrap(err))

	plain := NewValidationError(ErrCodeInvalidRequest, "bad input", nil)
	assert.Equal(t, "INVALID_REQUEST: bad input", plain.Error())
}

func TestAppErrorIsMatchesTypeAndCode(t *testing.T) {
	sentinel := NewNotFoundError(ErrCodeScanNotFound, "scan not found", nil)
	wrapped := fmt.Errorf("lookup: %w", NewNotFoundError(ErrCodeScanNotFound, "scan 42 not found", nil))

	assert.True(t, stderrors.Is(wrapped, sentinel))
	assert.False(t, stderrors.Is(wrapped, NewNotFoundError(ErrCodeResumeNotFound, "", nil)))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError(ErrCodeInvalidRequest, "x", nil), http.StatusBadRequest},
		{"not found", NewNotFoundError(ErrCodeScanNotFound, "x", nil), http.StatusNotFound},
		{"auth", NewAuthError(ErrCodeInvalidToken, "x", nil), http.StatusUnauthorized},
		{"ai", NewAIError(ErrCodeAIServiceFailed, "x", nil), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("outer: %w", NewNotFoundError(ErrCodeResumeNotFound, "x", nil)), http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	err := NewNotFoundError(ErrCodeScanNotFound, "missing", nil).WithContext("scan_id", "7")
	assert.Equal(t, "7", err.Context["scan_id"])
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level); err != nil {
			t.Errorf("New(%q) returned error: %v", level, err)
		}
	}
	if _, err := New("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
