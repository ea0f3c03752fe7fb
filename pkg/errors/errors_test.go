package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewAndWrapFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "plain",
			err:  New(ErrCodeLayoutNotReady, "display rect %gx%g", 0.0, 300.0),
			want: "LAYOUT_NOT_READY: display rect 0x300",
		},
		{
			name: "wrapped cause",
			err:  Wrap(ErrCodeUploadFailed, New(ErrCodeInvalidFormat, "unrecognised image"), "upload %s", "a.png"),
			want: "UPLOAD_FAILED: upload a.png: INVALID_FORMAT: unrecognised image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapUnwrapsToCause(t *testing.T) {
	cause := &ServiceError{Status: 500, Message: "solver crashed"}
	err := Wrap(ErrCodeReconstructionFailed, cause, "reconstruct img-1")

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want the service error", errors.Unwrap(err))
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if GetCode(err) != ErrCodeReconstructionFailed {
		t.Errorf("GetCode() = %q", GetCode(err))
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeNetwork,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeFetchFailed, New(ErrCodeNetwork, "inner"), "outer"),
			code:     ErrCodeFetchFailed,
			expected: true,
		},
		{
			name:     "inner code of wrapped error",
			err:      Wrap(ErrCodeFetchFailed, New(ErrCodeNetwork, "inner"), "outer"),
			code:     ErrCodeNetwork,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("load: %w", New(ErrCodeUploadFailed, "upload")),
			code:     ErrCodeUploadFailed,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeUnsupportedTool, "test"),
			expected: ErrCodeUnsupportedTool,
		},
		{
			name:     "outermost of chain",
			err:      fmt.Errorf("session: %w", Wrap(ErrCodeFetchFailed, New(ErrCodeNotFound, "img-9"), "gradients")),
			expected: ErrCodeFetchFailed,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestServiceError(t *testing.T) {
	t.Run("with code", func(t *testing.T) {
		err := &ServiceError{Status: 404, Code: "IMAGE_NOT_FOUND", Message: "No image abc"}
		expected := "service error IMAGE_NOT_FOUND (status 404): No image abc"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("without code", func(t *testing.T) {
		err := &ServiceError{Status: 502, Message: "bad gateway"}
		expected := "service error (status 502): bad gateway"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("as cause", func(t *testing.T) {
		cause := &ServiceError{Status: 400, Code: "INVALID_REQUEST"}
		err := Wrap(ErrCodeReconstructionFailed, cause, "reconstruct")
		var se *ServiceError
		if !errors.As(err, &se) || se.Code != "INVALID_REQUEST" {
			t.Errorf("errors.As() did not find the service error in %v", err)
		}
	})
}
