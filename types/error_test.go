package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrResolution, "card fetch failed").
		WithCause(root).
		WithHTTPStatus(400).
		WithRetryable(true).
		WithAgent("http://localhost:10001/")

	if GetErrorCode(err) != ErrResolution {
		t.Fatalf("expected code %s, got %s", ErrResolution, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestGetErrorCode_Wrapped(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrNotFound, "no such agent").WithHTTPStatus(404)
	wrapped := fmt.Errorf("unregister: %w", inner)

	if GetErrorCode(wrapped) != ErrNotFound {
		t.Fatalf("expected code through wrapping, got %s", GetErrorCode(wrapped))
	}
	if !IsErrorCode(wrapped, ErrNotFound) {
		t.Fatalf("expected IsErrorCode to match through wrapping")
	}
	if got := HTTPStatusOf(wrapped, 500); got != 404 {
		t.Fatalf("expected status 404, got %d", got)
	}
}

func TestHTTPStatusOf_Fallback(t *testing.T) {
	t.Parallel()

	if got := HTTPStatusOf(errors.New("plain"), 500); got != 500 {
		t.Fatalf("expected fallback 500, got %d", got)
	}
	if got := HTTPStatusOf(NewError(ErrInternalError, "boom"), 500); got != 500 {
		t.Fatalf("expected fallback for zero status, got %d", got)
	}
}
