package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeNotFound, http.StatusNotFound, false},
		{CodeInvalidState, http.StatusUnprocessableEntity, false},
		{CodeBelowMinimum, http.StatusUnprocessableEntity, false},
		{CodeInsufficientBalance, http.StatusUnprocessableEntity, false},
		{CodeInvalidDestination, http.StatusUnprocessableEntity, false},
		{CodeAlreadyResolved, http.StatusConflict, false},
		{CodeConflict, http.StatusConflict, false},
		{CodeStoreUnavailable, http.StatusServiceUnavailable, true},
	}
	for _, tc := range tests {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.code, meta.HTTPStatus, tc.status)
		}
		if meta.Retryable != tc.retryable {
			t.Errorf("%s: retryable = %v, want %v", tc.code, meta.Retryable, tc.retryable)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to internal metadata, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("disk on fire")
	err := Wrap(CodeStoreUnavailable, cause, "write order")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should unwrap to its cause")
	}
	if err.Code() != CodeStoreUnavailable {
		t.Fatalf("code = %s", err.Code())
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeInsufficientBalance, "short by 10.00")
	wrapped := fmt.Errorf("request payout: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error in chain")
	}
	if typed.Code() != CodeInsufficientBalance {
		t.Fatalf("code = %s", typed.Code())
	}
	if !IsCode(wrapped, CodeInsufficientBalance) {
		t.Fatal("IsCode should match through wrapping")
	}
}

func TestAsReturnsNilForPlainErrors(t *testing.T) {
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain error should not convert")
	}
	if As(nil) != nil {
		t.Fatal("nil should not convert")
	}
}
