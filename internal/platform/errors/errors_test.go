package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeHandleTaken, "handle taken")
	if !Is(err, CodeHandleTaken) {
		t.Fatal("Is did not match the error's own code")
	}
	if Is(err, CodeNotFound) {
		t.Fatal("Is matched a different code")
	}
	if Is(nil, CodeNotFound) {
		t.Fatal("Is matched nil")
	}

	wrapped := fmt.Errorf("operation failed: %w", err)
	if CodeOf(wrapped) != CodeHandleTaken {
		t.Fatalf("CodeOf(wrapped) = %s, want %s", CodeOf(wrapped), CodeHandleTaken)
	}
	if CodeOf(stderrors.New("plain")) != CodeUnknown {
		t.Fatal("plain error should carry CodeUnknown")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodePaymentFailed, "fee transfer failed", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("wrapped cause lost from chain")
	}
	if !stderrors.Is(err, New(CodePaymentFailed, "different message")) {
		t.Fatal("errors.Is by code failed across messages")
	}
}
