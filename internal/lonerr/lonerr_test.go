package lonerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{NoMemoryAvailable, "NoMemoryAvailable"},
		{BadAddressType, "BadAddressType"},
		{InvalidMessageMode, "InvalidMessageMode"},
		{InvalidDomain, "InvalidDomain"},
		{WritePastEndOfNetBuffer, "WritePastEndOfNetBuffer"},
		{WritePastEndOfApplBuffer, "WritePastEndOfApplBuffer"},
		{NoBufferAvailable, "NoBufferAvailable"},
		{PersistentDataFailure, "PersistentDataFailure"},
		{StackNotInitialized, "StackNotInitialized"},
		{UnknownPdu, "UnknownPdu"},
		{Code(99), "Unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("Code(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestNewError(t *testing.T) {
	err := New(InvalidDomain, "domain index 4 out of range")
	if err.Code != InvalidDomain {
		t.Fatalf("Code = %v, want InvalidDomain", err.Code)
	}
	want := "InvalidDomain: domain index 4 out of range"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("short read")
	err := Wrap(PersistentDataFailure, "checksum validation", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
	if err.Unwrap() != cause {
		t.Fatal("Unwrap did not return cause")
	}
}

func TestIs(t *testing.T) {
	err := New(NoBufferAvailable, "nwOutQ full")
	if !Is(err, NoBufferAvailable) {
		t.Fatal("Is should match same code")
	}
	if Is(err, InvalidDomain) {
		t.Fatal("Is should not match different code")
	}
	if Is(errors.New("plain error"), NoBufferAvailable) {
		t.Fatal("Is should not match a non-*Error")
	}

	wrapped := fmt.Errorf("retry: %w", err)
	if !Is(wrapped, NoBufferAvailable) {
		t.Fatal("Is should see through fmt.Errorf wrapping via errors.As")
	}
}
