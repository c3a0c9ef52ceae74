package common

import (
	"encoding/base64"
	"testing"
)

func TestMakeRandTokenString_LengthAndAlphabet(t *testing.T) {
	const n = 32
	s, err := MakeRandTokenString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("string is not valid raw-url base64: %v", err)
	}
	if len(raw) != n {
		t.Fatalf("expected %d decoded bytes, got %d", n, len(raw))
	}
}

func TestMakeRandTokenString_ZeroSize(t *testing.T) {
	s, err := MakeRandTokenString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestMakeRandTokenString_EntropyHint(t *testing.T) {
	const n = 32
	a, err := MakeRandTokenString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := MakeRandTokenString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Logf("warning: two MakeRandTokenString(%d) results are identical; extremely unlikely", n)
	}
}
