package checkin

import (
	"strings"
	"testing"
)

func TestGenerateCodeLength(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		code, err := GenerateCode(n)
		if err != nil {
			t.Fatalf("GenerateCode(%d): %v", n, err)
		}
		if len(code) != n {
			t.Errorf("GenerateCode(%d) = %q, want %d characters", n, code, n)
		}
	}
}

func TestGenerateCodeDefaultsLength(t *testing.T) {
	code, err := GenerateCode(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != DefaultCodeLength {
		t.Errorf("GenerateCode(0) = %q, want %d characters", code, DefaultCodeLength)
	}
}

func TestGenerateCodeAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(6)
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q, not in alphabet", code, r)
			}
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("code %q is not uppercase", code)
		}
	}
}

func TestGenerateCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode(8)
		if err != nil {
			t.Fatal(err)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("expected mostly distinct codes, got %d distinct of 50", len(seen))
	}
}
