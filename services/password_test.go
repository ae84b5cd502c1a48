package services

import (
	"strings"
	"testing"
)

func TestGenerateSecurePassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		pw, err := GenerateSecurePassword()
		if err != nil {
			t.Fatalf("GenerateSecurePassword: %v", err)
		}
		if len(pw) != passwordLen {
			t.Fatalf("len = %d, want %d", len(pw), passwordLen)
		}
		for _, set := range passwordClasses {
			if !strings.ContainsAny(pw, set) {
				t.Errorf("password %q misses a character from %q", pw, set)
			}
		}
		seen[pw] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct passwords out of 50", len(seen))
	}
}
