package id

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		value := New()
		if len(value) != 26 {
			t.Fatalf("id length = %d, want 26", len(value))
		}
		if value != strings.ToLower(value) {
			t.Fatalf("id %q is not lowercase", value)
		}
		if seen[value] {
			t.Fatalf("duplicate id %q", value)
		}
		seen[value] = true
	}
}
