package license

import (
	"strings"
	"testing"
)

func TestNewKeyFormat(t *testing.T) {
	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}

	if !strings.HasPrefix(key, KeyPrefix) {
		t.Errorf("key %q missing prefix %q", key, KeyPrefix)
	}
	if len(key) != len(KeyPrefix)+24 {
		t.Errorf("key %q length = %d, want %d", key, len(key), len(KeyPrefix)+24)
	}
	if !ValidKeyFormat(key) {
		t.Errorf("ValidKeyFormat(%q) = false, want true", key)
	}
}

func TestNewKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		key, err := NewKey()
		if err != nil {
			t.Fatalf("NewKey() error = %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

func TestValidKeyFormat(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"EC-0123456789abcdef01234567", true},
		{"EC-0123456789ABCDEF01234567", false}, // uppercase hex never issued
		{"EC-0123456789abcdef0123456", false},  // too short
		{"XX-0123456789abcdef01234567", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidKeyFormat(tt.key); got != tt.want {
			t.Errorf("ValidKeyFormat(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
