package utils

import (
	"testing"
)

func TestGeneratePIN(t *testing.T) {
	pin, err := GeneratePIN()
	if err != nil {
		t.Fatalf("GeneratePIN() failed: %v", err)
	}

	if len(pin) != 6 {
		t.Errorf("Expected PIN length 6, got %d", len(pin))
	}

	// Check if all characters are digits
	for i, char := range pin {
		if char < '0' || char > '9' {
			t.Errorf("PIN character at position %d is not a digit: %c", i, char)
		}
	}

	if !ValidatePIN(pin) {
		t.Errorf("generated PIN %s does not validate", pin)
	}
}

func TestGeneratePINIsNotConstant(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		pin, err := GeneratePIN()
		if err != nil {
			t.Fatalf("GeneratePIN() failed: %v", err)
		}
		seen[pin] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected varied PINs, got %d distinct over 16 draws", len(seen))
	}
}

func TestValidatePIN(t *testing.T) {
	tests := []struct {
		pin      string
		expected bool
	}{
		{"123456", true},
		{"000000", true},
		{"999999", true},
		{"12345", false},   // too short
		{"1234567", false}, // too long
		{"12345a", false},  // contains non-digit
		{"", false},        // empty
		{"abc123", false},  // contains letters
	}

	for _, test := range tests {
		result := ValidatePIN(test.pin)
		if result != test.expected {
			t.Errorf("ValidatePIN(%q) = %v, expected %v", test.pin, result, test.expected)
		}
	}
}
