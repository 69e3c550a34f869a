package utils

import (
	"fmt"

	"github.com/sethvargo/go-password/password"
)

const pinLength = 6

// GeneratePIN returns a cryptographically secure 6-digit gateway PIN.
func GeneratePIN() (string, error) {
	pin, err := password.Generate(pinLength, pinLength, 0, false, true)
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return pin, nil
}

// ValidatePIN checks if a string is a valid 6-digit PIN.
func ValidatePIN(pin string) bool {
	if len(pin) != pinLength {
		return false
	}

	for _, char := range pin {
		if char < '0' || char > '9' {
			return false
		}
	}

	return true
}
