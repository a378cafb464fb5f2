package utils

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// ValidatePINFormat enforces the 4-6 digit PIN rule used on operator badges.
func ValidatePINFormat(pin string) error {
	if !pinPattern.MatchString(pin) {
		return fmt.Errorf("PIN must be 4-6 digits")
	}
	return nil
}

func HashPIN(pin string) (string, error) {
	if err := ValidatePINFormat(pin); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("Failed to hash PIN: %w", err)
	}
	return string(hashed), nil
}

func VerifyPIN(pin, pinHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(pin)) == nil
}
