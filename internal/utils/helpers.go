package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashPin hashes a safety PIN for storage and comparison. PINs are short
// numeric secrets verified with a constant-time compare, never logged.
func HashPin(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// Contains reports whether a string slice contains the value.
func Contains(slice []string, value string) bool {
	for _, item := range slice {
		if item == value {
			return true
		}
	}
	return false
}
