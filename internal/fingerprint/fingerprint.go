// Package fingerprint derives content fingerprints for uploaded byte payloads.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// HexLength is the length of a rendered fingerprint.
const HexLength = 64

var hexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Sum returns the SHA-256 fingerprint of data as lowercase hex.
// Empty input is valid and yields the hash of the empty string.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsValid reports whether s is a well-formed fingerprint.
func IsValid(s string) bool {
	return hexPattern.MatchString(s)
}
