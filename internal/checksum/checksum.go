// Package checksum provides the fixed-size digests used across the service.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumString is Sum for string input. The result is always 64 ASCII bytes.
func SumString(s string) string {
	return Sum([]byte(s))
}
