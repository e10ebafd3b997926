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

// Short returns a truncated digest suitable for log lines and change
// fingerprints.
func Short(data []byte) string {
	s := Sum(data)
	return s[:12]
}
