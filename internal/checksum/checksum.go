// Package checksum derives entity tags for subnode bodies.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of body.
func Sum(body string) string {
	h := sha256.Sum256([]byte(body))
	return hex.EncodeToString(h[:])
}

// ETag returns the quoted HTTP entity tag for body.
func ETag(body string) string {
	return `"` + Sum(body) + `"`
}
