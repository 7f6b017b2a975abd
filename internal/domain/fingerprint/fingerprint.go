// Package fingerprint derives stable cache keys from cache-relevant request
// payloads. Identical normalized payloads always yield the identical key
// across process restarts; distinct payloads collide only with
// cryptographically negligible probability.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// KeyLength is the length in hex characters of a derived key.
const KeyLength = 32

// Derive returns the fingerprint of the given payload: SHA-256 over the
// whitespace-trimmed UTF-8 text, hex-encoded and truncated to KeyLength.
// Pure function: no I/O, no randomness, no clock.
//
// The declared equivalence is leading/trailing whitespace only; payloads
// differing in interior whitespace are different requests.
func Derive(payload string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(payload)))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

// DeriveParams returns the fingerprint of a structured parameter set. Parts
// are joined with an unambiguous separator before hashing so that
// ("ab","c") and ("a","bc") derive different keys.
func DeriveParams(parts ...string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(0x1f) // unit separator
		}
		b.WriteString(strings.TrimSpace(p))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:KeyLength]
}
