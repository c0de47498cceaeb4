package pii

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestLength is the number of hex characters kept from the SHA-256 digest.
// 12 characters is 48 bits: enough to correlate values across log lines while
// keeping tokens short. Collisions are far more likely than with the full
// digest and a small input space (8-digit IDs) can be brute forced, so tokens
// are pseudonyms, not secrets.
const DigestLength = 12

// Mask returns the deterministic "<label:digest>" token for raw.
func Mask(label, raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "<" + label + ":" + hex.EncodeToString(sum[:DigestLength/2]) + ">"
}
