package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash returns a deterministic hex digest of the given parts joined
// with a separator that cannot appear in normalized identifiers.
func ContentHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// ShortHash is ContentHash truncated for use as a compact cache key suffix.
func ShortHash(parts ...string) string {
	return ContentHash(parts...)[:16]
}
