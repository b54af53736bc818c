package object

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
)

// HashLen is the length of a hex-encoded SHA-1 digest.
const HashLen = 40

// ErrInvalidHash reports a string that is not a 40-character lowercase hex
// digest.
var ErrInvalidHash = errors.New("invalid object hash")

// HashBytes computes the SHA-1 of data and returns it as a lowercase
// hex-encoded Hash. Blobs, trees and commits all hash their raw bytes.
func HashBytes(data []byte) Hash {
	sum := sha1.Sum(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// ParseHash validates s and returns it as a Hash.
func ParseHash(s string) (Hash, error) {
	if !IsHash(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}
	return Hash(s), nil
}

// IsHash reports whether s has the shape of a Hash.
func IsHash(s string) bool {
	if len(s) != HashLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
