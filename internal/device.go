package internal

import (
	"crypto/sha256"
	"crypto/subtle"
)

// HashBindingValue hashes a device binding value (fingerprint or device id).
func HashBindingValue(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}

// BindingEqual compares two binding values by hash in constant time, so the
// comparison does not leak a common prefix length.
func BindingEqual(a, b string) bool {
	ha := HashBindingValue(a)
	hb := HashBindingValue(b)
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
