package common

import "crypto/rand"

// GenerateRandByteArray returns size cryptographically random bytes.
// rand.Read never fails on supported platforms; a failure here indicates a
// broken system RNG and panicking is preferable to weak randomness.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites the contents of the provided byte slice with
// zeros. Used to remove key material from memory after use. A nil slice is
// a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
