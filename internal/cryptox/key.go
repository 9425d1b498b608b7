package cryptox

import (
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// KeySize is the required key length: AES-256 uses a 32-byte key.
const KeySize = 32

// ParseKey decodes the conventional key representation, a 64-character hex
// string, into raw key bytes. Anything else is ErrKeyFormat; a missing or
// short key is never silently substituted with a default.
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != KeySize {
		return nil, ErrKeyFormat
	}
	return key, nil
}

// DeriveKey derives a 32-byte key from a passphrase using argon2id.
// Development convenience for the cmd tools; production deployments supply
// the raw hex key out-of-band.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}
