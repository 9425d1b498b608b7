package cryptox

import "errors"

var (
	// ErrKeyFormat means the configured encryption key is missing or not
	// exactly 32 bytes. Unrecoverable for any encrypt/decrypt call; must not
	// be retried with the same key.
	ErrKeyFormat = errors.New("encryption key must be 32 bytes")

	// ErrEncryptionFailed wraps a failure of the underlying crypto provider.
	// Provider internals are never exposed to callers.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed covers tag-verification failure, a malformed
	// envelope, and a non-numeric decrypted payload. The causes are
	// deliberately indistinguishable to the caller; treat as possible
	// tampering or corruption and do not retry.
	ErrDecryptionFailed = errors.New("decryption failed")
)
