// Package cryptox implements authenticated field-level encryption of numeric
// financial values using AES-256-GCM.
//
// Each value is serialized to its canonical decimal string, encrypted under a
// fresh random 96-bit nonce, and packaged as a self-contained envelope:
//
//	base64(iv[12] || ciphertext || tag[16])
//
// The envelope needs nothing but the key to decrypt. Nil values pass through
// as nil in both directions: an absent value is not an error and produces no
// envelope.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"

	"github.com/shopspring/decimal"

	"github.com/finwise/dataguard/internal/common"
)

const (
	nonceSize = 12
	tagSize   = 16
)

// Cipher encrypts and decrypts single numeric values under one symmetric
// key. It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from raw key bytes. The key must be exactly
// KeySize bytes; anything else is ErrKeyFormat.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeyFormat
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrEncryptionFailed
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrEncryptionFailed
	}
	return &Cipher{aead: aead}, nil
}

// EncryptNumber encrypts a single numeric value. A nil value maps to a nil
// envelope. The plaintext and key are never logged.
func (c *Cipher) EncryptNumber(v *decimal.Decimal) (*string, error) {
	return c.encrypt(v, nil)
}

// EncryptNumberAAD is EncryptNumber with associated data bound into the
// authentication tag, typically the field name and record id. A ciphertext
// sealed with AAD cannot be swapped into another field or record without
// failing verification.
func (c *Cipher) EncryptNumberAAD(v *decimal.Decimal, aad []byte) (*string, error) {
	return c.encrypt(v, aad)
}

func (c *Cipher) encrypt(v *decimal.Decimal, aad []byte) (*string, error) {
	if v == nil {
		return nil, nil
	}

	plaintext := []byte(v.String())
	iv := common.GenerateRandByteArray(nonceSize)

	// Seal appends ciphertext||tag; prefix with the nonce so the envelope
	// is self-contained.
	sealed := c.aead.Seal(iv, iv, plaintext, aad)
	env := base64.StdEncoding.EncodeToString(sealed)
	return &env, nil
}

// DecryptNumber reverses EncryptNumber. A nil or empty envelope maps to nil.
// Tag-verification failure, a malformed envelope, and a non-numeric payload
// all surface as the same ErrDecryptionFailed so callers cannot be used as
// a padding/format oracle.
func (c *Cipher) DecryptNumber(envelope *string) (*decimal.Decimal, error) {
	return c.decrypt(envelope, nil)
}

// DecryptNumberAAD is DecryptNumber for envelopes sealed with associated
// data. The same AAD bytes must be supplied or verification fails.
func (c *Cipher) DecryptNumberAAD(envelope *string, aad []byte) (*decimal.Decimal, error) {
	return c.decrypt(envelope, aad)
}

func (c *Cipher) decrypt(envelope *string, aad []byte) (*decimal.Decimal, error) {
	if envelope == nil || *envelope == "" {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(*envelope)
	if err != nil || len(raw) < nonceSize+tagSize {
		return nil, ErrDecryptionFailed
	}

	iv, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := c.aead.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	v, err := decimal.NewFromString(string(plaintext))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return &v, nil
}

// IsEnvelope reports whether a stored string looks like a ciphertext
// envelope: base64-decodable with at least nonce+tag bytes inside. Used to
// tell legacy plaintext apart from encrypted values during migration and to
// redact envelope strings in logs.
func IsEnvelope(s string) bool {
	if len(s) < base64.StdEncoding.EncodedLen(nonceSize+tagSize+1) {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	return err == nil && len(raw) > nonceSize+tagSize
}
