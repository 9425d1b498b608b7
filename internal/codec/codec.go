// Package codec applies field-level encryption across named fields of a
// document. Encryption replaces a numeric field with its ciphertext
// envelope; decryption replaces an envelope with the recovered number.
// Originals are never mutated.
//
// The codec is deliberately tolerant of mixed representations during
// migration windows: on encrypt, a field already holding a string passes
// through untouched; on decrypt, a field already holding a plain number is
// treated as not-yet-migrated legacy data and passes through as-is. This
// tolerance is a transitional affordance — the write path always produces
// envelopes, and the backfill sweep exists to retire legacy plaintext.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finwise/dataguard/internal/cryptox"
	"github.com/finwise/dataguard/internal/obs"
)

// Codec encrypts and decrypts named fields of map documents.
type Codec struct {
	cipher       *cryptox.Cipher
	bindFieldAAD bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithFieldAAD makes the codec bind the field name into the authentication
// tag of newly produced envelopes, so a ciphertext cannot be swapped between
// fields of the same shape. Decryption still accepts envelopes sealed
// without AAD, for data written before the option was enabled.
func WithFieldAAD() Option {
	return func(c *Codec) { c.bindFieldAAD = true }
}

// New builds a Codec over the given cipher.
func New(cipher *cryptox.Cipher, opts ...Option) *Codec {
	c := &Codec{cipher: cipher}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncryptFields returns a copy of doc with each listed numeric field
// replaced by its envelope. Fields that are absent, nil, or not numeric
// (including fields already holding an envelope string) pass through
// unchanged.
func (c *Codec) EncryptFields(doc map[string]any, fields []string) (map[string]any, error) {
	out := cloneDoc(doc)
	for _, field := range fields {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		if _, isStr := v.(string); isStr {
			// Already an envelope (or at least not a plain number).
			continue
		}
		d, ok := toDecimal(v)
		if !ok {
			continue
		}
		env, err := c.encryptOne(&d, field)
		if err != nil {
			return nil, fmt.Errorf("encrypt field %s: %w", field, err)
		}
		obs.EncryptOps.Inc()
		out[field] = *env
	}
	return out, nil
}

// DecryptFields returns a copy of doc with each listed envelope field
// replaced by the recovered number. A field holding a plain number is
// legacy, not-yet-migrated data and passes through unchanged. Absent and
// nil fields pass through.
func (c *Codec) DecryptFields(doc map[string]any, fields []string) (map[string]any, error) {
	out := cloneDoc(doc)
	for _, field := range fields {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		env, isStr := v.(string)
		if !isStr {
			// Legacy plaintext number, already decrypted by definition.
			continue
		}
		d, err := c.decryptOne(&env, field)
		if err != nil {
			obs.DecryptOps.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("decrypt field %s: %w", field, err)
		}
		obs.DecryptOps.WithLabelValues("ok").Inc()
		if d != nil {
			out[field] = *d
		}
	}
	return out, nil
}

func (c *Codec) encryptOne(d *decimal.Decimal, field string) (*string, error) {
	if c.bindFieldAAD {
		return c.cipher.EncryptNumberAAD(d, []byte(field))
	}
	return c.cipher.EncryptNumber(d)
}

func (c *Codec) decryptOne(env *string, field string) (*decimal.Decimal, error) {
	if c.bindFieldAAD {
		d, err := c.cipher.DecryptNumberAAD(env, []byte(field))
		if err == nil {
			return d, nil
		}
		// Envelope may predate AAD binding.
	}
	return c.cipher.DecryptNumber(env)
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// toDecimal converts the numeric representations a JSON document can carry.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}
