// Package mask produces redacted copies of arbitrary values for diagnostic
// output. No plaintext financial number and no full personal identifier ever
// leaves this package unmasked.
package mask

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finwise/dataguard/internal/classify"
	"github.com/finwise/dataguard/internal/cryptox"
)

// Sentinels substituted for redacted content.
const (
	SentinelFinancial = "[FINANCIAL_VALUE]"
	SentinelEncrypted = "[ENCRYPTED]"
	SentinelPersonal  = "[PERSONAL_DATA]"
	SentinelMaxDepth  = "[MAX_DEPTH]"
)

// maxDepth bounds recursion into nested structures so cyclic or
// pathologically deep input cannot cause unbounded work.
const maxDepth = 10

// Value returns a redacted copy of v safe for logs. Every number is masked
// regardless of classification: a false negative on a financial value costs
// more than masking a harmless count. Strings that look like ciphertext
// envelopes are replaced wholesale. Object fields dispatch on the field's
// sensitivity tier. The function is total: unrecognized types pass through
// unchanged rather than failing the log call.
func Value(v any) any {
	return maskValue(v, 0)
}

func maskValue(v any, depth int) any {
	if depth > maxDepth {
		return SentinelMaxDepth
	}

	switch val := v.(type) {
	case nil:
		return nil
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number, decimal.Decimal:
		return SentinelFinancial
	case string:
		if cryptox.IsEnvelope(val) {
			return SentinelEncrypted
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for field, fv := range val {
			out[field] = maskField(field, fv, depth)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = maskValue(elem, depth+1)
		}
		return out
	default:
		return v
	}
}

func maskField(field string, v any, depth int) any {
	switch classify.Classify(field) {
	case classify.TierFinancial:
		return SentinelFinancial
	case classify.TierPersonal:
		return maskPersonal(field, v)
	default:
		return maskValue(v, depth+1)
	}
}

// maskPersonal applies field-specific partial reveals: enough to correlate
// log lines to a user during an incident, not enough to identify them.
func maskPersonal(field string, v any) any {
	s, ok := v.(string)
	if !ok {
		return SentinelPersonal
	}
	switch {
	case classify.IsEmailField(field):
		return maskEmail(s)
	case classify.IsUserIDField(field):
		return maskID(s)
	default:
		return SentinelPersonal
	}
}

func maskEmail(s string) string {
	at := strings.IndexByte(s, '@')
	if at <= 0 {
		return SentinelPersonal
	}
	local, domain := s[:at], s[at+1:]
	if len(local) > 2 {
		local = local[:2]
	}
	return local + "***@" + domain
}

func maskID(s string) string {
	if len(s) <= 8 {
		return s + "***"
	}
	return s[:8] + "***"
}
