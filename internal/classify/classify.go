// Package classify maps field names to sensitivity tiers. The tier drives
// two downstream decisions: whether a field is encrypted at rest (cryptox,
// codec) and how it is redacted in diagnostic output (mask).
package classify

import "strings"

// Tier is a field's sensitivity classification.
type Tier int

const (
	// TierFinancial fields hold monetary quantities. They are encrypted at
	// rest and fully masked in logs.
	TierFinancial Tier = iota

	// TierPersonal fields identify the data subject. They are partially
	// masked in logs but stored in the clear.
	TierPersonal

	// TierBehavioral covers everything else: usage and preference data that
	// is neither monetary nor identifying.
	TierBehavioral
)

func (t Tier) String() string {
	switch t {
	case TierFinancial:
		return "financial"
	case TierPersonal:
		return "personal"
	default:
		return "behavioral"
	}
}

// financialFields is the closed set of field names holding monetary values.
// Every field listed here is encrypted at rest. New monetary fields must be
// added here and to the records schema at the point of definition.
var financialFields = map[string]struct{}{
	"monthlyIncome":       {},
	"monthlyExpenses":     {},
	"netWorth":            {},
	"currentBalance":      {},
	"targetAmount":        {},
	"principal":           {},
	"monthlyPayment":      {},
	"monthlyContribution": {},
	"totalDebt":           {},
	"totalSavings":        {},
	"totalInvestments":    {},
	"emergencyFund":       {},
}

// personalFields identify the data subject.
var personalFields = map[string]struct{}{
	"email":       {},
	"userId":      {},
	"name":        {},
	"displayName": {},
	"phone":       {},
}

// amountContextKeywords feed the IsFinancialAmount heuristic.
var amountContextKeywords = []string{
	"income", "expense", "debt", "investment", "payment", "savings",
}

// Classify returns the sensitivity tier for a field name. Unknown fields
// classify as behavioral, the least sensitive tier. Fields that must be
// protected therefore have to be registered in the tables above; the records
// schema lists its encrypted fields explicitly so an unregistered monetary
// field cannot silently skip encryption on the write path.
func Classify(field string) Tier {
	if _, ok := financialFields[field]; ok {
		return TierFinancial
	}
	if _, ok := personalFields[field]; ok {
		return TierPersonal
	}
	return TierBehavioral
}

// RequiresEncryption reports whether a field must be stored encrypted.
func RequiresEncryption(field string) bool {
	return Classify(field) == TierFinancial
}

// IsFinancialAmount reports whether a generic "amount" field should be
// treated as financial given its surrounding context string. This is a
// keyword heuristic, not an exact classification: a context outside the
// keyword list yields false even when the amount is monetary. Callers that
// need certainty must register the concrete field name in financialFields
// instead of relying on this check.
func IsFinancialAmount(field, context string) bool {
	if Classify(field) == TierFinancial {
		return true
	}
	if field != "amount" {
		return false
	}
	context = strings.ToLower(context)
	for _, kw := range amountContextKeywords {
		if strings.Contains(context, kw) {
			return true
		}
	}
	return false
}

// IsEmailField and IsUserIDField let the masker pick field-specific partial
// reveals without duplicating the field tables.
func IsEmailField(field string) bool { return field == "email" }

func IsUserIDField(field string) bool { return field == "userId" }
