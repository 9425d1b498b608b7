// Package records persists per-user financial profile documents. A profile
// is a JSON document whose monetary fields hold either a ciphertext
// envelope (steady state) or, transitionally, a legacy plain number that
// the backfill sweep has not reached yet. Write paths always store
// envelopes; plaintext exists only on the read side of the migration.
package records

import "time"

// EncryptedFields is the schema-level list of profile fields stored as
// envelopes. This is the point of definition for what gets encrypted: a
// monetary field added to the profile must be added here, and the classify
// tables must agree (enforced by a test, not by runtime string matching).
var EncryptedFields = []string{
	"monthlyIncome",
	"monthlyExpenses",
	"netWorth",
	"currentBalance",
	"targetAmount",
	"monthlyContribution",
	"totalDebt",
	"totalSavings",
	"totalInvestments",
	"emergencyFund",
}

// Profile is one user's stored financial document.
type Profile struct {
	UserID    string
	Doc       map[string]any
	DeletedAt *time.Time
	UpdatedAt time.Time
}
