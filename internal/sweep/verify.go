package sweep

import (
	"context"
	"fmt"

	"github.com/finwise/dataguard/internal/cryptox"
	"github.com/finwise/dataguard/internal/logging"
	"github.com/finwise/dataguard/internal/mask"
	"github.com/finwise/dataguard/internal/records"
)

// VerifyReport summarizes encryption coverage across stored profiles.
// Decrypted values never appear in it.
type VerifyReport struct {
	Records     int
	FieldsTotal int

	Encrypted int
	Legacy    int
	Null      int

	// DecryptFailures counts envelopes the configured key could not open:
	// wrong key, or corrupted data.
	DecryptFailures int
	FailedFields    []string // "userId/field" references, no values
}

// EncryptedRatio reports the proportion of non-null fields stored as
// envelopes.
func (r *VerifyReport) EncryptedRatio() float64 {
	populated := r.Encrypted + r.Legacy
	if populated == 0 {
		return 0
	}
	return float64(r.Encrypted) / float64(populated)
}

// Verify is the read-only coverage sweep. It classifies every schema
// financial field as encrypted, legacy plaintext, or null, and
// trial-decrypts each envelope to confirm the configured key is correct.
type Verify struct {
	repo   records.Repository
	cipher *cryptox.Cipher
	log    logging.Logger
}

func NewVerify(repo records.Repository, cipher *cryptox.Cipher, log logging.Logger) *Verify {
	return &Verify{repo: repo, cipher: cipher, log: mask.NewSafeLogger(log)}
}

func (v *Verify) Run(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{}

	after := ""
	for {
		page, err := v.repo.List(ctx, after, pageSize)
		if err != nil {
			return nil, fmt.Errorf("verify list: %w", err)
		}
		if len(page) == 0 {
			return report, nil
		}

		for i := range page {
			p := &page[i]
			report.Records++
			v.checkProfile(ctx, p, report)
			after = p.UserID
		}
	}
}

func (v *Verify) checkProfile(ctx context.Context, p *records.Profile, report *VerifyReport) {
	for _, field := range records.EncryptedFields {
		report.FieldsTotal++

		value, ok := p.Doc[field]
		if !ok || value == nil {
			report.Null++
			continue
		}

		env, isStr := value.(string)
		if !isStr || !cryptox.IsEnvelope(env) {
			report.Legacy++
			continue
		}

		report.Encrypted++
		if _, err := v.cipher.DecryptNumber(&env); err != nil {
			report.DecryptFailures++
			report.FailedFields = append(report.FailedFields, p.UserID+"/"+field)
			v.log.Warn(ctx, "envelope failed trial decrypt", "userId", p.UserID, "field", field)
		}
	}
}
