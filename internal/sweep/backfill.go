// Package sweep implements the two maintenance passes over stored profiles:
// a backfill that encrypts legacy plaintext fields in place, and a
// read-only verification that measures encryption coverage and confirms the
// configured key decrypts what is stored.
package sweep

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finwise/dataguard/internal/cryptox"
	"github.com/finwise/dataguard/internal/logging"
	"github.com/finwise/dataguard/internal/mask"
	"github.com/finwise/dataguard/internal/records"
)

// Outcome classifies what the backfill did with one field of one record.
type Outcome string

const (
	OutcomeUpdated          Outcome = "updated"
	OutcomeSkippedEncrypted Outcome = "skipped: already-encrypted"
	OutcomeSkippedNull      Outcome = "skipped: null"
)

// FieldResult is one per-record, per-field backfill outcome.
type FieldResult struct {
	UserID  string
	Field   string
	Outcome Outcome
	Err     string
}

// BackfillReport aggregates a whole run.
type BackfillReport struct {
	DryRun  bool
	Records int
	Results []FieldResult

	Updated          int
	SkippedEncrypted int
	SkippedNull      int
	Errors           int
}

const pageSize = 200

// Backfill finds profile fields holding a plain number where an envelope is
// expected and encrypts them in place. Dry-run is the default: no write
// happens unless Apply is set. The pass is idempotent; a second apply run
// reports every field as already encrypted.
type Backfill struct {
	repo   records.Repository
	cipher *cryptox.Cipher
	log    logging.Logger

	// Apply enables writes. Zero value means dry-run.
	Apply bool
}

func NewBackfill(repo records.Repository, cipher *cryptox.Cipher, log logging.Logger) *Backfill {
	return &Backfill{repo: repo, cipher: cipher, log: mask.NewSafeLogger(log)}
}

func (b *Backfill) Run(ctx context.Context) (*BackfillReport, error) {
	report := &BackfillReport{DryRun: !b.Apply}

	after := ""
	for {
		page, err := b.repo.List(ctx, after, pageSize)
		if err != nil {
			return nil, fmt.Errorf("backfill list: %w", err)
		}
		if len(page) == 0 {
			return report, nil
		}

		for i := range page {
			p := &page[i]
			report.Records++
			changed := b.processProfile(ctx, p, report)
			if changed && b.Apply {
				if err := b.repo.Save(ctx, p); err != nil {
					return nil, fmt.Errorf("backfill save %s: %w", p.UserID, err)
				}
				b.log.Info(ctx, "profile backfilled", "userId", p.UserID)
			}
			after = p.UserID
		}
	}
}

func (b *Backfill) processProfile(ctx context.Context, p *records.Profile, report *BackfillReport) bool {
	changed := false
	for _, field := range records.EncryptedFields {
		res := FieldResult{UserID: p.UserID, Field: field}

		v, ok := p.Doc[field]
		switch {
		case !ok || v == nil:
			res.Outcome = OutcomeSkippedNull
			report.SkippedNull++

		default:
			if s, isStr := v.(string); isStr {
				if cryptox.IsEnvelope(s) {
					res.Outcome = OutcomeSkippedEncrypted
					report.SkippedEncrypted++
					break
				}
				res.Err = "unrecognized string value"
				report.Errors++
				break
			}

			d, ok := toDecimal(v)
			if !ok {
				res.Err = fmt.Sprintf("unsupported type %T", v)
				report.Errors++
				break
			}
			env, err := b.cipher.EncryptNumber(&d)
			if err != nil {
				res.Err = err.Error()
				report.Errors++
				break
			}
			res.Outcome = OutcomeUpdated
			report.Updated++
			if b.Apply {
				p.Doc[field] = *env
				changed = true
			}
		}

		report.Results = append(report.Results, res)
	}
	return changed
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	default:
		return decimal.Decimal{}, false
	}
}
