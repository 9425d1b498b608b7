package consent

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/dbx"
)

// Service implements the consent state machine. Every mutation runs as one
// read-modify-write transaction so the first-consent anchoring rule is
// computed from the value read in the same transaction, never a stale copy.
//
// The service does not write audit entries itself: pairing each mutation
// with the matching audit record is the caller's responsibility, which keeps
// the two concerns independently testable.
type Service struct {
	db      *sql.DB
	newRepo func(dbx.DBTX) Repository
	now     func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{
		db:      db,
		newRepo: func(tx dbx.DBTX) Repository { return NewPostgresRepository(tx) },
		now:     time.Now,
	}
}

// Flags returns the stored consent record, or common.ErrNotFound when the
// user has never performed a consent action.
func (s *Service) Flags(ctx context.Context, userID string) (*Record, error) {
	return s.newRepo(s.db).GetByUserID(ctx, userID)
}

// UpdateResult reports the state around a consent mutation so the caller
// can audit before/after values per consent type.
type UpdateResult struct {
	Record  *Record
	Before  Flags
	Created bool
}

// Update applies a partial flag update. Omitted flags are untouched.
// LastUpdatedAt and ConsentVersion always move; ConsentedAt is re-anchored
// only when onboarding or AI consent transitions from false to true. A
// repeat grant is intentionally not re-anchored across multiple grants
// within the same true state, but a withdraw-then-regrant is.
func (s *Service) Update(ctx context.Context, userID string, changes Changes, version string, meta Meta) (*UpdateResult, error) {
	var result *UpdateResult
	err := dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.newRepo(tx)
		now := s.now().UTC()

		rec, err := repo.GetByUserID(ctx, userID)
		if errors.Is(err, common.ErrNotFound) {
			rec = &Record{
				UserID:        userID,
				ConsentedAt:   now,
				LastUpdatedAt: now,
			}
			applyChanges(rec, changes)
			rec.ConsentVersion = version
			rec.IPAddress = meta.IPAddress
			rec.UserAgent = meta.UserAgent
			if rec, err = repo.Insert(ctx, rec); err != nil {
				return err
			}
			result = &UpdateResult{Record: rec, Before: Flags{}, Created: true}
			return nil
		}
		if err != nil {
			return err
		}

		before := rec.flags()
		applyChanges(rec, changes)
		rec.ConsentVersion = version
		rec.LastUpdatedAt = now
		rec.IPAddress = meta.IPAddress
		rec.UserAgent = meta.UserAgent
		if primaryGranted(before, rec) {
			rec.ConsentedAt = now
		}
		if err := repo.Update(ctx, rec); err != nil {
			return err
		}
		result = &UpdateResult{Record: rec, Before: before}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WithdrawAll sets every flag to false and bumps LastUpdatedAt. ConsentedAt
// and ConsentVersion are untouched: the history of when consent was first
// given is preserved for audit even after withdrawal.
func (s *Service) WithdrawAll(ctx context.Context, userID string, meta Meta) (*UpdateResult, error) {
	var result *UpdateResult
	err := dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.newRepo(tx)

		rec, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}

		before := rec.flags()
		rec.OnboardingDataConsent = false
		rec.AIAnalysisConsent = false
		withdrawn := false
		rec.MarketingConsent = &withdrawn
		rec.LastUpdatedAt = s.now().UTC()
		rec.IPAddress = meta.IPAddress
		rec.UserAgent = meta.UserAgent
		if err := repo.Update(ctx, rec); err != nil {
			return err
		}
		result = &UpdateResult{Record: rec, Before: before}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func applyChanges(rec *Record, changes Changes) {
	if changes.OnboardingDataConsent != nil {
		rec.OnboardingDataConsent = *changes.OnboardingDataConsent
	}
	if changes.AIAnalysisConsent != nil {
		rec.AIAnalysisConsent = *changes.AIAnalysisConsent
	}
	if changes.MarketingConsent != nil {
		v := *changes.MarketingConsent
		rec.MarketingConsent = &v
	}
}

// primaryGranted reports a false-to-true transition of either primary
// consent flag.
func primaryGranted(before Flags, after *Record) bool {
	return (!before.OnboardingDataConsent && after.OnboardingDataConsent) ||
		(!before.AIAnalysisConsent && after.AIAnalysisConsent)
}
