package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*Record, error) {
	query :=
		`SELECT id, user_id, onboarding_data_consent, ai_analysis_consent, marketing_consent,
		        consent_version, consented_at, last_updated_at, ip_address, user_agent
		 FROM consent_records
		 WHERE user_id = $1
		 `

	rec := &Record{}
	var marketing sql.NullBool
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&rec.ID, &rec.UserID, &rec.OnboardingDataConsent, &rec.AIAnalysisConsent, &marketing,
		&rec.ConsentVersion, &rec.ConsentedAt, &rec.LastUpdatedAt, &rec.IPAddress, &rec.UserAgent)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if marketing.Valid {
		rec.MarketingConsent = &marketing.Bool
	}
	return rec, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO consent_records
		   (id, user_id, onboarding_data_consent, ai_analysis_consent, marketing_consent,
		    consent_version, consented_at, last_updated_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 `

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.OnboardingDataConsent, rec.AIAnalysisConsent, marketingArg(rec),
		rec.ConsentVersion, rec.ConsentedAt, rec.LastUpdatedAt, rec.IPAddress, rec.UserAgent)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *Record) error {
	query :=
		`UPDATE consent_records
		 SET onboarding_data_consent = $2, ai_analysis_consent = $3, marketing_consent = $4,
		     consent_version = $5, consented_at = $6, last_updated_at = $7,
		     ip_address = $8, user_agent = $9
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.OnboardingDataConsent, rec.AIAnalysisConsent, marketingArg(rec),
		rec.ConsentVersion, rec.ConsentedAt, rec.LastUpdatedAt, rec.IPAddress, rec.UserAgent)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func marketingArg(rec *Record) any {
	if rec.MarketingConsent == nil {
		return nil
	}
	return *rec.MarketingConsent
}
