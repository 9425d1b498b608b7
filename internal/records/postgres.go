package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/dbx"
)

type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*Profile, error) {
	query :=
		`SELECT user_id, doc, deleted_at, updated_at FROM financial_profiles
		 WHERE user_id = $1
		 `

	p := &Profile{}
	var raw []byte
	var deleted sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &raw, &deleted, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(raw, &p.Doc); err != nil {
		return nil, fmt.Errorf("doc decode error: %w", err)
	}
	if deleted.Valid {
		p.DeletedAt = &deleted.Time
	}
	return p, nil
}

func (r *PostgresRepository) Save(ctx context.Context, p *Profile) error {
	raw, err := json.Marshal(p.Doc)
	if err != nil {
		return fmt.Errorf("doc encode error: %w", err)
	}

	query :=
		`INSERT INTO financial_profiles (user_id, doc, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET doc = excluded.doc, updated_at = excluded.updated_at
		 `

	if _, err := r.db.ExecContext(ctx, query, p.UserID, raw, r.now().UTC()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID string) error {
	query :=
		`UPDATE financial_profiles SET deleted_at = $2
		 WHERE user_id = $1 AND deleted_at IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, userID, r.now().UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) HardDelete(ctx context.Context, userID string) error {
	query :=
		`DELETE FROM financial_profiles
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, afterUserID string, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query :=
		`SELECT user_id, doc, deleted_at, updated_at FROM financial_profiles
		 WHERE user_id > $1
		 ORDER BY user_id
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, afterUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		var raw []byte
		var deleted sql.NullTime
		if err := rows.Scan(&p.UserID, &raw, &deleted, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(raw, &p.Doc); err != nil {
			return nil, fmt.Errorf("doc decode error: %w", err)
		}
		if deleted.Valid {
			p.DeletedAt = &deleted.Time
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return profiles, nil
}
