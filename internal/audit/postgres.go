package audit

import (
	"context"
	"fmt"

	"github.com/finwise/dataguard/internal/dbx"
)

// PostgresRepository persists audit entries. It deliberately implements no
// UPDATE or DELETE: the table is append-only from this subsystem's point of
// view.
type PostgresRepository struct {
	db dbx.DBTX
}

var _ Store = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, e *Entry) error {
	query :=
		`INSERT INTO audit_entries
		   (id, actor_id, actor_type, target_user_id, action, details,
		    resource_type, resource_id, created_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 `

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.ActorID, string(e.ActorType), e.TargetUserID, string(e.Action), e.Details,
		e.ResourceType, e.ResourceID, e.CreatedAt, e.IPAddress, e.UserAgent)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByTarget(ctx context.Context, targetUserID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query :=
		`SELECT id, actor_id, actor_type, target_user_id, action, details,
		        resource_type, resource_id, created_at, ip_address, user_agent
		 FROM audit_entries
		 WHERE target_user_id = $1
		 ORDER BY id DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, targetUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorType, &e.TargetUserID, &e.Action, &e.Details,
			&e.ResourceType, &e.ResourceID, &e.CreatedAt, &e.IPAddress, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entries, nil
}
