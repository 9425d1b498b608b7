package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/dbx"
)

type PostgresRoleStore struct {
	db dbx.DBTX
}

var _ RoleStore = (*PostgresRoleStore)(nil)

func NewPostgresRoleStore(db dbx.DBTX) *PostgresRoleStore {
	return &PostgresRoleStore{db: db}
}

func (r *PostgresRoleStore) RoleOf(ctx context.Context, userID string) (Role, error) {
	query :=
		`SELECT role FROM user_roles
		 WHERE user_id = $1
		 `

	var role string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return Role(role), nil
}
