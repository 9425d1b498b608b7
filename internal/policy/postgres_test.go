package policy

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/finwise/dataguard/internal/common"
)

func newStoreWithMock(t *testing.T) (*PostgresRoleStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRoleStore(db), mock, db
}

func TestRoleOf_Found(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+role\s+FROM\s+user_roles\s+WHERE\s+user_id\s*=\s*\$1`
	rows := sqlmock.NewRows([]string{"role"}).AddRow("support")
	mock.ExpectQuery(q).WithArgs("support-1").WillReturnRows(rows)

	role, err := store.RoleOf(context.Background(), "support-1")
	if err != nil {
		t.Fatalf("RoleOf error: %v", err)
	}
	if role != RoleSupport {
		t.Fatalf("role: got %q want %q", role, RoleSupport)
	}
}

func TestRoleOf_NotFound(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)FROM\s+user_roles\s+WHERE\s+user_id\s*=\s*\$1`
	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	if _, err := store.RoleOf(context.Background(), "ghost"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestRoleOf_DBError(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)FROM\s+user_roles\s+WHERE\s+user_id\s*=\s*\$1`
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnError(errors.New("db down"))

	_, err := store.RoleOf(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
