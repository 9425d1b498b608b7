package consent

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/dbx"
)

type memRepo struct {
	byUser map[string]*Record
}

func newMemRepo() *memRepo {
	return &memRepo{byUser: map[string]*Record{}}
}

func (m *memRepo) GetByUserID(ctx context.Context, userID string) (*Record, error) {
	rec, ok := m.byUser[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memRepo) Insert(ctx context.Context, rec *Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = "c-" + rec.UserID
	}
	cp := *rec
	m.byUser[rec.UserID] = &cp
	return rec, nil
}

func (m *memRepo) Update(ctx context.Context, rec *Record) error {
	for _, stored := range m.byUser {
		if stored.ID == rec.ID {
			cp := *rec
			m.byUser[cp.UserID] = &cp
			return nil
		}
	}
	return common.ErrNotFound
}

// newTestService wires the service over a mocked *sql.DB so the transaction
// wrapper runs for real, while the repository is an in-memory fake.
func newTestService(t *testing.T, repo *memRepo) (*Service, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	svc := NewService(db)
	svc.newRepo = func(dbx.DBTX) Repository { return repo }
	return svc, mock, db
}

func boolPtr(b bool) *bool { return &b }

func TestUpdate_CreatesRecordOnFirstConsent(t *testing.T) {
	repo := newMemRepo()
	svc, mock, db := newTestService(t, repo)
	defer db.Close()

	anchor := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return anchor }

	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := svc.Update(context.Background(), "u-1",
		Changes{OnboardingDataConsent: boolPtr(true)}, "1.2",
		Meta{IPAddress: "10.0.0.1", UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !res.Created {
		t.Fatalf("expected Created=true")
	}
	rec := res.Record
	if !rec.OnboardingDataConsent || rec.AIAnalysisConsent || rec.MarketingConsent != nil {
		t.Fatalf("unexpected flags: %+v", rec)
	}
	if rec.ConsentVersion != "1.2" || !rec.ConsentedAt.Equal(anchor) || !rec.LastUpdatedAt.Equal(anchor) {
		t.Fatalf("unexpected version/timestamps: %+v", rec)
	}
	if rec.IPAddress != "10.0.0.1" || rec.UserAgent != "test-agent" {
		t.Fatalf("meta not recorded: %+v", rec)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tx expectations: %v", err)
	}
}

func TestUpdate_PartialChangeLeavesOtherFlags(t *testing.T) {
	repo := newMemRepo()
	svc, mock, db := newTestService(t, repo)
	defer db.Close()

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.byUser["u-1"] = &Record{
		ID: "c-1", UserID: "u-1",
		OnboardingDataConsent: true,
		ConsentVersion:        "1.0",
		ConsentedAt:           t0, LastUpdatedAt: t0,
	}

	t1 := t0.Add(time.Hour)
	svc.now = func() time.Time { return t1 }

	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := svc.Update(context.Background(), "u-1",
		Changes{MarketingConsent: boolPtr(true)}, "1.1", Meta{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	rec := res.Record
	if !rec.OnboardingDataConsent {
		t.Fatalf("untouched flag changed: %+v", rec)
	}
	if rec.MarketingConsent == nil || !*rec.MarketingConsent {
		t.Fatalf("marketing flag not applied: %+v", rec)
	}
	// Marketing is not a primary consent: the anchor stays put.
	if !rec.ConsentedAt.Equal(t0) {
		t.Fatalf("ConsentedAt moved on marketing change: %v", rec.ConsentedAt)
	}
	if !rec.LastUpdatedAt.Equal(t1) || rec.ConsentVersion != "1.1" {
		t.Fatalf("LastUpdatedAt/version not bumped: %+v", rec)
	}
	if res.Before.OnboardingDataConsent != true || res.Before.MarketingConsent != nil {
		t.Fatalf("unexpected before snapshot: %+v", res.Before)
	}
}

func TestUpdate_AnchorsOnlyOnFalseToTrue(t *testing.T) {
	repo := newMemRepo()
	svc, mock, db := newTestService(t, repo)
	defer db.Close()

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.byUser["u-1"] = &Record{
		ID: "c-1", UserID: "u-1",
		OnboardingDataConsent: true, AIAnalysisConsent: false,
		ConsentedAt: t0, LastUpdatedAt: t0,
	}

	// Regranting an already-true flag does not move the anchor.
	t1 := t0.Add(time.Hour)
	svc.now = func() time.Time { return t1 }
	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err := svc.Update(context.Background(), "u-1",
		Changes{OnboardingDataConsent: boolPtr(true)}, "1.0", Meta{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !res.Record.ConsentedAt.Equal(t0) {
		t.Fatalf("repeat grant moved anchor: %v", res.Record.ConsentedAt)
	}

	// A false-to-true transition of the other primary flag does.
	t2 := t0.Add(2 * time.Hour)
	svc.now = func() time.Time { return t2 }
	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err = svc.Update(context.Background(), "u-1",
		Changes{AIAnalysisConsent: boolPtr(true)}, "1.0", Meta{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !res.Record.ConsentedAt.Equal(t2) {
		t.Fatalf("grant did not move anchor: %v", res.Record.ConsentedAt)
	}
}

func TestUpdate_WithdrawThenRegrantReanchors(t *testing.T) {
	repo := newMemRepo()
	svc, mock, db := newTestService(t, repo)
	defer db.Close()

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.byUser["u-1"] = &Record{
		ID: "c-1", UserID: "u-1",
		OnboardingDataConsent: true,
		ConsentedAt:           t0, LastUpdatedAt: t0,
	}

	t1 := t0.Add(time.Hour)
	svc.now = func() time.Time { return t1 }
	mock.ExpectBegin()
	mock.ExpectCommit()
	if _, err := svc.Update(context.Background(), "u-1",
		Changes{OnboardingDataConsent: boolPtr(false)}, "1.0", Meta{}); err != nil {
		t.Fatalf("withdraw error: %v", err)
	}
	if got := repo.byUser["u-1"]; !got.ConsentedAt.Equal(t0) {
		t.Fatalf("withdrawal moved anchor: %v", got.ConsentedAt)
	}

	t2 := t0.Add(2 * time.Hour)
	svc.now = func() time.Time { return t2 }
	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err := svc.Update(context.Background(), "u-1",
		Changes{OnboardingDataConsent: boolPtr(true)}, "1.0", Meta{})
	if err != nil {
		t.Fatalf("regrant error: %v", err)
	}
	if !res.Record.ConsentedAt.Equal(t2) {
		t.Fatalf("regrant did not re-anchor: %v", res.Record.ConsentedAt)
	}
}

func TestWithdrawAll(t *testing.T) {
	repo := newMemRepo()
	svc, mock, db := newTestService(t, repo)
	defer db.Close()

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.byUser["u-1"] = &Record{
		ID: "c-1", UserID: "u-1",
		OnboardingDataConsent: true, AIAnalysisConsent: true,
		MarketingConsent: boolPtr(true),
		ConsentVersion:   "1.3",
		ConsentedAt:      t0, LastUpdatedAt: t0,
	}

	t1 := t0.Add(time.Hour)
	svc.now = func() time.Time { return t1 }
	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := svc.WithdrawAll(context.Background(), "u-1", Meta{IPAddress: "10.0.0.9"})
	if err != nil {
		t.Fatalf("WithdrawAll error: %v", err)
	}
	rec := res.Record
	if rec.OnboardingDataConsent || rec.AIAnalysisConsent ||
		rec.MarketingConsent == nil || *rec.MarketingConsent {
		t.Fatalf("flags not cleared: %+v", rec)
	}
	// History preserved.
	if !rec.ConsentedAt.Equal(t0) || rec.ConsentVersion != "1.3" {
		t.Fatalf("withdrawal erased history: %+v", rec)
	}
	if !rec.LastUpdatedAt.Equal(t1) {
		t.Fatalf("LastUpdatedAt not bumped: %v", rec.LastUpdatedAt)
	}
	if !res.Before.OnboardingDataConsent || !res.Before.AIAnalysisConsent {
		t.Fatalf("unexpected before snapshot: %+v", res.Before)
	}
}

func TestWithdrawAll_NoRecord(t *testing.T) {
	repo := newMemRepo()
	svc, mock, db := newTestService(t, repo)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	if _, err := svc.WithdrawAll(context.Background(), "ghost", Meta{}); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tx expectations: %v", err)
	}
}
