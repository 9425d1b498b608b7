package sweep

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/cryptox"
	"github.com/finwise/dataguard/internal/logging"
	"github.com/finwise/dataguard/internal/records"
)

type memRepo struct {
	byUser map[string]map[string]any
	saves  int
}

func newMemRepo() *memRepo {
	return &memRepo{byUser: map[string]map[string]any{}}
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func (m *memRepo) Get(ctx context.Context, userID string) (*records.Profile, error) {
	doc, ok := m.byUser[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &records.Profile{UserID: userID, Doc: cloneDoc(doc)}, nil
}

func (m *memRepo) Save(ctx context.Context, p *records.Profile) error {
	m.byUser[p.UserID] = cloneDoc(p.Doc)
	m.saves++
	return nil
}

func (m *memRepo) SoftDelete(ctx context.Context, userID string) error { return nil }
func (m *memRepo) HardDelete(ctx context.Context, userID string) error { return nil }

func (m *memRepo) List(ctx context.Context, afterUserID string, limit int) ([]records.Profile, error) {
	var ids []string
	for id := range m.byUser {
		if id > afterUserID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]records.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, records.Profile{UserID: id, Doc: cloneDoc(m.byUser[id])})
	}
	return out, nil
}

func testCipher(t *testing.T, hexByte string) *cryptox.Cipher {
	t.Helper()
	key, err := cryptox.ParseKey(strings.Repeat(hexByte, cryptox.KeySize))
	if err != nil {
		t.Fatalf("ParseKey error: %v", err)
	}
	c, err := cryptox.NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher error: %v", err)
	}
	return c
}

func quietLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func envelope(t *testing.T, c *cryptox.Cipher, v float64) string {
	t.Helper()
	d := decimal.NewFromFloat(v)
	env, err := c.EncryptNumber(&d)
	if err != nil {
		t.Fatalf("EncryptNumber error: %v", err)
	}
	return *env
}

func TestBackfill_DryRunByDefault(t *testing.T) {
	cipher := testCipher(t, "ab")
	repo := newMemRepo()
	repo.byUser["u-1"] = map[string]any{
		"monthlyIncome": float64(5000),
		"netWorth":      envelope(t, cipher, 125000.5),
	}

	b := NewBackfill(repo, cipher, quietLogger())
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if !report.DryRun {
		t.Fatalf("zero-value run must be a dry run")
	}
	if report.Records != 1 || report.Updated != 1 || report.SkippedEncrypted != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if repo.saves != 0 {
		t.Fatalf("dry run wrote %d profiles", repo.saves)
	}
	if _, ok := repo.byUser["u-1"]["monthlyIncome"].(float64); !ok {
		t.Fatalf("dry run changed stored data: %v", repo.byUser["u-1"]["monthlyIncome"])
	}
}

func TestBackfill_ApplyEncryptsLegacyFields(t *testing.T) {
	cipher := testCipher(t, "ab")
	repo := newMemRepo()
	repo.byUser["u-1"] = map[string]any{
		"monthlyIncome": float64(5000),
		"totalDebt":     int64(12000),
		"netWorth":      envelope(t, cipher, 125000.5),
		"emergencyFund": nil,
		"theme":         "dark", // not a schema financial field, untouched
	}
	repo.byUser["u-2"] = map[string]any{
		"currentBalance": float64(-42.5),
	}

	b := NewBackfill(repo, cipher, quietLogger())
	b.Apply = true
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if report.DryRun {
		t.Fatalf("apply run reported as dry run")
	}
	if report.Records != 2 || report.Updated != 3 || report.SkippedEncrypted != 1 || report.Errors != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if repo.saves != 2 {
		t.Fatalf("save count: %d", repo.saves)
	}

	// Every migrated field now decrypts to its original value.
	migrated := []struct {
		user, field string
		want        float64
	}{
		{"u-1", "monthlyIncome", 5000},
		{"u-1", "totalDebt", 12000},
		{"u-2", "currentBalance", -42.5},
	}
	for _, m := range migrated {
		env, ok := repo.byUser[m.user][m.field].(string)
		if !ok || !cryptox.IsEnvelope(env) {
			t.Fatalf("%s/%s not encrypted: %v", m.user, m.field, repo.byUser[m.user][m.field])
		}
		got, err := cipher.DecryptNumber(&env)
		if err != nil || !got.Equal(decimal.NewFromFloat(m.want)) {
			t.Fatalf("%s/%s round trip: got %v err %v", m.user, m.field, got, err)
		}
	}
	if repo.byUser["u-1"]["theme"] != "dark" {
		t.Fatalf("non-financial field touched: %v", repo.byUser["u-1"]["theme"])
	}
	if repo.byUser["u-1"]["emergencyFund"] != nil {
		t.Fatalf("null field materialized: %v", repo.byUser["u-1"]["emergencyFund"])
	}
}

func TestBackfill_ApplyIsIdempotent(t *testing.T) {
	cipher := testCipher(t, "ab")
	repo := newMemRepo()
	repo.byUser["u-1"] = map[string]any{"monthlyIncome": float64(5000)}

	b := NewBackfill(repo, cipher, quietLogger())
	b.Apply = true
	if _, err := b.Run(context.Background()); err != nil {
		t.Fatalf("first run error: %v", err)
	}
	first := repo.byUser["u-1"]["monthlyIncome"]

	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("second run error: %v", err)
	}
	if report.Updated != 0 || report.SkippedEncrypted != 1 {
		t.Fatalf("second run not a no-op: %+v", report)
	}
	if repo.byUser["u-1"]["monthlyIncome"] != first {
		t.Fatalf("second run re-encrypted the field")
	}
}

func TestBackfill_UnrecognizedStringIsAnError(t *testing.T) {
	cipher := testCipher(t, "ab")
	repo := newMemRepo()
	repo.byUser["u-1"] = map[string]any{"netWorth": "what is this"}

	b := NewBackfill(repo, cipher, quietLogger())
	b.Apply = true
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Errors != 1 || report.Updated != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	// The suspect value is left alone for a human to look at.
	if repo.byUser["u-1"]["netWorth"] != "what is this" {
		t.Fatalf("errored field modified: %v", repo.byUser["u-1"]["netWorth"])
	}

	var found bool
	for _, res := range report.Results {
		if res.UserID == "u-1" && res.Field == "netWorth" && res.Err == "unrecognized string value" {
			found = true
		}
	}
	if !found {
		t.Fatalf("field error not reported: %+v", report.Results)
	}
}

func TestVerify_CountsAndRatio(t *testing.T) {
	cipher := testCipher(t, "ab")
	repo := newMemRepo()
	repo.byUser["u-1"] = map[string]any{
		"monthlyIncome": envelope(t, cipher, 5000),
		"netWorth":      envelope(t, cipher, 125000.5),
		"totalDebt":     float64(12000), // legacy
		"emergencyFund": nil,
	}

	v := NewVerify(repo, cipher, quietLogger())
	report, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if report.Records != 1 || report.FieldsTotal != len(records.EncryptedFields) {
		t.Fatalf("unexpected totals: %+v", report)
	}
	if report.Encrypted != 2 || report.Legacy != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	// All unset schema fields count as null along with the explicit one.
	if report.Null != len(records.EncryptedFields)-3 {
		t.Fatalf("null count: %d", report.Null)
	}
	if report.DecryptFailures != 0 {
		t.Fatalf("healthy envelopes failed decrypt: %+v", report)
	}
	if got := report.EncryptedRatio(); got < 0.66 || got > 0.67 {
		t.Fatalf("ratio: %v", got)
	}
}

func TestVerify_WrongKeyReportsFailuresWithoutValues(t *testing.T) {
	writeCipher := testCipher(t, "ab")
	repo := newMemRepo()
	repo.byUser["u-1"] = map[string]any{"netWorth": envelope(t, writeCipher, 125000.5)}

	v := NewVerify(repo, testCipher(t, "cd"), quietLogger())
	report, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Encrypted != 1 || report.DecryptFailures != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.FailedFields) != 1 || report.FailedFields[0] != "u-1/netWorth" {
		t.Fatalf("failed field refs: %v", report.FailedFields)
	}
}

func TestVerify_EmptyStore(t *testing.T) {
	v := NewVerify(newMemRepo(), testCipher(t, "ab"), quietLogger())
	report, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Records != 0 || report.EncryptedRatio() != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}
