package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/jangbu/internal/database"
	"github.com/jask/jangbu/internal/ledger"
	"github.com/jask/jangbu/internal/query"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func date(s string) *string { return &s }

func seed(t *testing.T, ctx context.Context, db *sql.DB, recs ...ledger.Record) {
	t.Helper()
	repo := NewLedgerRepo(db)
	require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := repo.EnsureSchema(ctx, tx); err != nil {
			return err
		}
		_, err := repo.AppendBatch(ctx, tx, recs)
		return err
	}))
}

func TestLedgerMissingTableReadsEmpty(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	repo := NewLedgerRepo(openTestDB(t))

	st, err := query.Compose(query.Filter{})
	require.NoError(t, err)
	recs, err := repo.Search(ctx, st)
	require.NoError(t, err)
	require.Empty(t, recs)

	n, err := repo.Count(ctx, query.Predicate{})
	require.NoError(t, err)
	require.Zero(t, n)

	dups, err := repo.Duplicates(ctx)
	require.NoError(t, err)
	require.Empty(t, dups)

	changed, err := repo.Update(ctx, 1, map[string]any{"gwan": "x"})
	require.NoError(t, err)
	require.Zero(t, changed)

	removed, err := repo.Delete(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestLedgerMissingTableStillRejectsBadStatements(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	repo := NewLedgerRepo(openTestDB(t))

	st, err := query.Compose(query.Filter{Raw: "no_such_col = 1"})
	require.NoError(t, err)
	_, err = repo.Search(ctx, st)
	require.ErrorIs(t, err, query.ErrQuery)

	_, err = repo.Page(ctx, st, 10, 0)
	require.ErrorIs(t, err, query.ErrQuery)

	_, err = repo.Count(ctx, st.Where)
	require.ErrorIs(t, err, query.ErrQuery)

	ds, err := query.ComposeDistinct(ledger.ColGwan, query.Filter{})
	require.NoError(t, err)
	vals, err := repo.Distinct(ctx, ds)
	require.NoError(t, err)
	require.Empty(t, vals)

	exists, err := repo.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestLedgerAppendAndSearch(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	db := openTestDB(t)
	repo := NewLedgerRepo(db)

	seed(t, ctx, db,
		ledger.Record{Type: "지출", Gwan: "운영비", Mok: "식대", Amount: 12000, RegDate: date("2024-03-01")},
		ledger.Record{Type: "수입", Gwan: "사업비", Mok: "보조금", Amount: 500000, RegDate: date("2024-03-02")},
		ledger.Record{Type: "지출", Gwan: "운영비", Mok: "잡비", Amount: 300},
	)

	st, err := query.Compose(query.Filter{})
	require.NoError(t, err)
	recs, err := repo.Search(ctx, st)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// reg_date DESC puts NULL last in SQLite.
	require.Equal(t, "2024-03-02", recs[0].Date())
	require.Equal(t, int64(500000), recs[0].Amount)
	require.Nil(t, recs[2].RegDate)
	require.NotZero(t, recs[2].ID)

	st, err = query.Compose(query.Filter{
		Columns: []string{"mok"},
		Include: map[string][]string{"gwan": {"운영비"}},
	})
	require.NoError(t, err)
	recs, err = repo.Search(ctx, st)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Empty(t, recs[0].Gwan)

	n, err := repo.Count(ctx, st.Where)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	page, err := repo.Page(ctx, st, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
}

func TestLedgerRawOrCannotBypassFilters(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	db := openTestDB(t)
	repo := NewLedgerRepo(db)

	seed(t, ctx, db,
		ledger.Record{Gwan: "운영비", Amount: 10},
		ledger.Record{Gwan: "사업비", Amount: 20},
	)
	st, err := query.Compose(query.Filter{
		Raw:     "amount > 100 OR 1 = 1",
		Include: map[string][]string{"gwan": {"운영비"}},
	})
	require.NoError(t, err)
	recs, err := repo.Search(ctx, st)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "운영비", recs[0].Gwan)
}

func TestLedgerDistinctSkipsEmpty(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	db := openTestDB(t)
	repo := NewLedgerRepo(db)

	seed(t, ctx, db,
		ledger.Record{Gwan: "운영비", Hang: "인건비"},
		ledger.Record{Gwan: "운영비", Hang: "인건비"},
		ledger.Record{Gwan: "운영비", Hang: ""},
		ledger.Record{Gwan: "사업비", Hang: "행사비"},
	)
	st, err := query.ComposeDistinct("hang", query.Filter{Include: map[string][]string{"gwan": {"운영비"}}})
	require.NoError(t, err)
	vals, err := repo.Distinct(ctx, st)
	require.NoError(t, err)
	require.Equal(t, []string{"인건비"}, vals)
}

func TestLedgerDuplicatesTreatNullAsEmpty(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	db := openTestDB(t)
	repo := NewLedgerRepo(db)
	require.NoError(t, repo.EnsureSchema(ctx, db))

	insert := `INSERT INTO accounting_transactions(type, gwan, hang, mok, semok, detail_1, detail_2, detail_3, detail_4, amount, account_name, reg_date)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	// Same key; differs in gwan and null-vs-empty detail_4.
	_, err := db.ExecContext(ctx, insert, "지출", "운영비", "a", "식대", "s", "점심", "", "", nil, 9000, "x", "2024-01-05")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "지출", "사업비", "b", "식대", "s", "점심", "", "", "", 9000, "y", "2024-01-05")
	require.NoError(t, err)
	// Different amount.
	_, err = db.ExecContext(ctx, insert, "지출", "운영비", "a", "식대", "s", "점심", "", "", "", 9001, "x", "2024-01-05")
	require.NoError(t, err)
	// Earlier pair with no date.
	_, err = db.ExecContext(ctx, insert, "수입", "", "", "회비", "", "", "", "", "", 100, "", nil)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "수입", "", "", "회비", "", "", "", "", "", 100, "", "")
	require.NoError(t, err)

	dups, err := repo.Duplicates(ctx)
	require.NoError(t, err)
	require.Len(t, dups, 4)
	require.Equal(t, "회비", dups[0].Mok)
	require.Equal(t, "회비", dups[1].Mok)
	require.Less(t, dups[0].ID, dups[1].ID)
	require.Equal(t, "식대", dups[2].Mok)
	require.Equal(t, int64(9000), dups[3].Amount)
}

func TestLedgerUpdateAndDelete(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	db := openTestDB(t)
	repo := NewLedgerRepo(db)
	seed(t, ctx, db, ledger.Record{Gwan: "운영비", Amount: 10, RegDate: date("2024-01-01")})

	st, err := query.Compose(query.Filter{})
	require.NoError(t, err)
	recs, err := repo.Search(ctx, st)
	require.NoError(t, err)
	id := recs[0].ID

	n, err := repo.Update(ctx, id, map[string]any{"gwan": "사업비", "amount": int64(20), "reg_date": nil})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	rec, found, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "사업비", rec.Gwan)
	require.Equal(t, int64(20), rec.Amount)
	require.Nil(t, rec.RegDate)

	_, err = repo.Update(ctx, id, map[string]any{"id": 5})
	require.ErrorIs(t, err, ledger.ErrUnknownColumn)

	n, err = repo.Update(ctx, id+100, map[string]any{"gwan": "x"})
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	require.Zero(t, n)

	_, found, err = repo.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, found)
}

func TestBatchRepo(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	db := openTestDB(t)
	repo := NewBatchRepo(db)

	seen, err := repo.SeenFingerprint(ctx, "abc")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.Add(ctx, tx, Batch{ID: "b1", FileName: "ledger.xlsx", Fingerprint: "abc", RowCount: 3, IngestedAt: database.Now()})
	}))
	seen, err = repo.SeenFingerprint(ctx, "abc")
	require.NoError(t, err)
	require.True(t, seen)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "ledger.xlsx", list[0].FileName)
	require.Equal(t, 3, list[0].RowCount)
}
